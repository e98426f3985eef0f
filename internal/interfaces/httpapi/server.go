package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"xgains/internal/application/port"
	"xgains/internal/application/service"
)

// LedgerQuerier /db 路由依赖
type LedgerQuerier interface {
	CheckTable(ctx context.Context, endpoint, table string) (port.LedgerRepository, error)
	Query(ctx context.Context, endpoint, table string, q port.RowQuery) (any, error)
}

// PriceQuerier /price 路由依赖
type PriceQuerier interface {
	Fiat() string
	PriceAt(ctx context.Context, asset string, ts time.Time) (float64, bool, error)
}

type Options struct {
	RateLimitRPS   float64
	RateLimitBurst int
}

type Server struct {
	ledger  LedgerQuerier
	prices  PriceQuerier
	limiter *rate.Limiter
	now     func() time.Time
}

func NewServer(ledger LedgerQuerier, prices PriceQuerier, opts Options) *Server {
	limit := rate.Inf
	if opts.RateLimitRPS > 0 {
		limit = rate.Limit(opts.RateLimitRPS)
	}
	burst := opts.RateLimitBurst
	if burst <= 0 {
		burst = 1
	}
	return &Server{
		ledger:  ledger,
		prices:  prices,
		limiter: rate.NewLimiter(limit, burst),
		now:     time.Now,
	}
}

// Router 注册全部路由
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.logRequests, s.rateLimit)

	r.Get("/db/{endpoint}/{table}", s.handleTable)
	r.Get("/price/{asset}", s.handlePrice)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	return r
}

func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	endpoint := chi.URLParam(r, "endpoint")
	table := chi.URLParam(r, "table")

	// endpoint / table 先于参数校验
	if _, err := s.ledger.CheckTable(r.Context(), endpoint, table); err != nil {
		s.writeServiceError(w, err)
		return
	}

	q, field, ok := parseRowQuery(r)
	if !ok {
		writeError(w, http.StatusBadRequest, field+" is not a number")
		return
	}

	result, err := s.ledger.Query(r.Context(), endpoint, table, q)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type priceResponse struct {
	Asset     string  `json:"asset"`
	Fiat      string  `json:"fiat"`
	Timestamp int64   `json:"timestamp"`
	Price     float64 `json:"price"`
}

func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	asset := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "asset")))

	ts := s.now()
	if raw := r.URL.Query().Get("timestamp"); raw != "" {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "timestamp is not a number")
			return
		}
		ts = time.UnixMilli(ms)
	}

	price, found, err := s.prices.PriceAt(r.Context(), asset, ts)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "no price found")
		return
	}
	writeJSON(w, http.StatusOK, priceResponse{
		Asset:     asset,
		Fiat:      s.prices.Fiat(),
		Timestamp: ts.UnixMilli(),
		Price:     price,
	})
}

// parseRowQuery 空字符串视为未提供；失败时返回出错的参数名
func parseRowQuery(r *http.Request) (port.RowQuery, string, bool) {
	values := r.URL.Query()
	var q port.RowQuery

	if raw := values.Get("id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return q, "id", false
		}
		q.ID = &id
	}
	if raw := values.Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return q, "offset", false
		}
		q.Offset = n
	}
	if raw := values.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return q, "limit", false
		}
		q.Limit = n
	}
	return q, "", true
}

func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrEndpointNotFound), errors.Is(err, service.ErrTableNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		log.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			log.Warn().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("remote", r.RemoteAddr).
				Msg("rate limit exceeded")
			writeError(w, http.StatusTooManyRequests, http.StatusText(http.StatusTooManyRequests))
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("took", time.Since(start)).
			Msg("http request")
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("encode response failed")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
