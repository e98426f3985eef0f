package binance

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"xgains/internal/infrastructure/exchange"
)

// ErrMissingCredentials 签名请求没有配置 key/secret
var ErrMissingCredentials = errors.New("binance api key/secret not configured")

// APIError 非 200 响应
type APIError struct {
	Status     int
	Body       string
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	return fmt.Sprintf("binance http %d: %s", e.Status, e.Body)
}

// publicRequest GET 公共接口
func (c *APIClient) publicRequest(ctx context.Context, path string, params url.Values) ([]byte, error) {
	return exchange.Do(ctx, c.fetcher, path, func(ctx context.Context) exchange.Outcome[[]byte] {
		endpoint, err := exchange.BuildQueryURL(c.baseURL, path, params.Encode())
		if err != nil {
			return exchange.Terminal[[]byte](err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return exchange.Terminal[[]byte](err)
		}
		return c.send(ctx, req)
	})
}

// signedRequest is shared helper for signed REST calls.
// The timestamp and signature are rebuilt on every attempt.
func (c *APIClient) signedRequest(ctx context.Context, method, path string, params url.Values) ([]byte, error) {
	if !c.HasCredentials() {
		return nil, ErrMissingCredentials
	}
	if params == nil {
		params = url.Values{}
	}
	return exchange.Do(ctx, c.fetcher, path, func(ctx context.Context) exchange.Outcome[[]byte] {
		q := url.Values{}
		for k, v := range params {
			q[k] = v
		}
		q.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
		if q.Get("recvWindow") == "" {
			q.Set("recvWindow", "5000")
		}

		query := q.Encode()
		signature := c.credentials.Sign(query)
		endpoint := fmt.Sprintf("%s%s?%s&signature=%s", c.baseURL, path, query, signature)

		req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
		if err != nil {
			return exchange.Terminal[[]byte](err)
		}
		req.Header.Set("X-MBX-APIKEY", c.credentials.APIKey())
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return c.send(ctx, req)
	})
}

// send 执行一次请求并把结果分类为成功 / 可重试 / 终止
func (c *APIClient) send(ctx context.Context, req *http.Request) exchange.Outcome[[]byte] {
	if err := c.limiter.Wait(ctx); err != nil {
		return exchange.Terminal[[]byte](err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return exchange.Terminal[[]byte](err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return exchange.Terminal[[]byte](err)
	}

	if resp.StatusCode == http.StatusOK {
		return exchange.Success(body)
	}

	apiErr := &APIError{
		Status:     resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
		RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
	}
	// 非正数或缺失的 retry-after 视为终止
	return exchange.Retryable[[]byte](apiErr.RetryAfter, apiErr)
}

// parseRetryAfter 解析 Retry-After 秒数，无法解析返回 0
func parseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	secs, err := strconv.ParseFloat(v, 64)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs * float64(time.Second))
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}
