package binance

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"xgains/internal/infrastructure/exchange"
)

// DefaultRESTURL Binance 现货 REST 地址
const DefaultRESTURL = "https://api.binance.com"

// ===== Credentials 凭证 =====

// Credentials 包含 API 凭证和签名方法
type Credentials struct {
	apiKey    string
	apiSecret string
}

// NewCredentials 创建凭证对象
func NewCredentials(apiKey, apiSecret string) *Credentials {
	return &Credentials{
		apiKey:    apiKey,
		apiSecret: apiSecret,
	}
}

// Sign 生成 HMAC-SHA256 签名
func (c *Credentials) Sign(data string) string {
	h := hmac.New(sha256.New, []byte(c.apiSecret))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

// APIKey 返回 API Key
func (c *Credentials) APIKey() string {
	return c.apiKey
}

// Options 客户端参数
type Options struct {
	BaseURL           string
	APIKey            string
	APISecret         string
	RequestsPerSecond float64
	MaxRetries        int
	Timeout           time.Duration
}

// APIClient 现货 REST 客户端
// 所有请求先经过本地限流器，再由 RateLimitedFetcher 处理服务端的 429/418
type APIClient struct {
	credentials *Credentials
	httpClient  *http.Client
	baseURL     string
	limiter     *rate.Limiter
	fetcher     *exchange.RateLimitedFetcher
}

// NewAPIClient 创建客户端
func NewAPIClient(opts Options) *APIClient {
	if strings.TrimSpace(opts.BaseURL) == "" {
		opts.BaseURL = DefaultRESTURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	return &APIClient{
		credentials: NewCredentials(opts.APIKey, opts.APISecret),
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		limiter: rate.NewLimiter(limit, 1),
		fetcher: exchange.NewRateLimitedFetcher(opts.MaxRetries),
	}
}

// HasCredentials 是否配置了签名所需的 key/secret
func (c *APIClient) HasCredentials() bool {
	return c.credentials.apiKey != "" && c.credentials.apiSecret != ""
}
