package bybit

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	MainnetBaseURL = "https://api.bybit.com"
	TestnetBaseURL = "https://api-testnet.bybit.com"

	MainnetPrivateWsURL = "wss://stream.bybit.com/v5/private"
	TestnetPrivateWsURL = "wss://stream-testnet.bybit.com/v5/private"

	categoryLinear = "linear"
)

// ===== Credentials 凭证 =====

// Credentials 包含 API 凭证和签名方法
type Credentials struct {
	apiKey    string
	apiSecret string
}

// NewCredentials 创建凭证对象
func NewCredentials(apiKey, apiSecret string) *Credentials {
	return &Credentials{
		apiKey:    strings.TrimSpace(apiKey),
		apiSecret: strings.TrimSpace(apiSecret),
	}
}

// Sign 生成 HMAC-SHA256 签名（hex）
func (c *Credentials) Sign(data string) string {
	h := hmac.New(sha256.New, []byte(c.apiSecret))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

// APIKey 返回 API Key
func (c *Credentials) APIKey() string {
	return c.apiKey
}

// Options 客户端可选参数
type Options struct {
	Testnet    bool
	BaseURL    string // 非空时覆盖 Testnet 推导出的地址
	RecvWindow time.Duration
	Timeout    time.Duration
}

func (o Options) baseURL() string {
	if strings.TrimSpace(o.BaseURL) != "" {
		return strings.TrimRight(o.BaseURL, "/")
	}
	if o.Testnet {
		return TestnetBaseURL
	}
	return MainnetBaseURL
}

// PrivateWsURL 根据 Testnet 返回私有 WebSocket 地址
func PrivateWsURL(testnet bool) string {
	if testnet {
		return TestnetPrivateWsURL
	}
	return MainnetPrivateWsURL
}

// APIClient 封装访问 Bybit REST API 所需的共享依赖
type APIClient struct {
	credentials *Credentials
	httpClient  *resty.Client
	baseURL     string
	recvWindow  string
	now         func() time.Time
}

// NewAPIClient 创建共享 HTTP 会话
func NewAPIClient(credentials *Credentials, opts Options) *APIClient {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.RecvWindow <= 0 {
		opts.RecvWindow = 5 * time.Second
	}
	baseURL := opts.baseURL()
	return &APIClient{
		credentials: credentials,
		httpClient: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(opts.Timeout).
			SetHeader("Accept", "application/json"),
		baseURL:    baseURL,
		recvWindow: strconv.FormatInt(opts.RecvWindow.Milliseconds(), 10),
		now:        time.Now,
	}
}

// BaseURL 当前 REST 地址
func (c *APIClient) BaseURL() string {
	return c.baseURL
}

// ===== Manager 结构 =====

// LinearManager Bybit USDT 永续统一管理器，四个客户端共享同一个 HTTP 会话
type LinearManager struct {
	Account  *AccountClient
	Market   *MarketClient
	Position *PositionClient
	Order    *OrderClient
}

// NewLinearManager 通过一组凭证创建永续 manager
func NewLinearManager(apiKey, apiSecret string, opts Options) *LinearManager {
	apiClient := NewAPIClient(NewCredentials(apiKey, apiSecret), opts)
	return &LinearManager{
		Account:  NewAccountClient(apiClient),
		Market:   NewMarketClient(apiClient),
		Position: NewPositionClient(apiClient),
		Order:    NewOrderClient(apiClient),
	}
}
