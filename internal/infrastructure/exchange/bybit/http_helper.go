package bybit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-resty/resty/v2"
)

// Bybit 返回码：修改值与当前值相同
const (
	retCodeLeverageNotModified   = 110043
	retCodeMarginModeNotModified = 110026
)

// APIError 交易所业务错误（retCode != 0）
type APIError struct {
	Code int
	Msg  string
	Path string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bybit api error: [%d] %s (%s)", e.Code, e.Msg, e.Path)
}

// IsNotModified 目标值与当前值一致，交易所拒绝修改
func IsNotModified(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == retCodeLeverageNotModified || apiErr.Code == retCodeMarginModeNotModified
}

// apiResponse V5 通用响应
type apiResponse[T any] struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  T      `json:"result"`
}

// decodeResult 解析响应并检查 retCode
func decodeResult[T any](path string, body []byte) (*apiResponse[T], error) {
	var resp apiResponse[T]
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse %s response failed: %w", path, err)
	}
	if resp.RetCode != 0 {
		return &resp, &APIError{Code: resp.RetCode, Msg: resp.RetMsg, Path: path}
	}
	return &resp, nil
}

// signedJSONRequest 发送带 JSON payload 的签名请求
func (c *APIClient) signedJSONRequest(ctx context.Context, method, path string, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req := c.httpClient.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body)
	c.sign(req, string(body))

	resp, err := req.Execute(method, path)
	return readBody(resp, err)
}

// signedQueryRequest 发送带 query 的签名请求
func (c *APIClient) signedQueryRequest(ctx context.Context, method, path string, params url.Values) ([]byte, error) {
	var query string
	if params != nil {
		query = params.Encode()
	}

	endpoint := path
	if query != "" {
		endpoint += "?" + query
	}

	req := c.httpClient.R().SetContext(ctx)
	c.sign(req, query)

	resp, err := req.Execute(method, endpoint)
	return readBody(resp, err)
}

// publicQueryRequest 公共接口无需签名
func (c *APIClient) publicQueryRequest(ctx context.Context, path string, params url.Values) ([]byte, error) {
	endpoint := path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	resp, err := c.httpClient.R().SetContext(ctx).Get(endpoint)
	return readBody(resp, err)
}

// sign Bybit V5 signature: timestamp + apiKey + recvWindow + payload
func (c *APIClient) sign(req *resty.Request, payload string) {
	timestamp := strconv.FormatInt(c.now().UnixMilli(), 10)
	signStr := timestamp + c.credentials.APIKey() + c.recvWindow + payload

	req.SetHeader("X-BAPI-API-KEY", c.credentials.APIKey())
	req.SetHeader("X-BAPI-TIMESTAMP", timestamp)
	req.SetHeader("X-BAPI-RECV-WINDOW", c.recvWindow)
	req.SetHeader("X-BAPI-SIGN", c.credentials.Sign(signStr))
}

func readBody(resp *resty.Response, err error) ([]byte, error) {
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("bybit http %d: %s", resp.StatusCode(), string(resp.Body()))
	}
	return resp.Body(), nil
}
