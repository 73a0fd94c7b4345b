package bybit

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/rs/zerolog/log"

	"unifut/internal/domain/model"
	"unifut/internal/domain/precision"
)

// OrderClient Bybit 永续合约订单客户端 (V5 API)
type OrderClient struct {
	*APIClient
}

// NewOrderClient 创建订单客户端
func NewOrderClient(client *APIClient) *OrderClient {
	return &OrderClient{APIClient: client}
}

// placeOrderResult 下单响应
type placeOrderResult struct {
	OrderID     string `json:"orderId"`
	OrderLinkID string `json:"orderLinkId"`
}

// realtimeOrdersResult 实时订单响应
type realtimeOrdersResult struct {
	Category       string `json:"category"`
	NextPageCursor string `json:"nextPageCursor"`
	List           []struct {
		OrderID     string `json:"orderId"`
		OrderLinkID string `json:"orderLinkId"`
		Symbol      string `json:"symbol"`
		Side        string `json:"side"`
		OrderType   string `json:"orderType"`
		OrderStatus string `json:"orderStatus"`
		Qty         string `json:"qty"`
		Price       string `json:"price"`
		AvgPrice    string `json:"avgPrice"`
		CumExecQty  string `json:"cumExecQty"`
		TimeInForce string `json:"timeInForce"`
		CreatedTime int64  `json:"createdTime,string"`
		UpdatedTime int64  `json:"updatedTime,string"`
	} `json:"list"`
}

// PlaceOrder 下单，返回 orderId
func (c *OrderClient) PlaceOrder(ctx context.Context, req model.OrderRequest) (string, error) {
	const path = "/v5/order/create"

	payload := map[string]interface{}{
		"category":       categoryLinear,
		"symbol":         req.Symbol,
		"side":           req.Side,
		"orderType":      req.OrderType,
		"qty":            req.Qty,
		"positionIdx":    req.PositionIdx,
		"reduceOnly":     req.ReduceOnly,
		"closeOnTrigger": req.CloseOnTrigger,
	}
	if req.TimeInForce != "" {
		payload["timeInForce"] = req.TimeInForce
	}
	if req.OrderLinkID != "" {
		payload["orderLinkId"] = req.OrderLinkID
	}

	body, err := c.signedJSONRequest(ctx, http.MethodPost, path, payload)
	if err != nil {
		return "", fmt.Errorf("place order failed: %w", err)
	}

	resp, err := decodeResult[placeOrderResult](path, body)
	if err != nil {
		return "", err
	}

	log.Info().
		Str("exchange", "BYBIT").
		Str("symbol", req.Symbol).
		Str("side", req.Side).
		Str("orderType", req.OrderType).
		Str("qty", req.Qty).
		Str("orderID", resp.Result.OrderID).
		Str("orderLinkID", resp.Result.OrderLinkID).
		Msg("order placed")

	return resp.Result.OrderID, nil
}

// GetRealtimeOrders 查询实时订单（含最近完成的订单），orderID 为空时返回该交易对全部
func (c *OrderClient) GetRealtimeOrders(ctx context.Context, symbol, orderID string) ([]model.Order, error) {
	const path = "/v5/order/realtime"

	params := url.Values{}
	params.Set("category", categoryLinear)
	params.Set("symbol", symbol)
	if orderID != "" {
		params.Set("orderId", orderID)
	}

	body, err := c.signedQueryRequest(ctx, http.MethodGet, path, params)
	if err != nil {
		return nil, fmt.Errorf("get realtime orders failed: %w", err)
	}

	resp, err := decodeResult[realtimeOrdersResult](path, body)
	if err != nil {
		return nil, err
	}

	orders := make([]model.Order, 0, len(resp.Result.List))
	for _, o := range resp.Result.List {
		orders = append(orders, model.Order{
			OrderID:     o.OrderID,
			OrderLinkID: o.OrderLinkID,
			Symbol:      o.Symbol,
			Side:        o.Side,
			OrderType:   o.OrderType,
			Status:      o.OrderStatus,
			Qty:         precision.ParseFloat(o.Qty),
			CumExecQty:  precision.ParseFloat(o.CumExecQty),
			AvgPrice:    precision.ParseFloat(o.AvgPrice),
			UpdatedAt:   o.UpdatedTime,
		})
	}
	return orders, nil
}

// CancelAll 撤销交易对全部挂单，返回 retMsg
func (c *OrderClient) CancelAll(ctx context.Context, symbol string) (string, error) {
	payload := map[string]interface{}{
		"category": categoryLinear,
		"symbol":   symbol,
	}

	msg, err := c.postAction(ctx, "/v5/order/cancel-all", payload)
	if err != nil {
		return "", fmt.Errorf("cancel all orders failed: %w", err)
	}

	log.Info().
		Str("exchange", "BYBIT").
		Str("symbol", symbol).
		Str("retMsg", msg).
		Msg("orders cancelled")
	return msg, nil
}
