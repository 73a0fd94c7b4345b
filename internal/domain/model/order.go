package model

import "time"

const (
	SideBuy  = "Buy"
	SideSell = "Sell"

	// 仓位方向（market order 的入参）
	DirectionLong  = "long"
	DirectionShort = "short"

	OrderTypeMarket = "Market"
	OrderTypeLimit  = "Limit"

	TimeInForceGTC = "GTC"

	// 未确认成交时返回的占位值
	Unknown = "none"
)

// Bybit orderStatus
const (
	OrderStatusNew                     = "New"
	OrderStatusPartiallyFilled         = "PartiallyFilled"
	OrderStatusFilled                  = "Filled"
	OrderStatusCancelled               = "Cancelled"
	OrderStatusRejected                = "Rejected"
	OrderStatusPartiallyFilledCanceled = "PartiallyFilledCanceled"
	OrderStatusDeactivated             = "Deactivated"
)

// OrderRequest 下单请求（单向持仓模式）
type OrderRequest struct {
	Symbol         string
	Side           string
	OrderType      string
	Qty            string
	TimeInForce    string
	PositionIdx    int
	ReduceOnly     bool
	CloseOnTrigger bool
	OrderLinkID    string
}

// Order 交易所订单快照
type Order struct {
	OrderID     string  `json:"order_id"`
	OrderLinkID string  `json:"order_link_id"`
	Symbol      string  `json:"symbol"`
	Side        string  `json:"side"`
	OrderType   string  `json:"order_type"`
	Status      string  `json:"status"`
	Qty         float64 `json:"qty"`
	CumExecQty  float64 `json:"cum_exec_qty"`
	AvgPrice    float64 `json:"avg_price"`
	UpdatedAt   int64   `json:"updated_at"`
}

// Settled 订单已进入终态或已有成交
func (o *Order) Settled() bool {
	switch o.Status {
	case OrderStatusFilled, OrderStatusCancelled, OrderStatusRejected,
		OrderStatusPartiallyFilledCanceled, OrderStatusDeactivated:
		return true
	}
	return o.CumExecQty > 0
}

// OrderFill 订单查询结果
type OrderFill struct {
	Pair   string  `json:"pair"`
	Side   string  `json:"side"`
	Amount float64 `json:"amount"`
	Price  float64 `json:"price"`
}

// OrderResult 下单结果
type OrderResult struct {
	ID     string  `json:"id"`
	Pair   string  `json:"pair"`
	Side   string  `json:"side"`
	Amount float64 `json:"amount"`
	Price  float64 `json:"price"`
}

// TradeEventType 交易事件类型
type TradeEventType string

const (
	EventOrderPlaced     TradeEventType = "order_placed"
	EventTradingStopSet  TradeEventType = "trading_stop_set"
	EventPositionsClosed TradeEventType = "positions_closed"
	EventOrdersCancelled TradeEventType = "orders_cancelled"
)

// TradeEvent 对外发布的交易事件
type TradeEvent struct {
	Type      TradeEventType `json:"type"`
	Symbol    string         `json:"symbol,omitempty"`
	Side      string         `json:"side,omitempty"`
	Qty       float64        `json:"qty,omitempty"`
	Price     float64        `json:"price,omitempty"`
	OrderID   string         `json:"order_id,omitempty"`
	Message   string         `json:"message,omitempty"`
	Timestamp time.Time      `json:"ts"`
}
