package port

import (
	"context"

	"unifut/internal/domain/model"
)

// AccountAPI 账户查询
type AccountAPI interface {
	// GetWalletCoins 返回 accountType 下第一个账户的币种余额列表
	GetWalletCoins(ctx context.Context, accountType, coin string) ([]model.CoinBalance, error)
}

// MarketAPI 公共行情与合约元数据
type MarketAPI interface {
	GetInstruments(ctx context.Context) ([]model.Instrument, error)
	GetLastPrice(ctx context.Context, symbol string) (float64, error)
}

// PositionAPI 持仓与仓位设置
type PositionAPI interface {
	GetPositions(ctx context.Context, symbol string) ([]model.Position, error)
	ListPositions(ctx context.Context, settleCoin string) ([]model.Position, error)
	SetLeverage(ctx context.Context, symbol string, leverage float64) (string, error)
	SwitchMarginMode(ctx context.Context, symbol string, tradeMode int, leverage float64) (string, error)
	SetTradingStop(ctx context.Context, stop model.TradingStop) (string, error)
}

// OrderAPI 下单与订单查询
type OrderAPI interface {
	PlaceOrder(ctx context.Context, req model.OrderRequest) (string, error)
	GetRealtimeOrders(ctx context.Context, symbol, orderID string) ([]model.Order, error)
	CancelAll(ctx context.Context, symbol string) (string, error)
}

// Exchange 单一交易所的 REST 能力集合
type Exchange interface {
	AccountAPI
	MarketAPI
	PositionAPI
	OrderAPI
}

// FillConfirmer 等待订单出现并成交
type FillConfirmer interface {
	Confirm(ctx context.Context, symbol, orderID string) (*model.Order, error)
}
