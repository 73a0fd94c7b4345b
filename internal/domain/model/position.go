package model

// MarginMode 保证金模式
type MarginMode string

const (
	MarginCrossed  MarginMode = "CROSSED"
	MarginIsolated MarginMode = "ISOLATED"
)

// Bybit tradeMode: 0 全仓, 1 逐仓
const (
	TradeModeCross    = 0
	TradeModeIsolated = 1
)

// Position 交易所返回的持仓记录
type Position struct {
	Symbol      string  `json:"symbol"`
	Side        string  `json:"side"` // Buy / Sell / "" (无仓位)
	Size        float64 `json:"size"`
	AvgPrice    float64 `json:"avg_price"`
	Leverage    float64 `json:"leverage"`
	TradeMode   int     `json:"trade_mode"`
	PositionIdx int     `json:"position_idx"`
}

// Isolated 是否为逐仓
func (p *Position) Isolated() bool {
	return p.TradeMode == TradeModeIsolated
}

// SignedSize Buy 为正，其他方向为负
func (p *Position) SignedSize() float64 {
	if p.Side == SideBuy || p.Size == 0 {
		return p.Size
	}
	return -p.Size
}

// PositionSummary 对外返回的持仓摘要
type PositionSummary struct {
	Pair     string  `json:"pair"`
	Amount   float64 `json:"amount"`
	Price    float64 `json:"price"`
	Leverage float64 `json:"leverage"`
}

// TradingStop 止盈止损设置
type TradingStop struct {
	Symbol      string
	TakeProfit  float64
	StopLoss    float64
	PositionIdx int
}

// ChangeResult 杠杆/保证金模式变更结果
type ChangeResult struct {
	Changed bool   `json:"changed"`
	Message string `json:"message"`
}
