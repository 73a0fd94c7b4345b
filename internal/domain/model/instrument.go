package model

// ========== Instrument Models ==========

// Instrument 线性永续合约元数据（instruments-info 的一条记录）
type Instrument struct {
	Symbol      string  `json:"symbol"`
	Status      string  `json:"status"`
	BaseCoin    string  `json:"base_coin"`
	QuoteCoin   string  `json:"quote_coin"`
	SettleCoin  string  `json:"settle_coin"`
	MinOrderQty string  `json:"min_order_qty"` // lotSizeFilter.minOrderQty
	MaxOrderQty string  `json:"max_order_qty"` // lotSizeFilter.maxOrderQty
	QtyStep     string  `json:"qty_step"`      // lotSizeFilter.qtyStep
	TickSize    string  `json:"tick_size"`     // priceFilter.tickSize
	MinLeverage float64 `json:"min_leverage"`
	MaxLeverage float64 `json:"max_leverage"`
}

// PairParameters 下单前需要的交易对参数
type PairParameters struct {
	MinSize           float64 `json:"min_size"`
	Price             float64 `json:"price"` // 最新成交价
	QuantityPrecision int     `json:"quantity_precision"`
	PricePrecision    int     `json:"price_precision"`
	StepSize          float64 `json:"step_size"`
}

// CoinBalance 钱包中单个币种的余额
type CoinBalance struct {
	Coin          string  `json:"coin"`
	Equity        float64 `json:"equity"`
	WalletBalance float64 `json:"wallet_balance"`
}
