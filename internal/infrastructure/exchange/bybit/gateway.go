package bybit

import "unifut/internal/application/port"

// Gateway 把四个客户端组合成 port.Exchange
type Gateway struct {
	*AccountClient
	*MarketClient
	*PositionClient
	*OrderClient
}

// Gateway 返回组合后的交易所实现
func (m *LinearManager) Gateway() *Gateway {
	return &Gateway{
		AccountClient:  m.Account,
		MarketClient:   m.Market,
		PositionClient: m.Position,
		OrderClient:    m.Order,
	}
}

var _ port.Exchange = (*Gateway)(nil)
