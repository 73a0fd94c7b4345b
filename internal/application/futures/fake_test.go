package futures

import (
	"context"
	"errors"
	"sync"

	"unifut/internal/domain/model"
)

// fakeExchange 内存版 port.Exchange
type fakeExchange struct {
	mu sync.Mutex

	coins          []model.CoinBalance
	instruments    []model.Instrument
	instrumentsErr error
	lastPrice      float64
	positions      map[string][]model.Position
	orders         map[string][]model.Order
	placeErr       map[string]error
	cancelMsg      string
	stopMsg        string

	placed      []model.OrderRequest
	leverageSet []float64
	modeSwitch  []int
	stops       []model.TradingStop
	realtimeHit int
}

func newFakeExchange() *fakeExchange {
	return &fakeExchange{
		positions: make(map[string][]model.Position),
		orders:    make(map[string][]model.Order),
		placeErr:  make(map[string]error),
		cancelMsg: "OK",
		stopMsg:   "OK",
	}
}

func (f *fakeExchange) GetWalletCoins(ctx context.Context, accountType, coin string) ([]model.CoinBalance, error) {
	return f.coins, nil
}

func (f *fakeExchange) GetInstruments(ctx context.Context) ([]model.Instrument, error) {
	if f.instrumentsErr != nil {
		return nil, f.instrumentsErr
	}
	return f.instruments, nil
}

func (f *fakeExchange) GetLastPrice(ctx context.Context, symbol string) (float64, error) {
	return f.lastPrice, nil
}

func (f *fakeExchange) GetPositions(ctx context.Context, symbol string) ([]model.Position, error) {
	return f.positions[symbol], nil
}

func (f *fakeExchange) ListPositions(ctx context.Context, settleCoin string) ([]model.Position, error) {
	var out []model.Position
	for _, list := range f.positions {
		out = append(out, list...)
	}
	return out, nil
}

func (f *fakeExchange) SetLeverage(ctx context.Context, symbol string, leverage float64) (string, error) {
	f.leverageSet = append(f.leverageSet, leverage)
	return "OK", nil
}

func (f *fakeExchange) SwitchMarginMode(ctx context.Context, symbol string, tradeMode int, leverage float64) (string, error) {
	f.modeSwitch = append(f.modeSwitch, tradeMode)
	return "OK", nil
}

func (f *fakeExchange) SetTradingStop(ctx context.Context, stop model.TradingStop) (string, error) {
	f.stops = append(f.stops, stop)
	return f.stopMsg, nil
}

func (f *fakeExchange) PlaceOrder(ctx context.Context, req model.OrderRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.placeErr[req.Symbol]; err != nil {
		return "", err
	}
	f.placed = append(f.placed, req)
	return "order-" + req.Symbol, nil
}

func (f *fakeExchange) GetRealtimeOrders(ctx context.Context, symbol, orderID string) ([]model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.realtimeHit++
	return f.orders[orderID], nil
}

func (f *fakeExchange) CancelAll(ctx context.Context, symbol string) (string, error) {
	return f.cancelMsg, nil
}

// recordingPublisher 记录发布的事件
type recordingPublisher struct {
	events []model.TradeEvent
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, event model.TradeEvent) error {
	p.events = append(p.events, event)
	return p.err
}

var errUpstream = errors.New("upstream down")
