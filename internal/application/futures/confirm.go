package futures

import (
	"context"
	"fmt"
	"time"

	"github.com/jpillora/backoff"
	"github.com/rs/zerolog/log"

	"unifut/internal/application/port"
	"unifut/internal/domain/model"
)

// PollConfig 轮询确认参数，零值使用默认
type PollConfig struct {
	Timeout time.Duration
	Min     time.Duration
	Max     time.Duration
}

// PollConfirmer 轮询 order/realtime 直到订单进入终态或产生成交
type PollConfirmer struct {
	orders port.OrderAPI
	cfg    PollConfig
}

// NewPollConfirmer 创建轮询确认器
func NewPollConfirmer(orders port.OrderAPI, cfg PollConfig) *PollConfirmer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Min <= 0 {
		cfg.Min = 500 * time.Millisecond
	}
	if cfg.Max < cfg.Min {
		cfg.Max = 2 * time.Second
		if cfg.Max < cfg.Min {
			cfg.Max = cfg.Min
		}
	}
	return &PollConfirmer{orders: orders, cfg: cfg}
}

// Confirm 超时后返回最后一次看到的订单；从未看到则返回 ErrOrderNotConfirmed
func (p *PollConfirmer) Confirm(ctx context.Context, symbol, orderID string) (*model.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	b := &backoff.Backoff{Min: p.cfg.Min, Max: p.cfg.Max, Factor: 1.5}

	var (
		last    *model.Order
		lastErr error
	)
	for {
		orders, err := p.orders.GetRealtimeOrders(ctx, symbol, orderID)
		if err != nil {
			lastErr = err
			log.Warn().Err(err).Str("symbol", symbol).Str("orderID", orderID).Msg("poll order failed")
		} else if o := findOrder(orders, orderID); o != nil {
			last = o
			if o.Settled() {
				return o, nil
			}
		}

		t := time.NewTimer(b.Duration())
		select {
		case <-ctx.Done():
			t.Stop()
			if last != nil {
				return last, nil
			}
			if lastErr != nil {
				return nil, fmt.Errorf("%w: %v", model.ErrOrderNotConfirmed, lastErr)
			}
			return nil, model.ErrOrderNotConfirmed
		case <-t.C:
		}
	}
}

func findOrder(orders []model.Order, orderID string) *model.Order {
	for i := range orders {
		if orders[i].OrderID == orderID {
			o := orders[i]
			return &o
		}
	}
	return nil
}
