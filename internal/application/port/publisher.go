package port

import (
	"context"

	"unifut/internal/domain/model"
)

// EventPublisher 交易事件发布
type EventPublisher interface {
	Publish(ctx context.Context, event model.TradeEvent) error
}

// NoopPublisher 未启用发布时使用
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, model.TradeEvent) error { return nil }
