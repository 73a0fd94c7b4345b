package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"unifut/internal/application/port"
	"unifut/internal/domain/model"
)

// Publisher 通过 Redis PUBLISH 推送交易事件
type Publisher struct {
	rdb     *redis.Client
	channel string
}

// New channel 为空时使用 prefix + ":events"
func New(rdb *redis.Client, prefix, channel string) *Publisher {
	if strings.TrimSpace(prefix) == "" {
		prefix = "unifut"
	}
	if strings.TrimSpace(channel) == "" {
		channel = prefix + ":events"
	}
	return &Publisher{rdb: rdb, channel: channel}
}

// Channel 发布频道名
func (p *Publisher) Channel() string {
	return p.channel
}

func (p *Publisher) Publish(ctx context.Context, event model.TradeEvent) error {
	b, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal trade event failed: %w", err)
	}
	if err := p.rdb.Publish(ctx, p.channel, b).Err(); err != nil {
		return fmt.Errorf("redis publish %s failed: %w", p.channel, err)
	}
	return nil
}

var _ port.EventPublisher = (*Publisher)(nil)
