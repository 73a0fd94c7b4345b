package container

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"unifut/internal/application/futures"
	"unifut/internal/application/port"
	"unifut/internal/domain/model"
	"unifut/internal/infrastructure/config"
	"unifut/internal/infrastructure/exchange/bybit"
	notifyredis "unifut/internal/infrastructure/notify/redis"
)

// Container 包含所有应用依赖
type Container struct {
	cfg         *config.Config
	manager     *bybit.LinearManager
	redisClient *redis.Client
	publisher   port.EventPublisher
	confirmer   port.FillConfirmer
	client      *futures.Client
	closeOnce   sync.Once
	closerChain []func() error
}

// New 创建容器：交易所客户端 → 事件发布 → 成交确认 → 门面
func New(ctx context.Context, cfg *config.Config) (*Container, error) {
	c := &Container{
		cfg:         cfg,
		publisher:   port.NoopPublisher{},
		closerChain: make([]func() error, 0),
	}

	c.manager = bybit.NewLinearManager(cfg.Bybit.APIKey, cfg.Bybit.APISecret, bybit.Options{
		Testnet:    cfg.Bybit.Testnet,
		BaseURL:    cfg.Bybit.BaseURL,
		RecvWindow: cfg.RecvWindow(),
		Timeout:    cfg.Timeout(),
	})
	gateway := c.manager.Gateway()
	log.Info().
		Str("base_url", c.manager.Account.BaseURL()).
		Bool("testnet", cfg.Bybit.Testnet).
		Msg("bybit client ready")

	if cfg.Notify.Redis.Enabled {
		if err := c.initRedis(ctx); err != nil {
			// 清理已初始化的资源
			_ = c.Close()
			return nil, fmt.Errorf("redis init failed: %w", err)
		}
	}

	switch cfg.Orders.ConfirmMode {
	case config.ConfirmModeStream:
		c.initOrderStream(ctx)
	default:
		c.confirmer = futures.NewPollConfirmer(gateway, futures.PollConfig{
			Timeout: cfg.ConfirmTimeout(),
			Min:     time.Duration(cfg.Orders.PollMinMs) * time.Millisecond,
			Max:     time.Duration(cfg.Orders.PollMaxMs) * time.Millisecond,
		})
	}

	c.client = futures.New(ctx, gateway, c.confirmer, c.publisher, futures.Options{
		AccountType: cfg.Bybit.AccountType,
		SettleCoin:  cfg.Orders.SettleCoin,
		SettleDelay: cfg.SettleDelay(),
	})

	return c, nil
}

// initRedis 初始化 Redis 连接并创建事件发布器
func (c *Container) initRedis(ctx context.Context) error {
	rdb := redis.NewClient(&redis.Options{
		Addr:     c.cfg.Notify.Redis.Addr,
		Password: c.cfg.Notify.Redis.Password,
		DB:       c.cfg.Notify.Redis.DB,
	})

	// 测试连接
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return fmt.Errorf("redis ping failed: %w", err)
	}

	c.redisClient = rdb
	pub := notifyredis.New(rdb, c.cfg.Notify.Redis.Prefix, c.cfg.Notify.Redis.Channel)
	c.publisher = pub

	// 注册关闭回调
	c.closerChain = append(c.closerChain, func() error {
		log.Info().Msg("closing redis connection")
		return rdb.Close()
	})

	log.Info().
		Str("addr", c.cfg.Notify.Redis.Addr).
		Int("db", c.cfg.Notify.Redis.DB).
		Str("channel", pub.Channel()).
		Msg("redis publisher initialized")

	return nil
}

// initOrderStream 启动私有订单流，确认超时由 confirm_timeout_sec 控制
func (c *Container) initOrderStream(ctx context.Context) {
	wsURL := c.cfg.Bybit.WsPrivateURL
	if wsURL == "" {
		wsURL = bybit.PrivateWsURL(c.cfg.Bybit.Testnet)
	}

	stream := bybit.NewOrderStream(wsURL, bybit.NewCredentials(c.cfg.Bybit.APIKey, c.cfg.Bybit.APISecret))
	sctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := stream.Run(sctx); err != nil && sctx.Err() == nil {
			log.Error().Err(err).Msg("order stream stopped")
		}
	}()

	c.confirmer = timeoutConfirmer{inner: stream, timeout: c.cfg.ConfirmTimeout()}
	c.closerChain = append(c.closerChain, func() error {
		log.Info().Msg("closing order stream")
		cancel()
		<-done
		return nil
	})

	log.Info().Str("url", wsURL).Msg("order stream started")
}

// timeoutConfirmer 为没有自带超时的确认器加上上限
type timeoutConfirmer struct {
	inner   port.FillConfirmer
	timeout time.Duration
}

func (t timeoutConfirmer) Confirm(ctx context.Context, symbol, orderID string) (*model.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.inner.Confirm(ctx, symbol, orderID)
}

// Config 获取配置
func (c *Container) Config() *config.Config {
	return c.cfg
}

// Client 获取交易门面
func (c *Container) Client() *futures.Client {
	return c.client
}

// Close 关闭所有资源（按后进先出顺序）
func (c *Container) Close() error {
	var err error
	c.closeOnce.Do(func() {
		for i := len(c.closerChain) - 1; i >= 0; i-- {
			if e := c.closerChain[i](); e != nil {
				log.Error().Err(e).Msg("error closing resource")
				if err == nil {
					err = e
				}
			}
		}
		log.Info().Msg("container closed")
	})
	return err
}
