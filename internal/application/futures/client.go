package futures

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"unifut/internal/application/port"
	"unifut/internal/domain/model"
	"unifut/internal/domain/precision"
	"unifut/internal/domain/symbol"
)

const (
	DefaultAccountType = "UNIFIED"
	DefaultCoin        = "USDT"
	DefaultPair        = "BTCUSDT"

	noLeverageChange   = "No need to change leverage"
	noMarginTypeChange = "No need to change margin type"

	CloseDone    = "close-done"
	CancelDone   = "cancel-done"
	CancelFailed = "cancel-failed"
)

// Options 门面参数
type Options struct {
	AccountType string        // UNIFIED / CONTRACT
	SettleCoin  string        // close-all 时列出持仓的结算币种
	SettleDelay time.Duration // 下单后等待多久再确认成交
}

func (o *Options) applyDefaults() {
	if strings.TrimSpace(o.AccountType) == "" {
		o.AccountType = DefaultAccountType
	}
	if strings.TrimSpace(o.SettleCoin) == "" {
		o.SettleCoin = DefaultCoin
	}
	if o.SettleDelay < 0 {
		o.SettleDelay = 0
	}
}

// Client Bybit USDT 永续交易门面
//
// 唯一的缓存状态是合约元数据列表，构造时加载，RefreshPrecisions 时整体替换。
type Client struct {
	exchange  port.Exchange
	confirmer port.FillConfirmer
	publisher port.EventPublisher
	opts      Options

	mu          sync.RWMutex
	instruments []model.Instrument
	loaded      bool

	now       func() time.Time
	newLinkID func() string
}

// New 创建门面并加载合约元数据。元数据加载失败只记录日志，不影响构造。
func New(ctx context.Context, exchange port.Exchange, confirmer port.FillConfirmer, publisher port.EventPublisher, opts Options) *Client {
	opts.applyDefaults()
	if publisher == nil {
		publisher = port.NoopPublisher{}
	}
	if confirmer == nil {
		confirmer = NewPollConfirmer(exchange, PollConfig{})
	}

	c := &Client{
		exchange:  exchange,
		confirmer: confirmer,
		publisher: publisher,
		opts:      opts,
		now:       time.Now,
		newLinkID: uuid.NewString,
	}

	if _, err := c.RefreshPrecisions(ctx); err != nil {
		log.Warn().Err(err).Msg("instrument metadata not loaded at startup")
	}
	return c
}

// AccountType 当前账户类型
func (c *Client) AccountType() string {
	return c.opts.AccountType
}

// RoundDecimalsDown 向下截断到 decimals 位小数
func (c *Client) RoundDecimalsDown(number float64, decimals int) (float64, error) {
	return RoundDecimalsDown(number, decimals)
}

// RoundDecimalsDown 不依赖交易所连接的版本
func RoundDecimalsDown(number float64, decimals int) (float64, error) {
	v, err := precision.RoundDown(number, decimals)
	if err != nil {
		return 0, fail("round decimals down", err)
	}
	return v, nil
}

// GetBalance 返回指定币种的 equity
func (c *Client) GetBalance(ctx context.Context, coin string) (float64, error) {
	coin = orDefault(coin, DefaultCoin)

	coins, err := c.exchange.GetWalletCoins(ctx, c.opts.AccountType, coin)
	if err != nil {
		return 0, fail("get balance", err)
	}
	for _, b := range coins {
		if b.Coin == coin {
			return b.Equity, nil
		}
	}
	return 0, fail("get balance", errors.Wrap(model.ErrCoinNotFound, coin))
}

// RefreshPrecisions 重新拉取合约元数据并整体替换缓存，返回合约数量
func (c *Client) RefreshPrecisions(ctx context.Context) (int, error) {
	instruments, err := c.exchange.GetInstruments(ctx)
	if err != nil {
		return 0, fail("get precisions", err)
	}

	c.mu.Lock()
	c.instruments = instruments
	c.loaded = true
	c.mu.Unlock()

	log.Info().Str("exchange", "BYBIT").Int("instruments", len(instruments)).Msg("instrument metadata loaded")
	return len(instruments), nil
}

// GetPairs 远程拉取合约列表，保留后四位等于 coin 的交易对并排序
func (c *Client) GetPairs(ctx context.Context, coin string) ([]string, error) {
	coin = orDefault(coin, DefaultCoin)

	instruments, err := c.exchange.GetInstruments(ctx)
	if err != nil {
		return nil, fail("get pairs", err)
	}

	pairs := make([]string, 0, len(instruments))
	for _, it := range instruments {
		if symbol.SettledIn(it.Symbol, coin) {
			pairs = append(pairs, it.Symbol)
		}
	}
	sort.Strings(pairs)
	return pairs, nil
}

// GetPairParameters 下单前需要的交易对参数，价格为最新成交价
func (c *Client) GetPairParameters(ctx context.Context, pair string) (*model.PairParameters, error) {
	pair = orDefault(pair, DefaultPair)

	info, err := c.instrument(pair)
	if err != nil {
		return nil, fail("get pair parameters", err)
	}

	price, err := c.exchange.GetLastPrice(ctx, pair)
	if err != nil {
		return nil, fail("get pair parameters", err)
	}

	return &model.PairParameters{
		MinSize:           precision.ParseFloat(info.MinOrderQty),
		Price:             price,
		QuantityPrecision: precision.DecimalsOf(info.QtyStep),
		PricePrecision:    precision.DecimalsOf(info.TickSize),
		StepSize:          precision.ParseFloat(info.QtyStep),
	}, nil
}

func (c *Client) instrument(pair string) (model.Instrument, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.loaded {
		return model.Instrument{}, model.ErrInstrumentsNotLoaded
	}
	for _, it := range c.instruments {
		if it.Symbol == pair {
			return it, nil
		}
	}
	return model.Instrument{}, errors.Wrap(model.ErrPairNotFound, pair)
}

// SetLeverage 持仓杠杆与目标不同时才修改
func (c *Client) SetLeverage(ctx context.Context, pair string, leverage float64) (*model.ChangeResult, error) {
	pair = symbol.Normalize(pair)
	if err := precision.CheckFinite(leverage); err != nil {
		return nil, fail("set leverage", err)
	}
	if leverage <= 0 {
		leverage = 1
	}

	positions, err := c.exchange.GetPositions(ctx, pair)
	if err != nil {
		return nil, fail("set leverage", err)
	}
	if len(positions) == 0 || positions[0].Leverage == leverage {
		return &model.ChangeResult{Message: noLeverageChange}, nil
	}

	msg, err := c.exchange.SetLeverage(ctx, pair, leverage)
	if err != nil {
		return nil, fail("set leverage", err)
	}
	return &model.ChangeResult{Changed: true, Message: msg}, nil
}

// SetMarginType 在全仓/逐仓之间切换；leverage 为 0 时沿用持仓杠杆
func (c *Client) SetMarginType(ctx context.Context, pair string, marginType model.MarginMode, leverage float64) (*model.ChangeResult, error) {
	pair = symbol.Normalize(pair)
	if err := precision.CheckFinite(leverage); err != nil {
		return nil, fail("set margin type", err)
	}
	marginType = model.MarginMode(symbol.Normalize(string(marginType)))
	if marginType == "" {
		marginType = model.MarginIsolated
	}

	positions, err := c.exchange.GetPositions(ctx, pair)
	if err != nil {
		return nil, fail("set margin type", err)
	}
	if len(positions) == 0 {
		return nil, fail("set margin type", errors.Wrap(model.ErrPositionNotFound, pair))
	}
	pos := positions[0]
	if leverage <= 0 {
		leverage = pos.Leverage
	}

	var tradeMode int
	switch {
	case pos.Isolated() && marginType == model.MarginCrossed:
		tradeMode = model.TradeModeCross
	case !pos.Isolated() && marginType == model.MarginIsolated:
		tradeMode = model.TradeModeIsolated
	default:
		return &model.ChangeResult{Message: noMarginTypeChange}, nil
	}

	msg, err := c.exchange.SwitchMarginMode(ctx, pair, tradeMode, leverage)
	if err != nil {
		return nil, fail("set margin type", err)
	}
	return &model.ChangeResult{Changed: true, Message: msg}, nil
}

// MakeOrder 单向持仓模式下单，等待 settle delay 后确认成交
func (c *Client) MakeOrder(ctx context.Context, pair, side string, quantity float64, orderType string) (*model.OrderResult, error) {
	pair = symbol.Normalize(pair)
	if err := precision.CheckFinite(quantity); err != nil {
		return nil, fail("make order", err)
	}
	req := model.OrderRequest{
		Symbol:      pair,
		Side:        side,
		OrderType:   orderType,
		Qty:         precision.FormatQty(quantity),
		TimeInForce: model.TimeInForceGTC,
		PositionIdx: 0,
		OrderLinkID: c.newLinkID(),
	}

	orderID, err := c.exchange.PlaceOrder(ctx, req)
	if err != nil {
		return nil, fail("make order", err)
	}

	result := &model.OrderResult{
		ID:     orderID,
		Pair:   pair,
		Side:   model.Unknown,
		Amount: quantity,
	}

	if sleepCtx(ctx, c.opts.SettleDelay) {
		if order, err := c.confirmer.Confirm(ctx, pair, orderID); err == nil {
			fill := toFill(pair, order)
			result.Side = fill.Side
			result.Amount = fill.Amount
			result.Price = fill.Price
		} else {
			log.Warn().Err(err).Str("symbol", pair).Str("orderId", orderID).Msg("order placed but not confirmed")
		}
	}

	c.publish(ctx, model.TradeEvent{
		Type:    model.EventOrderPlaced,
		Symbol:  pair,
		Side:    side,
		Qty:     result.Amount,
		Price:   result.Price,
		OrderID: orderID,
	})
	return result, nil
}

// MarketOrder long 买入，其余方向卖出
func (c *Client) MarketOrder(ctx context.Context, pair, direction string, quantity float64) (*model.OrderResult, error) {
	side := model.SideSell
	if direction == model.DirectionLong {
		side = model.SideBuy
	}
	return c.MakeOrder(ctx, pair, side, quantity, model.OrderTypeMarket)
}

// SLTPOrder 设置持仓止盈止损，返回交易所消息
func (c *Client) SLTPOrder(ctx context.Context, pair string, tpPrice, slPrice float64) (string, error) {
	pair = symbol.Normalize(pair)
	if err := precision.CheckFinite(tpPrice, slPrice); err != nil {
		return "", fail("sltp order", err)
	}
	msg, err := c.exchange.SetTradingStop(ctx, model.TradingStop{
		Symbol:     pair,
		TakeProfit: tpPrice,
		StopLoss:   slPrice,
	})
	if err != nil {
		return "", fail("sltp order", err)
	}

	c.publish(ctx, model.TradeEvent{Type: model.EventTradingStopSet, Symbol: pair, Message: msg})
	return msg, nil
}

// CloseAllPositions 对每个非零持仓下反向市价单；单笔失败只记录日志
func (c *Client) CloseAllPositions(ctx context.Context) (string, error) {
	positions, err := c.exchange.ListPositions(ctx, c.opts.SettleCoin)
	if err != nil {
		return "", fail("close all positions", err)
	}

	closed := 0
	for _, pos := range positions {
		if pos.Size <= 0 {
			continue
		}

		var direction string
		switch pos.Side {
		case model.SideBuy:
			direction = model.DirectionShort
		case model.SideSell:
			direction = model.DirectionLong
		default:
			continue
		}

		if _, err := c.MarketOrder(ctx, pos.Symbol, direction, pos.Size); err != nil {
			log.Error().Err(err).Str("symbol", pos.Symbol).Float64("qty", pos.Size).Msg("close position failed")
			continue
		}
		closed++
	}

	log.Info().Int("closed", closed).Msg(CloseDone)
	c.publish(ctx, model.TradeEvent{Type: model.EventPositionsClosed, Qty: float64(closed), Message: CloseDone})
	return CloseDone, nil
}

// CancelAllOrders 撤销交易对全部挂单
func (c *Client) CancelAllOrders(ctx context.Context, pair string) (string, error) {
	pair = orDefault(pair, DefaultPair)

	retMsg, err := c.exchange.CancelAll(ctx, pair)
	if err != nil {
		return "", fail("cancel all orders", err)
	}

	message := CancelDone
	if retMsg != "OK" {
		message = CancelFailed
	}
	log.Info().Str("symbol", pair).Str("retMsg", retMsg).Msg(message)

	c.publish(ctx, model.TradeEvent{Type: model.EventOrdersCancelled, Symbol: pair, Message: message})
	return message, nil
}

// GetPosition 第一条持仓记录，没有记录时返回 0
func (c *Client) GetPosition(ctx context.Context, pair string) (*model.PositionSummary, error) {
	pair = orDefault(pair, DefaultPair)

	positions, err := c.exchange.GetPositions(ctx, pair)
	if err != nil {
		return nil, fail("get position", err)
	}

	summary := &model.PositionSummary{Pair: pair}
	if len(positions) > 0 {
		pos := positions[0]
		summary.Amount = pos.SignedSize()
		summary.Price = pos.AvgPrice
		summary.Leverage = pos.Leverage
	}
	return summary, nil
}

// GetOrder 等待订单出现并确认，side 为小写
func (c *Client) GetOrder(ctx context.Context, pair, orderID string) (*model.OrderFill, error) {
	pair = symbol.Normalize(pair)
	order, err := c.confirmer.Confirm(ctx, pair, orderID)
	if err != nil {
		return nil, fail("get order", err)
	}
	return toFill(pair, order), nil
}

func toFill(pair string, order *model.Order) *model.OrderFill {
	return &model.OrderFill{
		Pair:   pair,
		Side:   strings.ToLower(order.Side),
		Amount: order.Qty,
		Price:  order.AvgPrice,
	}
}

func (c *Client) publish(ctx context.Context, event model.TradeEvent) {
	event.Timestamp = c.now()
	if err := c.publisher.Publish(ctx, event); err != nil {
		log.Warn().Err(err).Str("event", string(event.Type)).Msg("publish trade event failed")
	}
}

// fail 包装错误并记录一次带堆栈的日志
func fail(op string, err error) error {
	wrapped := errors.Wrap(err, op)
	log.Error().Stack().Err(wrapped).Str("op", op).Msg("futures operation failed")
	return wrapped
}

func orDefault(v, def string) string {
	if v = symbol.Normalize(v); v == "" {
		return def
	}
	return v
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
