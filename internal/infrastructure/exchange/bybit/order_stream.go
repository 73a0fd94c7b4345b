package bybit

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fastjson"

	"unifut/internal/domain/model"
	"unifut/internal/domain/precision"
)

const recentOrderCap = 512

// OrderStream Bybit 私有 order 频道，用于确认订单成交
type OrderStream struct {
	wsURL       string
	credentials *Credentials

	mu      sync.Mutex
	waiters map[string][]chan model.Order
	recent  map[string]model.Order
	order   []string // recent 的插入顺序
}

// NewOrderStream 创建私有订单流
func NewOrderStream(wsURL string, credentials *Credentials) *OrderStream {
	return &OrderStream{
		wsURL:       strings.TrimSpace(wsURL),
		credentials: credentials,
		waiters:     make(map[string][]chan model.Order),
		recent:      make(map[string]model.Order),
	}
}

type wsRequest struct {
	Op   string        `json:"op"`
	Args []interface{} `json:"args,omitempty"`
}

// Run 连接并保持订阅直到 ctx 结束，断线后指数退避重连
func (s *OrderStream) Run(ctx context.Context) error {
	if s.wsURL == "" {
		return errors.New("bybit private ws_url empty")
	}

	backoff := 500 * time.Millisecond
	maxBackoff := 10 * time.Second

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		log.Warn().Str("stream", "order").Str("url", s.wsURL).Msg("ws connecting")
		cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		conn, _, err := websocket.DefaultDialer.DialContext(cctx, s.wsURL, nil)
		cancel()
		if err != nil {
			log.Error().Str("stream", "order").Err(err).Msg("ws dial failed")
			if !sleepCtx(ctx, backoff) {
				return ctx.Err()
			}
			backoff = minDur(backoff*2, maxBackoff)
			continue
		}

		if err := s.authAndSubscribe(conn); err != nil {
			_ = conn.Close()
			log.Error().Str("stream", "order").Err(err).Msg("auth/subscribe failed")
			if !sleepCtx(ctx, backoff) {
				return ctx.Err()
			}
			backoff = minDur(backoff*2, maxBackoff)
			continue
		}

		backoff = 500 * time.Millisecond
		log.Info().Str("stream", "order").Msg("ws connected & subscribed")

		err = readLoop(ctx, conn, s.handle)
		_ = conn.Close()

		if ctx.Err() != nil {
			return ctx.Err()
		}

		log.Warn().Str("stream", "order").Err(err).Msg("ws disconnected, reconnecting")
		if !sleepCtx(ctx, backoff) {
			return ctx.Err()
		}
		backoff = minDur(backoff*2, maxBackoff)
	}
}

// authAndSubscribe 私有频道鉴权: HMAC("GET/realtime" + expires)
func (s *OrderStream) authAndSubscribe(conn *websocket.Conn) error {
	expires := time.Now().Add(10 * time.Second).UnixMilli()
	signature := s.credentials.Sign("GET/realtime" + strconv.FormatInt(expires, 10))

	auth := wsRequest{Op: "auth", Args: []interface{}{s.credentials.APIKey(), expires, signature}}
	if err := conn.WriteJSON(auth); err != nil {
		return err
	}
	return conn.WriteJSON(wsRequest{Op: "subscribe", Args: []interface{}{"order"}})
}

func (s *OrderStream) handle(b []byte) {
	var p fastjson.Parser
	v, err := p.ParseBytes(b)
	if err != nil {
		log.Error().Str("stream", "order").Err(err).Msg("json parse failed")
		return
	}

	// auth / subscribe / pong 回执
	if op := string(v.GetStringBytes("op")); op != "" {
		if v.Exists("success") && !v.GetBool("success") {
			log.Error().Str("stream", "order").Str("op", op).
				Str("ret_msg", string(v.GetStringBytes("ret_msg"))).Msg("op not success")
		}
		return
	}

	if string(v.GetStringBytes("topic")) != "order" {
		return
	}

	for _, d := range v.GetArray("data") {
		if category := string(d.GetStringBytes("category")); category != "" && category != categoryLinear {
			continue
		}
		updatedAt, _ := strconv.ParseInt(string(d.GetStringBytes("updatedTime")), 10, 64)
		s.dispatch(model.Order{
			OrderID:     string(d.GetStringBytes("orderId")),
			OrderLinkID: string(d.GetStringBytes("orderLinkId")),
			Symbol:      string(d.GetStringBytes("symbol")),
			Side:        string(d.GetStringBytes("side")),
			OrderType:   string(d.GetStringBytes("orderType")),
			Status:      string(d.GetStringBytes("orderStatus")),
			Qty:         precision.ParseFloat(string(d.GetStringBytes("qty"))),
			CumExecQty:  precision.ParseFloat(string(d.GetStringBytes("cumExecQty"))),
			AvgPrice:    precision.ParseFloat(string(d.GetStringBytes("avgPrice"))),
			UpdatedAt:   updatedAt,
		})
	}
}

func (s *OrderStream) dispatch(o model.Order) {
	if o.OrderID == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.recent[o.OrderID]; !ok {
		s.order = append(s.order, o.OrderID)
		if len(s.order) > recentOrderCap {
			delete(s.recent, s.order[0])
			s.order = s.order[1:]
		}
	}
	s.recent[o.OrderID] = o

	if !o.Settled() {
		return
	}
	for _, ch := range s.waiters[o.OrderID] {
		ch <- o
	}
	delete(s.waiters, o.OrderID)
}

// Confirm 等待订单进入终态或产生成交；超时返回最后一次看到的快照
func (s *OrderStream) Confirm(ctx context.Context, symbol, orderID string) (*model.Order, error) {
	s.mu.Lock()
	if o, ok := s.recent[orderID]; ok && o.Settled() {
		s.mu.Unlock()
		return &o, nil
	}
	ch := make(chan model.Order, 1)
	s.waiters[orderID] = append(s.waiters[orderID], ch)
	s.mu.Unlock()

	select {
	case o := <-ch:
		return &o, nil
	case <-ctx.Done():
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeWaiter(orderID, ch)
	if o, ok := s.recent[orderID]; ok {
		return &o, nil
	}
	// dispatch 可能在取消前刚刚写入
	select {
	case o := <-ch:
		return &o, nil
	default:
	}
	log.Warn().Str("symbol", symbol).Str("orderID", orderID).Msg("order update not received on stream")
	return nil, model.ErrOrderNotConfirmed
}

func (s *OrderStream) removeWaiter(orderID string, ch chan model.Order) {
	list := s.waiters[orderID]
	for i, c := range list {
		if c == ch {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(s.waiters, orderID)
		return
	}
	s.waiters[orderID] = list
}

func readLoop(ctx context.Context, conn *websocket.Conn, onMsg func([]byte)) error {
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))

	// Bybit 私有频道使用应用层 ping
	pingTicker := time.NewTicker(20 * time.Second)
	defer pingTicker.Stop()

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		for {
			_, b, err := conn.ReadMessage()
			if err != nil {
				errCh <- err
				return
			}
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			onMsg(b)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errCh:
			return err
		case <-pingTicker.C:
			if err := conn.WriteJSON(wsRequest{Op: "ping"}); err != nil {
				return err
			}
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func minDur(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
