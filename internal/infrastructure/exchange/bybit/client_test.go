package bybit

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unifut/internal/domain/model"
)

const (
	testKey    = "test-key"
	testSecret = "test-secret"
)

// fakeBybit 按 path 返回固定响应，并校验签名
type fakeBybit struct {
	t        *testing.T
	routes   map[string]func(w http.ResponseWriter, r *http.Request, body []byte)
	requests []*http.Request
	bodies   map[string][]byte
}

func newFakeBybit(t *testing.T) *fakeBybit {
	return &fakeBybit{
		t:      t,
		routes: make(map[string]func(w http.ResponseWriter, r *http.Request, body []byte)),
		bodies: make(map[string][]byte),
	}
}

func (f *fakeBybit) handle(path string, fn func(w http.ResponseWriter, r *http.Request, body []byte)) {
	f.routes[path] = fn
}

func (f *fakeBybit) json(path, payload string) {
	f.handle(path, func(w http.ResponseWriter, r *http.Request, body []byte) {
		_, _ = io.WriteString(w, payload)
	})
}

func (f *fakeBybit) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.requests = append(f.requests, r)
	f.bodies[r.URL.Path] = body

	if key := r.Header.Get("X-BAPI-API-KEY"); key != "" {
		payload := r.URL.RawQuery
		if r.Method == http.MethodPost {
			payload = string(body)
		}
		expected := NewCredentials(testKey, testSecret).Sign(
			r.Header.Get("X-BAPI-TIMESTAMP") + key + r.Header.Get("X-BAPI-RECV-WINDOW") + payload)
		assert.Equal(f.t, expected, r.Header.Get("X-BAPI-SIGN"), "signature for %s", r.URL.Path)
	}

	fn, ok := f.routes[r.URL.Path]
	if !ok {
		http.NotFound(w, r)
		return
	}
	fn(w, r, body)
}

func newTestManager(t *testing.T, fake *fakeBybit) *LinearManager {
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return NewLinearManager(testKey, testSecret, Options{BaseURL: srv.URL, Timeout: 2 * time.Second})
}

func TestOptionsBaseURL(t *testing.T) {
	assert.Equal(t, MainnetBaseURL, Options{}.baseURL())
	assert.Equal(t, TestnetBaseURL, Options{Testnet: true}.baseURL())
	assert.Equal(t, "http://localhost:1", Options{Testnet: true, BaseURL: "http://localhost:1/"}.baseURL())
	assert.Equal(t, TestnetPrivateWsURL, PrivateWsURL(true))
}

func TestGetWalletCoins(t *testing.T) {
	fake := newFakeBybit(t)
	fake.json("/v5/account/wallet-balance", `{"retCode":0,"retMsg":"OK","result":{"list":[{"accountType":"UNIFIED","coin":[{"coin":"USDT","equity":"1250.5","walletBalance":"1200"}]}]}}`)
	m := newTestManager(t, fake)

	coins, err := m.Account.GetWalletCoins(context.Background(), "UNIFIED", "USDT")
	require.NoError(t, err)
	require.Len(t, coins, 1)
	assert.Equal(t, "USDT", coins[0].Coin)
	assert.Equal(t, 1250.5, coins[0].Equity)

	require.Len(t, fake.requests, 1)
	assert.Equal(t, "accountType=UNIFIED&coin=USDT", fake.requests[0].URL.RawQuery)
	assert.Equal(t, "5000", fake.requests[0].Header.Get("X-BAPI-RECV-WINDOW"))
}

func TestGetWalletCoinsAPIError(t *testing.T) {
	fake := newFakeBybit(t)
	fake.json("/v5/account/wallet-balance", `{"retCode":10003,"retMsg":"API key is invalid.","result":{}}`)
	m := newTestManager(t, fake)

	_, err := m.Account.GetWalletCoins(context.Background(), "UNIFIED", "USDT")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 10003, apiErr.Code)
	assert.False(t, IsNotModified(err))
}

func TestHTTPErrorStatus(t *testing.T) {
	fake := newFakeBybit(t)
	fake.handle("/v5/market/tickers", func(w http.ResponseWriter, r *http.Request, body []byte) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, "forbidden")
	})
	m := newTestManager(t, fake)

	_, err := m.Market.GetLastPrice(context.Background(), "BTCUSDT")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bybit http 403")
}

func TestGetInstrumentsPaginates(t *testing.T) {
	fake := newFakeBybit(t)
	fake.handle("/v5/market/instruments-info", func(w http.ResponseWriter, r *http.Request, body []byte) {
		assert.Empty(t, r.Header.Get("X-BAPI-SIGN"))
		assert.Equal(t, "linear", r.URL.Query().Get("category"))
		if r.URL.Query().Get("cursor") == "" {
			_, _ = io.WriteString(w, `{"retCode":0,"retMsg":"OK","result":{"category":"linear","nextPageCursor":"page2","list":[
				{"symbol":"BTCUSDT","status":"Trading","baseCoin":"BTC","quoteCoin":"USDT","settleCoin":"USDT",
				 "leverageFilter":{"minLeverage":"1","maxLeverage":"100.00"},
				 "priceFilter":{"tickSize":"0.10"},
				 "lotSizeFilter":{"minOrderQty":"0.001","maxOrderQty":"100","qtyStep":"0.001"}}]}}`)
			return
		}
		assert.Equal(t, "page2", r.URL.Query().Get("cursor"))
		_, _ = io.WriteString(w, `{"retCode":0,"retMsg":"OK","result":{"category":"linear","nextPageCursor":"","list":[
			{"symbol":"ETHPERP","status":"Trading","settleCoin":"USDC",
			 "priceFilter":{"tickSize":"0.01"},"lotSizeFilter":{"minOrderQty":"0.01","qtyStep":"0.01"}}]}}`)
	})
	m := newTestManager(t, fake)

	instruments, err := m.Market.GetInstruments(context.Background())
	require.NoError(t, err)
	require.Len(t, instruments, 2)
	assert.Equal(t, "BTCUSDT", instruments[0].Symbol)
	assert.Equal(t, "0.001", instruments[0].QtyStep)
	assert.Equal(t, "0.10", instruments[0].TickSize)
	assert.Equal(t, 100.0, instruments[0].MaxLeverage)
	assert.Equal(t, "ETHPERP", instruments[1].Symbol)
	assert.Len(t, fake.requests, 2)
}

func TestGetLastPrice(t *testing.T) {
	fake := newFakeBybit(t)
	fake.json("/v5/market/tickers", `{"retCode":0,"retMsg":"OK","result":{"category":"linear","list":[{"symbol":"BTCUSDT","lastPrice":"43210.5"}]}}`)
	m := newTestManager(t, fake)

	price, err := m.Market.GetLastPrice(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, 43210.5, price)
}

func TestGetPositions(t *testing.T) {
	fake := newFakeBybit(t)
	fake.json("/v5/position/list", `{"retCode":0,"retMsg":"OK","result":{"category":"linear","list":[
		{"positionIdx":0,"tradeMode":1,"symbol":"BTCUSDT","side":"Sell","size":"0.5","avgPrice":"42000","leverage":"10"}]}}`)
	m := newTestManager(t, fake)

	positions, err := m.Position.GetPositions(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	require.Len(t, positions, 1)
	p := positions[0]
	assert.Equal(t, -0.5, p.SignedSize())
	assert.True(t, p.Isolated())
	assert.Equal(t, 10.0, p.Leverage)
	assert.Equal(t, "category=linear&symbol=BTCUSDT", fake.requests[0].URL.RawQuery)
}

func TestListPositionsPaginates(t *testing.T) {
	fake := newFakeBybit(t)
	fake.handle("/v5/position/list", func(w http.ResponseWriter, r *http.Request, body []byte) {
		assert.Equal(t, "USDT", r.URL.Query().Get("settleCoin"))
		if r.URL.Query().Get("cursor") == "" {
			_, _ = io.WriteString(w, `{"retCode":0,"retMsg":"OK","result":{"nextPageCursor":"c1","list":[{"symbol":"BTCUSDT","side":"Buy","size":"1"}]}}`)
			return
		}
		_, _ = io.WriteString(w, `{"retCode":0,"retMsg":"OK","result":{"nextPageCursor":"","list":[{"symbol":"ETHUSDT","side":"Sell","size":"2"}]}}`)
	})
	m := newTestManager(t, fake)

	positions, err := m.Position.ListPositions(context.Background(), "USDT")
	require.NoError(t, err)
	require.Len(t, positions, 2)
	assert.Equal(t, "ETHUSDT", positions[1].Symbol)
}

func TestSetLeverageNotModifiedIsSuccess(t *testing.T) {
	fake := newFakeBybit(t)
	fake.json("/v5/position/set-leverage", `{"retCode":110043,"retMsg":"leverage not modified","result":{}}`)
	m := newTestManager(t, fake)

	msg, err := m.Position.SetLeverage(context.Background(), "BTCUSDT", 5)
	require.NoError(t, err)
	assert.Equal(t, "leverage not modified", msg)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(fake.bodies["/v5/position/set-leverage"], &payload))
	assert.Equal(t, "5", payload["buyLeverage"])
	assert.Equal(t, "5", payload["sellLeverage"])
	assert.Equal(t, "linear", payload["category"])
}

func TestSwitchMarginMode(t *testing.T) {
	fake := newFakeBybit(t)
	fake.json("/v5/position/switch-isolated", `{"retCode":0,"retMsg":"OK","result":{}}`)
	m := newTestManager(t, fake)

	msg, err := m.Position.SwitchMarginMode(context.Background(), "BTCUSDT", model.TradeModeIsolated, 3)
	require.NoError(t, err)
	assert.Equal(t, "OK", msg)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(fake.bodies["/v5/position/switch-isolated"], &payload))
	assert.Equal(t, float64(1), payload["tradeMode"])
	assert.Equal(t, "3", payload["buyLeverage"])
}

func TestSetTradingStopSendsBothPrices(t *testing.T) {
	tt := []struct {
		name   string
		stop   model.TradingStop
		tp, sl string
	}{
		{"stop loss only", model.TradingStop{Symbol: "BTCUSDT", StopLoss: 41000.5}, "0", "41000.5"},
		{"clear both", model.TradingStop{Symbol: "BTCUSDT"}, "0", "0"},
		{"both set", model.TradingStop{Symbol: "BTCUSDT", TakeProfit: 50000, StopLoss: 40000}, "50000", "40000"},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			fake := newFakeBybit(t)
			fake.json("/v5/position/trading-stop", `{"retCode":0,"retMsg":"OK","result":{}}`)
			m := newTestManager(t, fake)

			_, err := m.Position.SetTradingStop(context.Background(), tc.stop)
			require.NoError(t, err)

			var payload map[string]interface{}
			require.NoError(t, json.Unmarshal(fake.bodies["/v5/position/trading-stop"], &payload))
			assert.Equal(t, tc.tp, payload["takeProfit"])
			assert.Equal(t, tc.sl, payload["stopLoss"])
			assert.Equal(t, float64(0), payload["positionIdx"])
			assert.NotContains(t, payload, "tpslMode")
		})
	}
}

func TestPlaceOrder(t *testing.T) {
	fake := newFakeBybit(t)
	fake.json("/v5/order/create", `{"retCode":0,"retMsg":"OK","result":{"orderId":"abc-123","orderLinkId":"link-1"}}`)
	m := newTestManager(t, fake)

	id, err := m.Order.PlaceOrder(context.Background(), model.OrderRequest{
		Symbol:      "BTCUSDT",
		Side:        model.SideBuy,
		OrderType:   model.OrderTypeMarket,
		Qty:         "0.01",
		TimeInForce: model.TimeInForceGTC,
		OrderLinkID: "link-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "abc-123", id)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(fake.bodies["/v5/order/create"], &payload))
	assert.Equal(t, "0.01", payload["qty"])
	assert.Equal(t, "Buy", payload["side"])
	assert.Equal(t, false, payload["reduceOnly"])
	assert.Equal(t, false, payload["closeOnTrigger"])
	assert.Equal(t, "link-1", payload["orderLinkId"])
	assert.Equal(t, "application/json", fake.requests[0].Header.Get("Content-Type"))
}

func TestGetRealtimeOrders(t *testing.T) {
	fake := newFakeBybit(t)
	fake.json("/v5/order/realtime", `{"retCode":0,"retMsg":"OK","result":{"list":[
		{"orderId":"abc-123","symbol":"BTCUSDT","side":"Buy","orderStatus":"Filled","qty":"0.01","cumExecQty":"0.01","avgPrice":"43000.1","createdTime":"1700000000000","updatedTime":"1700000000500"}]}}`)
	m := newTestManager(t, fake)

	orders, err := m.Order.GetRealtimeOrders(context.Background(), "BTCUSDT", "abc-123")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.True(t, orders[0].Settled())
	assert.Equal(t, 43000.1, orders[0].AvgPrice)
	assert.Equal(t, int64(1700000000500), orders[0].UpdatedAt)
	assert.Equal(t, "abc-123", fake.requests[0].URL.Query().Get("orderId"))
}

func TestCancelAll(t *testing.T) {
	fake := newFakeBybit(t)
	fake.json("/v5/order/cancel-all", `{"retCode":0,"retMsg":"OK","result":{"list":[]}}`)
	m := newTestManager(t, fake)

	msg, err := m.Order.CancelAll(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, "OK", msg)
}
