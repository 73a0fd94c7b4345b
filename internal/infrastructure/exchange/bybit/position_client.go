package bybit

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/rs/zerolog/log"

	"unifut/internal/domain/model"
	"unifut/internal/domain/precision"
)

// PositionClient Bybit 永续合约持仓客户端
type PositionClient struct {
	*APIClient
}

// NewPositionClient 创建永续合约持仓客户端
func NewPositionClient(client *APIClient) *PositionClient {
	return &PositionClient{APIClient: client}
}

// positionListResult 持仓列表响应
type positionListResult struct {
	Category       string `json:"category"`
	NextPageCursor string `json:"nextPageCursor"`
	List           []struct {
		PositionIdx   int    `json:"positionIdx"`
		TradeMode     int    `json:"tradeMode"`
		Symbol        string `json:"symbol"`
		Side          string `json:"side"`
		Size          string `json:"size"`
		AvgPrice      string `json:"avgPrice"`
		Leverage      string `json:"leverage"`
		MarkPrice     string `json:"markPrice"`
		LiqPrice      string `json:"liqPrice"`
		UnrealisedPnl string `json:"unrealisedPnl"`
		TakeProfit    string `json:"takeProfit"`
		StopLoss      string `json:"stopLoss"`
		CreatedTime   string `json:"createdTime"`
		UpdatedTime   string `json:"updatedTime"`
	} `json:"list"`
}

// GetPositions 获取单个交易对的持仓
func (c *PositionClient) GetPositions(ctx context.Context, symbol string) ([]model.Position, error) {
	params := url.Values{}
	params.Set("category", categoryLinear)
	params.Set("symbol", symbol)
	return c.fetchPositions(ctx, params)
}

// ListPositions 获取某结算币种下的全部持仓（按 cursor 翻页）
func (c *PositionClient) ListPositions(ctx context.Context, settleCoin string) ([]model.Position, error) {
	var (
		out    []model.Position
		cursor string
	)
	for {
		params := url.Values{}
		params.Set("category", categoryLinear)
		params.Set("settleCoin", settleCoin)
		params.Set("limit", "200")
		if cursor != "" {
			params.Set("cursor", cursor)
		}

		resp, err := c.fetchPositionPage(ctx, params)
		if err != nil {
			return nil, err
		}
		out = append(out, toPositions(resp)...)

		if resp.NextPageCursor == "" || resp.NextPageCursor == cursor {
			return out, nil
		}
		cursor = resp.NextPageCursor
	}
}

func (c *PositionClient) fetchPositions(ctx context.Context, params url.Values) ([]model.Position, error) {
	resp, err := c.fetchPositionPage(ctx, params)
	if err != nil {
		return nil, err
	}
	return toPositions(resp), nil
}

func (c *PositionClient) fetchPositionPage(ctx context.Context, params url.Values) (*positionListResult, error) {
	const path = "/v5/position/list"

	body, err := c.signedQueryRequest(ctx, http.MethodGet, path, params)
	if err != nil {
		return nil, fmt.Errorf("get positions failed: %w", err)
	}

	resp, err := decodeResult[positionListResult](path, body)
	if err != nil {
		return nil, err
	}
	return &resp.Result, nil
}

func toPositions(res *positionListResult) []model.Position {
	positions := make([]model.Position, 0, len(res.List))
	for _, p := range res.List {
		positions = append(positions, model.Position{
			Symbol:      p.Symbol,
			Side:        p.Side,
			Size:        precision.ParseFloat(p.Size),
			AvgPrice:    precision.ParseFloat(p.AvgPrice),
			Leverage:    precision.ParseFloat(p.Leverage),
			TradeMode:   p.TradeMode,
			PositionIdx: p.PositionIdx,
		})
	}
	return positions
}

// SetLeverage 设置多空杠杆（相同倍数），未修改视为成功
func (c *PositionClient) SetLeverage(ctx context.Context, symbol string, leverage float64) (string, error) {
	lev := precision.FormatQty(leverage)
	payload := map[string]interface{}{
		"category":     categoryLinear,
		"symbol":       symbol,
		"buyLeverage":  lev,
		"sellLeverage": lev,
	}
	msg, err := c.postAction(ctx, "/v5/position/set-leverage", payload)
	if err != nil {
		return "", fmt.Errorf("set leverage failed: %w", err)
	}

	log.Info().
		Str("exchange", "BYBIT").
		Str("symbol", symbol).
		Str("leverage", lev).
		Str("retMsg", msg).
		Msg("leverage set")
	return msg, nil
}

// SwitchMarginMode 切换全仓/逐仓，未修改视为成功
func (c *PositionClient) SwitchMarginMode(ctx context.Context, symbol string, tradeMode int, leverage float64) (string, error) {
	lev := precision.FormatQty(leverage)
	payload := map[string]interface{}{
		"category":     categoryLinear,
		"symbol":       symbol,
		"tradeMode":    tradeMode,
		"buyLeverage":  lev,
		"sellLeverage": lev,
	}
	msg, err := c.postAction(ctx, "/v5/position/switch-isolated", payload)
	if err != nil {
		return "", fmt.Errorf("switch margin mode failed: %w", err)
	}

	log.Info().
		Str("exchange", "BYBIT").
		Str("symbol", symbol).
		Int("tradeMode", tradeMode).
		Str("leverage", lev).
		Str("retMsg", msg).
		Msg("margin mode switched")
	return msg, nil
}

// SetTradingStop 设置持仓止盈止损，价格为 0 表示取消对应的止盈/止损
func (c *PositionClient) SetTradingStop(ctx context.Context, stop model.TradingStop) (string, error) {
	payload := map[string]interface{}{
		"category":    categoryLinear,
		"symbol":      stop.Symbol,
		"positionIdx": stop.PositionIdx,
		"takeProfit":  precision.FormatQty(stop.TakeProfit),
		"stopLoss":    precision.FormatQty(stop.StopLoss),
	}

	msg, err := c.postAction(ctx, "/v5/position/trading-stop", payload)
	if err != nil {
		return "", fmt.Errorf("set trading stop failed: %w", err)
	}

	log.Info().
		Str("exchange", "BYBIT").
		Str("symbol", stop.Symbol).
		Float64("takeProfit", stop.TakeProfit).
		Float64("stopLoss", stop.StopLoss).
		Msg("trading stop set")
	return msg, nil
}

// postAction 发送无结果体的 POST，返回 retMsg；not-modified 返回码视为成功
func (c *APIClient) postAction(ctx context.Context, path string, payload interface{}) (string, error) {
	body, err := c.signedJSONRequest(ctx, http.MethodPost, path, payload)
	if err != nil {
		return "", err
	}

	resp, err := decodeResult[struct{}](path, body)
	if err != nil {
		if IsNotModified(err) {
			return resp.RetMsg, nil
		}
		return "", err
	}
	return resp.RetMsg, nil
}
