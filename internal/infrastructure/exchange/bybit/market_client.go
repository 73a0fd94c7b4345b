package bybit

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"unifut/internal/domain/model"
	"unifut/internal/domain/precision"
)

const instrumentsPageLimit = 1000

// MarketClient Bybit 公共行情客户端（无需签名）
type MarketClient struct {
	*APIClient
}

// NewMarketClient 创建行情客户端
func NewMarketClient(client *APIClient) *MarketClient {
	return &MarketClient{APIClient: client}
}

type instrumentsResult struct {
	Category       string `json:"category"`
	NextPageCursor string `json:"nextPageCursor"`
	List           []struct {
		Symbol         string `json:"symbol"`
		ContractType   string `json:"contractType"`
		Status         string `json:"status"`
		BaseCoin       string `json:"baseCoin"`
		QuoteCoin      string `json:"quoteCoin"`
		SettleCoin     string `json:"settleCoin"`
		LeverageFilter struct {
			MinLeverage  string `json:"minLeverage"`
			MaxLeverage  string `json:"maxLeverage"`
			LeverageStep string `json:"leverageStep"`
		} `json:"leverageFilter"`
		PriceFilter struct {
			MinPrice string `json:"minPrice"`
			MaxPrice string `json:"maxPrice"`
			TickSize string `json:"tickSize"`
		} `json:"priceFilter"`
		LotSizeFilter struct {
			MaxOrderQty string `json:"maxOrderQty"`
			MinOrderQty string `json:"minOrderQty"`
			QtyStep     string `json:"qtyStep"`
		} `json:"lotSizeFilter"`
	} `json:"list"`
}

type tickersResult struct {
	Category string `json:"category"`
	List     []struct {
		Symbol    string `json:"symbol"`
		LastPrice string `json:"lastPrice"`
		MarkPrice string `json:"markPrice"`
	} `json:"list"`
}

// GetInstruments 获取全部线性合约元数据，按 nextPageCursor 翻页
func (c *MarketClient) GetInstruments(ctx context.Context) ([]model.Instrument, error) {
	const path = "/v5/market/instruments-info"

	var (
		out    []model.Instrument
		cursor string
	)
	for {
		params := url.Values{}
		params.Set("category", categoryLinear)
		params.Set("limit", strconv.Itoa(instrumentsPageLimit))
		if cursor != "" {
			params.Set("cursor", cursor)
		}

		body, err := c.publicQueryRequest(ctx, path, params)
		if err != nil {
			return nil, fmt.Errorf("get instruments failed: %w", err)
		}

		resp, err := decodeResult[instrumentsResult](path, body)
		if err != nil {
			return nil, err
		}

		for _, it := range resp.Result.List {
			out = append(out, model.Instrument{
				Symbol:      it.Symbol,
				Status:      it.Status,
				BaseCoin:    it.BaseCoin,
				QuoteCoin:   it.QuoteCoin,
				SettleCoin:  it.SettleCoin,
				MinOrderQty: it.LotSizeFilter.MinOrderQty,
				MaxOrderQty: it.LotSizeFilter.MaxOrderQty,
				QtyStep:     it.LotSizeFilter.QtyStep,
				TickSize:    it.PriceFilter.TickSize,
				MinLeverage: precision.ParseFloat(it.LeverageFilter.MinLeverage),
				MaxLeverage: precision.ParseFloat(it.LeverageFilter.MaxLeverage),
			})
		}

		if resp.Result.NextPageCursor == "" || resp.Result.NextPageCursor == cursor {
			return out, nil
		}
		cursor = resp.Result.NextPageCursor
	}
}

// GetLastPrice 获取最新成交价
func (c *MarketClient) GetLastPrice(ctx context.Context, symbol string) (float64, error) {
	const path = "/v5/market/tickers"

	params := url.Values{}
	params.Set("category", categoryLinear)
	params.Set("symbol", symbol)

	body, err := c.publicQueryRequest(ctx, path, params)
	if err != nil {
		return 0, fmt.Errorf("get ticker failed: %w", err)
	}

	resp, err := decodeResult[tickersResult](path, body)
	if err != nil {
		return 0, err
	}
	if len(resp.Result.List) == 0 {
		return 0, fmt.Errorf("ticker %s not found", symbol)
	}

	price, err := strconv.ParseFloat(resp.Result.List[0].LastPrice, 64)
	if err != nil {
		return 0, fmt.Errorf("parse ticker price failed: %w", err)
	}
	return price, nil
}
