package bybit

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"unifut/internal/domain/model"
	"unifut/internal/domain/precision"
)

// AccountClient Bybit 统一账户查询客户端
type AccountClient struct {
	*APIClient
}

// NewAccountClient 创建账户客户端
func NewAccountClient(client *APIClient) *AccountClient {
	return &AccountClient{APIClient: client}
}

// walletBalanceResult wallet-balance 响应
type walletBalanceResult struct {
	List []struct {
		AccountType           string `json:"accountType"`
		TotalEquity           string `json:"totalEquity"`
		TotalWalletBalance    string `json:"totalWalletBalance"`
		TotalAvailableBalance string `json:"totalAvailableBalance"`
		Coin                  []struct {
			Coin          string `json:"coin"`
			Equity        string `json:"equity"`
			WalletBalance string `json:"walletBalance"`
			UsdValue      string `json:"usdValue"`
		} `json:"coin"`
	} `json:"list"`
}

// GetWalletCoins 获取第一个账户下的币种余额
func (c *AccountClient) GetWalletCoins(ctx context.Context, accountType, coin string) ([]model.CoinBalance, error) {
	const path = "/v5/account/wallet-balance"

	params := url.Values{}
	params.Set("accountType", accountType)
	if coin != "" {
		params.Set("coin", coin)
	}

	body, err := c.signedQueryRequest(ctx, http.MethodGet, path, params)
	if err != nil {
		return nil, fmt.Errorf("get wallet balance failed: %w", err)
	}

	resp, err := decodeResult[walletBalanceResult](path, body)
	if err != nil {
		return nil, err
	}

	if len(resp.Result.List) == 0 {
		return nil, fmt.Errorf("no %s account in wallet-balance response", accountType)
	}

	acct := resp.Result.List[0]
	coins := make([]model.CoinBalance, 0, len(acct.Coin))
	for _, ci := range acct.Coin {
		coins = append(coins, model.CoinBalance{
			Coin:          ci.Coin,
			Equity:        precision.ParseFloat(ci.Equity),
			WalletBalance: precision.ParseFloat(ci.WalletBalance),
		})
	}
	return coins, nil
}
