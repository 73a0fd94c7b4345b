package symbol

import "strings"

// Normalize 统一交易对/币种写法：去空格并转大写
func Normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// SettledIn 交易对末尾四个字符是否等于币种，例如 BTCUSDT -> USDT
func SettledIn(pair, coin string) bool {
	n := len(pair)
	return n >= 4 && pair[n-4:] == coin
}
