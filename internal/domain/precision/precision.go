package precision

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"unifut/internal/domain/model"
)

// DecimalsOf 返回步长字符串小数点后的位数，例如 "0.001" -> 3，"1" -> 0
func DecimalsOf(step string) int {
	parts := strings.Split(strings.TrimSpace(step), ".")
	if len(parts) == 1 {
		return 0
	}
	return len(parts[1])
}

// RoundDown 向下截断到 decimals 位小数
func RoundDown(number float64, decimals int) (float64, error) {
	if decimals < 0 {
		return 0, model.ErrNegativeDecimals
	}
	if err := CheckFinite(number); err != nil {
		return 0, err
	}
	f, _ := decimal.NewFromFloat(number).RoundFloor(int32(decimals)).Float64()
	return f, nil
}

// FormatQty 以最短且精确的十进制形式格式化数量/价格
func FormatQty(v float64) string {
	if !isFinite(v) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return decimal.NewFromFloat(v).String()
}

// CheckFinite 任一值为 NaN / Inf 时返回 ErrInvalidNumber
func CheckFinite(values ...float64) error {
	for _, v := range values {
		if !isFinite(v) {
			return model.ErrInvalidNumber
		}
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// ParseFloat 解析交易所返回的数字字符串，空串视为 0
func ParseFloat(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	f, _ := d.Float64()
	return f
}
