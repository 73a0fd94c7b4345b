package futures

import (
	"encoding/json"

	"github.com/pkg/errors"

	"unifut/internal/domain/model"
)

// Envelope 统一返回结构：{"success": value} 或 {"error": message}
type Envelope struct {
	Success any
	Error   string
}

// Wrap 把 (value, error) 转换为 Envelope
func Wrap(v any, err error) Envelope {
	if err != nil {
		return Envelope{Error: err.Error()}
	}
	return Envelope{Success: v}
}

// OK 是否成功
func (e Envelope) OK() bool {
	return e.Error == ""
}

func (e Envelope) MarshalJSON() ([]byte, error) {
	if e.Error != "" {
		return json.Marshal(map[string]string{"error": e.Error})
	}
	return json.Marshal(map[string]any{"success": e.Success})
}

// IsBadInput 调用方参数错误（而不是交易所/网络故障）
func IsBadInput(err error) bool {
	return errors.Is(err, model.ErrNegativeDecimals) ||
		errors.Is(err, model.ErrPairNotFound) ||
		errors.Is(err, model.ErrCoinNotFound) ||
		errors.Is(err, model.ErrPositionNotFound) ||
		errors.Is(err, model.ErrInvalidNumber)
}
