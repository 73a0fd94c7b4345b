package model

import "errors"

// ErrInstrumentsNotLoaded 合约元数据尚未加载
var ErrInstrumentsNotLoaded = errors.New("instrument metadata not loaded")

// ErrPairNotFound 元数据中找不到交易对
var ErrPairNotFound = errors.New("pair not found")

// ErrCoinNotFound 钱包中找不到币种
var ErrCoinNotFound = errors.New("coin not found in wallet")

// ErrOrderNotConfirmed 超时仍未确认订单
var ErrOrderNotConfirmed = errors.New("order not confirmed")

// ErrNegativeDecimals 小数位数为负
var ErrNegativeDecimals = errors.New("decimal places has to be 0 or more")

// ErrPositionNotFound 交易对没有持仓记录
var ErrPositionNotFound = errors.New("position not found")

// ErrInvalidNumber 数量/价格/杠杆为 NaN 或 Inf
var ErrInvalidNumber = errors.New("number must be finite")
