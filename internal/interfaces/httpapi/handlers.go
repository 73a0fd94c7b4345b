package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"unifut/internal/application/futures"
	"unifut/internal/domain/model"
)

type leverageReq struct {
	Leverage float64 `json:"leverage"`
}

type marginTypeReq struct {
	MarginType string  `json:"margin_type"`
	Leverage   float64 `json:"leverage"`
}

type sltpReq struct {
	TPPrice float64 `json:"tp_price"`
	SLPrice float64 `json:"sl_price"`
}

type orderReq struct {
	Pair      string  `json:"pair" binding:"required"`
	Side      string  `json:"side" binding:"required"`
	Quantity  float64 `json:"quantity" binding:"required,gt=0"`
	OrderType string  `json:"order_type"`
}

type marketOrderReq struct {
	Pair      string  `json:"pair" binding:"required"`
	Direction string  `json:"direction" binding:"required"`
	Quantity  float64 `json:"quantity" binding:"required,gt=0"`
}

// respond 成功 200，参数错误 400，交易所/网络错误 502
func respond(c *gin.Context, v any, err error) {
	status := http.StatusOK
	if err != nil {
		status = http.StatusBadGateway
		if futures.IsBadInput(err) {
			status = http.StatusBadRequest
		}
	}
	c.JSON(status, futures.Wrap(v, err))
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, futures.Wrap(nil, err))
}

func (s *Server) handleBalance(c *gin.Context) {
	v, err := s.trader.GetBalance(c.Request.Context(), c.Query("coin"))
	respond(c, v, err)
}

func (s *Server) handleRound(c *gin.Context) {
	number, err := strconv.ParseFloat(c.Query("number"), 64)
	if err != nil {
		badRequest(c, err)
		return
	}
	decimals, err := strconv.Atoi(c.DefaultQuery("decimals", "0"))
	if err != nil {
		badRequest(c, err)
		return
	}
	v, err := s.trader.RoundDecimalsDown(number, decimals)
	respond(c, v, err)
}

func (s *Server) handlePairs(c *gin.Context) {
	v, err := s.trader.GetPairs(c.Request.Context(), c.Query("coin"))
	respond(c, v, err)
}

func (s *Server) handlePairParameters(c *gin.Context) {
	v, err := s.trader.GetPairParameters(c.Request.Context(), c.Param("pair"))
	respond(c, v, err)
}

func (s *Server) handleRefreshPrecisions(c *gin.Context) {
	v, err := s.trader.RefreshPrecisions(c.Request.Context())
	respond(c, v, err)
}

func (s *Server) handleGetPosition(c *gin.Context) {
	v, err := s.trader.GetPosition(c.Request.Context(), c.Param("pair"))
	respond(c, v, err)
}

func (s *Server) handleSetLeverage(c *gin.Context) {
	var req leverageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	v, err := s.trader.SetLeverage(c.Request.Context(), c.Param("pair"), req.Leverage)
	respond(c, v, err)
}

func (s *Server) handleSetMarginType(c *gin.Context) {
	var req marginTypeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	v, err := s.trader.SetMarginType(c.Request.Context(), c.Param("pair"), model.MarginMode(req.MarginType), req.Leverage)
	respond(c, v, err)
}

func (s *Server) handleSLTP(c *gin.Context) {
	var req sltpReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	v, err := s.trader.SLTPOrder(c.Request.Context(), c.Param("pair"), req.TPPrice, req.SLPrice)
	respond(c, v, err)
}

func (s *Server) handleCloseAll(c *gin.Context) {
	v, err := s.trader.CloseAllPositions(c.Request.Context())
	respond(c, v, err)
}

func (s *Server) handleMakeOrder(c *gin.Context) {
	var req orderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.OrderType == "" {
		req.OrderType = model.OrderTypeMarket
	}
	v, err := s.trader.MakeOrder(c.Request.Context(), req.Pair, req.Side, req.Quantity, req.OrderType)
	respond(c, v, err)
}

func (s *Server) handleMarketOrder(c *gin.Context) {
	var req marketOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	v, err := s.trader.MarketOrder(c.Request.Context(), req.Pair, req.Direction, req.Quantity)
	respond(c, v, err)
}

func (s *Server) handleGetOrder(c *gin.Context) {
	v, err := s.trader.GetOrder(c.Request.Context(), c.Param("pair"), c.Param("orderID"))
	respond(c, v, err)
}

func (s *Server) handleCancelAll(c *gin.Context) {
	v, err := s.trader.CancelAllOrders(c.Request.Context(), c.Param("pair"))
	respond(c, v, err)
}
