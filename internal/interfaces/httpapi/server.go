package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"unifut/internal/domain/model"
)

// Trader HTTP 层依赖的交易门面
type Trader interface {
	RoundDecimalsDown(number float64, decimals int) (float64, error)
	GetBalance(ctx context.Context, coin string) (float64, error)
	RefreshPrecisions(ctx context.Context) (int, error)
	GetPairs(ctx context.Context, coin string) ([]string, error)
	GetPairParameters(ctx context.Context, pair string) (*model.PairParameters, error)
	SetLeverage(ctx context.Context, pair string, leverage float64) (*model.ChangeResult, error)
	SetMarginType(ctx context.Context, pair string, marginType model.MarginMode, leverage float64) (*model.ChangeResult, error)
	MakeOrder(ctx context.Context, pair, side string, quantity float64, orderType string) (*model.OrderResult, error)
	MarketOrder(ctx context.Context, pair, direction string, quantity float64) (*model.OrderResult, error)
	SLTPOrder(ctx context.Context, pair string, tpPrice, slPrice float64) (string, error)
	CloseAllPositions(ctx context.Context) (string, error)
	CancelAllOrders(ctx context.Context, pair string) (string, error)
	GetPosition(ctx context.Context, pair string) (*model.PositionSummary, error)
	GetOrder(ctx context.Context, pair, orderID string) (*model.OrderFill, error)
}

// Server 把门面的每个操作暴露为一个 HTTP 路由
type Server struct {
	trader Trader
	srv    *http.Server
}

func New(addr string, trader Trader) *Server {
	s := &Server{trader: trader}
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Router() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	api := r.Group("/api")
	api.GET("/balance", s.handleBalance)
	api.GET("/round", s.handleRound)
	api.GET("/pairs", s.handlePairs)
	api.GET("/pairs/:pair/parameters", s.handlePairParameters)
	api.POST("/precisions/refresh", s.handleRefreshPrecisions)

	positions := api.Group("/positions")
	positions.GET("/:pair", s.handleGetPosition)
	positions.POST("/:pair/leverage", s.handleSetLeverage)
	positions.POST("/:pair/margin-type", s.handleSetMarginType)
	positions.POST("/:pair/sltp", s.handleSLTP)
	api.POST("/close-all", s.handleCloseAll)

	orders := api.Group("/orders")
	orders.POST("", s.handleMakeOrder)
	orders.POST("/market", s.handleMarketOrder)
	orders.GET("/:pair/:orderID", s.handleGetOrder)
	orders.DELETE("/:pair", s.handleCancelAll)

	return r
}

// Run 阻塞直到 ctx 结束，然后优雅关闭
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.srv.Addr).Msg("http api listening")
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(sctx)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("http request")
	}
}
