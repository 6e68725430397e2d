package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// RegisterRoutes configures all API routes, middleware, and error handlers
func RegisterRoutes(e *echo.Echo, h *Handlers, cfg ServerConfig) {
	e.HTTPErrorHandler = NotFoundJSON()

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, "X-API-Key"},
	}))
	e.Use(SetJSONContentType)
	e.Use(SetNoCacheHeaders)

	api := e.Group("/api")
	api.GET("/health", h.Health)

	// Everything but health sits behind the optional API key
	secured := api.Group("")
	if cfg.APIKey != "" {
		secured.Use(middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
			KeyLookup: "header:X-API-Key",
			Validator: func(key string, c echo.Context) (bool, error) {
				return key == cfg.APIKey, nil
			},
		}))
	}

	// Market data
	secured.GET("/prices", h.Prices)
	secured.GET("/exchange-rate", h.ExchangeRate)
	secured.GET("/quote", h.Quote)
	secured.GET("/pools", h.Pools)
	secured.GET("/analytics", h.Analytics)

	// Trading
	secured.POST("/swap", h.Swap)
	secured.POST("/pool/create", h.CreatePool)
	secured.POST("/liquidity/add", h.AddLiquidity)
	secured.POST("/order/limit", h.CreateLimitOrder)
	secured.POST("/order/cancel", h.CancelLimitOrder)
	secured.GET("/orders", h.LimitOrders)

	// Wallet ledger
	secured.GET("/balance/:token", h.Balance)
	secured.GET("/portfolio", h.Portfolio)
	secured.GET("/transactions", h.Transactions)
	secured.GET("/transactions/recent", h.RecentTransactions)
	secured.POST("/transactions/:id/status", h.SetTransactionStatus)

	aigroup := secured.Group("/analytics")
	aigroup.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(0.2), // 1 request every 5 seconds
		Burst:     2,
		ExpiresIn: 2 * time.Minute,
	})))
	aigroup.POST("/ask", h.AIAsk)

	e.RouteNotFound("/*", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found", Code: http.StatusNotFound})
	})
}
