package server

import (
	"errors"
	"net/http"

	"github.com/aman-zulfiqar/confidential-dex/internal/engine"
	"github.com/labstack/echo/v4"
)

// NotFoundJSON returns a custom HTTP error handler that returns JSON responses
// This ensures all errors (including 404s) have consistent JSON format
func NotFoundJSON() echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var he *echo.HTTPError
		if errors.As(err, &he) {
			msg := http.StatusText(he.Code)
			if m, ok := he.Message.(string); ok && m != "" {
				msg = m
			}
			_ = c.JSON(he.Code, ErrorResponse{Error: msg, Code: he.Code})
			return
		}

		_ = c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "internal server error",
			Code:  http.StatusInternalServerError,
		})
	}
}

// statusFor maps engine errors to an HTTP status and client message.
// Unknown errors pass their message through as a 500.
func statusFor(err error) (int, string) {
	var verr *engine.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Message
	case errors.Is(err, engine.ErrPoolNotFound):
		return http.StatusNotFound, "Pool not found"
	case errors.Is(err, engine.ErrPoolExists):
		return http.StatusBadRequest, "Pool already exists"
	case errors.Is(err, engine.ErrSlippageExceeded):
		return http.StatusBadRequest, "Insufficient output amount"
	case errors.Is(err, engine.ErrOrderNotFound):
		return http.StatusNotFound, "Order not found"
	case errors.Is(err, engine.ErrTransactionNotFound):
		return http.StatusNotFound, "Transaction not found"
	default:
		return http.StatusInternalServerError, err.Error()
	}
}
