package api

import (
	"github.com/labstack/echo/v4"

	"FinDash/internal/service/ratelimit"
	xhttp "FinDash/pkg/http"
)

// RateLimit rejects requests over the per-client budget with a 429 envelope.
func RateLimit(l *ratelimit.Limiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if l != nil && !l.Allow(c.RealIP()) {
				c.Response().Header().Set("Retry-After", "1")
				return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("rate limit exceeded"))
			}
			return next(c)
		}
	}
}
