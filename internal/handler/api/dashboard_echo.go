package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"FinDash/internal/domain/models"
	"FinDash/internal/service/ratelimit"
	"FinDash/internal/usecase"
	xhttp "FinDash/pkg/http"
	xlogger "FinDash/pkg/logger"
)

// DashboardEchoHandler serves the dashboard API.
type DashboardEchoHandler struct {
	logger    *xlogger.Logger
	dashboard *usecase.DashboardUseCase
	forum     *usecase.ForumUseCase
	limiter   *ratelimit.Limiter
}

func NewDashboardEchoHandler(
	logger *xlogger.Logger,
	dashboard *usecase.DashboardUseCase,
	forum *usecase.ForumUseCase,
	limiter *ratelimit.Limiter,
) *DashboardEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &DashboardEchoHandler{
		logger:    logger.Component("api"),
		dashboard: dashboard,
		forum:     forum,
		limiter:   limiter,
	}
}

func (h *DashboardEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	g := e.Group("/api", RateLimit(h.limiter))
	g.GET("/dashboard", h.Overview)
	g.POST("/dashboard/refresh", h.Refresh)
	g.GET("/quotes", h.Quotes)
	g.GET("/performance", h.Performance)
	g.GET("/predict", h.Predict)
	g.GET("/forum", h.Forum)
}

func (h *DashboardEchoHandler) Health(c echo.Context) error {
	state := h.dashboard.Preloader().State()
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"status":           "ok",
		"preload_complete": state.IsComplete,
		"preload_progress": state.Progress,
	})
}

func (h *DashboardEchoHandler) Overview(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=5")
	return xhttp.SuccessResponse(c, h.dashboard.Overview())
}

func (h *DashboardEchoHandler) Refresh(c echo.Context) error {
	if !h.dashboard.Refresh(c.Request().Context()) {
		return xhttp.DataResponse(c, http.StatusAccepted, map[string]interface{}{
			"reloaded": false,
			"overview": h.dashboard.Overview(),
		})
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"reloaded": true,
		"overview": h.dashboard.Overview(),
	})
}

func (h *DashboardEchoHandler) Quotes(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.dashboard.Quotes())
}

func (h *DashboardEchoHandler) Performance(c echo.Context) error {
	req := &models.PerformanceRequest{}
	if verr := xhttp.BindAndValidate(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	state := h.dashboard.Performance(c.Request().Context(), req.Symbol, req.Days)
	if state.Data == nil && state.Error != "" {
		h.logger.Warn("performance failed", xlogger.String("symbol", req.Symbol), xlogger.String("error", state.Error))
		return xhttp.AppErrorResponse(c, xhttp.BadGatewayError(state.Error))
	}
	if state.Data == nil {
		return xhttp.AcceptedResponse(c, state)
	}
	return xhttp.SuccessResponse(c, state)
}

func (h *DashboardEchoHandler) Predict(c echo.Context) error {
	req := &models.PredictRequest{}
	if verr := xhttp.BindAndValidate(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	state, err := h.dashboard.Predict(c.Request().Context(), req.Symbol, req.Horizon)
	if err != nil {
		h.logger.Error("predict usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("prediction unavailable").WithError(err))
	}
	if state.Data == nil && state.Error != "" {
		return xhttp.AppErrorResponse(c, xhttp.BadGatewayError(state.Error).WithParam("retry_count", state.RetryCount))
	}
	if state.Data == nil {
		return xhttp.AcceptedResponse(c, state)
	}
	return xhttp.SuccessResponse(c, state)
}

func (h *DashboardEchoHandler) Forum(c echo.Context) error {
	req := &models.ForumRequest{}
	if verr := xhttp.BindAndValidate(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	page, err := h.forum.Posts(c.Request().Context(), usecase.ForumQuery{
		Category: req.Category,
		Text:     req.Query,
		Sort:     req.Sort,
		Page:     req.Page,
		PageSize: req.PageSize,
	})
	if err != nil {
		h.logger.Error("forum usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.UpstreamError(err))
	}
	return xhttp.SuccessResponse(c, page)
}
