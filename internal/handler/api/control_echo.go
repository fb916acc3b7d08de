package api

import (
	"errors"

	"github.com/labstack/echo/v4"

	models "TradeCore/internal/domain/models"
	"TradeCore/internal/usecase"
	xhttp "TradeCore/pkg/http"
	xlogger "TradeCore/pkg/logger"
)

// ControlHandler exposes the operator control surface over Echo.
type ControlHandler struct {
	logger *xlogger.Logger
	orch   *usecase.Orchestrator
}

func NewControlHandler(logger *xlogger.Logger, orch *usecase.Orchestrator) *ControlHandler {
	return &ControlHandler{logger: logger, orch: orch}
}

func (h *ControlHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	g := e.Group("/api")
	g.GET("/status", h.Status)
	g.GET("/positions", h.Positions)
	g.POST("/start", h.Start)
	g.POST("/pause", h.Pause)
	g.POST("/resume", h.Resume)
	g.POST("/kill", h.Kill)
	g.POST("/kill/reset", h.ResetKill)
	g.POST("/positions/:ticker/close", h.ClosePosition)
	g.POST("/positions/:ticker/stops", h.UpdateStops)
	g.POST("/circuit", h.SetCircuit)
}

func (h *ControlHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

func (h *ControlHandler) Status(c echo.Context) error {
	status, err := h.orch.Status()
	if err != nil {
		h.logger.Error("status snapshot error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, status)
}

func (h *ControlHandler) Positions(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.orch.Positions())
}

func (h *ControlHandler) Start(c echo.Context) error {
	req := &models.StartRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	h.orch.Start(req.Mode)
	h.logger.Info("trading started", xlogger.String("mode", req.Mode))
	return xhttp.SuccessResponse(c, map[string]string{"mode": req.Mode})
}

func (h *ControlHandler) Pause(c echo.Context) error {
	h.orch.Pause()
	h.logger.Info("trading paused")
	return xhttp.SuccessResponse(c, map[string]bool{"paused": true})
}

func (h *ControlHandler) Resume(c echo.Context) error {
	h.orch.Resume()
	h.logger.Info("trading resumed")
	return xhttp.SuccessResponse(c, map[string]bool{"paused": false})
}

func (h *ControlHandler) Kill(c echo.Context) error {
	req := &models.KillRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.orch.Kill(c.Request().Context(), req.Reason); err != nil {
		h.logger.Error("kill switch activation error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, map[string]bool{"kill_switch_active": true})
}

func (h *ControlHandler) ResetKill(c echo.Context) error {
	if err := h.orch.ResetKill(c.Request().Context()); err != nil {
		h.logger.Error("kill switch reset error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, map[string]bool{"kill_switch_active": false})
}

func (h *ControlHandler) ClosePosition(c echo.Context) error {
	ticker := c.Param("ticker")
	req := &models.ClosePositionRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	position, pnl, err := h.orch.ClosePosition(c.Request().Context(), ticker, req.ExitPrice, req.Reason)
	if err != nil {
		if errors.Is(err, usecase.ErrPositionNotFound) {
			return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("no open position for %s", ticker))
		}
		h.logger.Error("close position error",
			xlogger.String("ticker", ticker),
			xlogger.Error(err),
		)
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"position":     position,
		"realized_pnl": pnl,
	})
}

func (h *ControlHandler) UpdateStops(c echo.Context) error {
	ticker := c.Param("ticker")
	req := &models.UpdateStopsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	position, err := h.orch.UpdateStops(ticker, req.Stop, req.Target)
	if err != nil {
		if errors.Is(err, usecase.ErrPositionNotFound) {
			return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("no open position for %s", ticker))
		}
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, position)
}

func (h *ControlHandler) SetCircuit(c echo.Context) error {
	req := &models.CircuitRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	status := models.CircuitBreakerStatus(req.Status)
	if err := h.orch.SetCircuitBreaker(c.Request().Context(), status, req.Reason); err != nil {
		h.logger.Error("circuit breaker update error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, map[string]string{"circuit_breaker_status": req.Status})
}
