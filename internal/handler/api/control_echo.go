package api

import (
	"errors"
	"net/http"
	"time"

	models "scalpd/internal/domain/models"
	domrepo "scalpd/internal/domain/repository"
	"scalpd/internal/engine"
	"scalpd/internal/market"
	xhttp "scalpd/pkg/http"
	xlogger "scalpd/pkg/logger"

	"github.com/labstack/echo/v4"
)

// ControlEchoHandler exposes the bot's lifecycle and read-only state over HTTP.
type ControlEchoHandler struct {
	logger *xlogger.Logger
	eng    *engine.Engine
	buffer *market.Buffer
}

func NewControlEchoHandler(logger *xlogger.Logger, eng *engine.Engine, buffer *market.Buffer) *ControlEchoHandler {
	return &ControlEchoHandler{logger: logger, eng: eng, buffer: buffer}
}

func (h *ControlEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/bot/start", h.Start)
	g.POST("/bot/stop", h.Stop)
	g.POST("/bot/pause", h.Pause)
	g.POST("/bot/resume", h.Resume)
	g.GET("/status", h.Status)
	g.GET("/dashboard", h.Dashboard)
	g.GET("/positions", h.Positions)
	g.GET("/trades", h.Trades)
	g.GET("/signals", h.Signals)
	g.GET("/alerts", h.Alerts)
	g.GET("/candles", h.Candles)
}

func (h *ControlEchoHandler) Start(c echo.Context) error {
	if err := h.eng.Start(c.Request().Context()); err != nil {
		return h.lifecycleError(c, err)
	}
	return xhttp.SuccessResponse(c, map[string]string{"status": string(h.eng.Status())})
}

func (h *ControlEchoHandler) Stop(c echo.Context) error {
	if err := h.eng.Stop(c.Request().Context()); err != nil {
		return h.lifecycleError(c, err)
	}
	return xhttp.SuccessResponse(c, map[string]string{"status": string(h.eng.Status())})
}

func (h *ControlEchoHandler) Pause(c echo.Context) error {
	if err := h.eng.Pause(); err != nil {
		return h.lifecycleError(c, err)
	}
	return xhttp.SuccessResponse(c, map[string]string{"status": string(h.eng.Status())})
}

func (h *ControlEchoHandler) Resume(c echo.Context) error {
	if err := h.eng.Resume(); err != nil {
		return h.lifecycleError(c, err)
	}
	return xhttp.SuccessResponse(c, map[string]string{"status": string(h.eng.Status())})
}

func (h *ControlEchoHandler) Status(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": string(h.eng.Status())})
}

func (h *ControlEchoHandler) Dashboard(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.eng.Dashboard())
}

func (h *ControlEchoHandler) Positions(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.eng.Positions())
}

func (h *ControlEchoHandler) Trades(c echo.Context) error {
	req := &models.TradesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	trades := h.eng.Trades(req.Limit, req.Asset)
	if since, ok := xhttp.ParseTime(c.QueryParam("since")); ok {
		kept := trades[:0]
		for _, tr := range trades {
			if tr.ClosedAt.After(since) {
				kept = append(kept, tr)
			}
		}
		trades = kept
	}
	return xhttp.SuccessResponse(c, trades)
}

func (h *ControlEchoHandler) Signals(c echo.Context) error {
	req := &models.SignalsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	return xhttp.SuccessResponse(c, h.eng.Signals(req.Limit, req.Asset))
}

func (h *ControlEchoHandler) Alerts(c echo.Context) error {
	limit := xhttp.ParseIntDefault(c.QueryParam("limit"), 100)
	return xhttp.SuccessResponse(c, h.eng.Alerts(limit))
}

func (h *ControlEchoHandler) Candles(c echo.Context) error {
	req := &models.CandlesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	tf := domrepo.NormalizeTimeframe(req.TF)
	candles := h.buffer.Candles(req.Asset, string(tf), req.N)
	if from, ok := xhttp.ParseTime(c.QueryParam("from")); ok {
		from, _ = xhttp.AlignTimeRange(from, time.Now().UTC(), string(tf))
		kept := candles[:0]
		for _, cd := range candles {
			if !cd.Timestamp.Before(from) {
				kept = append(kept, cd)
			}
		}
		candles = kept
	}
	return xhttp.SuccessResponse(c, candles)
}

// lifecycleError maps engine lifecycle errors to conflict responses; anything
// else is a server error.
func (h *ControlEchoHandler) lifecycleError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, engine.ErrAlreadyRunning),
		errors.Is(err, engine.ErrNotRunning),
		errors.Is(err, engine.ErrNotPaused),
		errors.Is(err, engine.ErrTerminal):
		return xhttp.DataResponse(c, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		h.logger.Error("lifecycle operation failed", xlogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
}
