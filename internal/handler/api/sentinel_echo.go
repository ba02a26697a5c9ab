package api

import (
	"AstraMind/internal/domain/models"
	"AstraMind/internal/usecase"
	xhttp "AstraMind/pkg/http"
	xlogger "AstraMind/pkg/logger"
	"AstraMind/pkg/util"

	"github.com/labstack/echo/v4"
)

// SentinelEchoHandler exposes the per-symbol drift sentinels.
type SentinelEchoHandler struct {
	logger   *xlogger.Logger
	registry *usecase.SentinelRegistry
}

func NewSentinelEchoHandler(logger *xlogger.Logger, registry *usecase.SentinelRegistry) *SentinelEchoHandler {
	if logger == nil {
		logger = xlogger.NewNop()
	}
	return &SentinelEchoHandler{logger: logger, registry: registry}
}

func (h *SentinelEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/sentinel")
	g.POST("/update", h.Update)
	g.GET("/status", h.Status)
	g.POST("/reset", h.Reset)
	g.GET("/symbols", h.Symbols)
}

type sentinelResponse struct {
	Symbol string `json:"symbol"`
	models.SentinelStatus
}

func (h *SentinelEchoHandler) Update(c echo.Context) error {
	req := &models.SentinelUpdateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	symbol := util.NormalizeSymbol(req.Symbol)
	st, err := h.registry.Update(c.Request().Context(), symbol, req.Value, req.Entropy)
	if err != nil {
		return failResponse(c, h.logger, "sentinel_update", err)
	}
	return xhttp.SuccessResponse(c, sentinelResponse{Symbol: symbol, SentinelStatus: st})
}

func (h *SentinelEchoHandler) Status(c echo.Context) error {
	req := &models.SentinelSymbolRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	symbol := util.NormalizeSymbol(req.Symbol)
	st, err := h.registry.Status(symbol)
	if err != nil {
		return failResponse(c, h.logger, "sentinel_status", err)
	}
	return xhttp.SuccessResponse(c, sentinelResponse{Symbol: symbol, SentinelStatus: st})
}

func (h *SentinelEchoHandler) Reset(c echo.Context) error {
	req := &models.SentinelSymbolRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	symbol := util.NormalizeSymbol(req.Symbol)
	if err := h.registry.Reset(c.Request().Context(), symbol); err != nil {
		return failResponse(c, h.logger, "sentinel_reset", err)
	}
	h.logger.Info("sentinel reset", xlogger.String("symbol", symbol))
	return xhttp.SuccessResponse(c, map[string]string{"symbol": symbol})
}

func (h *SentinelEchoHandler) Symbols(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.registry.Symbols())
}
