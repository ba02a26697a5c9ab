package api

import (
	"encoding/json"
	"strconv"
	"time"

	"AstraMind/internal/domain/models"
	domrepo "AstraMind/internal/domain/repository"
	icache "AstraMind/internal/service/cache"
	"AstraMind/internal/service/ratelimit"
	"AstraMind/internal/services/features"
	"AstraMind/internal/usecase"
	xhttp "AstraMind/pkg/http"
	xlogger "AstraMind/pkg/logger"
	"AstraMind/pkg/util"

	"github.com/labstack/echo/v4"
)

// DecisionsEchoHandler serves the model pipeline over HTTP.
type DecisionsEchoHandler struct {
	logger   *xlogger.Logger
	engine   *usecase.DecisionEngine
	cache    icache.BytesCache
	cacheTTL time.Duration
	rl       *ratelimit.Limiter
}

// NewDecisionsEchoHandler builds the handler. cache and rl may be nil.
func NewDecisionsEchoHandler(logger *xlogger.Logger, engine *usecase.DecisionEngine, cache icache.BytesCache, cacheTTL time.Duration, rl *ratelimit.Limiter) *DecisionsEchoHandler {
	if logger == nil {
		logger = xlogger.NewNop()
	}
	return &DecisionsEchoHandler{logger: logger, engine: engine, cache: cache, cacheTTL: cacheTTL, rl: rl}
}

func (h *DecisionsEchoHandler) RegisterRoutes(e *echo.Echo) {
	var limited []echo.MiddlewareFunc
	if h.rl != nil {
		limited = append(limited, h.rl.Middleware())
	}
	g := e.Group("/api")
	g.POST("/infer", h.Infer, limited...)
	g.POST("/uncertainty", h.Uncertainty, limited...)
	g.POST("/gate", h.Gate)
	g.POST("/decide", h.Decide, limited...)
	g.GET("/decide/symbol", h.DecideSymbol, limited...)
	g.GET("/decisions", h.Recent)
	g.GET("/features/window", h.FeatureWindow)
}

func (h *DecisionsEchoHandler) Infer(c echo.Context) error {
	req := &models.InferRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.engine.Infer(c.Request().Context(), req.WindowSet, req.Stochastic, req.Seed)
	if err != nil {
		return h.fail(c, "infer", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *DecisionsEchoHandler) Uncertainty(c echo.Context) error {
	req := &models.UncertaintyRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.engine.Uncertainty(c.Request().Context(), req.WindowSet, req.Passes, req.Seed)
	if err != nil {
		return h.fail(c, "uncertainty", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *DecisionsEchoHandler) Gate(c echo.Context) error {
	req := &models.GateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.engine.Gate(req.ACS, req.Entropy, req.Regime, req.Tau)
	if err != nil {
		return h.fail(c, "gate", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *DecisionsEchoHandler) Decide(c echo.Context) error {
	req := &models.DecideRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.engine.Decide(c.Request().Context(), req.WindowSet, req.Passes, req.Seed, req.Regime, req.Tau)
	if err != nil {
		return h.fail(c, "decide", err)
	}
	return xhttp.SuccessResponse(c, res)
}

// DecideSymbol decides on the latest candles of a symbol. Responses are
// cached for cacheTTL per (symbol, regime, n).
func (h *DecisionsEchoHandler) DecideSymbol(c echo.Context) error {
	req := &models.DecideSymbolRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	ctx := c.Request().Context()
	symbol := util.NormalizeSymbol(req.Symbol)
	key := "decide:" + symbol + ":" + req.Regime + ":" + strconv.Itoa(req.N)

	if h.cache != nil {
		if b, ok, err := h.cache.GetBytes(ctx, key); err != nil {
			h.logger.Warn("decide cache get failed", xlogger.String("key", key), xlogger.Error(err))
		} else if ok {
			c.Response().Header().Set("X-Cache", "HIT")
			return xhttp.SuccessResponse(c, json.RawMessage(b))
		}
	}

	d, err := h.engine.DecideSymbol(ctx, symbol, req.Regime, req.N)
	if err != nil {
		return h.fail(c, "decide_symbol", err)
	}

	if h.cache != nil && h.cacheTTL > 0 {
		if b, err := json.Marshal(d); err == nil {
			if err := h.cache.SetBytes(ctx, key, b, h.cacheTTL); err != nil {
				h.logger.Warn("decide cache set failed", xlogger.String("key", key), xlogger.Error(err))
			}
		}
	}
	c.Response().Header().Set("X-Cache", "MISS")
	return xhttp.SuccessResponse(c, d)
}

func (h *DecisionsEchoHandler) Recent(c echo.Context) error {
	req := &models.RecentDecisionsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.engine.Recent(c.Request().Context(), util.NormalizeSymbol(req.Symbol), req.Limit)
	if err != nil {
		return h.fail(c, "decisions", err)
	}
	if res == nil {
		res = []models.Decision{}
	}
	return xhttp.SuccessResponse(c, res)
}

type featureWindowResponse struct {
	Symbol  string      `json:"symbol"`
	TF      string      `json:"tf"`
	Columns []string    `json:"columns"`
	Window  [][]float64 `json:"window"`
}

func (h *DecisionsEchoHandler) FeatureWindow(c echo.Context) error {
	req := &models.FeatureWindowRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	tf := domrepo.Timeframe(req.TF)
	symbol := util.NormalizeSymbol(req.Symbol)
	w, _, err := h.engine.Window(c.Request().Context(), symbol, tf, req.N)
	if err != nil {
		return h.fail(c, "features_window", err)
	}
	return xhttp.SuccessResponse(c, featureWindowResponse{
		Symbol:  symbol,
		TF:      string(tf),
		Columns: features.Names[:],
		Window:  w,
	})
}

func (h *DecisionsEchoHandler) fail(c echo.Context, op string, err error) error {
	return failResponse(c, h.logger, op, err)
}
