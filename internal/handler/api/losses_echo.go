package api

import (
	"AstraMind/internal/domain/models"
	"AstraMind/internal/services/gating"
	"AstraMind/internal/services/losses"
	"AstraMind/internal/usecase"
	xhttp "AstraMind/pkg/http"
	xlogger "AstraMind/pkg/logger"

	"github.com/labstack/echo/v4"
)

// LossesEchoHandler serves the auxiliary loss reductions and regime presets.
type LossesEchoHandler struct {
	logger *xlogger.Logger
	engine *usecase.DecisionEngine
}

func NewLossesEchoHandler(logger *xlogger.Logger, engine *usecase.DecisionEngine) *LossesEchoHandler {
	if logger == nil {
		logger = xlogger.NewNop()
	}
	return &LossesEchoHandler{logger: logger, engine: engine}
}

func (h *LossesEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/regimes", h.Regimes)
	g.POST("/losses/physics", h.Physics)
	g.POST("/losses/entropy-variance", h.EntropyVariance)
	g.POST("/losses/weak-label", h.WeakLabel)
}

type regimesResponse struct {
	Presets    map[string]float64 `json:"presets"`
	DefaultTau float64            `json:"default_tau"`
	Regime     string             `json:"regime"`
	Tau        float64            `json:"tau"`
}

// Regimes lists the preset thresholds and the configured effective tau.
func (h *LossesEchoHandler) Regimes(c echo.Context) error {
	tau, regime := h.engine.ResolveTau("", nil)
	return xhttp.SuccessResponse(c, regimesResponse{
		Presets:    gating.Regimes(),
		DefaultTau: gating.DefaultTau,
		Regime:     regime,
		Tau:        tau,
	})
}

func (h *LossesEchoHandler) Physics(c echo.Context) error {
	req := &models.PhysicsLossRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	v, err := losses.PhysicsLoss(req.ACS, req.Volume, losses.PhysicsConfig{
		MaxMovePerStep:     req.MaxMove,
		VolumeSmoothLambda: req.Lambda,
	})
	if err != nil {
		return failResponse(c, h.logger, "physics_loss", err)
	}
	return xhttp.SuccessResponse(c, map[string]float64{"loss": v})
}

func (h *LossesEchoHandler) EntropyVariance(c echo.Context) error {
	req := &models.EntropyVarianceRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	v, err := losses.VarianceOfEntropy(req.Entropies)
	if err != nil {
		return failResponse(c, h.logger, "entropy_variance", err)
	}
	return xhttp.SuccessResponse(c, map[string]float64{"loss": v})
}

func (h *LossesEchoHandler) WeakLabel(c echo.Context) error {
	req := &models.WeakLabelRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	v, err := losses.WeakLabelNLL(req.Probs, req.Labels)
	if err != nil {
		return failResponse(c, h.logger, "weak_label_nll", err)
	}
	return xhttp.SuccessResponse(c, map[string]float64{"loss": v})
}
