package api

import (
	"context"
	"net/http"
	"time"

	xhttp "AstraMind/pkg/http"
	xlogger "AstraMind/pkg/logger"

	"github.com/labstack/echo/v4"
)

const probeTimeout = 2 * time.Second

// Probe checks one backend dependency.
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

// ReadinessHandler reports whether every enabled backend is reachable.
type ReadinessHandler struct {
	logger *xlogger.Logger
	probes []Probe
}

func NewReadinessHandler(logger *xlogger.Logger, probes ...Probe) *ReadinessHandler {
	if logger == nil {
		logger = xlogger.NewNop()
	}
	return &ReadinessHandler{logger: logger, probes: probes}
}

func (h *ReadinessHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/readyz", h.Ready)
}

func (h *ReadinessHandler) Ready(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), probeTimeout)
	defer cancel()

	status := make(map[string]string, len(h.probes))
	var failed []*xhttp.AppError
	for _, p := range h.probes {
		if err := p.Check(ctx); err != nil {
			h.logger.Warn("readiness probe failed", xlogger.String("backend", p.Name), xlogger.Error(err))
			status[p.Name] = "down"
			failed = append(failed, xhttp.NewAppError("ERR_UNAVAILABLE", p.Name, err.Error(), http.StatusServiceUnavailable))
			continue
		}
		status[p.Name] = "up"
	}
	if len(failed) > 0 {
		return xhttp.DataResponse(c, http.StatusServiceUnavailable, failed)
	}
	return xhttp.SuccessResponse(c, status)
}

var _ xhttp.Handler = (*ReadinessHandler)(nil)
