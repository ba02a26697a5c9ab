package api

import (
	"errors"
	"net/http"

	domrepo "AstraMind/internal/domain/repository"
	"AstraMind/internal/repository"
	xhttp "AstraMind/pkg/http"
	xlogger "AstraMind/pkg/logger"

	"github.com/labstack/echo/v4"
)

// failResponse logs err and writes it with the matching status.
func failResponse(c echo.Context, l *xlogger.Logger, op string, err error) error {
	var appErr *xhttp.AppError
	switch {
	case errors.Is(err, domrepo.ErrNotFound):
		appErr = xhttp.NotFoundError("not found").WithError(err)
	case errors.Is(err, repository.ErrFeatureStoreDisabled):
		appErr = xhttp.NewAppError("ERR_UNAVAILABLE", "", "feature store is disabled", http.StatusServiceUnavailable).WithError(err)
	default:
		appErr = xhttp.FromError(err)
	}
	if appErr.Status >= http.StatusInternalServerError {
		l.Error(op+" failed", xlogger.Error(err))
	} else {
		l.Warn(op+" rejected", xlogger.String("code", appErr.Code), xlogger.Error(err))
	}
	return xhttp.DataResponse(c, appErr.Status, []*xhttp.AppError{appErr})
}
