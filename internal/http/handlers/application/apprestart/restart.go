// Package apprestart implements the HTTP handler scaling a stopped
// application's web process back to one.
package apprestart

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/solusikonsep/deploykit/internal/http/middlewarectx"
	"github.com/solusikonsep/deploykit/internal/http/response"
	"github.com/solusikonsep/deploykit/internal/lib/sl"
	"github.com/solusikonsep/deploykit/internal/runner"
	"github.com/solusikonsep/deploykit/internal/services/application"
)

type Service interface {
	Restart(ctx context.Context, userUID string, appID int) (runner.Result, error)
}

type Handler struct {
	log     *slog.Logger
	service Service
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Restart a stopped application
// @Description Scales a stopped application's web process back to one instance.
// @Tags Applications
// @Produce json
// @Security BearerAuth
// @Param id path int true "Application ID"
// @Success 200 {object} map[string]any "Restart outcome"
// @Failure 400 {object} response.ErrorResponse "Application not in a restartable state"
// @Failure 401 {object} response.ErrorResponse "Not authenticated"
// @Failure 403 {object} response.ErrorResponse "No active subscription"
// @Failure 404 {object} response.ErrorResponse "Application not found"
// @Failure 500 {object} response.ErrorResponse "Remote command failed"
// @Router /applications/{id}/restart [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.application.apprestart"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	appID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid application id"))
		return
	}

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	result, err := h.service.Restart(r.Context(), userUID, appID)
	if err != nil {
		switch {
		case errors.Is(err, application.ErrNotFound):
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("application not found"))
		case errors.Is(err, application.ErrInvalidState):
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("application is not stopped"))
		case errors.Is(err, application.ErrNoActiveSubscription):
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error("no active subscription"))
		case errors.Is(err, runner.ErrLaunch), errors.Is(err, runner.ErrCommandFailed):
			log.Error("remote restart failed", sl.Err(err), slog.Int("app_id", appID))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to restart application on remote host"))
		default:
			log.Error("failed to restart application", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not restart application"))
		}
		return
	}

	log.Info("application restarted", slog.Int("app_id", appID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"message": "application restarted",
		"output":  result.Output,
	}))
}
