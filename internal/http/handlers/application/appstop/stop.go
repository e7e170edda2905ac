// Package appstop implements the HTTP handler scaling an application's web
// process to zero on the remote host, destroying it when scaling fails.
package appstop

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
	Stop(ctx context.Context, userUID string, appID int) (runner.StopResult, error)
}

type Handler struct {
	log     *slog.Logger
	service Service
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Stop an application
// @Description Scales the application's web process to zero on the remote host. Falls back to destroying the application when scaling fails.
// @Tags Applications
// @Produce json
// @Security BearerAuth
// @Param id path int true "Application ID"
// @Success 200 {object} map[string]any "Stop outcome"
// @Failure 400 {object} response.ErrorResponse "Application not in a stoppable state"
// @Failure 401 {object} response.ErrorResponse "Not authenticated"
// @Failure 404 {object} response.ErrorResponse "Application not found"
// @Failure 500 {object} response.ErrorResponse "Remote command failed"
// @Router /applications/{id}/stop [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.application.appstop"
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

	result, err := h.service.Stop(r.Context(), userUID, appID)
	if err != nil {
		switch {
		case errors.Is(err, application.ErrNotFound):
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("application not found"))
		case errors.Is(err, application.ErrInvalidState):
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("application is not running"))
		case errors.Is(err, runner.ErrLaunch), errors.Is(err, runner.ErrCommandFailed):
			log.Error("remote stop failed", sl.Err(err), slog.Int("app_id", appID))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to stop application on remote host"))
		default:
			log.Error("failed to stop application", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not stop application"))
		}
		return
	}

	log.Info("application stopped",
		slog.Int("app_id", appID),
		slog.Bool("destroyed", result.Destroyed),
	)
	render.JSON(w, r, response.OKWithData(map[string]any{
		"message":   result.Message,
		"destroyed": result.Destroyed,
		"output":    result.Output,
	}))
}
