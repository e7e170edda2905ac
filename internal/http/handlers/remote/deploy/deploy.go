// Package deploy implements the HTTP handler initiating a deployment of a
// project on the remote host.
package deploy

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/solusikonsep/deploykit/internal/http/middlewarectx"
	"github.com/solusikonsep/deploykit/internal/http/response"
	"github.com/solusikonsep/deploykit/internal/lib/sl"
	"github.com/solusikonsep/deploykit/internal/models"
	"github.com/solusikonsep/deploykit/internal/runner"
	"github.com/solusikonsep/deploykit/internal/services/application"
)

type Service interface {
	Deploy(ctx context.Context, userUID, project string) (runner.Result, error)
}

type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Deploy a project
// @Description Initiates a deployment of the named project on the remote host. A project matching a stopped or expired application of the caller is rejected.
// @Tags Remote
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.DeployRequest true "Project to deploy"
// @Success 200 {object} map[string]any "Deploy output"
// @Failure 400 {object} response.ErrorResponse "Invalid JSON"
// @Failure 401 {object} response.ErrorResponse "Not authenticated"
// @Failure 403 {object} response.ErrorResponse "No active subscription or project blocked"
// @Failure 422 {object} response.ErrorResponse "Validation error"
// @Failure 500 {object} response.ErrorResponse "Remote command failed"
// @Router /remote/deploy [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.remote.deploy"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DeployRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	result, err := h.service.Deploy(r.Context(), userUID, req.Project)
	if err != nil {
		var blocked *application.BlockedError
		switch {
		case errors.As(err, &blocked):
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error(blocked.Error()))
		case errors.Is(err, application.ErrNoActiveSubscription):
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error("no active subscription"))
		default:
			log.Error("deploy failed", sl.Err(err), slog.String("project", req.Project))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("deployment failed"))
		}
		return
	}

	log.Info("deployment initiated", slog.String("project", req.Project))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"success": result.Success,
		"output":  result.Output,
	}))
}
