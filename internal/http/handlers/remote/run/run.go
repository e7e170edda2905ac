// Package run implements the HTTP handler passing an arbitrary command
// through to the remote host, subject to entitlement checks.
package run

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
	RunCommand(ctx context.Context, userUID string, args []string) (runner.Result, error)
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
// @Summary Run a remote command
// @Description Executes a command on the remote host on behalf of the caller. Arguments naming a stopped or expired application are rejected.
// @Tags Remote
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.RunRequest true "Command arguments"
// @Success 200 {object} map[string]any "Command output"
// @Failure 400 {object} response.ErrorResponse "Invalid JSON"
// @Failure 401 {object} response.ErrorResponse "Not authenticated"
// @Failure 403 {object} response.ErrorResponse "No active subscription or blocked application"
// @Failure 422 {object} response.ErrorResponse "Validation error"
// @Failure 500 {object} response.ErrorResponse "Remote command failed"
// @Router /remote/run [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.remote.run"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.RunRequest
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

	result, err := h.service.RunCommand(r.Context(), userUID, req.Args)
	if err != nil {
		var blocked *application.BlockedError
		switch {
		case errors.As(err, &blocked):
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error(blocked.Error()))
		case errors.Is(err, application.ErrNoActiveSubscription):
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error("no active subscription"))
		case errors.Is(err, runner.ErrLaunch):
			log.Error("failed to launch remote command", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to launch remote command"))
		default:
			log.Error("remote command failed", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("remote command failed"))
		}
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"success":      result.Success,
		"output":       result.Output,
		"error_output": result.ErrorOutput,
		"exit_code":    result.ExitCode,
	}))
}
