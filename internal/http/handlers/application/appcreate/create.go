// Package appcreate implements the HTTP handler registering a new
// application under the caller's subscription quota.
package appcreate

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
	"github.com/solusikonsep/deploykit/internal/services/application"
)

type Service interface {
	Create(ctx context.Context, userUID, name string) (*models.Application, error)
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
// @Summary Register an application
// @Description Registers a new application if the caller has an active subscription and remaining quota.
// @Tags Applications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.ApplicationRequest true "Application name"
// @Success 201 {object} map[string]any "Application created"
// @Failure 400 {object} response.ErrorResponse "Invalid JSON"
// @Failure 401 {object} response.ErrorResponse "Not authenticated"
// @Failure 403 {object} response.ErrorResponse "No active subscription or quota exceeded"
// @Failure 409 {object} response.ErrorResponse "Name already taken"
// @Failure 422 {object} response.ErrorResponse "Validation error"
// @Router /applications [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.application.appcreate"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.ApplicationRequest
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

	app, err := h.service.Create(r.Context(), userUID, req.Name)
	if err != nil {
		switch {
		case errors.Is(err, application.ErrNoActiveSubscription):
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error("no active subscription"))
		case errors.Is(err, application.ErrQuotaExceeded):
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error("application quota exceeded for current plan"))
		case errors.Is(err, application.ErrNameTaken):
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("application name already taken"))
		default:
			log.Error("failed to create application", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not create application"))
		}
		return
	}

	log.Info("application registered", slog.String("name", app.Name))
	w.WriteHeader(http.StatusCreated)
	render.JSON(w, r, response.OKWithData(map[string]any{
		"application": app,
	}))
}
