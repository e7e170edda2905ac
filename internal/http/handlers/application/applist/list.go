// Package applist implements the HTTP handler returning the caller's
// applications together with quota usage.
package applist

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/solusikonsep/deploykit/internal/http/middlewarectx"
	"github.com/solusikonsep/deploykit/internal/http/response"
	"github.com/solusikonsep/deploykit/internal/lib/sl"
	"github.com/solusikonsep/deploykit/internal/services/application"
)

type Service interface {
	List(ctx context.Context, userUID string) (*application.Overview, error)
}

type Handler struct {
	log     *slog.Logger
	service Service
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary List own applications
// @Description Returns the caller's applications with plan quota and usage.
// @Tags Applications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]any "Applications with quota"
// @Failure 401 {object} response.ErrorResponse "Not authenticated"
// @Router /applications [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.application.applist"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	overview, err := h.service.List(r.Context(), userUID)
	if err != nil {
		log.Error("failed to list applications", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not list applications"))
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"applications": overview.Applications,
		"quota":        overview.Quota,
		"used":         overview.Used,
	}))
}
