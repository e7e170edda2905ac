// Package status implements the HTTP handler listing applications on the
// remote host.
package status

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/solusikonsep/deploykit/internal/http/middlewarectx"
	"github.com/solusikonsep/deploykit/internal/http/response"
	"github.com/solusikonsep/deploykit/internal/lib/sl"
	"github.com/solusikonsep/deploykit/internal/runner"
	"github.com/solusikonsep/deploykit/internal/services/application"
)

type Service interface {
	RunCommand(ctx context.Context, userUID string, args []string) (runner.Result, error)
}

type Handler struct {
	log     *slog.Logger
	service Service
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Remote host status
// @Description Lists the applications present on the remote host.
// @Tags Remote
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]any "Remote application list"
// @Failure 401 {object} response.ErrorResponse "Not authenticated"
// @Failure 403 {object} response.ErrorResponse "No active subscription"
// @Failure 500 {object} response.ErrorResponse "Remote command failed"
// @Router /remote/status [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.remote.status"
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

	result, err := h.service.RunCommand(r.Context(), userUID, []string{"apps:list"})
	if err != nil {
		if errors.Is(err, application.ErrNoActiveSubscription) {
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error("no active subscription"))
			return
		}
		log.Error("remote status failed", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to query remote host"))
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"success": result.Success,
		"output":  result.Output,
	}))
}
