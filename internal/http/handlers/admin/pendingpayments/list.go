// Package pendingpayments implements the admin handler listing payment
// claims awaiting verification, oldest first.
package pendingpayments

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/solusikonsep/deploykit/internal/http/response"
	"github.com/solusikonsep/deploykit/internal/lib/sl"
	"github.com/solusikonsep/deploykit/internal/models"
)

type Service interface {
	ListPending(ctx context.Context) ([]*models.PendingPayment, error)
}

type Handler struct {
	log     *slog.Logger
	service Service
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary List pending payments
// @Description Returns all payment claims awaiting verification, oldest first. Admin only.
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]any "Pending payments"
// @Failure 401 {object} response.ErrorResponse "Not authenticated"
// @Failure 403 {object} response.ErrorResponse "Not an admin"
// @Router /admin/payments/pending [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.pendingpayments"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	payments, err := h.service.ListPending(r.Context())
	if err != nil {
		log.Error("failed to list pending payments", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not list pending payments"))
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"payments": payments,
	}))
}
