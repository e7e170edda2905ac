// Package paymentget implements the admin handler fetching a single
// payment claim by id.
package paymentget

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/solusikonsep/deploykit/internal/http/response"
	"github.com/solusikonsep/deploykit/internal/lib/sl"
	"github.com/solusikonsep/deploykit/internal/models"
	"github.com/solusikonsep/deploykit/internal/services/payment"
)

type Service interface {
	GetByID(ctx context.Context, id int) (*models.Payment, error)
}

type Handler struct {
	log     *slog.Logger
	service Service
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Get a payment
// @Description Returns a single payment claim. Admin only.
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "Payment ID"
// @Success 200 {object} map[string]any "Payment"
// @Failure 401 {object} response.ErrorResponse "Not authenticated"
// @Failure 403 {object} response.ErrorResponse "Not an admin"
// @Failure 404 {object} response.ErrorResponse "Payment not found"
// @Router /admin/payments/{id} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.paymentget"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid payment id"))
		return
	}

	p, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, payment.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("payment not found"))
			return
		}
		log.Error("failed to get payment", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not get payment"))
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"payment": p,
	}))
}
