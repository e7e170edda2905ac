// Package verifypayment implements the admin handler deciding a payment
// claim. A verified payment activates the linked subscription.
package verifypayment

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/solusikonsep/deploykit/internal/http/middlewarectx"
	"github.com/solusikonsep/deploykit/internal/http/response"
	"github.com/solusikonsep/deploykit/internal/lib/sl"
	"github.com/solusikonsep/deploykit/internal/models"
	"github.com/solusikonsep/deploykit/internal/services/payment"
)

type Service interface {
	Verify(ctx context.Context, paymentID int, verifier, status, notes string) error
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
// @Summary Verify or reject a payment
// @Description Decides a pending payment claim. Verifying activates the linked subscription for three months. Admin only.
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Payment ID"
// @Param request body models.VerifyRequest true "Decision"
// @Success 200 {object} map[string]any "Decision recorded"
// @Failure 400 {object} response.ErrorResponse "Invalid JSON"
// @Failure 401 {object} response.ErrorResponse "Not authenticated"
// @Failure 403 {object} response.ErrorResponse "Not an admin"
// @Failure 404 {object} response.ErrorResponse "Payment not found"
// @Failure 409 {object} response.ErrorResponse "Payment already decided"
// @Failure 422 {object} response.ErrorResponse "Validation error"
// @Router /admin/payments/{id}/verify [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.verifypayment"
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

	var req models.VerifyRequest
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

	verifier, ok := r.Context().Value(middlewarectx.User).(string)
	if !ok || verifier == "" {
		log.Error("username not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	if err := h.service.Verify(r.Context(), id, verifier, req.Status, req.Notes); err != nil {
		switch {
		case errors.Is(err, payment.ErrNotFound):
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("payment not found"))
		case errors.Is(err, payment.ErrAlreadyDecided):
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("payment already decided"))
		default:
			log.Error("failed to verify payment", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not verify payment"))
		}
		return
	}

	log.Info("payment decided",
		slog.Int("payment_id", id),
		slog.String("status", req.Status),
		slog.String("verifier", verifier),
	)
	render.JSON(w, r, response.OKWithData(map[string]any{
		"payment_id": id,
		"status":     req.Status,
	}))
}
