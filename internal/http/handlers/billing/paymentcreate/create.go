// Package paymentcreate implements the HTTP handler for submitting a
// bank-transfer claim against the caller's current subscription.
package paymentcreate

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
	"github.com/solusikonsep/deploykit/internal/services/payment"
)

// Service is the slice of the payment service this handler needs.
type Service interface {
	Create(ctx context.Context, userUID string, req models.PaymentRequest) (int, error)
}

// Handler serves POST /billing/payments.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New creates the handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Submit a bank-transfer claim
// @Description Records a payment claim pending administrative verification.
// @Tags Billing
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.PaymentRequest true "Transfer details"
// @Success 201 {object} map[string]any "Payment recorded"
// @Failure 400 {object} response.ErrorResponse "Invalid JSON or no subscription"
// @Failure 401 {object} response.ErrorResponse "Not authenticated"
// @Failure 422 {object} response.ErrorResponse "Validation error"
// @Router /billing/payments [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.billing.paymentcreate"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.PaymentRequest
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

	id, err := h.service.Create(r.Context(), userUID, req)
	if err != nil {
		if errors.Is(err, payment.ErrNoSubscription) {
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("no subscription found for user"))
			return
		}
		log.Error("failed to create payment", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not create payment"))
		return
	}

	log.Info("payment claim recorded", slog.Int("id", id))
	w.WriteHeader(http.StatusCreated)
	render.JSON(w, r, response.OKWithData(map[string]any{
		"payment_id": id,
	}))
}
