package verifypayment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/solusikonsep/deploykit/internal/http/middlewarectx"
	"github.com/solusikonsep/deploykit/internal/models"
	"github.com/solusikonsep/deploykit/internal/services/payment"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) Verify(ctx context.Context, paymentID int, verifier, status, notes string) error {
	args := m.Called(ctx, paymentID, verifier, status, notes)
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestVerifyHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    any
		mockErr        error
		skipMock       bool
		wantStatusCode int
		wantError      string
	}{
		{
			name:           "verified",
			requestBody:    models.VerifyRequest{Status: "verified", Notes: "looks good"},
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "rejected",
			requestBody:    models.VerifyRequest{Status: "rejected", Notes: "amount mismatch"},
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "invalid json body",
			requestBody:    "not a json",
			skipMock:       true,
			wantStatusCode: http.StatusBadRequest,
			wantError:      "invalid request body",
		},
		{
			name:           "unsupported status value",
			requestBody:    models.VerifyRequest{Status: "maybe"},
			skipMock:       true,
			wantStatusCode: http.StatusUnprocessableEntity,
			wantError:      "field Status has an unsupported value",
		},
		{
			name:           "payment not found",
			requestBody:    models.VerifyRequest{Status: "verified"},
			mockErr:        payment.ErrNotFound,
			wantStatusCode: http.StatusNotFound,
			wantError:      "payment not found",
		},
		{
			name:           "already decided",
			requestBody:    models.VerifyRequest{Status: "verified"},
			mockErr:        payment.ErrAlreadyDecided,
			wantStatusCode: http.StatusConflict,
			wantError:      "payment already decided",
		},
		{
			name:           "unexpected error",
			requestBody:    models.VerifyRequest{Status: "verified"},
			mockErr:        errors.New("db down"),
			wantStatusCode: http.StatusInternalServerError,
			wantError:      "could not verify payment",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			serviceMock := new(ServiceMock)
			handler := New(newNoopLogger(), serviceMock)

			if !tt.skipMock {
				req := tt.requestBody.(models.VerifyRequest)
				serviceMock.On("Verify", mock.Anything, 11, "admin", req.Status, req.Notes).
					Return(tt.mockErr).Once()
			}

			var bodyBytes []byte
			switch v := tt.requestBody.(type) {
			case string:
				bodyBytes = []byte(v)
			default:
				var err error
				bodyBytes, err = json.Marshal(v)
				if err != nil {
					t.Fatal(err)
				}
			}

			req := httptest.NewRequest(http.MethodPost, "/admin/payments/11/verify", bytes.NewReader(bodyBytes))

			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", "11")
			ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
			ctx = context.WithValue(ctx, middleware.RequestIDKey, "reqid123")
			ctx = context.WithValue(ctx, middlewarectx.User, "admin")
			req = req.WithContext(ctx)

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)

			var got map[string]any
			assert.NoError(t, json.NewDecoder(rec.Body).Decode(&got))

			if tt.wantError != "" {
				assert.Equal(t, "Error", got["status"])
				assert.Equal(t, tt.wantError, got["error"])
			} else {
				assert.Equal(t, "OK", got["status"])
				data, ok := got["data"].(map[string]any)
				assert.True(t, ok)
				assert.Equal(t, float64(11), data["payment_id"])
			}

			serviceMock.AssertExpectations(t)
		})
	}
}
