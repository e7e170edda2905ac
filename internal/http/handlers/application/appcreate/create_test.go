package appcreate

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

	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/solusikonsep/deploykit/internal/http/middlewarectx"
	"github.com/solusikonsep/deploykit/internal/models"
	"github.com/solusikonsep/deploykit/internal/services/application"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) Create(ctx context.Context, userUID, name string) (*models.Application, error) {
	args := m.Called(ctx, userUID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Application), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestCreateHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    any
		userUID        string
		mockApp        *models.Application
		mockErr        error
		wantStatusCode int
		wantError      string
	}{
		{
			name:           "valid creation",
			requestBody:    models.ApplicationRequest{Name: "blog"},
			userUID:        "uid-1",
			mockApp:        &models.Application{ID: 7, UserUID: "uid-1", Name: "blog", Status: models.ApplicationActive},
			wantStatusCode: http.StatusCreated,
		},
		{
			name:           "invalid json body",
			requestBody:    "not a json",
			userUID:        "uid-1",
			wantStatusCode: http.StatusBadRequest,
			wantError:      "invalid request body",
		},
		{
			name:           "invalid application name",
			requestBody:    models.ApplicationRequest{Name: "Bad_Name!"},
			userUID:        "uid-1",
			wantStatusCode: http.StatusUnprocessableEntity,
			wantError:      "field Name must be a valid application name",
		},
		{
			name:           "missing identity",
			requestBody:    models.ApplicationRequest{Name: "blog"},
			wantStatusCode: http.StatusUnauthorized,
			wantError:      "unauthorized",
		},
		{
			name:           "no active subscription",
			requestBody:    models.ApplicationRequest{Name: "blog"},
			userUID:        "uid-1",
			mockErr:        application.ErrNoActiveSubscription,
			wantStatusCode: http.StatusForbidden,
			wantError:      "no active subscription",
		},
		{
			name:           "quota exceeded",
			requestBody:    models.ApplicationRequest{Name: "blog"},
			userUID:        "uid-1",
			mockErr:        application.ErrQuotaExceeded,
			wantStatusCode: http.StatusForbidden,
			wantError:      "application quota exceeded for current plan",
		},
		{
			name:           "name taken",
			requestBody:    models.ApplicationRequest{Name: "blog"},
			userUID:        "uid-1",
			mockErr:        application.ErrNameTaken,
			wantStatusCode: http.StatusConflict,
			wantError:      "application name already taken",
		},
		{
			name:           "unexpected error",
			requestBody:    models.ApplicationRequest{Name: "blog"},
			userUID:        "uid-1",
			mockErr:        errors.New("db down"),
			wantStatusCode: http.StatusInternalServerError,
			wantError:      "could not create application",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			serviceMock := new(ServiceMock)
			handler := New(newNoopLogger(), serviceMock)

			if tt.mockApp != nil || tt.mockErr != nil {
				serviceMock.On("Create", mock.Anything, tt.userUID, "blog").
					Return(tt.mockApp, tt.mockErr).Once()
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

			req := httptest.NewRequest(http.MethodPost, "/applications", bytes.NewReader(bodyBytes))
			ctx := context.WithValue(req.Context(), middleware.RequestIDKey, "reqid123")
			if tt.userUID != "" {
				ctx = context.WithValue(ctx, middlewarectx.UserUID, tt.userUID)
			}
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
				app, ok := data["application"].(map[string]any)
				assert.True(t, ok)
				assert.Equal(t, "blog", app["name"])
			}

			serviceMock.AssertExpectations(t)
		})
	}
}
