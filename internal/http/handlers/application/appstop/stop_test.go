package appstop

import (
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
	"github.com/solusikonsep/deploykit/internal/runner"
	"github.com/solusikonsep/deploykit/internal/services/application"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) Stop(ctx context.Context, userUID string, appID int) (runner.StopResult, error) {
	args := m.Called(ctx, userUID, appID)
	return args.Get(0).(runner.StopResult), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestStopHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name           string
		urlParam       string
		mockResult     runner.StopResult
		mockErr        error
		skipMock       bool
		wantStatusCode int
		wantError      string
		wantDestroyed  bool
	}{
		{
			name:           "graceful stop",
			urlParam:       "7",
			mockResult:     runner.StopResult{Success: true, Message: "application blog stopped successfully"},
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "stop via destroy",
			urlParam:       "7",
			mockResult:     runner.StopResult{Success: true, Destroyed: true, Message: "application blog destroyed successfully"},
			wantStatusCode: http.StatusOK,
			wantDestroyed:  true,
		},
		{
			name:           "invalid id",
			urlParam:       "abc",
			skipMock:       true,
			wantStatusCode: http.StatusBadRequest,
			wantError:      "invalid application id",
		},
		{
			name:           "not found",
			urlParam:       "7",
			mockErr:        application.ErrNotFound,
			wantStatusCode: http.StatusNotFound,
			wantError:      "application not found",
		},
		{
			name:           "already stopped",
			urlParam:       "7",
			mockErr:        application.ErrInvalidState,
			wantStatusCode: http.StatusBadRequest,
			wantError:      "application is not running",
		},
		{
			name:           "remote command failed",
			urlParam:       "7",
			mockErr:        runner.ErrCommandFailed,
			wantStatusCode: http.StatusInternalServerError,
			wantError:      "failed to stop application on remote host",
		},
		{
			name:           "remote launch failed",
			urlParam:       "7",
			mockErr:        runner.ErrLaunch,
			wantStatusCode: http.StatusInternalServerError,
			wantError:      "failed to stop application on remote host",
		},
		{
			name:           "unexpected error",
			urlParam:       "7",
			mockErr:        errors.New("db down"),
			wantStatusCode: http.StatusInternalServerError,
			wantError:      "could not stop application",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			serviceMock := new(ServiceMock)
			handler := New(newNoopLogger(), serviceMock)

			if !tt.skipMock {
				serviceMock.On("Stop", mock.Anything, "uid-1", 7).
					Return(tt.mockResult, tt.mockErr).Once()
			}

			req := httptest.NewRequest(http.MethodPost, "/applications/"+tt.urlParam+"/stop", nil)

			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", tt.urlParam)
			ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
			ctx = context.WithValue(ctx, middleware.RequestIDKey, "reqid123")
			ctx = context.WithValue(ctx, middlewarectx.UserUID, "uid-1")
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
				assert.Equal(t, tt.wantDestroyed, data["destroyed"])
				assert.Equal(t, tt.mockResult.Message, data["message"])
			}

			serviceMock.AssertExpectations(t)
		})
	}
}
