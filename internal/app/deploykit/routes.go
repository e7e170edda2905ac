package deploykit

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/solusikonsep/deploykit/internal/http/handlers/admin/paymentget"
	"github.com/solusikonsep/deploykit/internal/http/handlers/admin/pendingpayments"
	"github.com/solusikonsep/deploykit/internal/http/handlers/admin/verifypayment"
	"github.com/solusikonsep/deploykit/internal/http/handlers/application/appcreate"
	"github.com/solusikonsep/deploykit/internal/http/handlers/application/applist"
	"github.com/solusikonsep/deploykit/internal/http/handlers/application/apprestart"
	"github.com/solusikonsep/deploykit/internal/http/handlers/application/appstop"
	"github.com/solusikonsep/deploykit/internal/http/handlers/auth/login"
	"github.com/solusikonsep/deploykit/internal/http/handlers/auth/register"
	"github.com/solusikonsep/deploykit/internal/http/handlers/billing/paymentcreate"
	"github.com/solusikonsep/deploykit/internal/http/handlers/billing/paymentlist"
	"github.com/solusikonsep/deploykit/internal/http/handlers/billing/subscriptionget"
	"github.com/solusikonsep/deploykit/internal/http/handlers/billing/subscriptionrenew"
	"github.com/solusikonsep/deploykit/internal/http/handlers/health"
	"github.com/solusikonsep/deploykit/internal/http/handlers/remote/deploy"
	"github.com/solusikonsep/deploykit/internal/http/handlers/remote/run"
	"github.com/solusikonsep/deploykit/internal/http/handlers/remote/status"
	"github.com/solusikonsep/deploykit/internal/http/middlewarectx"
	applicationservice "github.com/solusikonsep/deploykit/internal/services/application"
	authservice "github.com/solusikonsep/deploykit/internal/services/auth"
	paymentservice "github.com/solusikonsep/deploykit/internal/services/payment"
	subscriptionservice "github.com/solusikonsep/deploykit/internal/services/subscription"
)

// RegisterRoutes registers all routes of the control plane.
func RegisterRoutes(r chi.Router, logger *slog.Logger,
	authService *authservice.Service,
	subscriptionService *subscriptionservice.Service,
	paymentService *paymentservice.Service,
	applicationService *applicationservice.Service,
) {
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/register", register.New(logger, authService).ServeHTTP)
		r.Post("/login", login.New(logger, authService).ServeHTTP)
		r.Get("/health", health.New(logger).ServeHTTP)

		// Authenticated user endpoints.
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(authService, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger))

			r.Get("/billing/subscription", subscriptionget.New(logger, subscriptionService).ServeHTTP)
			r.Post("/billing/subscription", subscriptionrenew.New(logger, subscriptionService).ServeHTTP)
			r.Post("/billing/payments", paymentcreate.New(logger, paymentService).ServeHTTP)
			r.Get("/billing/payments", paymentlist.New(logger, paymentService).ServeHTTP)

			r.Post("/applications", appcreate.New(logger, applicationService).ServeHTTP)
			r.Get("/applications", applist.New(logger, applicationService).ServeHTTP)
			r.Post("/applications/{id}/stop", appstop.New(logger, applicationService).ServeHTTP)
			r.Post("/applications/{id}/restart", apprestart.New(logger, applicationService).ServeHTTP)

			r.Post("/remote/run", run.New(logger, applicationService).ServeHTTP)
			r.Get("/remote/status", status.New(logger, applicationService).ServeHTTP)
			r.Post("/remote/deploy", deploy.New(logger, applicationService).ServeHTTP)
		})

		// Administrative endpoints.
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(authService, logger))
			r.Use(middlewarectx.AdminMiddleware(logger))

			r.Get("/admin/payments/pending", pendingpayments.New(logger, paymentService).ServeHTTP)
			r.Get("/admin/payments/{id}", paymentget.New(logger, paymentService).ServeHTTP)
			r.Post("/admin/payments/{id}/verify", verifypayment.New(logger, paymentService).ServeHTTP)
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
