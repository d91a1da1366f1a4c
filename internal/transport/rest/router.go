package rest

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/liquidation-portal/internal/analytics"
	"github.com/frahmantamala/liquidation-portal/internal/auth"
	"github.com/frahmantamala/liquidation-portal/internal/backend"
	"github.com/frahmantamala/liquidation-portal/internal/liquidation"
	"github.com/frahmantamala/liquidation-portal/internal/profile"
	"github.com/frahmantamala/liquidation-portal/internal/receipt"
	"github.com/frahmantamala/liquidation-portal/internal/transport"
	"github.com/frahmantamala/liquidation-portal/internal/transport/middleware"
	"github.com/frahmantamala/liquidation-portal/internal/transport/swagger"
	"github.com/go-chi/chi"
)

const (
	APIPrefix         = "/api/v1"
	ReceiptFilesRoute = "/receipts/files"
)

// Handlers is everything the router mounts.
type Handlers struct {
	Health         *HealthHandler
	RBAC           *auth.RBACAuthorization
	Auth           *auth.Handler
	Profile        *profile.Handler
	Liquidation    *liquidation.Handler
	Analytics      *analytics.Handler
	Receipt        *receipt.Handler
	ReceiptFiles   http.Handler
	AllowedOrigins string
}

// NewHandlers builds the HTTP layer over the application's services.
func NewHandlers(app *backend.App) Handlers {
	health := NewHealthHandler(app.SQL)
	if app.Redis != nil {
		health.WithCheck("redis", func(ctx context.Context) error {
			return app.Redis.Ping(ctx).Err()
		})
	}

	return Handlers{
		Health:         health,
		RBAC:           app.RBAC,
		Auth:           auth.NewHandler(app.Auth),
		Profile:        profile.NewHandler(transport.NewBaseHandler(app.Logger), app.Profiles),
		Liquidation:    liquidation.NewHandler(app.Liquidations),
		Analytics:      analytics.NewHandler(app.Analytics),
		Receipt:        receipt.NewHandler(app.Receipts),
		ReceiptFiles:   app.Blobs.FileServer(),
		AllowedOrigins: app.Config.Server.AllowedOrigins,
	}
}

func RegisterAllRoutes(router *chi.Mux, h Handlers, logger *slog.Logger) {
	router.Use(middleware.CORS(h.AllowedOrigins))
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	router.Get("/openapi.yml", swagger.DocumentHandler())
	router.Handle("/swagger/*", swagger.Handler())

	router.Route(APIPrefix, func(r chi.Router) {
		r.Get("/health", h.Health.healthCheckHandler)
		r.Get("/ping", h.Health.pingHandler)

		r.Route("/auth", func(sr chi.Router) {
			sr.Post("/signup", h.Auth.SignUp)
			sr.Post("/signin", h.Auth.SignIn)
			sr.Post("/refresh", h.Auth.RefreshToken)
			sr.Post("/signout", h.Auth.SignOut)
		})

		// receipt URLs are public links
		r.Handle(ReceiptFilesRoute+"/*", http.StripPrefix(APIPrefix+ReceiptFilesRoute, h.ReceiptFiles))

		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)

			pr.Get("/profiles/me", h.Profile.GetCurrentProfile)

			pr.Route("/liquidations", func(lr chi.Router) {
				lr.Get("/", h.Liquidation.List)
				lr.Post("/", h.Liquidation.Create)
				lr.Get("/export", h.Liquidation.Export)
				lr.Post("/import", h.Liquidation.Import)
				lr.Get("/pending-count", h.Liquidation.PendingCount)
				lr.Post("/bulk/delete", h.Liquidation.BulkDelete)

				lr.Group(func(rr chi.Router) {
					rr.Use(h.RBAC.RequireReviewer())
					rr.Post("/bulk/status", h.Liquidation.BulkUpdateStatus)
				})

				lr.Get("/{id}", h.Liquidation.Get)
				lr.Put("/{id}", h.Liquidation.Update)
				lr.Patch("/{id}/field", h.Liquidation.UpdateField)
			})

			pr.Get("/analytics", h.Analytics.GetReport)
			pr.Get("/analytics/export", h.Analytics.Export)

			pr.Post("/receipts", h.Receipt.Upload)
			pr.Get("/receipts/{itemID}", h.Receipt.GetStatus)
		})
	})
}
