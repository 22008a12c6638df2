// Package httpapi wires the chi router: public auth and health routes,
// JWT-protected ledger routes, and the Prometheus scrape endpoint.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/fantapay/fantapay/internal/metrics"
	"github.com/fantapay/fantapay/internal/transport/httpapi/handler"
	"github.com/fantapay/fantapay/internal/transport/httpapi/middleware"
	"github.com/fantapay/fantapay/pkg/logger"
)

// Config holds router configuration
type Config struct {
	Logger             *logger.Logger
	AllowedOrigins     []string
	AuthHandler        *handler.AuthHandler
	WalletHandler      *handler.WalletHandler
	CompetitionHandler *handler.CompetitionHandler
	PaymentHandler     *handler.PaymentHandler
	AccountingHandler  *handler.AccountingHandler
	HealthHandler      *handler.HealthHandler
	JWTMiddleware      func(http.Handler) http.Handler
}

// NewRouter creates a new HTTP router
func NewRouter(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(metrics.Middleware)
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(chimiddleware.Compress(5))
	r.Use(middleware.RateLimit())

	// Health and metrics endpoints (no authentication required)
	r.Get("/health", handler.GetHealth)
	r.Get("/health/live", handler.GetLiveness)
	if cfg.HealthHandler != nil {
		r.Get("/health/ready", cfg.HealthHandler.GetReadiness)
	}
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Auth routes (public)
		r.Post("/auth/register", cfg.AuthHandler.Register)
		r.Post("/auth/login", cfg.AuthHandler.Login)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(cfg.JWTMiddleware)

			r.Get("/auth/me", cfg.AuthHandler.Me)
			r.Put("/auth/language", cfg.AuthHandler.UpdateLanguage)

			// Personal wallet
			r.Get("/wallet/balance", cfg.WalletHandler.GetBalance)
			r.Post("/wallet/topup", cfg.WalletHandler.TopUp)
			r.Post("/wallet/withdraw", cfg.WalletHandler.Withdraw)
			r.Get("/transactions", cfg.WalletHandler.GetTransactions)

			// Competitions
			r.Route("/competitions", func(r chi.Router) {
				r.Post("/", cfg.CompetitionHandler.Create)
				r.Post("/join", cfg.CompetitionHandler.Join)
				r.Get("/my", cfg.CompetitionHandler.ListMine)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", cfg.CompetitionHandler.Get)
					r.Patch("/standings", cfg.CompetitionHandler.UpdateStandings)
					r.Delete("/participants/{userID}", cfg.CompetitionHandler.RemoveParticipant)

					// Payments
					r.Post("/pay", cfg.PaymentHandler.PayFee)
					r.Post("/matchdays/pay", cfg.PaymentHandler.PayMatchdays)
					r.Get("/matchdays", cfg.PaymentHandler.PaymentStatus)
					r.Get("/payment-table", cfg.PaymentHandler.PaymentTable)

					// Accounting reads
					r.Get("/transactions", cfg.AccountingHandler.Transactions)
					r.Get("/summary", cfg.AccountingHandler.Summary)
					r.Get("/reconcile", cfg.AccountingHandler.Reconcile)
				})
			})
		})
	})

	return r
}
