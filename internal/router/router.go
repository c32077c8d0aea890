// internal/router/router.go
package router

import (
	"net/http"
	"time"

	"github.com/DrawzeoBarrela/pix-pocket-brasil/internal/handler"
	authmw "github.com/DrawzeoBarrela/pix-pocket-brasil/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Webhook   *handler.WebhookHandler
	Operation *handler.OperationHandler
	Admin     *handler.AdminHandler
}

// Options carries the cross-cutting pieces: auth, rate limiting and CORS.
type Options struct {
	Auth           *authmw.AuthMiddleware
	RateCounter    authmw.Counter
	RateLimit      int
	RateWindow     time.Duration
	AllowedOrigins []string
}

func SetupRoutes(h Handlers, opts Options, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggerMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Signature", "X-Request-Id"},
		ExposedHeaders:   []string{"Link", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/api/v1/payments/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Provider webhooks are public; authenticity is checked by signature.
		r.Route("/webhooks", func(r chi.Router) {
			r.Post("/mercadopago", h.Webhook.HandleMercadoPagoWebhook)
			r.Get("/mercadopago", h.Webhook.HandleMercadoPagoWebhook)
		})

		r.Route("/operations", func(r chi.Router) {
			r.Use(opts.Auth.RequireAuth)
			r.Use(authmw.RateLimiter(opts.RateCounter, opts.RateLimit, opts.RateWindow, "user", logger))

			r.Get("/", h.Operation.ListOperations)
			r.Post("/deposits", h.Operation.CreateDeposit)
			r.Post("/withdrawals", h.Operation.CreateWithdrawal)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(opts.Auth.RequireAdmin)
			r.Use(authmw.RateLimiter(opts.RateCounter, opts.RateLimit, opts.RateWindow, "admin", logger))

			r.Route("/payments/{paymentID}", func(r chi.Router) {
				r.Get("/recheck", h.Admin.Recheck)
				r.Post("/recheck", h.Admin.Recheck)
				r.Post("/confirm", h.Admin.Confirm)
				r.Post("/resend-notification", h.Admin.ResendNotification)
				r.Get("/debug", h.Admin.Debug)
			})
			r.Post("/operations/{operationID}/cancel", h.Admin.CancelOperation)
			r.Post("/notifications/test", h.Admin.TestNotification)
		})
	})

	return r
}

// LoggerMiddleware logs HTTP requests
func LoggerMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("remote_addr", r.RemoteAddr),
				zap.String("user_agent", r.UserAgent()))
		})
	}
}
