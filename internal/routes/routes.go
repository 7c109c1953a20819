package routes

import (
	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/AnshRaj112/serenify-journal/internal/handlers"
	"github.com/AnshRaj112/serenify-journal/internal/middleware"
	"github.com/AnshRaj112/serenify-journal/pkg/clientip"
)

// Handlers groups everything SetupRoutes mounts.
type Handlers struct {
	Entries   *handlers.EntryHandler
	Analytics *handlers.AnalyticsHandler
	Auth      *handlers.AuthHandler
}

// Options configures the middleware stack in NewRouter.
type Options struct {
	Logger         *log.Logger
	AllowedOrigins []string
	Production     bool
	ClientIPs      clientip.Resolver
	// RateLimitRedis backs the shared limiter outside production. Nil
	// disables it.
	RateLimitRedis *redis.Client
	Identity       middleware.IdentityResolver
}

// NewRouter builds the middleware chain and mounts every route.
func NewRouter(opts Options, h Handlers) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger(opts.Logger))

	// CORS answers preflight before rate limiting can reject it
	r.Use(middleware.CORS(opts.AllowedOrigins))

	// Production: SecurityHeaders → GlobalRateLimit → LoginRateLimit
	// Non-production: Redis-based rate limit only
	if opts.Production {
		for _, mw := range middleware.ProductionSecurity(opts.ClientIPs) {
			r.Use(mw)
		}
	} else if opts.RateLimitRedis != nil {
		r.Use(middleware.RedisRateLimit(opts.RateLimitRedis, opts.ClientIPs, opts.Logger))
	}

	r.Use(middleware.Identity(opts.Identity, opts.Logger))

	// Health check
	r.Get("/health", handlers.Health)

	SetupRoutes(r, h)
	return r
}

func SetupRoutes(r chi.Router, h Handlers) {
	// Auth routes
	r.Post("/api/auth/signup", h.Auth.Signup)
	r.Post("/api/auth/signin", h.Auth.Signin)
	r.Post("/api/auth/signout", h.Auth.Signout)
	r.Get("/api/auth/me", h.Auth.Me)

	// Journal entry routes
	r.Route("/api/entries", func(r chi.Router) {
		r.Get("/", h.Entries.List)
		r.Post("/", h.Entries.Create)
		r.Get("/{id}", h.Entries.Get)
		r.Put("/{id}", h.Entries.Update)
		r.Delete("/{id}", h.Entries.Delete)
		r.Post("/{id}/images", h.Entries.AddImage)
		r.Delete("/{id}/images/{imageID}", h.Entries.RemoveImage)
		r.Get("/{id}/history", h.Entries.History)
	})

	// Dashboard analytics
	r.Get("/api/analytics/emotions", h.Analytics.Emotions)
	r.Get("/api/analytics/people", h.Analytics.People)
}
