package api

import (
	"net/http"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lamitie/server/internal/api/handlers"
	"github.com/lamitie/server/internal/api/middleware"
	"github.com/lamitie/server/internal/auth"
	"github.com/lamitie/server/internal/config"
	"github.com/lamitie/server/internal/domain/students"
	"github.com/lamitie/server/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/riverqueue/river"
	"github.com/rs/zerolog"
)

// RouterDeps carries everything the HTTP surface needs. The serve command
// owns the lifecycle of the pool and job client; the router only routes.
type RouterDeps struct {
	Config      config.Config
	Logger      zerolog.Logger
	Students    *students.Service
	Pool        *pgxpool.Pool
	RiverClient *river.Client[pgx.Tx]
	Version     string
	GitCommit   string
	BuildDate   string
}

// NewRouter builds the HTTP surface. The returned cleanup stops the
// router's background work (rate limiter reaping) and belongs in the
// caller's shutdown path.
func NewRouter(deps RouterDeps) (http.Handler, func()) {
	cfg := deps.Config

	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiry, "lamitie")

	studentsHandler := handlers.NewStudentsHandler(deps.Students, cfg.Environment)
	authHandler := handlers.NewAdminAuthHandler(cfg.Admin.PasswordHash, jwtManager, cfg.Auth.JWTExpiry, cfg.Environment)
	healthChecker := handlers.NewHealthChecker(deps.Pool, deps.RiverClient, deps.Version, deps.GitCommit)

	adminAuth := middleware.JWTAuth(jwtManager, cfg.Environment)
	limiter := middleware.NewRateLimiter(cfg.RateLimit)
	rateLimit := limiter.Middleware

	// The tier marker must run before the limiter reads it, so rate
	// limiting composes per route rather than around the whole mux.
	public := func(h http.Handler) http.Handler {
		return rateLimit(h)
	}
	admin := func(h http.Handler) http.Handler {
		return middleware.WithRateLimitTierHandler(middleware.TierAdmin)(rateLimit(adminAuth(h)))
	}
	login := func(h http.Handler) http.Handler {
		return middleware.WithRateLimitTierHandler(middleware.TierLogin)(rateLimit(h))
	}

	mux := http.NewServeMux()
	mux.Handle("/healthz", handlers.Healthz())
	mux.Handle("/readyz", handlers.Readyz())
	mux.Handle("/health", healthChecker.Health())
	mux.Handle("/version", VersionHandler(deps.Version, deps.GitCommit, deps.BuildDate))
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	mux.Handle("/api/v1/openapi.json", OpenAPIHandler())

	mux.Handle("/api/v1/register", methodMux(map[string]http.Handler{
		http.MethodPost: public(http.HandlerFunc(studentsHandler.Register)),
	}))
	mux.Handle("/api/v1/scan", methodMux(map[string]http.Handler{
		http.MethodPost: public(http.HandlerFunc(studentsHandler.Scan)),
	}))
	mux.Handle("/api/v1/students", methodMux(map[string]http.Handler{
		http.MethodGet: admin(http.HandlerFunc(studentsHandler.List)),
	}))
	mux.Handle("/api/v1/students/{index_number}", methodMux(map[string]http.Handler{
		http.MethodGet: admin(http.HandlerFunc(studentsHandler.Get)),
		http.MethodPut: public(http.HandlerFunc(studentsHandler.Update)),
	}))
	mux.Handle("/api/v1/admin/login", methodMux(map[string]http.Handler{
		http.MethodPost: login(http.HandlerFunc(authHandler.Login)),
	}))
	mux.Handle("/api/v1/admin/logout", methodMux(map[string]http.Handler{
		http.MethodPost: http.HandlerFunc(authHandler.Logout),
	}))

	// Outermost first: every request gets an ID and a logger before
	// anything else can touch it.
	var handler http.Handler = mux
	handler = middleware.CORS(cfg.CORS, deps.Logger)(handler)
	handler = metrics.HTTPMiddleware(handler)
	handler = middleware.RequestLogging(deps.Logger)(handler)
	handler = middleware.CorrelationID(deps.Logger)(handler)
	return handler, limiter.Stop
}

func methodMux(handlers map[string]http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if handler, ok := handlers[r.Method]; ok {
			handler.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Allow", allowedMethods(handlers))
		w.WriteHeader(http.StatusMethodNotAllowed)
	})
}

func allowedMethods(handlers map[string]http.Handler) string {
	methods := make([]string, 0, len(handlers))
	for method := range handlers {
		methods = append(methods, method)
	}
	sort.Strings(methods)
	return strings.Join(methods, ", ")
}
