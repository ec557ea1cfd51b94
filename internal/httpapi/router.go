package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"vodworks/internal/auth"
	"vodworks/internal/config"
	"vodworks/internal/httpapi/handlers"
	"vodworks/internal/httpkit"
	"vodworks/internal/pkg/logger"
	"vodworks/internal/pkg/middleware"
	"vodworks/internal/ports"
	"vodworks/internal/repositories"
)

type Deps struct {
	Pool *pgxpool.Pool
	RDB  *redis.Client
	SP   ports.StorageProvider
	Cfg  *config.Config
	Log  *logger.Logger
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	// ---- CORS (Frontend + clientes de benchmark) ----
	r.Use(httpkit.CORS(httpkit.CORSOptions{
		AllowedOrigins:   d.Cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAgeSeconds:    600,
	}))

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(d.Log))
	r.Use(middleware.Logging(d.Log))
	r.Use(middleware.APIMetrics(repositories.NewMetricsRepository(d.Pool), d.Log))
	r.Use(middleware.RateLimit(d.Cfg.RateLimitPerMinute))

	h := handlers.New(handlers.Deps{
		Pool: d.Pool,
		RDB:  d.RDB,
		SP:   d.SP,
		Cfg:  d.Cfg,
		Log:  d.Log,
	})

	requireAuth := auth.RequireAuth([]byte(d.Cfg.JWTSecret))

	// ---- HEALTH ----
	r.Get("/health", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		// ---- AUTH ----
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
			r.Post("/google", h.GoogleAuth)
			r.Post("/logout", h.Logout)
			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Get("/me", h.Me)
				r.Post("/me", h.Me)
			})
		})

		// ---- VIDEOS ----
		r.Route("/videos", func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/", h.ListVideos)
			r.Post("/", h.UploadVideo)
			r.Route("/{videoId}", func(r chi.Router) {
				r.Get("/", h.GetVideo)
				r.Put("/", h.UpdateVideo)
				r.Delete("/", h.DeleteVideo)
				r.Get("/stream", h.StreamVideo)
				r.Get("/stream/{file}", h.StreamVideoFile)
				r.Get("/thumbnail", h.GetThumbnail)
			})
		})

		// ---- METRICS ----
		r.Route("/metrics", func(r chi.Router) {
			r.Post("/playback", h.RecordPlayback)
			r.Get("/insights", h.GetInsights)
		})
	})

	return r
}
