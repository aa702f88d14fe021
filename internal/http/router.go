package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/laocinema/lao-cinema-api/internal/activity"
	"github.com/laocinema/lao-cinema-api/internal/auth"
	"github.com/laocinema/lao-cinema-api/internal/authz"
	"github.com/laocinema/lao-cinema-api/internal/catalog"
	"github.com/laocinema/lao-cinema-api/internal/config"
	"github.com/laocinema/lao-cinema-api/internal/httputil"
	"github.com/laocinema/lao-cinema-api/internal/logging"
	"github.com/laocinema/lao-cinema-api/internal/metrics"
	"github.com/laocinema/lao-cinema-api/internal/user"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Auth     *auth.Handler
	Activity *activity.Handler
	Catalog  *catalog.Handler
	Admin    *user.AdminHandler
}

// Guards holds the authentication and authorization middleware.
type Guards struct {
	Auth  *auth.Middleware
	Authz *authz.Middleware
}

// Uploads describes where uploaded images are served from.
type Uploads struct {
	Dir    string
	Prefix string
}

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, h Handlers, g Guards, uploads Uploads, logger *logging.Logger) *chi.Mux {
	r := chi.NewRouter()

	// CORS - must be first
	if len(cfg.Server.TrustedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Server.TrustedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", activity.AnonymousIDHeader},
			ExposedHeaders:   []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           300, // 5 minutes
		}))
	}

	// Global middleware
	r.Use(SecurityHeaders)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(logger))
	r.Use(metrics.Middleware)
	r.Use(middleware.Compress(5))

	r.Get("/health", handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	if uploads.Dir != "" {
		files := http.StripPrefix(uploads.Prefix, http.FileServer(http.Dir(uploads.Dir)))
		r.Handle(uploads.Prefix+"/*", files)
	}

	// Swagger UI - only in development
	if cfg.Server.IsDevelopment() {
		logger.Info("swagger UI enabled at /swagger/*")
		r.Get("/swagger/*", httpSwagger.WrapHandler)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(RateLimitByIP(cfg.Server.RequestsPerMin))

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Auth.Register)
			r.Post("/login", h.Auth.Login)
			r.Get("/verify-email", h.Auth.VerifyEmail)
			r.Post("/resend-verification", h.Auth.ResendVerificationEmail)
			r.Post("/forgot-password", h.Auth.ForgotPassword)
			r.Post("/reset-password", h.Auth.ResetPassword)

			r.Group(func(r chi.Router) {
				r.Use(g.Auth.RequireAuth)
				r.Get("/me", h.Auth.Me)
				r.Patch("/me", h.Auth.UpdateMe)
				r.Patch("/me/password", h.Auth.ChangePassword)
				r.Delete("/me", h.Auth.DeleteMe)
				r.Post("/logout", h.Auth.Logout)
				r.Post("/logout-all", h.Auth.LogoutAll)
			})
		})

		// Activity accepts either a bearer token or X-Anonymous-Id
		r.Group(func(r chi.Router) {
			r.Use(g.Auth.OptionalAuth)
			r.Post("/rentals/{movieId}", h.Activity.Rent)
			r.Get("/rentals", h.Activity.ListRentals)
			r.Get("/rentals/{movieId}", h.Activity.GetRental)
			r.Put("/watch-progress/{movieId}", h.Activity.SaveProgress)
			r.Get("/watch-progress", h.Activity.ListProgress)
			r.Get("/watch-progress/{movieId}", h.Activity.GetProgress)
		})

		r.Group(func(r chi.Router) {
			r.Use(g.Auth.RequireAuth)
			r.Post("/users/migrate", h.Activity.Migrate)
			r.Get("/users/me/stats", h.Activity.Stats)

			r.With(g.Authz.Require(authz.ObjectUsers, authz.ActionManage)).
				Patch("/admin/users/{id}/role", h.Admin.UpdateRole)
		})

		mountCatalog(r, h.Catalog, g)
	})

	return r
}

// mountCatalog registers the catalog: reads are public, writes need the editor role.
func mountCatalog(r chi.Router, h *catalog.Handler, g Guards) {
	r.Get("/movies", h.ListMovies)
	r.Get("/movies/{id}", h.GetMovie)
	r.Get("/movies/{id}/images", h.ListImages)
	r.Get("/people", h.ListPeople)
	r.Get("/people/{id}", h.GetPerson)
	r.Get("/people/{id}/accolades", h.GetPersonAccolades)

	r.Group(func(r chi.Router) {
		r.Use(g.Auth.RequireAuth)
		r.Use(g.Authz.Require(authz.ObjectCatalog, authz.ActionWrite))

		r.Post("/movies", h.CreateMovie)
		r.Post("/movies/import/tmdb", h.ImportTMDB)
		r.Patch("/movies/{id}", h.UpdateMovie)
		r.Delete("/movies/{id}", h.DeleteMovie)
		r.Post("/movies/{id}/sync-tmdb", h.SyncTMDB)

		r.Post("/movies/{id}/images", h.AddImage)
		r.Put("/movies/{id}/images/{imageId}/primary", h.SetPrimaryImage)
		r.Delete("/movies/{id}/images/{imageId}", h.DeleteImage)

		r.Post("/movies/{id}/cast", h.AddCast)
		r.Post("/movies/{id}/crew", h.AddCrew)
		r.Delete("/movies/{id}/credits/{personId}", h.RemoveCredit)

		r.Post("/people", h.CreatePerson)

		r.Route("/accolades", func(r chi.Router) {
			r.Post("/events", h.CreateEvent)
			r.Post("/editions", h.CreateEdition)
			r.Post("/sections", h.CreateSection)
			r.Post("/categories", h.CreateCategory)
			r.Post("/nominations", h.CreateNomination)
			r.Post("/selections", h.CreateSelection)
		})
	})
}

// handleHealth is the liveness probe
func handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}
