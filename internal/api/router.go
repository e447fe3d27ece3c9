package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/isdelr/pitchzone-be/internal/api/handlers"
	"github.com/isdelr/pitchzone-be/internal/auth"
	"github.com/isdelr/pitchzone-be/internal/config"
	"github.com/isdelr/pitchzone-be/internal/response"
	"github.com/isdelr/pitchzone-be/internal/services"
	"github.com/isdelr/pitchzone-be/internal/websocket"
	"github.com/rs/zerolog/log"
)

// Pinger reports whether the database is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Dependencies are the collaborators the router wires into handlers.
type Dependencies struct {
	Config  *config.Config
	DB      Pinger
	Hub     *websocket.Hub
	Tokens  *auth.TokenManager
	Users   services.UserServiceProvider
	Pitches services.PitchServiceProvider
	Funding services.FundingServiceProvider
	Stats   services.StatsServiceProvider
	Events  services.EventServiceProvider
	System  handlers.SystemReporter
}

// NewRouter creates and configures a new Chi router.
func NewRouter(deps Dependencies) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize handlers
	mw := auth.NewMiddleware(deps.Tokens, deps.Users)
	authHandler := handlers.NewAuthHandler(deps.Users, deps.Tokens)
	pitchHandler := handlers.NewPitchHandler(deps.Pitches, deps.Funding)
	userHandler := handlers.NewUserHandler(deps.Users, deps.Stats, deps.Funding)
	adminHandler := handlers.NewAdminHandler(deps.Users, deps.Pitches, deps.Stats, deps.System)
	eventHandler := handlers.NewEventHandler(deps.Events)
	wsHandler := handlers.NewWebSocketHandler(deps.Hub, deps.Pitches)
	limiter := NewRateLimiter(deps.Config.AuthRequestsPerMinute, deps.Config.AuthBurst)

	r.Get("/", welcome)
	r.Get("/healthz", healthz(deps.DB))

	r.Route("/api", func(r chi.Router) {
		r.Get("/live", wsHandler.ServeGlobal)

		r.Route("/auth", func(r chi.Router) {
			r.With(limiter.Middleware).Post("/register", authHandler.Register)
			r.With(limiter.Middleware).Post("/login", authHandler.Login)

			r.Group(func(r chi.Router) {
				r.Use(mw.Authenticate)
				r.Get("/me", authHandler.GetMe)
				r.Put("/profile", authHandler.UpdateProfile)
				r.Post("/logout", authHandler.Logout)
			})
		})

		r.Route("/pitches", func(r chi.Router) {
			r.With(mw.Optional).Get("/", pitchHandler.List)
			r.With(mw.Optional).Get("/{id}", pitchHandler.Get)
			r.Get("/{id}/live", wsHandler.ServePitch)

			r.Group(func(r chi.Router) {
				r.Use(mw.Authenticate, auth.Require(auth.CapEntrepreneur))
				r.Post("/create", pitchHandler.Create)
				r.Get("/my/pitches", pitchHandler.Mine)
				r.Put("/{id}", pitchHandler.Update)
				r.Delete("/{id}", pitchHandler.Close)
			})

			r.Group(func(r chi.Router) {
				r.Use(mw.Authenticate, auth.Require(auth.CapInvestor))
				r.Post("/{id}/invest", pitchHandler.Invest)
				r.Post("/{id}/feedback", pitchHandler.Feedback)
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/profile/{id}", userHandler.Profile)
			r.Get("/stats", userHandler.Stats)
			r.Get("/leaderboard", userHandler.Leaderboard)

			r.Group(func(r chi.Router) {
				r.Use(mw.Authenticate)
				r.Get("/investors", userHandler.Investors)
				r.Get("/entrepreneurs", userHandler.Entrepreneurs)
				r.With(auth.Require(auth.CapInvestor)).Get("/my/investments", userHandler.MyInvestments)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(mw.Authenticate, auth.Require(auth.CapAdmin))
			r.Get("/dashboard", adminHandler.Dashboard)
			r.Get("/system", adminHandler.System)
			r.Get("/events", eventHandler.GetRecent)
			r.Post("/create-user", adminHandler.CreateUser)

			r.Route("/users", func(r chi.Router) {
				r.Get("/", adminHandler.ListUsers)
				r.Get("/{id}", adminHandler.GetUser)
				r.Put("/{id}", adminHandler.UpdateUser)
				r.Delete("/{id}", adminHandler.DeleteUser)
			})

			r.Route("/pitches", func(r chi.Router) {
				r.Get("/", adminHandler.ListPitches)
				r.Get("/{id}", adminHandler.GetPitch)
				r.Put("/{id}", adminHandler.UpdatePitch)
				r.Delete("/{id}", adminHandler.DeletePitch)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.Fail(w, http.StatusNotFound, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.Fail(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	return r
}

func welcome(w http.ResponseWriter, r *http.Request) {
	response.OK(w, "Welcome to the PitchZone API", response.Payload{
		"endpoints": map[string]string{
			"auth":    "/api/auth",
			"pitches": "/api/pitches",
			"users":   "/api/users",
			"admin":   "/api/admin",
			"live":    "/api/live",
			"health":  "/healthz",
		},
	})
}

func healthz(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			log.Error().Err(err).Msg("Health check failed")
			response.Fail(w, http.StatusServiceUnavailable, "Database unavailable")
			return
		}
		response.OK(w, "OK", nil)
	}
}

// requestLogger logs each request through zerolog once it completes.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			log.Info().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("Request handled")
		}()
		next.ServeHTTP(ww, r)
	})
}
