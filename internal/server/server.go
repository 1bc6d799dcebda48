package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mailgate/mailgate/internal/approval"
	"github.com/mailgate/mailgate/internal/config"
	"github.com/mailgate/mailgate/internal/database"
	"github.com/mailgate/mailgate/internal/gmail"
	"github.com/mailgate/mailgate/internal/metrics"
	"github.com/mailgate/mailgate/internal/session"
	"github.com/mailgate/mailgate/internal/telegram"
)

// Server wires the HTTP surface: the agent-facing request API, the
// administrative dashboard API, the Gmail OAuth connect flow, and the
// Telegram webhook ingress.
type Server struct {
	cfg      *config.Config
	db       *database.DB
	notifier *telegram.Notifier
	gmail    *gmail.Client
	machine  *approval.Machine
	sessions *session.Store
	logger   *slog.Logger
}

// Deps dependencies for creating a server
type Deps struct {
	Config   *config.Config
	DB       *database.DB
	Notifier *telegram.Notifier
	Gmail    *gmail.Client
	Machine  *approval.Machine
	Sessions *session.Store
	Logger   *slog.Logger
}

// New creates a Server.
func New(deps Deps) *Server {
	return &Server{
		cfg:      deps.Config,
		db:       deps.DB,
		notifier: deps.Notifier,
		gmail:    deps.Gmail,
		machine:  deps.Machine,
		sessions: deps.Sessions,
		logger:   deps.Logger.With("component", "server"),
	}
}

// Router builds the chi router.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(measureRequests)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{s.cfg.BaseURL},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Rate limiting applies to the API only; Telegram webhooks are exempt.
	r.Route("/api", func(api chi.Router) {
		api.Use(httprate.LimitByIP(s.cfg.RateLimitRequests, s.cfg.RateLimitWindow))

		api.Post("/login", s.handleLogin)

		api.Group(func(agent chi.Router) {
			agent.Use(s.requireAPIKey)
			agent.Post("/send-email", s.handleSendEmail)
			agent.Get("/email-status/{id}", s.handleEmailStatus)
		})

		api.Group(func(dash chi.Router) {
			dash.Use(s.requireDashboard)
			dash.Get("/verify-key", s.handleVerifyKey)
			dash.Get("/users", s.handleListUsers)
			dash.Post("/register-user", s.handleRegisterUser)
			dash.Post("/disconnect-gmail", s.handleDisconnectGmail)
		})
	})

	r.Route("/auth", func(auth chi.Router) {
		auth.Get("/gmail", s.handleGmailAuth)
		auth.Get("/callback/google", s.handleGmailCallback)
	})

	r.Post("/webhook/telegram/{userID}", s.handleTelegramWebhook)

	return r
}

// measureRequests records handler latency per route pattern, so path
// parameters do not explode the label set.
func measureRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		pattern := chi.RouteContext(r.Context()).RoutePattern()
		if pattern == "" {
			pattern = "unmatched"
		}
		metrics.HTTPRequestDuration.
			WithLabelValues(r.Method, pattern, strconv.Itoa(ww.Status())).
			Observe(time.Since(start).Seconds())
	})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
