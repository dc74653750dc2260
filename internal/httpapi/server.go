// Package httpapi — HTTP API сервиса: чтение счетов, уровней и распределений,
// админ-операции под Bearer-токеном, метрики Prometheus.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"funplay.vn/light-engine/internal/features/actions"
	"funplay.vn/light-engine/internal/features/epochs"
	"funplay.vn/light-engine/internal/features/lightscore"
	"funplay.vn/light-engine/internal/pplp"
)

// ScoreService — lightscore.Service.
type ScoreService interface {
	Profile(ctx context.Context, userID string) (*lightscore.Profile, error)
	History(ctx context.Context, userID string, from, to time.Time) ([]pplp.DailyLightScoreResult, error)
	Recalculate(ctx context.Context, userID string, from, to time.Time) (*lightscore.RecalcReport, error)
}

// EpochService — epochs.Service.
type EpochService interface {
	Current(now time.Time) pplp.Epoch
	Get(ctx context.Context, id string) (*pplp.Epoch, error)
	Allocations(ctx context.Context, id string) ([]pplp.MintAllocation, error)
	Close(ctx context.Context, id string, now time.Time) (*epochs.CloseResult, error)
}

// ActionService — actions.Service.
type ActionService interface {
	Record(ctx context.Context, ev pplp.ActionEvent) error
	Signals(ctx context.Context, userID string) (*actions.Signals, error)
	UpdateSignals(ctx context.Context, sig *actions.Signals) error
}

// Authorizer — admin.Service.
type Authorizer interface {
	Authorize(ctx context.Context, clientIP, token string) error
}

// Pinger проверяет доступность БД.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config — зависимости сервера.
type Config struct {
	Scores      ScoreService
	Epochs      EpochService
	Actions     ActionService
	Admin       Authorizer
	DB          Pinger
	Registry    *pplp.Registry
	Active      *pplp.ScoringRulesConfig
	Loc         *time.Location
	RateLimiter *RateLimiter
	Metrics     http.Handler
}

// Server — HTTP API.
type Server struct {
	cfg Config
	Now func() time.Time

	router http.Handler
}

// New собирает роутер.
func New(cfg Config) *Server {
	if cfg.Loc == nil {
		cfg.Loc = time.UTC
	}
	if cfg.Metrics == nil {
		cfg.Metrics = promhttp.Handler()
	}
	s := &Server{cfg: cfg, Now: time.Now}
	s.router = s.buildRouter()
	return s
}

// Handler возвращает корневой обработчик.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(RequestLogger)
	r.Use(Recoverer)

	r.Get("/healthz", s.health)
	r.Handle("/metrics", s.cfg.Metrics)

	r.Route("/v1", func(api chi.Router) {
		if s.cfg.RateLimiter != nil {
			api.Use(s.cfg.RateLimiter.Middleware)
		}

		api.Get("/rules", s.getRules)
		api.Get("/rules/{version}", s.getRuleVersion)

		api.Get("/users/{userID}/light", s.getProfile)
		api.Get("/users/{userID}/days", s.getHistory)

		api.Get("/epochs/current", s.getCurrentEpoch)
		api.Get("/epochs/{epochID}", s.getEpoch)
		api.Get("/epochs/{epochID}/allocations", s.getAllocations)

		api.Post("/simulate/ly", s.simulateLy)
		api.Post("/simulate/whale", s.simulateWhale)

		api.Group(func(admin chi.Router) {
			admin.Use(s.requireAdmin)
			admin.Post("/events", s.postEvent)
			admin.Get("/users/{userID}/signals", s.getSignals)
			admin.Put("/users/{userID}/signals", s.putSignals)
			admin.Post("/users/{userID}/recalculate", s.recalculate)
			admin.Post("/epochs/{epochID}/close", s.closeEpoch)
		})
	})
	return r
}

// requireAdmin пропускает запрос только с верным Bearer-токеном.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := s.cfg.Admin.Authorize(r.Context(), clientIP(r), bearerToken(r)); err != nil {
			writeError(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}
