package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/PREETHAM1590/waste-wise/internal/config"
	"github.com/PREETHAM1590/waste-wise/internal/metrics"
	"github.com/PREETHAM1590/waste-wise/internal/services/assistant"
	"github.com/PREETHAM1590/waste-wise/internal/services/challenges"
	"github.com/PREETHAM1590/waste-wise/internal/services/ledger"
	"github.com/PREETHAM1590/waste-wise/internal/services/marketplace"
	"github.com/PREETHAM1590/waste-wise/internal/services/stats"
	"github.com/PREETHAM1590/waste-wise/internal/services/users"
	"github.com/gorilla/mux"
)

// Services are the domain services exposed over HTTP.
type Services struct {
	Users       *users.Service
	Ledger      *ledger.Engine
	Stats       *stats.Service
	Challenges  *challenges.Service
	Marketplace *marketplace.Service
	Assistant   *assistant.Assistant
}

type APIServer struct {
	config    *config.Config
	logger    *slog.Logger
	server    *http.Server
	services  Services
	metrics   *metrics.Metrics
	limiter   *rateLimiter
	jwtSecret string
}

func New(cfg *config.Config, logger *slog.Logger, services Services, m *metrics.Metrics) *APIServer {
	s := &APIServer{
		config: cfg,
		logger: logger,
		server: &http.Server{
			Addr:         cfg.HTTP.Host + ":" + strconv.Itoa(cfg.HTTP.Port),
			ReadTimeout:  cfg.HTTP.ReadTimeout,
			WriteTimeout: cfg.HTTP.WriteTimeout,
		},
		services:  services,
		metrics:   m,
		limiter:   newRateLimiter(cfg.RateLimit.ScansPerSecond, cfg.RateLimit.Burst),
		jwtSecret: cfg.Auth.JWTSecret,
	}
	s.server.Handler = s.configureRouter()

	return s
}

func (s *APIServer) Start() error {
	s.logger.Info("Starting server", slog.String("addr", s.server.Addr))

	return s.server.ListenAndServe()
}

func (s *APIServer) MustStart() {
	err := s.Start()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		panic("Failed to start server: " + err.Error())
	}
}

func (s *APIServer) Stop(ctx context.Context) error {
	defer s.logger.Info("Server successfully stopped")
	return s.server.Shutdown(ctx)
}

// Handler returns the routed handler the server listens with.
func (s *APIServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *APIServer) configureRouter() http.Handler {
	router := mux.NewRouter()
	router.Use(s.metrics.Middleware)

	router.HandleFunc("/", s.rootHandler()).Methods("GET")
	router.HandleFunc("/api/health", s.healthHandler()).Methods("GET")

	router.HandleFunc("/api/users", s.createUserHandler()).Methods("POST")
	router.HandleFunc("/api/users/{id}", s.getUserHandler()).Methods("GET")
	router.HandleFunc("/api/users/{id}/wallet", s.authenticate(s.updateWalletHandler())).Methods("PUT")
	router.HandleFunc("/api/users/{id}/stats", s.statsHandler()).Methods("GET")
	router.HandleFunc("/api/users/{id}/transactions", s.authenticate(s.transactionsHandler())).Methods("GET")

	router.HandleFunc("/api/scan-waste", s.authenticate(s.limiter.limit(s.scanHandler()))).Methods("POST")

	router.HandleFunc("/api/marketplace", s.listItemsHandler()).Methods("GET")
	router.HandleFunc("/api/marketplace", s.authenticate(s.createItemHandler())).Methods("POST")
	router.HandleFunc("/api/marketplace/{id}/purchase", s.authenticate(s.purchaseHandler())).Methods("POST")

	router.HandleFunc("/api/challenges", s.listChallengesHandler()).Methods("GET")
	router.HandleFunc("/api/challenges", s.requireOperator(s.createChallengeHandler())).Methods("POST")
	router.HandleFunc("/api/challenges/{id}/join", s.authenticate(s.joinChallengeHandler())).Methods("POST")
	router.HandleFunc("/api/challenges/{id}/claim", s.authenticate(s.claimRewardHandler())).Methods("POST")

	router.HandleFunc("/api/leaderboard", s.leaderboardHandler()).Methods("GET")
	router.HandleFunc("/api/chatbot", s.chatbotHandler()).Methods("POST")

	if s.metrics != nil {
		router.Handle("/metrics", s.metrics.Handler()).Methods("GET")
	}

	return router
}
