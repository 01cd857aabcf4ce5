package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/resume-manager/internal/chat"
	"github.com/jonathan/resume-manager/internal/config"
	"github.com/jonathan/resume-manager/internal/db"
	"github.com/jonathan/resume-manager/internal/docparse"
	"github.com/jonathan/resume-manager/internal/extraction"
	"github.com/jonathan/resume-manager/internal/llm"
	"github.com/jonathan/resume-manager/internal/optimizer"
	"github.com/jonathan/resume-manager/internal/server/middleware"
	"github.com/jonathan/resume-manager/internal/server/ratelimit"
)

// Server wires the HTTP API to the database, the model clients, and the
// parsing provider.
type Server struct {
	httpServer  *http.Server
	db          *db.DB
	logger      *zap.Logger
	llmClient   llm.Client
	parseClient *docparse.Client // nil when no provider is configured
	extractor   *extraction.Extractor
	assistant   *chat.Assistant
	rateLimiter *ratelimit.Limiter
	jwtService  *JWTService
	userService *UserService
	authHandler *AuthHandler
}

// New builds the server and all its dependencies. Resources acquired
// before a construction failure are released before the error returns.
func New(cfg *config.Config, logger *zap.Logger) (_ *Server, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx := context.Background()

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if err != nil {
			database.Close()
		}
	}()

	llmClient, err := llm.NewClient(ctx, nil, cfg.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	defer func() {
		if err != nil {
			_ = llmClient.Close()
		}
	}()

	s := &Server{
		db:        database,
		logger:    logger,
		llmClient: llmClient,
		extractor: extraction.NewExtractor(llmClient, logger),
	}

	if cfg.ParseProviderURL != "" {
		s.parseClient, err = docparse.NewClient(docparse.Config{
			BaseURL: cfg.ParseProviderURL,
			APIKey:  cfg.ParseProviderAPIKey,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create parse client: %w", err)
		}
	}

	s.assistant, err = chat.NewAssistant(ctx, chat.AssistantConfig{
		APIKey:      cfg.APIKey,
		SessionTTL:  cfg.ChatSessionTTL,
		MaxSessions: cfg.ChatMaxSessions,
		Generator:   &bulletGenerator{client: llmClient, logger: logger},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create assistant: %w", err)
	}
	defer func() {
		if err != nil {
			s.assistant.Close()
		}
	}()

	s.rateLimiter = ratelimit.NewLimiter(ratelimit.LoadConfig())

	passwordConfig, err := config.NewPasswordConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to create password config: %w", err)
	}
	s.userService = NewUserService(database, passwordConfig)

	jwtConfig, err := config.NewJWTConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to create JWT config: %w", err)
	}
	s.jwtService = NewJWTService(jwtConfig)
	s.authHandler = NewAuthHandler(s.userService, s.jwtService)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.withRateLimit(s.withLogging(s.withCORS(s.routes()))),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // optimization runs hold the connection open
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// routes builds the router. Everything except health and auth requires a
// valid session token.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /auth/register", s.authHandler.Register)
	mux.HandleFunc("POST /auth/login", s.authHandler.Login)

	authed := http.NewServeMux()
	authed.HandleFunc("POST /chat", s.handleChat)
	authed.HandleFunc("POST /optimize", s.handleOptimize)
	authed.HandleFunc("POST /optimize/stream", s.handleOptimizeStream)
	authed.HandleFunc("POST /resumes/parse", s.handleParseResume)
	authed.HandleFunc("POST /resumes", s.handleCreateResume)
	authed.HandleFunc("GET /resumes", s.handleListResumes)
	authed.HandleFunc("GET /resumes/{id}", s.handleGetResume)
	authed.HandleFunc("PUT /resumes/{id}", s.handleUpdateResume)
	authed.HandleFunc("DELETE /resumes/{id}", s.handleDeleteResume)
	authed.HandleFunc("GET /resumes/{id}/versions", s.handleListResumeVersions)
	authed.HandleFunc("GET /resumes/{id}/versions/{version}", s.handleGetResumeVersion)

	mux.Handle("/", middleware.AuthMiddleware(s.jwtService.AsTokenValidator())(authed))

	return mux
}

// Start listens until interrupted, then shuts down gracefully.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		s.logger.Info("server starting", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-stop
	s.logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
	s.assistant.Close()
	_ = s.llmClient.Close()
	s.db.Close()

	s.logger.Info("server stopped")
	return nil
}

// bulletGenerator adapts the optimizer loop to the assistant's tool
// interface.
type bulletGenerator struct {
	client llm.Client
	logger *zap.Logger
}

func (g *bulletGenerator) GenerateBullets(ctx context.Context, job string) ([]string, error) {
	state, err := optimizer.New(g.client, g.logger).Optimize(ctx, job)
	if err != nil {
		return nil, err
	}
	return state.BulletPoints, nil
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit rejects requests over the per-client budget.
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := s.extractClientID(r)

		allowed, info := s.rateLimiter.Allow(clientID, r.URL.Path, r.Method)
		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, info)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withLogging logs each request with its duration.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote", r.RemoteAddr),
			zap.Duration("duration", time.Since(start)))
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// extractClientID identifies the client by IP for rate limiting.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))
	}
}

func (s *Server) rateLimitResponse(w http.ResponseWriter, info ratelimit.Info) {
	response := map[string]interface{}{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}

	if info.RetryAfter > 0 {
		response["retry_after"] = int(info.RetryAfter.Seconds())
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(info.RetryAfter.Seconds())))
	}

	s.logger.Warn("rate limit exceeded",
		zap.Int("limit", info.Limit),
		zap.Time("reset", info.ResetTime))

	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
