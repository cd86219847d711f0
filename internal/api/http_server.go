package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"canary/internal/config"
	"canary/internal/domain"

	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// HTTPServer exposes the items REST API.
type HTTPServer struct {
	cfg     *config.Config
	items   domain.ItemService
	auth    *BearerAuth
	limiter *rateLimiter
	logger  *zerolog.Logger
	server  *http.Server
}

func NewHTTPServer(cfg *config.Config, items domain.ItemService, logger *zerolog.Logger) *HTTPServer {
	srv := &HTTPServer{
		cfg:     cfg,
		items:   items,
		auth:    NewBearerAuth(cfg.Auth.Token),
		limiter: newRateLimiter(cfg.HTTP.RateLimit),
		logger:  logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ping", srv.handlePing)
	mux.HandleFunc("GET /healthz", srv.handleHealthz)
	mux.HandleFunc("GET /readyz", srv.handleReadyz)
	mux.HandleFunc("GET /api/items", srv.handleListItems)
	mux.HandleFunc("POST /api/items", srv.handleCreateItem)
	mux.HandleFunc("GET /api/items/export", srv.handleExportItems)
	mux.HandleFunc("PUT /api/items/{id}", srv.handleUpdateItem)
	mux.HandleFunc("DELETE /api/items/{id}", srv.handleDeleteItem)
	mux.HandleFunc("GET /api/protected", srv.requireBearer(srv.handleProtected))

	handler := srv.observe(srv.recoverPanics(newCORS(cfg.HTTP.CORS).Handler(srv.rateLimit(mux))))

	srv.server = &http.Server{
		Addr:              cfg.HTTP.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

func newCORS(cfg config.CORSConfig) *cors.Cors {
	return cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowCredentials: cfg.AllowCredentials != nil && *cfg.AllowCredentials,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{"Content-Type", "Authorization", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
	})
}

// Handler returns the fully wrapped handler.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}
