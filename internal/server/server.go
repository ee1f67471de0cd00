package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"

	"protein-log/internal/diary"
	"protein-log/internal/middleware"
	"protein-log/internal/storage"
)

const (
	serverName    = "protein-log"
	serverVersion = "1.0.0"
)

type Config struct {
	Host        string
	Port        int
	DBPath      string
	CORSOrigins string
	RateLimit   float64 // requests per second per client; 0 disables
	RateBurst   int
	TrustProxy  bool // honour X-Forwarded-For / X-Real-IP when rate limiting
}

type toolHandler func(*protocol.CallToolRequest) (*protocol.CallToolResult, error)

type ProteinLogServer struct {
	httpServer *http.Server
	storage    *storage.SQLiteStorage
	diary      *diary.Diary
	tools      map[string]toolHandler
	config     *Config
	logger     *slog.Logger
}

func NewProteinLogServer(cfg *Config, logger *slog.Logger) (*ProteinLogServer, error) {
	// Initialize database
	stor, err := storage.NewSQLiteStorage(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	s := newServer(diary.New(stor), cfg, logger)
	s.storage = stor
	return s, nil
}

func newServer(d *diary.Diary, cfg *Config, logger *slog.Logger) *ProteinLogServer {
	s := &ProteinLogServer{
		diary:  d,
		config: cfg,
		logger: logger,
	}
	s.registerTools()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the HTTP handler with the middleware chain applied.
func (s *ProteinLogServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /", s.handleHTTP)

	origins := s.config.CORSOrigins
	if origins == "" {
		origins = "*"
	}
	// Logging → CORS → RateLimit → mux
	return middleware.Chain(mux,
		middleware.Logging(s.logger),
		middleware.CORS(origins),
		middleware.RateLimit(s.config.RateLimit, s.config.RateBurst, s.config.TrustProxy),
	)
}

func (s *ProteinLogServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(map[string]any{
		"status": "ok",
		"server": protocol.Implementation{Name: serverName, Version: serverVersion},
		"tools":  s.toolNames(),
	})
	if err != nil {
		s.logger.Error("failed to encode health response", "error", err)
	}
}

// handleHTTP serves a single MCP tools/call request per POST.
func (s *ProteinLogServer) handleHTTP(w http.ResponseWriter, r *http.Request) {
	var request protocol.CallToolRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}

	handler, ok := s.tools[request.Name]
	if !ok {
		http.Error(w, fmt.Sprintf("Unknown tool: %s", request.Name), http.StatusNotFound)
		return
	}

	result, err := handler(&request)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			s.logger.Error("tool failed", "tool", request.Name, "error", err)
		} else {
			s.logger.Warn("tool rejected request", "tool", request.Name, "error", err)
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		s.logger.Error("failed to encode response", "tool", request.Name, "error", err)
	}
}

func statusFor(err error) int {
	var perr *paramsError
	switch {
	case errors.As(err, &perr),
		errors.Is(err, diary.ErrNoProtein),
		errors.Is(err, diary.ErrInvalidGrams),
		errors.Is(err, diary.ErrInvalidDate),
		errors.Is(err, diary.ErrInvalidSettings):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func (s *ProteinLogServer) Start(ctx context.Context) error {
	s.logger.Info("starting protein log server", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *ProteinLogServer) Stop(ctx context.Context) error {
	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	if s.storage != nil {
		if cerr := s.storage.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

func (s *ProteinLogServer) createJSONResponse(data interface{}) (*protocol.CallToolResult, error) {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}

	return &protocol.CallToolResult{
		Content: []protocol.Content{
			protocol.TextContent{
				Type: "text",
				Text: string(jsonBytes),
			},
		},
	}, nil
}
