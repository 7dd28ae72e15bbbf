// Package server exposes the execution relay over HTTP. Executions are
// streamed back as server-sent events, one JSON event per data line.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/envrelay/envrelay/internal/command"
	"github.com/envrelay/envrelay/internal/log"
	"github.com/envrelay/envrelay/internal/model"
	"github.com/envrelay/envrelay/internal/ratelimit"
	"github.com/envrelay/envrelay/internal/relay"
)

// ServerConfig is the configuration for the HTTP server.
type ServerConfig struct {
	ListenAddr string
	Relay      *relay.Service
	Limiter    *ratelimit.Limiter
	Catalog    *command.Catalog
	Logger     log.Logger
}

func (c *ServerConfig) defaults() error {
	if c.ListenAddr == "" {
		c.ListenAddr = ":8585"
	}
	if c.Relay == nil {
		return fmt.Errorf("relay is required")
	}
	if c.Limiter == nil {
		return fmt.Errorf("limiter is required")
	}
	if c.Catalog == nil {
		return fmt.Errorf("catalog is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "server.Server"})
	return nil
}

// Server serves the execution API.
type Server struct {
	server  *http.Server
	relay   *relay.Service
	limiter *ratelimit.Limiter
	catalog *command.Catalog
	logger  log.Logger
}

// NewServer creates a new HTTP server.
func NewServer(cfg ServerConfig) (*Server, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid server config: %w", err)
	}

	s := &Server{
		relay:   cfg.Relay,
		limiter: cfg.Limiter,
		catalog: cfg.Catalog,
		logger:  cfg.Logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/execute", s.handleExecute)
	mux.HandleFunc("GET /api/commands", s.handleCommands)
	mux.HandleFunc("GET /healthz", s.handleHealthz)

	s.server = &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: mux,
	}

	return s, nil
}

// Handler returns the HTTP handler, useful for tests.
func (s *Server) Handler() http.Handler { return s.server.Handler }

// Run starts the server and blocks until ctx is cancelled. It performs a
// graceful shutdown when the context is done.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("server listening on %s", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		s.logger.Infof("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		return nil
	}
}

// handleExecute validates the request synchronously and then streams the
// execution as server-sent events. Client cancellation is the connection
// closing, no separate cancel message exists.
func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	clientID := clientIP(r)

	admitted, err := s.limiter.Admit(r.Context(), clientID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "could not check rate limit")
		return
	}
	if !admitted {
		s.logger.Warningf("Rate limited client %s", clientID)
		s.writeError(w, http.StatusTooManyRequests, fmt.Sprintf("%s, retry later", model.ErrRateLimited))
		return
	}

	var req model.ExecutionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %s", err))
		return
	}
	if req.Command == "" {
		s.writeError(w, http.StatusBadRequest, "command is required")
		return
	}

	// Validation failures are synchronous rejections, they never reach the
	// event stream.
	exec, err := s.relay.Prepare(r.Context(), req, clientID)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	err = s.relay.Run(r.Context(), exec, func(ev model.StreamEvent) error {
		data, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("could not encode event: %w", err)
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return fmt.Errorf("could not write event: %w", err)
		}
		flusher.Flush()
		return nil
	})
	if err != nil {
		s.logger.Errorf("Execution %s relay error: %s", exec.ID, err)
	}
}

// handleCommands lists the command catalog so callers can render forms.
func (s *Server) handleCommands(w http.ResponseWriter, r *http.Request) {
	type optionResponse struct {
		ID          string `json:"id"`
		Type        string `json:"type"`
		Required    bool   `json:"required"`
		DependsOn   string `json:"dependsOn,omitempty"`
		Description string `json:"description,omitempty"`
	}
	type commandResponse struct {
		Name        string           `json:"name"`
		Description string           `json:"description,omitempty"`
		Options     []optionResponse `json:"options"`
	}

	defs := s.catalog.Definitions()
	resp := struct {
		Commands []commandResponse `json:"commands"`
	}{Commands: make([]commandResponse, 0, len(defs))}

	for _, def := range defs {
		cmd := commandResponse{Name: def.Name, Description: def.Description}
		for _, opt := range def.Options {
			cmd.Options = append(cmd.Options, optionResponse{
				ID:          opt.ID,
				Type:        string(opt.Type),
				Required:    opt.Required,
				DependsOn:   opt.DependsOn,
				Description: opt.Description,
			})
		}
		resp.Commands = append(resp.Commands, cmd)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Errorf("Could not encode commands response: %s", err)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// clientIP extracts the client identifier used for rate limiting: the
// first X-Forwarded-For hop when present, the remote address host
// otherwise.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first, _, ok := strings.Cut(fwd, ","); ok {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(fwd)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
