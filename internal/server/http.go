package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// HTTPService serves a handler until stopped.
type HTTPService struct {
	addr    string
	logger  *zap.Logger
	srv     *http.Server
	mu      sync.Mutex
	ln      net.Listener
	started chan struct{}
	once    sync.Once
}

// NewHTTPService creates an HTTPService that mounts handler at path on addr.
//
// Precondition: addr must be non-empty; handler and logger must be non-nil.
func NewHTTPService(addr, path string, handler http.Handler, logger *zap.Logger) *HTTPService {
	if addr == "" || handler == nil || logger == nil {
		panic("server: NewHTTPService precondition violated")
	}
	mux := http.NewServeMux()
	mux.Handle(path, handler)
	return &HTTPService{
		addr:    addr,
		logger:  logger,
		srv:     &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		started: make(chan struct{}),
	}
}

// Start listens on the configured address and blocks until Stop.
func (h *HTTPService) Start() error {
	ln, err := net.Listen("tcp", h.addr)
	if err != nil {
		h.once.Do(func() { close(h.started) })
		return fmt.Errorf("listening on %s: %w", h.addr, err)
	}
	h.mu.Lock()
	h.ln = ln
	h.mu.Unlock()
	h.once.Do(func() { close(h.started) })
	h.logger.Info("http listening", zap.String("addr", ln.Addr().String()))

	if err := h.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts the server down.
func (h *HTTPService) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.srv.Shutdown(ctx); err != nil {
		h.logger.Warn("http shutdown", zap.Error(err))
	}
}

// Addr blocks until Start has tried to bind and returns the bound address,
// or "" when binding failed.
func (h *HTTPService) Addr() string {
	<-h.started
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ln == nil {
		return ""
	}
	return h.ln.Addr().String()
}
