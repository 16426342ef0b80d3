package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/nyambati/sparkrun/internal/config"
	"github.com/nyambati/sparkrun/internal/event"
	"github.com/nyambati/sparkrun/internal/handler"
	"github.com/sirupsen/logrus"
)

const (
	InvokePath = "/2015-03-31/functions/function/invocations"
	HealthPath = "/health"

	StatusSubmitted = "submitted"
	StatusFailed    = "failed"
)

var _ ServerInterface = (*InvokeServer)(nil)

// NewInvokeServer serves the Lambda invoke endpoint locally so events can be
// posted to the handler with curl.
func NewInvokeServer(cfg *config.Server, invoker Invoker, logger *logrus.Logger) *InvokeServer {
	s := &InvokeServer{
		config:  cfg,
		invoker: invoker,
		logger:  logger.WithField("component", "server"),
		router:  mux.NewRouter(),
	}
	s.router.HandleFunc(HealthPath, s.handleHealthCheck()).Methods(http.MethodGet)
	s.router.HandleFunc(InvokePath, s.handleInvoke()).Methods(http.MethodPost)
	s.router.Use(s.loggingMiddleware)
	return s
}

func (s *InvokeServer) Router() *mux.Router {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *InvokeServer) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.config.Host, s.config.Port)
	s.logger.Infof("starting invoke server on %s", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			s.logger.WithError(err).Error("invoke server stopped")
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down invoke server")
	shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdown)
}

func (s *InvokeServer) handleInvoke() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		invocationID := uuid.NewString()
		logger := s.logger.WithField("invocation_id", invocationID)

		defer r.Body.Close()
		body, err := io.ReadAll(r.Body)
		if err != nil {
			logger.WithError(err).Warn("failed to read request body")
			writeJSON(w, http.StatusBadRequest, InvokeResponse{Status: StatusFailed, InvocationID: invocationID, Error: err.Error()})
			return
		}

		evt, err := event.Parse(body)
		if err != nil {
			logger.WithError(err).Warn("invalid event payload")
			writeJSON(w, http.StatusBadRequest, InvokeResponse{Status: StatusFailed, InvocationID: invocationID, Error: err.Error()})
			return
		}

		// spark jobs outlive the request timeout of most clients, so the
		// run is not tied to the request context
		ctx := handler.WithInvocationID(context.WithoutCancel(r.Context()), invocationID)
		if err := s.invoke(ctx, evt); err != nil {
			logger.WithError(err).Error("invocation failed")
			writeJSON(w, http.StatusBadGateway, InvokeResponse{Status: StatusFailed, InvocationID: invocationID, Error: err.Error()})
			return
		}

		writeJSON(w, http.StatusOK, InvokeResponse{Status: StatusSubmitted, InvocationID: invocationID})
	}
}

// invoke runs the handler with the sandbox to itself: the pipeline rewrites the
// process environment and the local script file.
func (s *InvokeServer) invoke(ctx context.Context, evt event.Event) error {
	s.invokeMu.Lock()
	defer s.invokeMu.Unlock()
	return s.invoker.Handle(ctx, evt)
}

func (s *InvokeServer) handleHealthCheck() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

func (s *InvokeServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		next.ServeHTTP(w, r)

		s.logger.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"remoteAddr": r.RemoteAddr,
			"duration":   time.Since(start),
		}).Info("handled request")
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
