package server

import (
	"bytes"
	"context"
	"encoding/json"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"net/http"
	"runtime"
	"stock-alert-bot/internal/alert"
	"stock-alert-bot/internal/types"
	"stock-alert-bot/lib/translation"
	"strings"
	"sync"
	"time"
)

// AlertService is the part of alert.Service the HTTP surface needs.
type AlertService interface {
	Register(symbol, target string) (types.Alert, error)
	ConfirmationMessage(a types.Alert) string
	Alerts() []types.Alert
	CheckAlerts(ctx context.Context) error
}

type Options struct {
	// EnableTrigger exposes GET /trigger-check for an external scheduler.
	EnableTrigger bool
	// CheckTimeout bounds a cycle started from /trigger-check.
	CheckTimeout time.Duration
	// MetricsHandler is served on /metrics when set.
	MetricsHandler http.Handler
}

type Server struct {
	svc  AlertService
	opts Options
	mux  *http.ServeMux

	baseCtx context.Context
	checks  sync.WaitGroup
}

type setAlertRequest struct {
	StockSymbol string     `json:"stockSymbol"`
	TargetPrice numberLike `json:"targetPrice"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type alertsResponse struct {
	Alerts []types.Alert `json:"alerts"`
}

func New(svc AlertService, opts Options) *Server {
	if opts.CheckTimeout <= 0 {
		opts.CheckTimeout = 5 * time.Minute
	}
	s := &Server{
		svc:     svc,
		opts:    opts,
		mux:     http.NewServeMux(),
		baseCtx: context.Background(),
	}

	s.mux.HandleFunc("POST /set-alert", s.handleSetAlert)
	s.mux.HandleFunc("GET /alerts", s.handleListAlerts)
	s.mux.HandleFunc("GET /health", healthCheckHandler)
	if opts.EnableTrigger {
		s.mux.HandleFunc("GET /trigger-check", s.handleTriggerCheck)
	}
	if opts.MetricsHandler != nil {
		s.mux.Handle("GET /metrics", opts.MetricsHandler)
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return recoverPanic(logRequests(s.mux))
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully and
// waits for cycles started by /trigger-check.
func (s *Server) Run(ctx context.Context, addr string) error {
	s.baseCtx = ctx

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Server running on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- errors.Wrap(err, "http server")
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.checks.Wait()
	log.Info("Server stopped")
	return errors.Wrap(err, "http server shutdown")
}

func (s *Server) handleSetAlert(w http.ResponseWriter, r *http.Request) {
	var req setAlertRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		log.Debugf("invalid set-alert body: %v", err)
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: translation.Translate("Stock symbol and target price are required.")})
		return
	}

	a, err := s.svc.Register(req.StockSymbol, string(req.TargetPrice))
	if err != nil {
		var verr *alert.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, messageResponse{Message: translation.Translate(validationMessage(verr))})
			return
		}
		log.Errorf("Failed to register alert: %v", err)
		writeJSON(w, http.StatusInternalServerError, messageResponse{Message: translation.Translate("Failed to set alert.")})
		return
	}

	writeJSON(w, http.StatusCreated, messageResponse{Message: s.svc.ConfirmationMessage(a)})
}

func validationMessage(verr *alert.ValidationError) string {
	if verr.Reason == "is required" {
		return "Stock symbol and target price are required."
	}
	return "Target price must be a positive number."
}

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, alertsResponse{Alerts: s.svc.Alerts()})
}

// handleTriggerCheck starts a cycle detached from the request and answers at once.
func (s *Server) handleTriggerCheck(w http.ResponseWriter, r *http.Request) {
	log.Info("Received request from external scheduler.")

	ctx, cancel := context.WithTimeout(s.baseCtx, s.opts.CheckTimeout)
	s.checks.Add(1)
	go func() {
		defer s.checks.Done()
		defer cancel()
		if err := s.svc.CheckAlerts(ctx); err != nil {
			if errors.Is(err, alert.ErrCheckInProgress) {
				log.Debug("Price check already running, trigger ignored")
				return
			}
			log.Warnf("Triggered price check ended early: %v", err)
		}
	}()

	writeJSON(w, http.StatusOK, messageResponse{Message: translation.Translate("Price check triggered successfully.")})
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		log.Errorf("Failed to write response: %v", err)
	}
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.WithFields(log.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start),
		}).Debug("handled request")
	})
}

func recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				stackBuf := make([]byte, 4096)
				stackSize := runtime.Stack(stackBuf, false)
				log.Errorf("Recovered from panic: %v\nStack trace: %s", rec, bytes.TrimRight(stackBuf[:stackSize], "\x00"))
				writeJSON(w, http.StatusInternalServerError, messageResponse{Message: "internal error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// numberLike accepts a JSON number or a JSON string and keeps its text form.
type numberLike string

func (n *numberLike) UnmarshalJSON(b []byte) error {
	text := strings.TrimSpace(string(b))
	if text == "null" {
		*n = ""
		return nil
	}
	if strings.HasPrefix(text, `"`) {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*n = numberLike(s)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(b, &num); err != nil {
		return errors.Wrap(err, "targetPrice must be a number or a string")
	}
	*n = numberLike(num.String())
	return nil
}
