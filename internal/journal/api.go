package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"trade-journal-go/internal/quotes"

	"go.uber.org/zap"
)

// APIServer provides an HTTP interface for the journal engine.
type APIServer struct {
	server  *http.Server
	engine  *Engine
	history *quotes.History
	logger  *zap.Logger
}

// NewAPIServer creates a new APIServer.
func NewAPIServer(engine *Engine, history *quotes.History, logger *zap.Logger) *APIServer {
	addr := fmt.Sprintf(":%d", engine.cfg.Server.ApiPort)

	mux := http.NewServeMux()
	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	s := &APIServer{
		server:  server,
		engine:  engine,
		history: history,
		logger:  logger.Named("api-server"),
	}

	mux.HandleFunc("/metrics", s.metricsHandler)
	mux.HandleFunc("/history", s.historyHandler)
	mux.HandleFunc("/status", s.statusHandler)
	mux.HandleFunc("/health", s.healthHandler)

	return s
}

// Start runs the HTTP server in a new goroutine.
func (s *APIServer) Start() {
	s.logger.Info("Starting API server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			s.logger.Error("API server failed", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *APIServer) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server...")
	return s.server.Shutdown(ctx)
}

// metricsHandler returns the latest portfolio snapshot.
func (s *APIServer) metricsHandler(w http.ResponseWriter, r *http.Request) {
	pm := s.engine.Latest()
	if pm == nil {
		http.Error(w, "No metrics computed yet", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(pm); err != nil {
		s.logger.Error("Failed to write metrics response", zap.Error(err))
		http.Error(w, "Failed to encode metrics", http.StatusInternalServerError)
	}
}

// historyHandler returns the OHLCV series for a symbol. The window is
// given as RFC 3339 timestamps; end defaults to now for an ongoing chart.
func (s *APIServer) historyHandler(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		http.Error(w, "Missing symbol parameter", http.StatusBadRequest)
		return
	}

	start, err := time.Parse(time.RFC3339, r.URL.Query().Get("start"))
	if err != nil {
		http.Error(w, "Invalid start parameter", http.StatusBadRequest)
		return
	}

	end := time.Now()
	if raw := r.URL.Query().Get("end"); raw != "" {
		end, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			http.Error(w, "Invalid end parameter", http.StatusBadRequest)
			return
		}
	}

	candles, err := s.history.GetSeries(r.Context(), symbol, start, end)
	if err != nil {
		s.logger.Error("Failed to fetch series", zap.String("symbol", symbol), zap.Error(err))
		http.Error(w, "Failed to fetch series", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(candles); err != nil {
		s.logger.Error("Failed to write history response", zap.Error(err))
		http.Error(w, "Failed to encode history", http.StatusInternalServerError)
	}
}

func (s *APIServer) statusHandler(w http.ResponseWriter, r *http.Request) {
	status := struct {
		UUID      string `json:"uuid"`
		Name      string `json:"name"`
		StartTime string `json:"start_time"`
		Uptime    string `json:"uptime"`
	}{
		UUID:      s.engine.UUID,
		Name:      s.engine.Name,
		StartTime: s.engine.StartTime.Format(time.RFC3339),
		Uptime:    time.Since(s.engine.StartTime).String(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		s.logger.Error("Failed to write status response", zap.Error(err))
		http.Error(w, "Failed to encode status", http.StatusInternalServerError)
	}
}

func (s *APIServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}
