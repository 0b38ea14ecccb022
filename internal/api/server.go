// v1
// internal/api/server.go
package api

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

type Server struct {
	HTTP *http.Server
	Log  *slog.Logger
}

// NewRouter wires the public surface. The metrics handler is passed in so
// this package stays free of the instrumentation backend.
func NewRouter(h *Handlers, metrics http.Handler) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", h.Health).Methods("GET")
	r.HandleFunc("/calculate", h.Calculate).Methods("POST")

	r.HandleFunc("/audit/records", h.QueryAuditRecords).Methods("GET")
	r.HandleFunc("/audit/records/{id}", h.GetAuditRecord).Methods("GET")
	r.HandleFunc("/audit/statistics", h.AuditStatistics).Methods("GET")

	r.HandleFunc("/methodology/current", h.CurrentMethodology).Methods("GET")
	r.HandleFunc("/methodology/versions", h.ListMethodologies).Methods("GET")
	r.HandleFunc("/methodology/versions", h.CreateMethodology).Methods("POST")
	r.HandleFunc("/methodology/versions/{version}", h.GetMethodology).Methods("GET")
	r.HandleFunc("/methodology/versions/{version}/deprecate", h.DeprecateMethodology).Methods("POST")

	if metrics != nil {
		r.Handle("/metrics", metrics).Methods("GET")
	}
	return r
}

func NewServer(addr string, log *slog.Logger, h *Handlers, metrics http.Handler) *Server {
	router := NewRouter(h, metrics)
	logged := handlers.LoggingHandler(os.Stdout, router)

	hs := &http.Server{
		Addr:              addr,
		Handler:           logged,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return &Server{HTTP: hs, Log: log}
}

func (s *Server) Start() error {
	s.Log.Info("http server starting", "addr", s.HTTP.Addr)
	return s.HTTP.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	s.Log.Info("http server stopping")
	return s.HTTP.Shutdown(ctx)
}
