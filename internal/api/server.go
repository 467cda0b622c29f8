// Package api serves the operational HTTP surface every service exposes:
// health, Prometheus metrics, and for the ingestor the active camera
// task list.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownGrace = 5 * time.Second

// TaskLister reports the running camera tasks, served on GET /cameras.
type TaskLister interface {
	ActiveTasks() []string
}

// Server is the shared operational endpoint of one service.
type Server struct {
	http *http.Server
}

// New builds the server. tasks may be nil for services without cameras;
// the /cameras route is only mounted when it is set.
func New(port int, tasks TaskLister) *Server {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	if tasks != nil {
		r.Get("/cameras", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, map[string]any{"active_tasks": tasks.ActiveTasks()})
		})
	}

	return &Server{
		http: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start serves in the background until Stop.
func (s *Server) Start() {
	go func() {
		log.Printf("[API] Listening on %s", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[API] Server error: %v", err)
		}
	}()
}

func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := s.http.Shutdown(ctx); err != nil {
		log.Printf("[API] Shutdown: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[API] Write response: %v", err)
	}
}
