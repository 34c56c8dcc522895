// Package api exposes the forecast engine over HTTP. All inputs arrive
// already materialized as JSON; the engine itself performs no I/O.
package api

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/atmoscast/atmoscast/internal/narrative"
	"github.com/atmoscast/atmoscast/internal/render"
	"github.com/atmoscast/atmoscast/internal/store"
)

type Server struct {
	store    *store.Store
	port     string
	loc      *time.Location
	narrator *narrative.Generator
	heatmaps *render.Cache
}

func NewServer(st *store.Store, port string, loc *time.Location) *Server {
	if loc == nil {
		loc = time.UTC
	}

	// Narratives are optional; the server runs fine without an API key.
	var narrator *narrative.Generator
	if gen, err := narrative.NewGenerator(); err != nil {
		log.Printf("Narrative generation disabled: %v", err)
	} else {
		narrator = gen
	}

	return &Server{
		store:    st,
		port:     port,
		loc:      loc,
		narrator: narrator,
		heatmaps: render.NewCache(10 * time.Minute),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/api/forecast", s.handleForecast)
	mux.HandleFunc("/api/features", s.handleFeatures)
	mux.HandleFunc("/api/calibrate", s.handleCalibrate)
	mux.HandleFunc("/api/heatmap", s.handleHeatmap)
	mux.HandleFunc("/api/runs", s.handleRuns)
	return mux
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    ":" + s.port,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	version, err := s.store.MigrationVersion()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{
		"status":            "ok",
		"migration_version": version,
	})
}
