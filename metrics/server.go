//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Server serves the /metrics endpoint for Prometheus.
type Server struct {
	server *http.Server
	log    zerolog.Logger
}

// NewServer creates a new metrics server for the address addr. The
// server exports the metrics of the gatherer g.
func NewServer(log zerolog.Logger, addr string, g prometheus.Gatherer) *Server {
	mux := http.NewServeMux()
	endpoint := "/metrics"
	mux.Handle(endpoint, promhttp.HandlerFor(g, promhttp.HandlerOpts{}))

	return &Server{
		server: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: log.With().Str("component", "metrics").Logger(),
	}
}

// Start starts serving metrics in a background goroutine.
func (m *Server) Start() {
	m.log.Info().Str("address", m.server.Addr).Msg("metrics server started")
	go func() {
		err := m.server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

// Shutdown stops the server.
func (m *Server) Shutdown(ctx context.Context) error {
	return m.server.Shutdown(ctx)
}
