package main

import (
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/AxxAL/mwrap/pkg/lib/metrics"
)

// serveMetrics exposes the collector on addr under /metrics until the returned server is closed.
func serveMetrics(addr string, collector *metrics.Prometheus, logger *log.Logger) (*http.Server, net.Addr, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to listen for metrics: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("Metrics server stopped: %v", err)
		}
	}()
	return srv, lis.Addr(), nil
}
