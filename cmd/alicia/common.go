package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aliciabus/alicia/pkg/bus"
	"github.com/aliciabus/alicia/pkg/log"
	"github.com/aliciabus/alicia/pkg/metrics"
)

// connectBus dials the broker for the named service and blocks until the
// connection is established, ctx is done, or 30 seconds pass; in the
// last two cases the client is still returned and keeps retrying in the
// background.
func connectBus(ctx context.Context, serviceName, broker, username, password string) (*bus.Client, error) {
	client := bus.New(bus.Config{
		BrokerURL:   broker,
		ServiceName: serviceName,
		Username:    username,
		Password:    password,
	})
	if err := client.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return client, nil
}

// serveHTTP starts handler on addr in the background, logging (not
// fatal-ing) on failure after the listener is up.
func serveHTTP(component, addr string, handler http.Handler) {
	go func() {
		if err := http.ListenAndServe(addr, handler); err != nil {
			log.WithComponent(component).Error().Err(err).Str("addr", addr).Msg("http server exited")
		}
	}()
}

// withHealth mounts a runtime health snapshot (message/error counts and
// uptime, from client.Stats()) at /health alongside handler, which
// serves everything else. Every service's HTTP surface leads with
// /health per its own contract.
func withHealth(client *bus.Client, handler http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/health", healthHandler(client))
	mux.Handle("/", handler)
	return mux
}

func healthHandler(client *bus.Client) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		messageCount, errorCount, uptime := client.Stats()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":         "healthy",
			"uptime_seconds": uptime.Seconds(),
			"message_count":  messageCount,
			"error_count":    errorCount,
		})
	})
}

// serveMetrics starts the Prometheus /metrics endpoint on addr.
func serveMetrics(component, metricsAddr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	serveHTTP(component, metricsAddr, mux)
}

// waitForSignal blocks until SIGINT/SIGTERM.
func waitForSignal() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
}

// waitForShutdown blocks until SIGINT/SIGTERM, then runs cleanup in order
// before disconnecting the bus client.
func waitForShutdown(client *bus.Client, cleanup ...func()) error {
	waitForSignal()

	for _, fn := range cleanup {
		fn()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return client.Shutdown(ctx)
}
