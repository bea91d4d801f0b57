package cli

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// metricsServer serves /metrics until Shutdown.
type metricsServer struct {
	srv    *http.Server
	addr   string
	done   chan struct{}
	logger *slog.Logger
}

// startMetricsServer listens on addr and serves the default Prometheus
// gatherer in the background.
func startMetricsServer(addr string, logger *slog.Logger) (*metricsServer, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	m := &metricsServer{
		srv:    &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		addr:   ln.Addr().String(),
		done:   make(chan struct{}),
		logger: logger,
	}
	go func() {
		defer close(m.done)
		logger.Info("metrics listening", "addr", m.addr)
		if err := m.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	return m, nil
}

// Addr returns the bound address.
func (m *metricsServer) Addr() string { return m.addr }

// Shutdown stops the server, waiting up to 5s for open requests.
func (m *metricsServer) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := m.srv.Shutdown(ctx)
	<-m.done
	return err
}
