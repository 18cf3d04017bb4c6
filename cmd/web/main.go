// Command web starts the Song-Rec-Go HTTP server. Configuration comes from an
// optional YAML file (-config or CONFIG_FILE) overlaid by environment
// variables; the API credentials are required. The server listens on :4000
// by default and serves an upload page, a JSON API, recording sessions and
// Prometheus metrics.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"Song-Rec-Go/internal/app"
	"Song-Rec-Go/pkg/config"
	"Song-Rec-Go/pkg/handlers"
	"Song-Rec-Go/pkg/logging"
	"Song-Rec-Go/pkg/session"
)

var log = logging.For("web")

// sessionIdle is how long a finished session is kept before it is pruned.
const sessionIdle = 30 * time.Minute

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("config: %v", err)
	}
	if err := logging.Configure(os.Stderr, cfg.LogLevel, cfg.LogFormat); err != nil {
		logrus.Fatalf("logging: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, cfg); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}

// newApplication wires the handlers to svc.
func newApplication(svc *app.Services) *handlers.Application {
	return &handlers.Application{
		Pipeline:       svc.Pipeline,
		Sessions:       session.NewManager(svc.Recorder, svc.Pipeline, svc.Metrics),
		Metrics:        svc.Metrics,
		MaxUploadBytes: svc.Config.MaxUploadBytes,
	}
}

// run serves until ctx is cancelled and then shuts down gracefully.
func run(ctx context.Context, cfg config.Config) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	svc := app.New(cfg, reg)
	defer svc.Close()
	application := newApplication(svc)

	go pruneSessions(ctx, application.Sessions)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           application.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.Addr).Info("listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func pruneSessions(ctx context.Context, m *session.Manager) {
	t := time.NewTicker(time.Minute)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := m.Prune(now.Add(-sessionIdle)); n > 0 {
				log.WithField("count", n).Debug("pruned sessions")
			}
		}
	}
}
