// Command wellscoped runs the wellscope state service: it boots the document
// store from the configured storage driver, applies pending content patches,
// synchronizes seed report files, and serves health and metrics endpoints
// until interrupted.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"wellscope/internal/core"
)

var exitFunc = os.Exit

const shutdownGrace = 10 * time.Second

func main() {
	code := cli(os.Args[1:], os.Stdout, os.Stderr)
	exitFunc(code)
}

func cli(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("wellscoped", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var addr string
	fs.StringVar(&addr, "addr", ":9180", "listen address for health and metrics endpoints")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	log := logrus.New()
	log.SetOutput(stdout)
	log.SetFormatter(&logrus.JSONFormatter{})
	if level, err := logrus.ParseLevel(envDefault("WELLSCOPE_LOG_LEVEL", "info")); err == nil {
		log.SetLevel(level)
	}

	if err := run(addr, log); err != nil {
		log.WithError(err).Error("wellscoped exited with error")
		return 1
	}
	return 0
}

func run(addr string, log *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := core.NewPromMetricsRecorder(registry)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	store, err := core.Boot(ctx, core.BootOptions{
		Logger:   log,
		Observer: metrics,
	})
	if err != nil {
		return fmt.Errorf("boot store: %w", err)
	}

	service := core.NewService(store, metrics)
	if wells, err := service.ListWells(ctx); err == nil {
		log.WithField("wells", len(wells)).Info("store ready")
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).Info("serving health and metrics")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	select {
	case err := <-serveErr:
		closeStore(store, log)
		return err
	case <-ctx.Done():
	}

	log.Info("shutdown requested")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
	closeStore(store, log)
	return nil
}

func closeStore(store interface {
	Close(context.Context) error
}, log *logrus.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := store.Close(ctx); err != nil {
		log.WithError(err).Error("close store")
	}
}

func envDefault(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
