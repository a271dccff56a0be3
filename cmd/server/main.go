package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/kevinxiao27/otkit/internal/config"
	"github.com/kevinxiao27/otkit/ol"
)

type Config struct {
	Addr     string     `env:"OTKIT_ADDR" envDefault:"localhost:8080"`
	LogLevel slog.Level `env:"OTKIT_LOG_LEVEL" envDefault:"info"`

	// commit retries when concurrent pushes race for the same room
	MaxTries        uint          `env:"OTKIT_PUSH_MAX_TRIES" envDefault:"10"`
	InitialInterval time.Duration `env:"OTKIT_PUSH_INITIAL_INTERVAL" envDefault:"5ms"`
	MaxInterval     time.Duration `env:"OTKIT_PUSH_MAX_INTERVAL" envDefault:"250ms"`
}

func (c Config) logOptions(logger *slog.Logger) []ol.Option {
	return []ol.Option{
		ol.WithLogger(logger),
		ol.WithMaxTries(c.MaxTries),
		ol.WithBackOff(func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = c.InitialInterval
			b.MaxInterval = c.MaxInterval
			return b
		}),
	}
}

func main() {
	if err := run(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func run() error {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s := newServer(ctx, logger, cfg.logOptions(logger)...)
	httpServer := &http.Server{Addr: cfg.Addr, Handler: s.routes()}
	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		_ = httpServer.Close()
	}()

	logger.Info("listening", "addr", cfg.Addr, "ws", "ws://"+cfg.Addr+"/rooms/{room}/ws")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
