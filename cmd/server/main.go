package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"go-expanded-storage/internal/chestinfo"
	"go-expanded-storage/internal/config"
	"go-expanded-storage/internal/session"
)

func main() {
	if err := run(os.Args[1:]); err != nil && !errors.Is(err, pflag.ErrHelp) {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("server", pflag.ContinueOnError)
	config.AddFlags(flags)
	config.AddServerFlags(flags)
	chestInfo := flags.Bool("chest-info", true, "allow players to show the chest info panel")
	if err := flags.Parse(args); err != nil {
		return err
	}
	cfg, err := config.Load(flags)
	if err != nil {
		return err
	}
	logger := cfg.Logger(os.Stderr)

	sess, err := session.New(cfg, logger)
	if err != nil {
		return err
	}
	if _, err := sess.Reload(); err != nil {
		return err
	}

	app := &application{
		logger:  logger,
		session: sess,
		info:    chestinfo.NewTracker(*chestInfo),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Watch {
		go func() {
			if err := sess.Watch(ctx, session.DefaultDebounce, nil); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Content pack watcher stopped", "error", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           app.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("Starting inspection server", "address", fmt.Sprintf("http://%s", cfg.ServerAddr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}
