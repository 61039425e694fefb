package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/justinas/nosurf"
	"github.com/spf13/pflag"

	"go-expanded-storage/internal/config"
	"go-expanded-storage/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

// adminApplication holds the application-wide dependencies for the admin server.
type adminApplication struct {
	logger        *slog.Logger
	session       *session.Session
	templateCache map[string]*template.Template
}

// newTemplateData creates the data shared by every page.
func (app *adminApplication) newTemplateData(r *http.Request, activeNav string) map[string]any {
	return map[string]any{
		"CSRFToken":   nosurf.Token(r),
		"ActiveNav":   activeNav,
		"CurrentYear": time.Now().Year(),
		"Flash":       r.URL.Query().Get("flash"),
	}
}

// newTemplateCache parses every page together with layout.html.
func newTemplateCache() (map[string]*template.Template, error) {
	cache := map[string]*template.Template{}
	pages := []string{
		"dashboard.html",
		"pack.html",
	}
	for _, page := range pages {
		ts, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("error parsing page template %s: %w", page, err)
		}
		cache[page] = ts
	}
	return cache, nil
}

func main() {
	if err := run(os.Args[1:]); err != nil && !errors.Is(err, pflag.ErrHelp) {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("admin", pflag.ContinueOnError)
	config.AddFlags(flags)
	config.AddServerFlags(flags)
	if err := flags.Parse(args); err != nil {
		return err
	}
	cfg, err := config.Load(flags)
	if err != nil {
		return err
	}
	if !cfg.Integrations.Menu {
		return errors.New("the admin menu needs integrations.menu enabled")
	}
	logger := cfg.Logger(os.Stdout)

	sess, err := session.New(cfg, logger)
	if err != nil {
		return err
	}
	if _, err := sess.Reload(); err != nil {
		return err
	}

	templateCache, err := newTemplateCache()
	if err != nil {
		return err
	}
	logger.Info("Admin UI templates cached successfully")

	app := &adminApplication{
		logger:        logger,
		session:       sess,
		templateCache: templateCache,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cfg.Watch {
		go func() {
			err := sess.Watch(ctx, session.DefaultDebounce, func(err error) {
				if err == nil {
					logger.Info("Reloaded content packs after file change")
				}
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Content pack watcher stopped", "error", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:              cfg.AdminAddr,
		Handler:           app.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("Starting admin server", "address", fmt.Sprintf("http://%s", cfg.AdminAddr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("admin server failed: %w", err)
	}
	return nil
}
