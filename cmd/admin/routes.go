package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/justinas/nosurf"
)

// routes sets up the HTTP router for the admin application. Every POST
// needs the nosurf token rendered into the forms.
func (app *adminApplication) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/", app.dashboardHandler)
	r.Post("/reload", app.reloadHandler)

	r.Route("/packs/{sourceID}", func(r chi.Router) {
		r.Get("/", app.packHandler)
		r.Post("/options", app.optionHandler)
		r.Post("/save", app.saveHandler)
		r.Post("/revert", app.revertHandler)
	})

	csrf := nosurf.New(r)
	csrf.SetBaseCookie(http.Cookie{HttpOnly: true, Path: "/", SameSite: http.SameSiteLaxMode})
	csrf.SetFailureHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		app.logger.Warn("CSRF check failed", "path", r.URL.Path, "reason", nosurf.Reason(r))
		http.Error(w, "Bad Request - invalid CSRF token", http.StatusBadRequest)
	}))
	return csrf
}
