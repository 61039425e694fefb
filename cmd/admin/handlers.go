package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"go-expanded-storage/internal/configmenu"
	"go-expanded-storage/internal/loader"
	"go-expanded-storage/internal/model"
)

// DashboardPageData holds the data for dashboard.html.
type DashboardPageData struct {
	Packs []PackSummary
	Error string
}

// PackSummary is one row of the dashboard.
type PackSummary struct {
	ID       string
	Name     string
	Version  string
	Storages int
	Dirty    bool
}

// PackPageData holds the data for pack.html.
type PackPageData struct {
	ID       string
	Manifest model.Manifest
	Links    []configmenu.Link
	Pages    []PageView
	Dirty    bool
}

// PageView is one rendered menu page.
type PageView struct {
	Name    string
	Options []OptionView
}

// OptionView is one rendered option with its current value.
type OptionView struct {
	Name    string
	Tooltip string
	IsBool  bool
	Value   string
	Checked bool
}

func (app *adminApplication) render(w http.ResponseWriter, status int, page string, data map[string]any) {
	ts, ok := app.templateCache[page]
	if !ok {
		app.logger.Error("Template not found in cache", "page", page)
		http.Error(w, "Internal Server Error - Template not found", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := ts.ExecuteTemplate(w, "layout.html", data); err != nil {
		app.logger.Error("Error executing admin layout template", "page", page, "error", err)
	}
}

// redirect sends the browser back to target with a flash message. htmx
// requests get the message as an HX-Trigger event instead.
func (app *adminApplication) redirect(w http.ResponseWriter, r *http.Request, target, message, kind string) {
	if r.Header.Get("HX-Request") == "true" {
		event, _ := json.Marshal(map[string]any{"showMessage": map[string]string{"message": message, "type": kind}})
		w.Header().Set("HX-Trigger", string(event))
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, target+"?flash="+url.QueryEscape(message), http.StatusSeeOther)
}

func packURL(id model.SourceID) string {
	return "/packs/" + url.PathEscape(string(id)) + "/"
}

// dashboardHandler lists every pack registered in the menu.
func (app *adminApplication) dashboardHandler(w http.ResponseWriter, r *http.Request) {
	data := app.newTemplateData(r, "dashboard")
	pageData := DashboardPageData{Packs: make([]PackSummary, 0)}

	menu := app.session.Menu()
	if menu == nil {
		pageData.Error = "The configuration menu is disabled."
	} else {
		app.session.View(func(l *loader.Loader) {
			for _, entry := range menu.Entries() {
				id := entry.Manifest.ID()
				pageData.Packs = append(pageData.Packs, PackSummary{
					ID:       string(id),
					Name:     entry.Manifest.Name,
					Version:  entry.Manifest.Version,
					Storages: len(l.OwnedNames(id)),
					Dirty:    l.Dirty(id),
				})
			}
		})
	}
	data["Page"] = pageData
	app.render(w, http.StatusOK, "dashboard.html", data)
}

// packHandler renders one pack's menu pages.
func (app *adminApplication) packHandler(w http.ResponseWriter, r *http.Request) {
	id := model.SourceID(chi.URLParam(r, "sourceID"))
	menu := app.session.Menu()
	if menu == nil {
		http.NotFound(w, r)
		return
	}

	var (
		pageData PackPageData
		found    bool
	)
	app.session.View(func(l *loader.Loader) {
		entry, ok := menu.Entry(id)
		if !ok {
			return
		}
		found = true
		pageData = PackPageData{ID: string(id), Manifest: entry.Manifest, Links: entry.Links, Dirty: l.Dirty(id)}
		for _, page := range entry.Pages {
			view := PageView{Name: page.Name}
			for _, opt := range page.Options {
				view.Options = append(view.Options, OptionView{
					Name:    opt.Name,
					Tooltip: opt.Tooltip,
					IsBool:  opt.Kind == configmenu.BoolOption,
					Value:   opt.Value(),
					Checked: opt.Kind == configmenu.BoolOption && opt.Bool(),
				})
			}
			pageData.Pages = append(pageData.Pages, view)
		}
	})
	if !found {
		http.NotFound(w, r)
		return
	}

	data := app.newTemplateData(r, "packs")
	data["Page"] = pageData
	app.render(w, http.StatusOK, "pack.html", data)
}

// optionHandler applies one option from the pack page form. Unchecked
// checkboxes are not submitted, so bool options carry a hidden "false".
func (app *adminApplication) optionHandler(w http.ResponseWriter, r *http.Request) {
	id := model.SourceID(chi.URLParam(r, "sourceID"))
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request - Could not parse form", http.StatusBadRequest)
		return
	}
	page, option := r.PostForm.Get("page"), r.PostForm.Get("option")
	values := r.PostForm["value"]
	if option == "" || len(values) == 0 {
		http.Error(w, "Bad Request - option and value are required", http.StatusBadRequest)
		return
	}
	value := values[len(values)-1]

	menu := app.session.Menu()
	if menu == nil {
		http.NotFound(w, r)
		return
	}
	err := app.session.Update(func(*loader.Loader) error {
		return menu.Set(id, page, option, value)
	})
	switch {
	case errors.Is(err, configmenu.ErrInvalidValue):
		http.Error(w, "Bad Request - "+err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		app.logger.Warn("Option update failed", "source", string(id), "page", page, "option", option, "error", err)
		http.Error(w, "Not Found - "+err.Error(), http.StatusNotFound)
		return
	}
	app.logger.Info("Updated option", "source", string(id), "page", page, "option", option, "value", value)
	app.redirect(w, r, packURL(id), fmt.Sprintf("%s / %s set to %s.", page, option, value), "success")
}

func (app *adminApplication) saveHandler(w http.ResponseWriter, r *http.Request) {
	id := model.SourceID(chi.URLParam(r, "sourceID"))
	menu := app.session.Menu()
	if menu == nil {
		http.NotFound(w, r)
		return
	}
	unsaved := false
	err := app.session.Update(func(l *loader.Loader) error {
		if err := menu.Save(id); err != nil {
			return err
		}
		unsaved = l.Dirty(id)
		return nil
	})
	if err != nil {
		http.Error(w, "Not Found - "+err.Error(), http.StatusNotFound)
		return
	}
	// The menu's save callback only logs write failures; the overlay stays dirty.
	if unsaved {
		app.logger.Error("Config was not written", "source", string(id))
		app.redirect(w, r, packURL(id), "Saving config failed, see the server log.", "error")
		return
	}
	app.redirect(w, r, packURL(id), "Config saved.", "success")
}

func (app *adminApplication) revertHandler(w http.ResponseWriter, r *http.Request) {
	id := model.SourceID(chi.URLParam(r, "sourceID"))
	app.menuAction(w, r, id, "reverted to defaults", func(m *configmenu.Menu) error { return m.Revert(id) })
}

func (app *adminApplication) menuAction(w http.ResponseWriter, r *http.Request, id model.SourceID, done string, action func(*configmenu.Menu) error) {
	menu := app.session.Menu()
	if menu == nil {
		http.NotFound(w, r)
		return
	}
	if err := app.session.Update(func(*loader.Loader) error { return action(menu) }); err != nil {
		http.Error(w, "Not Found - "+err.Error(), http.StatusNotFound)
		return
	}
	app.redirect(w, r, packURL(id), fmt.Sprintf("Config %s.", done), "success")
}

func (app *adminApplication) reloadHandler(w http.ResponseWriter, r *http.Request) {
	reports, err := app.session.Reload()
	if err != nil {
		app.logger.Error("Reload failed", "error", err)
		app.redirect(w, r, "/", "Reload failed.", "error")
		return
	}
	app.redirect(w, r, "/", fmt.Sprintf("Reloaded %d content packs.", len(reports)), "success")
}
