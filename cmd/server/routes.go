package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"go-expanded-storage/internal/chestinfo"
	"go-expanded-storage/internal/loader"
	"go-expanded-storage/internal/merge"
	"go-expanded-storage/internal/model"
	"go-expanded-storage/internal/session"
)

// application holds the server dependencies.
type application struct {
	logger  *slog.Logger
	session *session.Session
	info    *chestinfo.Tracker
}

// routes sets up the HTTP router.
func (app *application) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/storages", app.handleStorageList)
	r.Get("/storages/{name}", app.handleStorage)
	r.Get("/sources/{sourceID}/storages", app.handleSourceStorages)
	r.Get("/reports", app.handleReports)
	r.Get("/resolve", app.handleResolve)
	r.Get("/accepts", app.handleAccepts)
	r.Post("/reload", app.handleReload)

	r.Route("/players/{playerID}/info", func(r chi.Router) {
		r.Get("/", app.handleInfo)
		r.Post("/", app.handleInfoRefresh)
		r.Delete("/", app.handleInfoClear)
		r.Post("/toggle", app.handleInfoToggle)
	})

	return r
}

// storageView is the JSON shape of a loaded storage.
type storageView struct {
	Name            string   `json:"name"`
	Owner           string   `json:"owner"`
	Format          string   `json:"format"`
	DisplayName     string   `json:"displayName"`
	Description     string   `json:"description,omitempty"`
	Capacity        int      `json:"capacity"`
	EnabledFeatures []string `json:"enabledFeatures"`
	FilterItems     []string `json:"filterItems,omitempty"`
	PlayerConfig    bool     `json:"playerConfig"`
	PlayerColor     bool     `json:"playerColor"`
	Image           string   `json:"image,omitempty"`
	Frames          int      `json:"frames,omitempty"`
	Texture         *texture `json:"texture,omitempty"`
}

type texture struct {
	Path   string `json:"path"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

func newStorageView(l *loader.Loader, def *model.StorageDefinition) storageView {
	v := storageView{
		Name:            def.Name,
		Owner:           string(def.Owner),
		Format:          def.Format.String(),
		DisplayName:     def.DisplayName,
		Description:     def.Description,
		Capacity:        def.EffectiveCapacity(),
		EnabledFeatures: def.EffectiveFeatures().Sorted(),
		FilterItems:     def.FilterItems,
		PlayerConfig:    def.AllowsPlayerConfig(),
		PlayerColor:     def.AllowsPlayerColor(),
		Image:           def.Image,
		Frames:          def.Frames,
	}
	if tex, ok := l.Texture(def.Name); ok {
		v.Texture = &texture{Path: tex.Path, Width: tex.Width, Height: tex.Height}
	}
	return v
}

func (app *application) handleStorageList(w http.ResponseWriter, r *http.Request) {
	views := make([]storageView, 0)
	app.session.View(func(l *loader.Loader) {
		for def := range l.Registry().All() {
			views = append(views, newStorageView(l, def))
		}
	})
	writeJSON(w, http.StatusOK, views)
}

func (app *application) handleStorage(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var (
		view  storageView
		found bool
	)
	app.session.View(func(l *loader.Loader) {
		if def, ok := l.Registry().Get(name); ok {
			view, found = newStorageView(l, def), true
		}
	})
	if !found {
		writeError(w, http.StatusNotFound, "no storage named "+strconv.Quote(name))
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (app *application) handleSourceStorages(w http.ResponseWriter, r *http.Request) {
	source := model.SourceID(chi.URLParam(r, "sourceID"))
	views := make([]storageView, 0)
	app.session.View(func(l *loader.Loader) {
		for def := range l.Registry().AllOwnedBy(source) {
			views = append(views, newStorageView(l, def))
		}
	})
	writeJSON(w, http.StatusOK, views)
}

type warningView struct {
	Kind  string `json:"kind"`
	Name  string `json:"name,omitempty"`
	Path  string `json:"path,omitempty"`
	Error string `json:"error,omitempty"`
}

type reportView struct {
	PassID        string        `json:"passId"`
	Source        string        `json:"source"`
	Accepted      []string      `json:"accepted"`
	Duplicates    []string      `json:"duplicates,omitempty"`
	WriteBack     []string      `json:"writeBack,omitempty"`
	NothingToLoad bool          `json:"nothingToLoad"`
	Warnings      []warningView `json:"warnings,omitempty"`
}

func newReportView(report *merge.Report) reportView {
	v := reportView{
		PassID:        report.PassID.String(),
		Source:        string(report.Source),
		Accepted:      report.Accepted,
		Duplicates:    report.Duplicates,
		WriteBack:     report.WriteBack,
		NothingToLoad: report.NothingToLoad,
	}
	if v.Accepted == nil {
		v.Accepted = []string{}
	}
	for _, w := range report.Warnings {
		wv := warningView{Kind: w.Kind.String(), Name: w.Name, Path: w.Path}
		if w.Err != nil {
			wv.Error = w.Err.Error()
		}
		v.Warnings = append(v.Warnings, wv)
	}
	return v
}

func (app *application) handleReports(w http.ResponseWriter, r *http.Request) {
	views := make([]reportView, 0)
	app.session.View(func(l *loader.Loader) {
		for _, report := range l.Reports() {
			views = append(views, newReportView(report))
		}
	})
	writeJSON(w, http.StatusOK, views)
}

// queryTags parses repeated ?tag=key=value parameters.
func queryTags(r *http.Request) ([]model.Tag, error) {
	raw := r.URL.Query()["tag"]
	tags := make([]model.Tag, 0, len(raw))
	for _, s := range raw {
		tag, err := model.ParseTag(s)
		if err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

type resolveView struct {
	Feature string `json:"feature"`
	Found   bool   `json:"found"`
	Kind    string `json:"kind,omitempty"`
	Value   any    `json:"value,omitempty"`
}

func (app *application) handleResolve(w http.ResponseWriter, r *http.Request) {
	feature := r.URL.Query().Get("feature")
	if feature == "" {
		writeError(w, http.StatusBadRequest, "feature is required")
		return
	}
	tags, err := queryTags(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	view := resolveView{Feature: feature}
	app.session.View(func(l *loader.Loader) {
		if param, ok := l.Features().Resolve(feature, tags); ok {
			view.Found = true
			view.Kind = param.Kind().String()
			view.Value = param.Value()
		}
	})
	writeJSON(w, http.StatusOK, view)
}

func (app *application) handleAccepts(w http.ResponseWriter, r *http.Request) {
	item := r.URL.Query().Get("item")
	tags, err := queryTags(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var accepted bool
	// The matcher keeps the active rules, so this needs exclusive access.
	_ = app.session.Update(func(l *loader.Loader) error {
		accepted = l.AcceptsItem(tags, item)
		return nil
	})
	writeJSON(w, http.StatusOK, map[string]any{"item": item, "accepted": accepted})
}

func (app *application) handleReload(w http.ResponseWriter, r *http.Request) {
	reports, err := app.session.Reload()
	if err != nil {
		app.logger.Error("Reload failed", "error", err)
		writeError(w, http.StatusInternalServerError, "reload failed")
		return
	}
	views := make([]reportView, 0, len(reports))
	for _, report := range reports {
		views = append(views, newReportView(report))
	}
	writeJSON(w, http.StatusOK, views)
}

func playerID(r *http.Request) (chestinfo.PlayerID, error) {
	id, err := strconv.Atoi(chi.URLParam(r, "playerID"))
	if err != nil {
		return 0, errors.New("player ID must be an integer")
	}
	return chestinfo.PlayerID(id), nil
}

type infoView struct {
	Shown   bool              `json:"shown"`
	Entries []chestinfo.Entry `json:"entries"`
}

func (app *application) writeInfo(w http.ResponseWriter, player chestinfo.PlayerID) {
	entries := app.info.Entries(player)
	if entries == nil {
		entries = []chestinfo.Entry{}
	}
	writeJSON(w, http.StatusOK, infoView{Shown: app.info.Shown(player), Entries: entries})
}

func (app *application) handleInfo(w http.ResponseWriter, r *http.Request) {
	player, err := playerID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	app.writeInfo(w, player)
}

// infoRequest is a snapshot of the storage a player has open.
type infoRequest struct {
	Kind     string           `json:"kind"`
	Label    string           `json:"label"`
	Location string           `json:"location"`
	X        float64          `json:"x"`
	Y        float64          `json:"y"`
	Carrier  string           `json:"carrier"`
	Items    []chestinfo.Item `json:"items"`
}

var kindsByName = map[string]model.Kind{
	"chest":             model.KindChest,
	"junimo-chest":      model.KindJunimoChest,
	"mini-fridge":       model.KindMiniFridge,
	"mini-shipping-bin": model.KindMiniShippingBin,
	"junimo-hut":        model.KindJunimoHut,
	"shipping-bin":      model.KindShippingBin,
	"fridge":            model.KindFridge,
	"object":            model.KindObject,
}

func (app *application) handleInfoRefresh(w http.ResponseWriter, r *http.Request) {
	player, err := playerID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req infoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid storage snapshot: "+err.Error())
		return
	}
	app.info.Refresh(player, &chestinfo.Storage{
		Kind:     kindsByName[req.Kind],
		Label:    req.Label,
		Location: req.Location,
		X:        req.X,
		Y:        req.Y,
		Carrier:  req.Carrier,
		Items:    req.Items,
	})
	app.writeInfo(w, player)
}

func (app *application) handleInfoClear(w http.ResponseWriter, r *http.Request) {
	player, err := playerID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	app.info.Clear(player)
	app.writeInfo(w, player)
}

func (app *application) handleInfoToggle(w http.ResponseWriter, r *http.Request) {
	player, err := playerID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	app.info.Toggle(player)
	app.writeInfo(w, player)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
