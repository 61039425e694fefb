package main

import (
	"html"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-expanded-storage/internal/capability"
	"go-expanded-storage/internal/config"
	"go-expanded-storage/internal/loader"
	"go-expanded-storage/internal/model"
	"go-expanded-storage/internal/session"
)

func newTestApplication(t *testing.T) (*adminApplication, string) {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "fish")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "manifest.json"), []byte(`{"UniqueID": "me.fish", "Name": "Fish Pack", "Version": "1.2.0"}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "expanded-storage.json"), []byte(`{"Big Box": {"Capacity": 72}}`), 0o644))

	cfg := &config.Config{
		PacksDir:     root,
		TagPrefix:    capability.DefaultPrefix,
		LogLevel:     "info",
		Integrations: config.Integrations{Capabilities: true, Menu: true},
	}
	sess, err := session.New(cfg, nil)
	require.NoError(t, err)
	_, err = sess.Reload()
	require.NoError(t, err)

	cache, err := newTemplateCache()
	require.NoError(t, err)
	return &adminApplication{logger: cfg.Logger(os.Stderr), session: sess, templateCache: cache}, dir
}

var tokenField = regexp.MustCompile(`name="csrf_token" value="([^"]+)"`)

// csrfClient fetches a page and keeps the CSRF cookie and form token.
type csrfClient struct {
	t       *testing.T
	handler http.Handler
	cookies []*http.Cookie
	token   string
}

func (c *csrfClient) get(target string) *httptest.ResponseRecorder {
	c.t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for _, cookie := range c.cookies {
		req.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	c.handler.ServeHTTP(rr, req)
	if cookies := rr.Result().Cookies(); len(cookies) > 0 {
		c.cookies = cookies
	}
	if m := tokenField.FindStringSubmatch(rr.Body.String()); m != nil {
		c.token = html.UnescapeString(m[1])
	}
	return rr
}

func (c *csrfClient) post(target string, form url.Values) *httptest.ResponseRecorder {
	c.t.Helper()
	if form == nil {
		form = url.Values{}
	}
	form.Set("csrf_token", c.token)
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, cookie := range c.cookies {
		req.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	c.handler.ServeHTTP(rr, req)
	return rr
}

func capacityOf(t *testing.T, app *adminApplication, name string) int {
	t.Helper()
	var capacity int
	app.session.View(func(l *loader.Loader) {
		def, ok := l.Registry().Get(name)
		require.True(t, ok)
		capacity = def.EffectiveCapacity()
	})
	return capacity
}

func TestDashboardHandler(t *testing.T) {
	app, _ := newTestApplication(t)
	client := &csrfClient{t: t, handler: app.routes()}

	rr := client.get("/")
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "Fish Pack")
	assert.Contains(t, body, `href="/packs/me.fish/"`)
	assert.Contains(t, body, "unsaved changes")
	assert.NotEmpty(t, client.token)
}

func TestPackHandler(t *testing.T) {
	app, _ := newTestApplication(t)
	client := &csrfClient{t: t, handler: app.routes()}

	rr := client.get("/packs/me.fish/")
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "<legend>Big Box</legend>")
	assert.Contains(t, body, `value="72"`)
	assert.Contains(t, body, "Vacuum Items")

	assert.Equal(t, http.StatusNotFound, client.get("/packs/unknown/").Code)
}

func TestPostWithoutTokenIsRejected(t *testing.T) {
	app, _ := newTestApplication(t)
	h := app.routes()

	form := url.Values{"page": {"Big Box"}, "option": {"Capacity"}, "value": {"10"}}
	req := httptest.NewRequest(http.MethodPost, "/packs/me.fish/options", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, 72, capacityOf(t, app, "Big Box"))
}

func TestOptionSaveAndRevert(t *testing.T) {
	app, dir := newTestApplication(t)
	client := &csrfClient{t: t, handler: app.routes()}
	client.get("/packs/me.fish/")

	rr := client.post("/packs/me.fish/options", url.Values{"page": {"Big Box"}, "option": {"Capacity"}, "value": {"10"}})
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.True(t, strings.HasPrefix(rr.Header().Get("Location"), "/packs/me.fish/?flash="))
	assert.Equal(t, 10, capacityOf(t, app, "Big Box"))

	rr = client.post("/packs/me.fish/options", url.Values{"page": {"Big Box"}, "option": {"Carry Chest"}, "value": {"false", "true"}})
	require.Equal(t, http.StatusSeeOther, rr.Code)
	app.session.View(func(l *loader.Loader) {
		tags := []model.Tag{l.Enabler().Tag("Big Box")}
		assert.True(t, l.Features().Enabled(capability.FeatureCanCarry, tags))
	})

	rr = client.post("/packs/me.fish/options", url.Values{"page": {"Big Box"}, "option": {"Capacity"}, "value": {"lots"}})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr = client.post("/packs/me.fish/options", url.Values{"page": {"Nope"}, "option": {"Capacity"}, "value": {"1"}})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = client.post("/packs/me.fish/save", nil)
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Contains(t, rr.Header().Get("Location"), url.QueryEscape("Config saved."))
	data, err := os.ReadFile(filepath.Join(dir, "config.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"Capacity": 10`)

	rr = client.post("/packs/me.fish/revert", nil)
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, 72, capacityOf(t, app, "Big Box"))

	assert.Equal(t, http.StatusNotFound, client.post("/packs/unknown/save", nil).Code)
}

func TestSaveFailureIsReported(t *testing.T) {
	app, dir := newTestApplication(t)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "config.json"), 0o755))
	client := &csrfClient{t: t, handler: app.routes()}
	client.get("/packs/me.fish/")

	rr := client.post("/packs/me.fish/save", nil)
	require.Equal(t, http.StatusSeeOther, rr.Code)
	location, err := url.Parse(rr.Header().Get("Location"))
	require.NoError(t, err)
	assert.Contains(t, location.Query().Get("flash"), "Saving config failed")
	app.session.View(func(l *loader.Loader) { assert.True(t, l.Dirty("me.fish")) })
}

func TestHTMXRedirect(t *testing.T) {
	app, _ := newTestApplication(t)
	client := &csrfClient{t: t, handler: app.routes()}
	client.get("/")

	form := url.Values{"csrf_token": {client.token}}
	req := httptest.NewRequest(http.MethodPost, "/reload", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("HX-Request", "true")
	for _, cookie := range client.cookies {
		req.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	client.handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "/", rr.Header().Get("HX-Redirect"))
	assert.Contains(t, rr.Header().Get("HX-Trigger"), "Reloaded 1 content packs.")
}
