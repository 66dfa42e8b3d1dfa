// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/met-search/internal/collection"
	"github.com/pdiddy/met-search/internal/pager"
	"github.com/pdiddy/met-search/internal/session"
	"github.com/pdiddy/met-search/pkg/types"
)

// --- fake collection API ---

type fakeMuseum struct {
	ids        []int
	noImage    map[int]bool
	failSearch bool
	failObject map[int]bool
	searches   atomic.Int32
}

func (m *fakeMuseum) handler(imageBase string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /search", func(w http.ResponseWriter, r *http.Request) {
		m.searches.Add(1)
		if m.failSearch {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if len(m.ids) == 0 {
			fmt.Fprint(w, `{"total": 0, "objectIDs": null}`)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"total": len(m.ids), "objectIDs": m.ids})
	})
	mux.HandleFunc("GET /objects/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.Atoi(r.PathValue("id"))
		if m.failObject[id] {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		rec := types.ObjectRecord{ObjectID: id, Title: fmt.Sprintf("Object %d", id), ObjectDate: "ca. 1900"}
		if !m.noImage[id] {
			rec.PrimaryImageSmall = fmt.Sprintf("%s/img/%d.jpg", imageBase, id)
		}
		json.NewEncoder(w).Encode(rec)
	})
	mux.HandleFunc("GET /img/{name}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		fmt.Fprint(w, "JPEGDATA")
	})
	return mux
}

// logBuffer collects handler logs written from server goroutines.
type logBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *logBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type testEnv struct {
	museum *fakeMuseum
	api    *httptest.Server
	app    *httptest.Server
	client *http.Client
}

func newTestEnv(t *testing.T, museum *fakeMuseum) *testEnv {
	t.Helper()
	return newTestEnvWithLogger(t, museum, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newTestEnvWithLogger(t *testing.T, museum *fakeMuseum, log *slog.Logger) *testEnv {
	t.Helper()

	var api *httptest.Server
	api = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		museum.handler(api.URL).ServeHTTP(w, r)
	}))
	t.Cleanup(api.Close)

	cfg := types.DefaultAppConfig()
	cfg.Collection.BaseURL = api.URL
	apiURL, _ := url.Parse(api.URL)
	cfg.Server.ImageHosts = []string{apiURL.Hostname()}

	client := collection.NewClient(cfg.Collection)
	filler := pager.New(client, cfg.Collection)
	store := session.NewStore(func() *session.Orchestrator {
		return session.NewOrchestrator(client, filler, cfg.Collection.PageSize, log)
	}, time.Minute)
	images := NewImageProxy(api.Client(), "test/0.1", cfg.Server.ImageHosts, log)

	srv, err := NewServer(store, images, log)
	require.NoError(t, err)
	app := httptest.NewServer(srv.Routes())
	t.Cleanup(app.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &testEnv{museum: museum, api: api, app: app, client: &http.Client{Jar: jar}}
}

func (e *testEnv) post(t *testing.T, path string, form url.Values) *http.Response {
	t.Helper()
	resp, err := e.client.PostForm(e.app.URL+path, form)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (e *testEnv) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := e.client.Get(e.app.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func decodeState(t *testing.T, resp *http.Response) session.State {
	t.Helper()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var st session.State
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	return st
}

func objectIDs(st session.State) []int {
	out := make([]int, len(st.Results))
	for i, r := range st.Results {
		out[i] = r.ObjectID
	}
	return out
}

func seqIDs(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

// --- tests ---

func TestIndexInitialState(t *testing.T) {
	env := newTestEnv(t, &fakeMuseum{})

	resp, body := env.get(t, "/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "No results yet. Try searching for something!")
	assert.NotContains(t, body, "Previous")

	u, _ := url.Parse(env.app.URL)
	assert.NotEmpty(t, env.client.Jar.Cookies(u), "session cookie should be set")
}

func TestAPISearchAndPaging(t *testing.T) {
	env := newTestEnv(t, &fakeMuseum{ids: seqIDs(30), noImage: map[int]bool{2: true, 4: true, 6: true}})

	st := decodeState(t, env.post(t, "/api/search", url.Values{"q": {"armor"}}))
	assert.Equal(t, []int{1, 3, 5, 7, 8, 9, 10, 11, 12}, objectIDs(st))
	assert.Equal(t, 1, st.Page)
	assert.Equal(t, 4, st.EstimatedPages)
	assert.Equal(t, 30, st.TotalMatches)
	assert.Empty(t, st.Error)

	st = decodeState(t, env.post(t, "/api/page", url.Values{"page": {"4"}}))
	assert.Equal(t, []int{28, 29, 30}, objectIDs(st))

	st = decodeState(t, env.post(t, "/api/page", url.Values{"page": {"2"}}))
	assert.Equal(t, 2, st.Page)
	assert.Equal(t, 10, st.Results[0].ObjectID)

	assert.Equal(t, int32(1), env.museum.searches.Load(), "paging reuses the identifier sequence")
}

func TestAPIPageErrors(t *testing.T) {
	env := newTestEnv(t, &fakeMuseum{ids: seqIDs(30)})

	resp := env.post(t, "/api/page", url.Values{"page": {"1"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	decodeState(t, env.post(t, "/api/search", url.Values{"q": {"armor"}}))

	resp = env.post(t, "/api/page", url.Values{"page": {"99"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.post(t, "/api/page", url.Values{"page": {"next"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPIEmptyQuery(t *testing.T) {
	env := newTestEnv(t, &fakeMuseum{ids: seqIDs(3)})

	resp := env.post(t, "/api/search", url.Values{"q": {" "}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Zero(t, env.museum.searches.Load())
}

func TestAPIRejectedRequestsLogAtWarn(t *testing.T) {
	tests := []struct {
		name string
		path string
		form url.Values
	}{
		{"empty query", "/api/search", url.Values{"q": {""}}},
		{"page before search", "/api/page", url.Values{"page": {"1"}}},
		{"page not a number", "/api/page", url.Values{"page": {"next"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logs := &logBuffer{}
			env := newTestEnvWithLogger(t, &fakeMuseum{ids: seqIDs(3)}, slog.New(slog.NewTextHandler(logs, nil)))

			resp := env.post(t, tt.path, tt.form)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Contains(t, logs.String(), "level=WARN")
			assert.Contains(t, logs.String(), "status=400")
			assert.NotContains(t, logs.String(), "level=ERROR")
		})
	}
}

func TestAPINoMatches(t *testing.T) {
	env := newTestEnv(t, &fakeMuseum{})

	st := decodeState(t, env.post(t, "/api/search", url.Values{"q": {"qwxz"}}))
	assert.True(t, st.Searched)
	assert.Empty(t, st.Results)
	assert.Empty(t, st.Error)

	_, body := env.get(t, "/")
	assert.Contains(t, body, `No results found for "qwxz".`)
}

func TestAPIDetailFailure(t *testing.T) {
	env := newTestEnv(t, &fakeMuseum{ids: seqIDs(30), failObject: map[int]bool{5: true}})

	st := decodeState(t, env.post(t, "/api/search", url.Values{"q": {"armor"}}))
	assert.Equal(t, session.FailureMessage, st.Error)
	assert.Empty(t, st.Results)
	assert.False(t, st.Loading)

	_, body := env.get(t, "/")
	assert.Contains(t, body, session.FailureMessage)
	assert.NotContains(t, body, `class="card"`)
}

func TestAPISearchFailure(t *testing.T) {
	env := newTestEnv(t, &fakeMuseum{failSearch: true})

	st := decodeState(t, env.post(t, "/api/search", url.Values{"q": {"armor"}}))
	assert.Equal(t, session.FailureMessage, st.Error)
	assert.Empty(t, st.Results)
}

func TestBrowserSearchRendersCards(t *testing.T) {
	env := newTestEnv(t, &fakeMuseum{ids: seqIDs(12)})

	resp := env.post(t, "/search", url.Values{"q": {"armor"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	html := string(body)

	assert.Equal(t, 9, strings.Count(html, `class="card"`))
	assert.Contains(t, html, "Object 1")
	assert.Contains(t, html, types.UnknownArtist)
	assert.Contains(t, html, "Page 1 of 2")
	assert.Contains(t, html, "/image?src=")
	assert.Contains(t, html, `aria-label="Clear search"`)
}

func TestClear(t *testing.T) {
	env := newTestEnv(t, &fakeMuseum{ids: seqIDs(12)})
	decodeState(t, env.post(t, "/api/search", url.Values{"q": {"armor"}}))

	st := decodeState(t, env.post(t, "/api/clear", nil))
	assert.Empty(t, st.Query)
	assert.Empty(t, st.Results)
	assert.Zero(t, st.EstimatedPages)

	st = decodeState(t, mustGet(t, env, "/api/state"))
	assert.Empty(t, st.Results)
}

func TestImageProxy(t *testing.T) {
	env := newTestEnv(t, &fakeMuseum{})

	resp, body := env.get(t, "/image?src="+url.QueryEscape(env.api.URL+"/img/1.jpg"))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))
	assert.Equal(t, "JPEGDATA", body)

	resp, _ = env.get(t, "/image?src="+url.QueryEscape("https://evil.example.com/x.jpg"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.get(t, "/image?src="+url.QueryEscape("file:///etc/passwd"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestImageProxyRefusesRedirectToOtherHost(t *testing.T) {
	internal := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "INTERNAL-SECRET")
	}))
	defer internal.Close()
	internalURL, _ := url.Parse(internal.URL)
	// Same listener reached through a host name that is not on the list.
	target := "http://localhost:" + internalURL.Port() + "/"

	allowed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/same-host.jpg" {
			http.Redirect(w, r, "/img.jpg", http.StatusFound)
			return
		}
		if r.URL.Path == "/img.jpg" {
			fmt.Fprint(w, "JPEGDATA")
			return
		}
		http.Redirect(w, r, target, http.StatusFound)
	}))
	defer allowed.Close()
	allowedURL, _ := url.Parse(allowed.URL)

	p := NewImageProxy(allowed.Client(), "", []string{allowedURL.Hostname()}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/image?src="+url.QueryEscape(allowed.URL+"/a.jpg"), nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotContains(t, rec.Body.String(), "INTERNAL-SECRET")

	rec = httptest.NewRecorder()
	p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/image?src="+url.QueryEscape(allowed.URL+"/same-host.jpg"), nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "JPEGDATA", rec.Body.String())
}

func TestImageProxyAllowed(t *testing.T) {
	p := NewImageProxy(http.DefaultClient, "", []string{"images.metmuseum.org"}, nil)
	assert.True(t, p.Allowed("https://images.metmuseum.org/CRDImages/ep/web-large/DT1567.jpg"))
	assert.True(t, p.Allowed("https://IMAGES.metmuseum.org/a.jpg"))
	assert.False(t, p.Allowed("https://images.metmuseum.org.evil.com/a.jpg"))
	assert.False(t, p.Allowed("ftp://images.metmuseum.org/a.jpg"))
	assert.False(t, p.Allowed(""))
}

func TestHealthcheck(t *testing.T) {
	env := newTestEnv(t, &fakeMuseum{})
	resp, body := env.get(t, "/healthcheck")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", body)
}

func TestStaticAssets(t *testing.T) {
	env := newTestEnv(t, &fakeMuseum{})
	resp, body := env.get(t, "/static/app.css")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, ".grid")
}

func mustGet(t *testing.T, env *testEnv, path string) *http.Response {
	t.Helper()
	resp, err := env.client.Get(env.app.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}
