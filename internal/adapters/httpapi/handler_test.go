package httpapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"threadlab/internal/adapters/httpapi"
	"threadlab/internal/blob"
	"threadlab/internal/catalog"
	"threadlab/internal/core"
	"threadlab/internal/sched"
	"threadlab/pkg/domain"
)

type fixture struct {
	svc     *core.Service
	clock   *sched.Manual
	samples blob.Store
	handler *httpapi.Handler
}

func setup(t *testing.T) fixture {
	t.Helper()
	clock := sched.NewManual(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	svc := core.NewService(catalog.Default(),
		core.WithClock(clock),
		core.WithRaceJitter(func() time.Duration { return 10 * time.Millisecond }),
	)
	samples := blob.NewMemory()
	if _, err := core.SeedSamples(context.Background(), samples, svc.Catalog(), false); err != nil {
		t.Fatalf("seed samples: %v", err)
	}
	t.Cleanup(func() { _ = svc.Shutdown(context.Background()) })
	return fixture{svc: svc, clock: clock, samples: samples, handler: httpapi.NewHandler(svc, samples, nil)}
}

func (f fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	resp := httptest.NewRecorder()
	f.handler.ServeHTTP(resp, req)
	return resp
}

func (f fixture) open(t *testing.T) domain.SessionSnapshot {
	t.Helper()
	resp := f.do(t, http.MethodPost, "/api/v1/sessions", "")
	if resp.Code != http.StatusCreated {
		t.Fatalf("open status %d: %s", resp.Code, resp.Body.String())
	}
	return decodeSnapshot(t, resp)
}

func decodeSnapshot(t *testing.T, resp *httptest.ResponseRecorder) domain.SessionSnapshot {
	t.Helper()
	var snap domain.SessionSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	return snap
}

func errorBody(t *testing.T, resp *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body["error"]
}

func TestCatalogRoute(t *testing.T) {
	f := setup(t)
	resp := f.do(t, http.MethodGet, "/api/v1/catalog", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("status %d", resp.Code)
	}
	var body struct {
		Catalog domain.Catalog `json:"catalog"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Catalog.States) != 5 || len(body.Catalog.Techniques) != 3 {
		t.Fatalf("unexpected catalog %+v", body.Catalog)
	}
	if resp := f.do(t, http.MethodPost, "/api/v1/catalog", ""); resp.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.Code)
	}
}

func TestSessionLifecycleRoutes(t *testing.T) {
	f := setup(t)
	snap := f.open(t)
	base := "/api/v1/sessions/" + snap.ID

	resp := f.do(t, http.MethodGet, base, "")
	if resp.Code != http.StatusOK || decodeSnapshot(t, resp).ID != snap.ID {
		t.Fatalf("get snapshot failed: %d", resp.Code)
	}
	if resp := f.do(t, http.MethodPut, base, ""); resp.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.Code)
	}
	if resp := f.do(t, http.MethodDelete, base, ""); resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
	resp = f.do(t, http.MethodGet, base, "")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after close, got %d", resp.Code)
	}
	if msg := errorBody(t, resp); !strings.Contains(msg, "not found") {
		t.Fatalf("unexpected error body %q", msg)
	}
}

func TestWidgetRoutes(t *testing.T) {
	f := setup(t)
	base := "/api/v1/sessions/" + f.open(t).ID

	resp := f.do(t, http.MethodPost, base+"/lifecycle/select", `{"state":"waiting"}`)
	if resp.Code != http.StatusOK || decodeSnapshot(t, resp).Lifecycle.Active != domain.StateWaiting {
		t.Fatalf("select failed: %d", resp.Code)
	}

	if resp := f.do(t, http.MethodPost, base+"/race/start", ""); resp.Code != http.StatusOK {
		t.Fatalf("race start: %d", resp.Code)
	}
	f.clock.Advance(time.Second)
	resp = f.do(t, http.MethodPost, base+"/race/pause", "")
	race := decodeSnapshot(t, resp).Race
	if race.Counter != 2 || race.Running {
		t.Fatalf("unexpected race snapshot %+v", race)
	}

	resp = f.do(t, http.MethodPost, base+"/context-switch/speed", `{"speed":100}`)
	if resp.Code != http.StatusOK || decodeSnapshot(t, resp).ContextSwitch.IntervalMS != 200 {
		t.Fatalf("speed failed: %d", resp.Code)
	}

	resp = f.do(t, http.MethodPost, base+"/sync/toggle", `{"technique":"atomic"}`)
	if !decodeSnapshot(t, resp).Comparator.Views[domain.TechniqueAtomic] {
		t.Fatalf("toggle did not flip atomic view")
	}

	resp = f.do(t, http.MethodPost, base+"/cpu/view", `{"mode":"single"}`)
	if cpu := decodeSnapshot(t, resp).CPU; len(cpu.Cores) != 1 {
		t.Fatalf("unexpected cpu snapshot %+v", cpu)
	}

	resp = f.do(t, http.MethodPost, base+"/deadlock/play", "")
	if !decodeSnapshot(t, resp).Deadlock.Running {
		t.Fatalf("deadlock should be playing")
	}
}

func TestErrorMapping(t *testing.T) {
	f := setup(t)
	base := "/api/v1/sessions/" + f.open(t).ID
	cases := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"unknown session", http.MethodPost, "/api/v1/sessions/nope/race/start", "", http.StatusNotFound},
		{"unknown action", http.MethodPost, base + "/race/explode", "", http.StatusNotFound},
		{"wrong method", http.MethodGet, base + "/race/start", "", http.StatusMethodNotAllowed},
		{"bad json", http.MethodPost, base + "/cpu/threads", `{"count":`, http.StatusBadRequest},
		{"empty body", http.MethodPost, base + "/sync/select", "", http.StatusBadRequest},
		{"unknown field", http.MethodPost, base + "/cpu/threads", `{"threads":3}`, http.StatusBadRequest},
		{"out of range", http.MethodPost, base + "/cpu/threads", `{"count":12}`, http.StatusBadRequest},
		{"unknown technique", http.MethodPost, base + "/sync/select", `{"technique":"rcu"}`, http.StatusBadRequest},
		{"unknown state", http.MethodPost, base + "/lifecycle/select", `{"state":"zombie"}`, http.StatusBadRequest},
		{"speed too low", http.MethodPost, base + "/context-switch/speed", `{"speed":5}`, http.StatusBadRequest},
		{"unknown route", http.MethodGet, "/api/v2/catalog", "", http.StatusNotFound},
		{"open wrong method", http.MethodGet, "/api/v1/sessions", "", http.StatusMethodNotAllowed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := f.do(t, tc.method, tc.path, tc.body)
			if resp.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, resp.Code, resp.Body.String())
			}
		})
	}
}

func TestSampleRoute(t *testing.T) {
	f := setup(t)
	key := catalog.LifecycleSampleKey(domain.StateRunning)
	resp := f.do(t, http.MethodGet, "/api/v1/samples/"+key, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("status %d: %s", resp.Code, resp.Body.String())
	}
	state, _ := f.svc.Catalog().State(domain.StateRunning)
	if resp.Body.String() != state.CodeSample {
		t.Fatalf("unexpected sample body %q", resp.Body.String())
	}
	etag := resp.Header().Get("ETag")
	if etag == "" || !strings.HasPrefix(resp.Header().Get("Content-Type"), "text/plain") {
		t.Fatalf("missing headers %v", resp.Header())
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/samples/"+key, nil)
	req.Header.Set("If-None-Match", etag)
	cached := httptest.NewRecorder()
	f.handler.ServeHTTP(cached, req)
	if cached.Code != http.StatusNotModified {
		t.Fatalf("expected 304, got %d", cached.Code)
	}

	if resp := f.do(t, http.MethodGet, "/api/v1/samples/samples/missing.txt", ""); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
	if resp := f.do(t, http.MethodPost, "/api/v1/samples/"+key, ""); resp.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.Code)
	}
}

func TestSampleRouteRedirectsForPresigningStores(t *testing.T) {
	f := setup(t)
	s3 := blob.NewMockS3ForTests()
	if _, err := core.SeedSamples(context.Background(), s3, f.svc.Catalog(), false); err != nil {
		t.Fatalf("seed s3: %v", err)
	}
	handler := httpapi.NewHandler(f.svc, s3, nil)
	key := catalog.TechniqueSampleKey(domain.TechniqueAtomic)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/samples/"+key, nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusTemporaryRedirect {
		t.Fatalf("expected redirect, got %d: %s", resp.Code, resp.Body.String())
	}
	if loc := resp.Header().Get("Location"); !strings.Contains(loc, key) || !strings.Contains(loc, "X-Amz-Signature") {
		t.Fatalf("unexpected redirect location %s", loc)
	}
}

func TestUnconfiguredHandler(t *testing.T) {
	h := &httpapi.Handler{}
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/catalog", nil))
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}

	f := setup(t)
	bare := httpapi.NewHandler(f.svc, nil, nil)
	id := f.open(t).ID
	for _, path := range []string{"/api/v1/samples/samples/lifecycle/new.txt", "/api/v1/sessions/" + id + "/stream"} {
		resp := httptest.NewRecorder()
		bare.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		if resp.Code != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", path, resp.Code)
		}
	}
}
