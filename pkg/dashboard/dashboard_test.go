package dashboard

import (
	"bufio"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ServingDashboard/pkg/polling"
	"ServingDashboard/pkg/series"
	"ServingDashboard/pkg/services"
)

type fakeBackend struct {
	resets  int
	maxReqs int
	fail    bool
}

func (f *fakeBackend) StatusBoard(context.Context) []services.ServiceStatus {
	return []services.ServiceStatus{{Service: services.Orchestrator, Status: "active"}}
}

func (f *fakeBackend) ConfigurationBoard(context.Context) []services.ConfigDocument {
	return []services.ConfigDocument{{Service: services.Controller, Document: "configuration", Configuration: json.RawMessage(`{"k":1}`)}}
}

func (f *fakeBackend) Models(context.Context) ([]services.Model, error) {
	return []services.Model{{Name: "resnet", SLA: 0.5}}, nil
}

func (f *fakeBackend) ContainersTable(context.Context) ([]services.Container, error) {
	if f.fail {
		return nil, errors.New("dial tcp: connection refused")
	}
	return []services.Container{{Model: "resnet", ContainerID: "0123456789ab"}}, nil
}

func (f *fakeBackend) RequestsTable(_ context.Context, maxReqs int) (json.RawMessage, error) {
	f.maxReqs = maxReqs
	return json.RawMessage(`[{"id":"r1"}]`), nil
}

func (f *fakeBackend) ResetRequests(context.Context) error {
	f.resets++
	return nil
}

func (f *fakeBackend) ModelMetricsTable(context.Context) (json.RawMessage, error) {
	return json.RawMessage(`[{"model":"resnet"}]`), nil
}

func (f *fakeBackend) ContainerMetricsTable(context.Context) (json.RawMessage, error) {
	return json.RawMessage(`[]`), nil
}

func (f *fakeBackend) ControllerLogs(context.Context) (json.RawMessage, error) {
	return json.RawMessage(`[{"msg":"scaled"}]`), nil
}

type staticSource struct{}

func (staticSource) Name() string { return "static" }
func (staticSource) Families() []polling.FamilySpec {
	return []polling.FamilySpec{{Name: "quota", Title: "Core quota", Unit: "cores"}}
}
func (staticSource) Discover(context.Context, time.Time) (*polling.Discovery, error) {
	return polling.NewDiscovery(), nil
}
func (staticSource) Sample(context.Context, time.Time) (polling.Values, error) { return nil, nil }

func newTestServer(t *testing.T, backend *fakeBackend) (*Server, *Hub) {
	t.Helper()
	c := series.NewCatalog(5)
	require.NoError(t, c.AddFamily("rt", "Response time", "s"))
	_, err := c.Register("rt", "resnet")
	require.NoError(t, err)
	c.Freeze()
	_, err = c.Merge("rt", c.Now(), map[string]float64{"resnet": 0.2})
	require.NoError(t, err)
	c.Advance()
	c.Seal()

	hub := NewHub(8)
	srv := NewServer(Options{
		Catalog: c,
		Pollers: []*polling.Poller{polling.NewPoller(staticSource{}, 1, time.Second, nil)},
		Backend: backend,
		Hub:     hub,
		Session: "s-1",
		Period:  2 * time.Second,
	})
	return srv, hub
}

func do(t *testing.T, srv *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	srv.Handler().ServeHTTP(w, req)
	return w
}

func TestCatalogEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, &fakeBackend{})

	w := do(t, srv, http.MethodGet, "/api/catalog")
	require.Equal(t, http.StatusOK, w.Code)
	var snap struct {
		Tick     int `json:"tick"`
		Families []struct {
			Name   string `json:"name"`
			Labels []int  `json:"labels"`
			Series []struct {
				Key     string     `json:"key"`
				Samples []*float64 `json:"samples"`
			} `json:"series"`
		} `json:"families"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, 1, snap.Tick)
	require.Len(t, snap.Families, 1)
	assert.Equal(t, []int{0, 1}, snap.Families[0].Labels)
	samples := snap.Families[0].Series[0].Samples
	require.Len(t, samples, 2)
	assert.Equal(t, 0.2, *samples[0])
	assert.Nil(t, samples[1])

	w = do(t, srv, http.MethodGet, "/api/families/rt")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"resnet"`)

	w = do(t, srv, http.MethodGet, "/api/families/nope")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "unknown family")

	w = do(t, srv, http.MethodGet, "/api/catalog/stats")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"series":1`)

	w = do(t, srv, http.MethodGet, "/api/pollers")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"source":"static"`)
	assert.Contains(t, w.Body.String(), `"status":"unknown"`)
}

func TestPage(t *testing.T) {
	srv, _ := newTestServer(t, &fakeBackend{})
	w := do(t, srv, http.MethodGet, "/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "Response time")
	assert.Contains(t, w.Body.String(), "Session: s-1")
}

func TestBoardsAndTables(t *testing.T) {
	backend := &fakeBackend{}
	srv, _ := newTestServer(t, backend)

	w := do(t, srv, http.MethodGet, "/api/status")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "active")

	w = do(t, srv, http.MethodGet, "/api/configuration")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"k":1`)

	w = do(t, srv, http.MethodGet, "/api/tables/models")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "resnet")

	w = do(t, srv, http.MethodGet, "/api/tables/requests")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"id":"r1"}]`, w.Body.String())
	assert.Equal(t, services.DefaultMaxRequests, backend.maxReqs)

	w = do(t, srv, http.MethodGet, "/api/tables/requests?max_reqs=10")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 10, backend.maxReqs)

	w = do(t, srv, http.MethodGet, "/api/tables/requests?max_reqs=zero")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, srv, http.MethodDelete, "/api/tables/requests")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 1, backend.resets)

	for path, want := range map[string]string{
		"/api/tables/metrics/model":     `[{"model":"resnet"}]`,
		"/api/tables/metrics/container": `[]`,
		"/api/tables/logs":              `[{"msg":"scaled"}]`,
	} {
		w = do(t, srv, http.MethodGet, path)
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.JSONEq(t, want, w.Body.String(), path)
	}

	backend.fail = true
	w = do(t, srv, http.MethodGet, "/api/tables/containers")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), `"reason":"transport"`)

	w = do(t, srv, http.MethodGet, "/nothing")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, &fakeBackend{})
	do(t, srv, http.MethodGet, "/healthz")

	w := do(t, srv, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "servdash_http_requests_total")
}

func TestHubDoesNotBlock(t *testing.T) {
	hub := NewHub(1)
	events, cancel := hub.Subscribe()
	defer cancel()

	for i := 0; i < 5; i++ {
		hub.Publish(polling.Update{Tick: series.Tick(i), Family: series.FamilySnapshot{Name: "rt"}})
	}
	ev := <-events
	assert.Equal(t, EventTick, ev.Type)
	assert.Equal(t, series.Tick(0), ev.Tick)

	cancel()
	cancel()
	assert.Equal(t, 0, hub.Subscribers())
	_, ok := <-events
	assert.False(t, ok)
}

func TestHubEventOrder(t *testing.T) {
	hub := NewHub(8)
	events, cancel := hub.Subscribe()
	defer cancel()

	hub.Publish(polling.Update{Tick: 3, Family: series.FamilySnapshot{Name: "rt"}})
	hub.Publish(polling.Update{Tick: 3, Family: series.FamilySnapshot{Name: "quota"}, Sealed: true})

	var got []string
	for i := 0; i < 3; i++ {
		ev := <-events
		got = append(got, ev.Type+":"+ev.Family)
	}
	assert.Equal(t, []string{"tick:", "family:rt", "family:quota"}, got)
}

// openStream subscribes to /api/events and returns a scanner over the body.
func openStream(t *testing.T, srv *Server, hub *Hub) *bufio.Scanner {
	t.Helper()
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	require.Eventually(t, func() bool { return hub.Subscribers() >= 1 }, 2*time.Second, 5*time.Millisecond)
	return bufio.NewScanner(resp.Body)
}

func nextEvent(t *testing.T, scanner *bufio.Scanner) (string, string) {
	t.Helper()
	var name string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "event:") {
			name = strings.TrimPrefix(line, "event:")
		}
		if strings.HasPrefix(line, "data:") {
			return name, strings.TrimPrefix(line, "data:")
		}
	}
	require.NoError(t, scanner.Err())
	t.Fatal("stream ended")
	return "", ""
}

func TestEventStream(t *testing.T) {
	srv, hub := newTestServer(t, &fakeBackend{})
	scanner := openStream(t, srv, hub)

	hub.Publish(polling.Update{Tick: 2, Family: series.FamilySnapshot{Name: "rt"}})

	var seen []string
	for {
		name, data := nextEvent(t, scanner)
		seen = append(seen, name)
		if strings.Contains(data, `"family":"rt"`) {
			break
		}
	}
	assert.Equal(t, []string{"hello", "tick", "family"}, seen)
}

func TestEventStreamOpensWithoutTick(t *testing.T) {
	srv, hub := newTestServer(t, &fakeBackend{})

	for i := 0; i < 3; i++ {
		scanner := openStream(t, srv, hub)
		name, data := nextEvent(t, scanner)
		assert.Equal(t, EventHello, name)
		assert.NotEqual(t, EventTick, name)

		var ev Event
		require.NoError(t, json.Unmarshal([]byte(data), &ev))
		assert.Equal(t, series.Tick(1), ev.Tick)
	}
}

func TestPageReloadsOnlyOnNewerTick(t *testing.T) {
	srv, _ := newTestServer(t, &fakeBackend{})
	w := do(t, srv, http.MethodGet, "/")
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Regexp(t, `var rendered =\s*1\s*;`, body)
	assert.Contains(t, body, "ev.tick > rendered")
	assert.NotContains(t, body, "addEventListener('hello'")
}
