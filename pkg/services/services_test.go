package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeComponent(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	deletes := &atomic.Int32{}
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"status":"active"}`))
	})
	mux.HandleFunc("/models", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"name":"resnet","version":1,"sla":0.4,"alpha":1,"profiled_rt":null}]`))
	})
	mux.HandleFunc("/containers", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"model":"resnet","container_id":"abcdef0123456789","node":"n1","quota":200000}]`))
	})
	mux.HandleFunc("/metrics/model", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("from_ts") == "" {
			_, _ = w.Write([]byte(`[{"model":"resnet","version":1,"metrics":{"completed":10}}]`))
			return
		}
		_, _ = w.Write([]byte(`[{"model":"resnet","version":1,"metrics_from_ts":{"created":4,"completed":2,"on_gpu":1,"avg":null}}]`))
	})
	mux.HandleFunc("/requests", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			deletes.Add(1)
			_, _ = w.Write([]byte(`{"result":"ok"}`))
			return
		}
		assert.Equal(t, "300", r.URL.Query().Get("max_reqs"))
		_, _ = w.Write([]byte(`[{"id":"1"}]`))
	})
	mux.HandleFunc("/configuration", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"configuration":{"sampling":2}}`))
	})
	mux.HandleFunc("/configuration/k8s/deployment", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"configuration":"kind: Deployment"}`))
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, deletes
}

func newTestCluster(t *testing.T, url, dispatcher string) *Cluster {
	t.Helper()
	c, err := NewCluster(Endpoints{
		Orchestrator: url,
		Containers:   url,
		Requests:     url,
		Controller:   url,
		Dispatcher:   dispatcher,
	}, time.Second)
	require.NoError(t, err)
	return c
}

func TestNewClientRejectsBadURL(t *testing.T) {
	_, err := NewClient("x", "localhost", time.Second)
	assert.Error(t, err)
	_, err = NewClient("x", "http://host:5000/", time.Second)
	assert.NoError(t, err)
}

func TestDiscoveryFetches(t *testing.T) {
	srv, _ := fakeComponent(t)
	c := newTestCluster(t, srv.URL, srv.URL)
	ctx := context.Background()

	models, err := c.Models(ctx)
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Equal(t, "resnet", models[0].Name)
	assert.Equal(t, 0.4, models[0].SLA)
	assert.Nil(t, models[0].ProfiledRT)

	containers, err := c.ContainerList(ctx)
	require.NoError(t, err)
	require.Len(t, containers, 1)
	assert.Equal(t, "abcdef012345", containers[0].ShortID())
	assert.Equal(t, 200000.0, containers[0].Quota)

	table, err := c.ContainersTable(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abcdef012345", table[0].ContainerID)
}

func TestModelMetricsNullAvg(t *testing.T) {
	srv, _ := fakeComponent(t)
	c := newTestCluster(t, srv.URL, srv.URL)

	metrics, err := c.ModelMetrics(context.Background(), 1700000000.5)
	require.NoError(t, err)
	require.Len(t, metrics, 1)
	w := metrics[0].Window()
	require.NotNil(t, w)
	assert.Nil(t, w.Avg)
	assert.Equal(t, 4.0, w.Created)
	assert.Equal(t, 1.0, w.OnGPU)
}

func TestTablesAndReset(t *testing.T) {
	srv, deletes := fakeComponent(t)
	c := newTestCluster(t, srv.URL, srv.URL)
	ctx := context.Background()

	raw, err := c.RequestsTable(ctx, 0)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"1"}]`, string(raw))

	raw, err = c.ModelMetricsTable(ctx)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"completed":10`)

	require.NoError(t, c.ResetRequests(ctx))
	assert.Equal(t, int32(1), deletes.Load())

	_, err = c.ControllerLogs(ctx)
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
	assert.Equal(t, "status", Reason(err))

	_, err = c.Requests.Raw(ctx, "/broken", nil)
	assert.ErrorIs(t, err, ErrDecode)
	assert.Equal(t, "decode", Reason(err))
}

func TestStatusBoardPlaceholder(t *testing.T) {
	srv, _ := fakeComponent(t)
	down := httptest.NewServer(http.NotFoundHandler())
	downURL := down.URL
	down.Close()

	c := newTestCluster(t, srv.URL, downURL)
	board := c.StatusBoard(context.Background())
	require.Len(t, board, 5)

	for _, row := range board[:4] {
		assert.Equal(t, "active", row.Status, row.Service)
	}
	assert.Equal(t, Dispatcher, board[4].Service)
	assert.Equal(t, Placeholder, board[4].Status)
	assert.NotEmpty(t, board[4].Error)
	assert.Equal(t, "transport", Reason(assertErr(t, c.Dispatcher)))
}

func assertErr(t *testing.T, c *Client) error {
	t.Helper()
	_, err := c.Status(context.Background())
	require.Error(t, err)
	return err
}

func TestConfigurationBoard(t *testing.T) {
	srv, _ := fakeComponent(t)
	c := newTestCluster(t, srv.URL, srv.URL)

	docs := c.ConfigurationBoard(context.Background())
	require.Len(t, docs, 7)

	byDoc := map[string]ConfigDocument{}
	for _, d := range docs {
		byDoc[d.Service+"/"+d.Document] = d
	}
	assert.JSONEq(t, `"?"`, string(byDoc[Orchestrator+"/tfs"].Configuration))
	assert.NotEmpty(t, byDoc[Orchestrator+"/tfs"].Error)
	assert.JSONEq(t, `"kind: Deployment"`, string(byDoc[Orchestrator+"/k8s_deployment"].Configuration))
	assert.JSONEq(t, `{"sampling":2}`, string(byDoc[Dispatcher+"/configuration"].Configuration))
}

func TestReasonTimeout(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer slow.Close()

	cl, err := NewClient("slow", slow.URL, 0)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = cl.Status(ctx)
	require.Error(t, err)
	assert.Equal(t, "timeout", Reason(err))
}
