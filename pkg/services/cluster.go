package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

// Component names.
const (
	Orchestrator = "orchestrator"
	Containers   = "containers_manager"
	Requests     = "requests_store"
	Controller   = "controller"
	Dispatcher   = "dispatcher"
)

// DefaultMaxRequests bounds the requests table.
const DefaultMaxRequests = 300

// Endpoints holds the base URL of every component.
type Endpoints struct {
	Orchestrator string
	Containers   string
	Requests     string
	Controller   string
	Dispatcher   string
}

// Cluster groups the clients of the five components.
type Cluster struct {
	Orchestrator *Client
	Containers   *Client
	Requests     *Client
	Controller   *Client
	Dispatcher   *Client

	// TFSGPU selects the orchestrator's TF Serving configuration document.
	TFSGPU int
}

// NewCluster creates clients for every endpoint.
func NewCluster(ep Endpoints, timeout time.Duration) (*Cluster, error) {
	c := &Cluster{}
	for _, t := range []struct {
		name string
		url  string
		dst  **Client
	}{
		{Orchestrator, ep.Orchestrator, &c.Orchestrator},
		{Containers, ep.Containers, &c.Containers},
		{Requests, ep.Requests, &c.Requests},
		{Controller, ep.Controller, &c.Controller},
		{Dispatcher, ep.Dispatcher, &c.Dispatcher},
	} {
		cl, err := NewClient(t.name, t.url, timeout)
		if err != nil {
			return nil, err
		}
		*t.dst = cl
	}
	return c, nil
}

// Clients returns the component clients in display order.
func (c *Cluster) Clients() []*Client {
	return []*Client{c.Orchestrator, c.Containers, c.Requests, c.Controller, c.Dispatcher}
}

// Models lists the deployed models.
func (c *Cluster) Models(ctx context.Context) ([]Model, error) {
	var out []Model
	if err := c.Containers.GetJSON(ctx, "/models", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ContainerList lists the model containers.
func (c *Cluster) ContainerList(ctx context.Context) ([]Container, error) {
	var out []Container
	if err := c.Containers.GetJSON(ctx, "/containers", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ModelMetrics returns per-model request metrics since fromTs (epoch seconds).
func (c *Cluster) ModelMetrics(ctx context.Context, fromTs float64) ([]ModelMetrics, error) {
	q := url.Values{}
	q.Set("from_ts", strconv.FormatFloat(fromTs, 'f', 3, 64))
	var out []ModelMetrics
	if err := c.Requests.GetJSON(ctx, "/metrics/model", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// RequestsTable returns the newest requests, at most maxReqs.
func (c *Cluster) RequestsTable(ctx context.Context, maxReqs int) (json.RawMessage, error) {
	if maxReqs <= 0 {
		maxReqs = DefaultMaxRequests
	}
	q := url.Values{}
	q.Set("max_reqs", strconv.Itoa(maxReqs))
	return c.Requests.Raw(ctx, "/requests", q)
}

// ResetRequests clears the requests store.
func (c *Cluster) ResetRequests(ctx context.Context) error {
	if _, err := c.Requests.Do(ctx, http.MethodDelete, "/requests", nil); err != nil {
		return fmt.Errorf("reset requests: %w", err)
	}
	return nil
}

// ModelMetricsTable returns the all-time per-model metrics.
func (c *Cluster) ModelMetricsTable(ctx context.Context) (json.RawMessage, error) {
	return c.Requests.Raw(ctx, "/metrics/model", nil)
}

// ContainerMetricsTable returns the per-container metrics.
func (c *Cluster) ContainerMetricsTable(ctx context.Context) (json.RawMessage, error) {
	return c.Requests.Raw(ctx, "/metrics/container", nil)
}

// ControllerLogs returns the controller's allocation log.
func (c *Cluster) ControllerLogs(ctx context.Context) (json.RawMessage, error) {
	return c.Controller.Raw(ctx, "/logs", nil)
}
