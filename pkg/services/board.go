package services

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"
)

// Placeholder is shown for any status or configuration that could not be fetched.
const Placeholder = "?"

// ServiceStatus is one row of the status board.
type ServiceStatus struct {
	Service string `json:"service"`
	URL     string `json:"url"`
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
}

// StatusBoard fetches GET / of every component concurrently. Failures show
// the placeholder and never fail the board.
func (c *Cluster) StatusBoard(ctx context.Context) []ServiceStatus {
	clients := c.Clients()
	out := make([]ServiceStatus, len(clients))

	var g errgroup.Group
	for i, cl := range clients {
		i, cl := i, cl
		g.Go(func() error {
			row := ServiceStatus{Service: cl.Name(), URL: cl.URL(), Status: Placeholder}
			if s, err := cl.Status(ctx); err != nil {
				row.Error = err.Error()
			} else {
				row.Status = s
			}
			out[i] = row
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// ConfigDocument is one configuration text of the configuration board.
type ConfigDocument struct {
	Service       string          `json:"service"`
	Document      string          `json:"document"`
	Configuration json.RawMessage `json:"configuration"`
	Error         string          `json:"error,omitempty"`
}

type configSource struct {
	client   *Client
	document string
	path     string
}

func (c *Cluster) configSources() []configSource {
	return []configSource{
		{c.Orchestrator, "tfs", fmt.Sprintf("/configuration/tfs/%d", c.TFSGPU)},
		{c.Orchestrator, "k8s_deployment", "/configuration/k8s/deployment"},
		{c.Orchestrator, "k8s_service", "/configuration/k8s/service"},
		{c.Requests, "configuration", "/configuration"},
		{c.Controller, "configuration", "/configuration"},
		{c.Containers, "configuration", "/configuration"},
		{c.Dispatcher, "configuration", "/configuration"},
	}
}

// ConfigurationBoard fetches every configuration document concurrently.
func (c *Cluster) ConfigurationBoard(ctx context.Context) []ConfigDocument {
	sources := c.configSources()
	out := make([]ConfigDocument, len(sources))

	var g errgroup.Group
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			doc := ConfigDocument{Service: src.client.Name(), Document: src.document}
			cfg, err := src.client.Configuration(ctx, src.path)
			if err != nil {
				doc.Error = err.Error()
				doc.Configuration = json.RawMessage(`"` + Placeholder + `"`)
			} else {
				doc.Configuration = cfg
			}
			out[i] = doc
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// ContainersTable lists containers with ids cut to their short form.
func (c *Cluster) ContainersTable(ctx context.Context) ([]Container, error) {
	list, err := c.ContainerList(ctx)
	if err != nil {
		return nil, err
	}
	for i := range list {
		list[i].ContainerID = list[i].ShortID()
	}
	return list, nil
}
