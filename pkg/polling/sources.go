package polling

import (
	"context"
	"fmt"
	"time"

	"ServingDashboard/pkg/services"
)

// ModelMetricsFetcher fetches per-model request metrics since fromTs.
type ModelMetricsFetcher interface {
	ModelMetrics(ctx context.Context, fromTs float64) ([]services.ModelMetrics, error)
}

// ModelLister lists deployed models.
type ModelLister interface {
	Models(ctx context.Context) ([]services.Model, error)
}

// ContainerLister lists model containers.
type ContainerLister interface {
	ContainerList(ctx context.Context) ([]services.Container, error)
}

// ModelMetricsSource polls /metrics/model over a sliding window and feeds the
// response-time, created, completed and on-GPU families.
type ModelMetricsSource struct {
	fetcher ModelMetricsFetcher
	window  time.Duration
}

// NewModelMetricsSource creates the source; window is both the query window
// and the rate divisor.
func NewModelMetricsSource(f ModelMetricsFetcher, window time.Duration) *ModelMetricsSource {
	return &ModelMetricsSource{fetcher: f, window: window}
}

func (s *ModelMetricsSource) Name() string { return "model_metrics" }

func (s *ModelMetricsSource) Families() []FamilySpec {
	return []FamilySpec{
		{Name: FamilyResponseTime, Title: "Response time", Unit: "s"},
		{Name: FamilyCreated, Title: "Requests created", Unit: "req/s"},
		{Name: FamilyCompleted, Title: "Requests completed", Unit: "req/s"},
		{Name: FamilyOnGPU, Title: "Requests on GPU", Unit: "req/s"},
	}
}

// Discover registers every reported model in every family and seeds tick 0
// with the same extraction used for later samples.
func (s *ModelMetricsSource) Discover(ctx context.Context, now time.Time) (*Discovery, error) {
	rows, err := s.fetcher.ModelMetrics(ctx, FromTs(now, s.window))
	if err != nil {
		return nil, fmt.Errorf("discover models: %w", err)
	}
	d := NewDiscovery()
	for _, row := range rows {
		if row.Model == "" {
			continue
		}
		for _, f := range s.Families() {
			d.AddKey(f.Name, row.Model)
		}
	}
	d.Seed = ExtractModelMetrics(rows, s.window)
	return d, nil
}

func (s *ModelMetricsSource) Sample(ctx context.Context, now time.Time) (Values, error) {
	rows, err := s.fetcher.ModelMetrics(ctx, FromTs(now, s.window))
	if err != nil {
		return nil, err
	}
	return ExtractModelMetrics(rows, s.window), nil
}

// SLASource contributes one constant reference series per model to the
// response-time family. It is discovery-only.
type SLASource struct {
	lister ModelLister
}

func NewSLASource(l ModelLister) *SLASource { return &SLASource{lister: l} }

func (s *SLASource) Name() string           { return "sla" }
func (s *SLASource) Families() []FamilySpec { return nil }

func (s *SLASource) Discover(ctx context.Context, _ time.Time) (*Discovery, error) {
	models, err := s.lister.Models(ctx)
	if err != nil {
		return nil, fmt.Errorf("discover slas: %w", err)
	}
	d := NewDiscovery()
	for _, m := range models {
		if m.Name == "" {
			continue
		}
		d.References[FamilyResponseTime] = append(d.References[FamilyResponseTime], Reference{
			Key:   m.Name + SLASuffix,
			Value: m.SLA,
			HueOf: m.Name,
		})
	}
	return d, nil
}

func (s *SLASource) Sample(context.Context, time.Time) (Values, error) { return nil, nil }

// QuotaSource polls /containers and reports each container's CPU quota in cores.
type QuotaSource struct {
	lister  ContainerLister
	divisor float64
}

func NewQuotaSource(l ContainerLister, divisor float64) *QuotaSource {
	return &QuotaSource{lister: l, divisor: divisor}
}

func (s *QuotaSource) Name() string { return "quota" }

func (s *QuotaSource) Families() []FamilySpec {
	return []FamilySpec{{Name: FamilyQuota, Title: "Core quota", Unit: "cores"}}
}

func (s *QuotaSource) Discover(ctx context.Context, _ time.Time) (*Discovery, error) {
	rows, err := s.lister.ContainerList(ctx)
	if err != nil {
		return nil, fmt.Errorf("discover containers: %w", err)
	}
	d := NewDiscovery()
	for _, c := range rows {
		if c.Model == ExcludedModel || c.ContainerID == "" {
			continue
		}
		d.AddKey(FamilyQuota, ContainerKey(c.Model, c.ContainerID))
	}
	d.Seed = ExtractQuota(rows, s.divisor)
	return d, nil
}

func (s *QuotaSource) Sample(ctx context.Context, _ time.Time) (Values, error) {
	rows, err := s.lister.ContainerList(ctx)
	if err != nil {
		return nil, err
	}
	return ExtractQuota(rows, s.divisor), nil
}
