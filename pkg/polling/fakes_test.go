package polling

import (
	"context"
	"errors"
	"sync"

	"ServingDashboard/pkg/services"
)

var errFake = errors.New("connection refused")

func ptr(v float64) *float64 { return &v }

// fakeCluster serves canned responses and can be told to fail the next calls.
type fakeCluster struct {
	mu         sync.Mutex
	metrics    []services.ModelMetrics
	models     []services.Model
	containers []services.Container
	failNext   int
	block      chan struct{}
	fromTs     []float64
}

func (f *fakeCluster) fail() error {
	if f.failNext > 0 {
		f.failNext--
		return errFake
	}
	return nil
}

func (f *fakeCluster) ModelMetrics(ctx context.Context, fromTs float64) ([]services.ModelMetrics, error) {
	f.mu.Lock()
	block := f.block
	f.fromTs = append(f.fromTs, fromTs)
	err := f.fail()
	rows := f.metrics
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return rows, err
}

func (f *fakeCluster) Models(context.Context) ([]services.Model, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.models, nil
}

func (f *fakeCluster) ContainerList(context.Context) ([]services.Container, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.containers, nil
}

func (f *fakeCluster) setFail(n int) {
	f.mu.Lock()
	f.failNext = n
	f.mu.Unlock()
}

func metricsRow(model string, avg *float64, created, completed, onGPU float64) services.ModelMetrics {
	return services.ModelMetrics{
		Model: model,
		FromTs: &services.WindowMetrics{
			Created:   created,
			Completed: completed,
			OnGPU:     onGPU,
			Avg:       avg,
		},
	}
}

func newFakeCluster() *fakeCluster {
	return &fakeCluster{
		metrics: []services.ModelMetrics{
			metricsRow("resnet", ptr(0.12), 20, 10, 4),
			metricsRow("bert", nil, 0, 0, 0),
		},
		models: []services.Model{
			{Name: "resnet", SLA: 0.5},
			{Name: "bert", SLA: 1.2},
		},
		containers: []services.Container{
			{Model: "resnet", ContainerID: "0123456789abcdef0123", Quota: 200000},
			{Model: "all", ContainerID: "ffffffffffffffff", Quota: 100000},
			{Model: "bert", ContainerID: "abcdef", Quota: 50000},
		},
	}
}
