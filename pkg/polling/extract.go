package polling

import (
	"time"

	"ServingDashboard/pkg/services"
)

// Family names.
const (
	FamilyResponseTime = "rt"
	FamilyCreated      = "created"
	FamilyCompleted    = "completed"
	FamilyOnGPU        = "on_gpu"
	FamilyQuota        = "quota"
)

// SLASuffix marks the reference series of a model's response-time target.
const SLASuffix = "_SLA"

// ExcludedModel is the pseudo-model the containers manager reports for
// unassigned containers.
const ExcludedModel = "all"

// RatePerSecond normalises a per-window count to a per-second rate.
func RatePerSecond(raw float64, window time.Duration) float64 {
	return raw / window.Seconds()
}

// FromTs returns the lower bound of the window ending at now, in epoch seconds.
func FromTs(now time.Time, window time.Duration) float64 {
	return float64(now.Add(-window).UnixMilli()) / 1000
}

// ExtractModelMetrics maps /metrics/model rows onto the response-time and
// request-rate families, keyed by model name. A null average leaves the
// response time out so it is recorded as absent.
func ExtractModelMetrics(rows []services.ModelMetrics, window time.Duration) Values {
	out := make(Values)
	for _, row := range rows {
		w := row.Window()
		if w == nil || row.Model == "" {
			continue
		}
		if w.Avg != nil {
			out.Set(FamilyResponseTime, row.Model, *w.Avg)
		}
		out.Set(FamilyCreated, row.Model, RatePerSecond(w.Created, window))
		out.Set(FamilyCompleted, row.Model, RatePerSecond(w.Completed, window))
		out.Set(FamilyOnGPU, row.Model, RatePerSecond(w.OnGPU, window))
	}
	return out
}

// ContainerKey is the quota series key of a container.
func ContainerKey(model, containerID string) string {
	return model + "_" + services.ShortID(containerID)
}

// ExtractQuota maps /containers rows to core counts keyed by ContainerKey.
func ExtractQuota(rows []services.Container, divisor float64) Values {
	out := make(Values)
	for _, c := range rows {
		if c.Model == ExcludedModel || c.ContainerID == "" {
			continue
		}
		out.Set(FamilyQuota, ContainerKey(c.Model, c.ContainerID), c.Quota/divisor)
	}
	return out
}
