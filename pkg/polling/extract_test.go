package polling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"ServingDashboard/pkg/services"
)

func TestExtractQuota(t *testing.T) {
	values := ExtractQuota(newFakeCluster().containers, 100000)

	assert.Equal(t, map[string]float64{
		"resnet_0123456789ab": 2.0,
		"bert_abcdef":         0.5,
	}, values[FamilyQuota])
}

func TestExtractModelMetrics(t *testing.T) {
	rows := newFakeCluster().metrics
	values := ExtractModelMetrics(rows, 2*time.Second)

	assert.Equal(t, map[string]float64{"resnet": 0.12}, values[FamilyResponseTime])
	assert.Equal(t, 10.0, values[FamilyCreated]["resnet"])
	assert.Equal(t, 5.0, values[FamilyCompleted]["resnet"])
	assert.Equal(t, 2.0, values[FamilyOnGPU]["resnet"])
	assert.Equal(t, 0.0, values[FamilyCreated]["bert"])
}

func TestExtractModelMetricsFallsBackToTotals(t *testing.T) {
	rows := []services.ModelMetrics{{
		Model:  "m",
		Totals: &services.WindowMetrics{Created: 8},
	}, {
		Model: "empty",
	}}
	values := ExtractModelMetrics(rows, 4*time.Second)
	assert.Equal(t, map[string]float64{"m": 2}, values[FamilyCreated])
}

func TestFromTs(t *testing.T) {
	now := time.UnixMilli(1_700_000_010_500)
	assert.InDelta(t, 1_700_000_008.5, FromTs(now, 2*time.Second), 1e-6)
}

func TestValuesSet(t *testing.T) {
	v := make(Values)
	v.Set("a", "x", 1)
	v.Set("a", "y", 2)
	assert.Equal(t, Values{"a": {"x": 1, "y": 2}}, v)
}
