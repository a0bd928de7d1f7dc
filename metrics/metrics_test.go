package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inventory-sync/models"
)

func counterValue(t *testing.T, p *Pipeline, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := p.Registry().Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			if matchLabels(m, labels) {
				if m.GetCounter() != nil {
					return m.GetCounter().GetValue()
				}
				return m.GetGauge().GetValue()
			}
		}
	}
	return 0
}

func matchLabels(m *dto.Metric, want map[string]string) bool {
	got := make(map[string]string, len(m.GetLabel()))
	for _, l := range m.GetLabel() {
		got[l.GetName()] = l.GetValue()
	}
	for k, v := range want {
		if got[k] != v {
			return false
		}
	}
	return true
}

func TestPipelineCountsDropsByReason(t *testing.T) {
	p := NewPipeline()
	p.ObserveClassification(7, []models.Unclassified{
		{Reason: models.DropUnknownCategory},
		{Reason: models.DropUnknownCategory},
		{Reason: models.DropSegmentMismatch},
	})

	assert.Equal(t, 7.0, counterValue(t, p, "inventory_sync_listings_classified_total", nil))
	assert.Equal(t, 2.0, counterValue(t, p, "inventory_sync_listings_unclassified_total",
		map[string]string{"reason": "unknown_category"}))
	assert.Equal(t, 1.0, counterValue(t, p, "inventory_sync_listings_unclassified_total",
		map[string]string{"reason": "segment_mismatch"}))
}

func TestPipelineObservesRegion(t *testing.T) {
	p := NewPipeline()
	p.ObserveRegion(&models.RegionSummary{
		Region:    "ansan",
		Reclaimed: map[models.Category]int{models.CategoryImported: 2},
		Allocated: map[models.Category]int{models.CategoryDomestic: 20, models.CategoryImported: 5},
	})

	assert.Equal(t, 2.0, counterValue(t, p, "inventory_sync_listings_reclaimed_total",
		map[string]string{"region": "ansan", "category": "imported"}))
	assert.Equal(t, 20.0, counterValue(t, p, "inventory_sync_listings_allocated_total",
		map[string]string{"region": "ansan", "category": "domestic"}))
}

func TestNilPipelineIsNoop(t *testing.T) {
	var p *Pipeline
	p.ObserveSubmission("a", true)
	p.ObserveRemoteDeletes("a", 3)
	p.SetUnconfirmed("a", 1)
	p.Finish(time.Now())
	assert.NoError(t, p.Push(context.Background(), "http://unused", "job", "run"))
}

func TestPipelinePush(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewPipeline()
	p.ObserveSubmission("seller-a", true)
	p.Finish(time.Now().Add(-time.Second))

	require.NoError(t, p.Push(context.Background(), srv.URL, "inventory-sync-sync", "run-1"))
	assert.True(t, strings.HasPrefix(gotPath, "/metrics/job/inventory-sync-sync"), gotPath)
	assert.Contains(t, gotPath, "run_id/run-1")
}
