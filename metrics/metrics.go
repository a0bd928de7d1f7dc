// Package metrics collects per-run pipeline counters and pushes them to a
// Prometheus Pushgateway.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"inventory-sync/models"
)

const namespace = "inventory_sync"

// Pipeline holds the counters of one invocation. A nil *Pipeline is valid
// and records nothing.
type Pipeline struct {
	registry *prometheus.Registry

	classified    prometheus.Counter
	dropped       *prometheus.CounterVec
	reclaimed     *prometheus.CounterVec
	allocated     *prometheus.CounterVec
	submissions   *prometheus.CounterVec
	remoteDeletes *prometheus.CounterVec
	unconfirmed   *prometheus.GaugeVec
	lastRun       prometheus.Gauge
	runDuration   prometheus.Gauge
}

// NewPipeline registers every metric on a private registry.
func NewPipeline() *Pipeline {
	p := &Pipeline{registry: prometheus.NewRegistry()}

	p.classified = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "listings_classified_total",
		Help:      "Listings resolved to a taxonomy path.",
	})
	p.dropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "listings_unclassified_total",
		Help:      "Listings the classifier dropped, by reason.",
	}, []string{"reason"})
	p.reclaimed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "listings_reclaimed_total",
		Help:      "Listings returned to the unassigned pool.",
	}, []string{"region", "category"})
	p.allocated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "listings_allocated_total",
		Help:      "Listings newly assigned to an account.",
	}, []string{"region", "category"})
	p.submissions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "submissions_total",
		Help:      "Listing submissions by outcome.",
	}, []string{"account", "result"})
	p.remoteDeletes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "remote_deletions_total",
		Help:      "Remote rows deleted during reconciliation.",
	}, []string{"account"})
	p.unconfirmed = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "listings_unconfirmed",
		Help:      "Assigned listings not yet found on the remote platform after sync.",
	}, []string{"account"})
	p.lastRun = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix time the run finished.",
	})
	p.runDuration = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "run_duration_seconds",
		Help:      "Wall time of the run.",
	})

	p.registry.MustRegister(p.classified, p.dropped, p.reclaimed, p.allocated,
		p.submissions, p.remoteDeletes, p.unconfirmed, p.lastRun, p.runDuration)
	return p
}

// Registry exposes the underlying registry.
func (p *Pipeline) Registry() *prometheus.Registry {
	if p == nil {
		return nil
	}
	return p.registry
}

func (p *Pipeline) ObserveClassification(classified int, dropped []models.Unclassified) {
	if p == nil {
		return
	}
	p.classified.Add(float64(classified))
	for _, d := range dropped {
		p.dropped.WithLabelValues(string(d.Reason)).Inc()
	}
}

func (p *Pipeline) ObserveRegion(s *models.RegionSummary) {
	if p == nil || s == nil {
		return
	}
	for c, n := range s.Reclaimed {
		p.reclaimed.WithLabelValues(s.Region, string(c)).Add(float64(n))
	}
	for c, n := range s.Allocated {
		p.allocated.WithLabelValues(s.Region, string(c)).Add(float64(n))
	}
}

func (p *Pipeline) ObserveSubmission(account string, ok bool) {
	if p == nil {
		return
	}
	result := "failed"
	if ok {
		result = "submitted"
	}
	p.submissions.WithLabelValues(account, result).Inc()
}

func (p *Pipeline) ObserveRemoteDeletes(account string, n int) {
	if p == nil || n == 0 {
		return
	}
	p.remoteDeletes.WithLabelValues(account).Add(float64(n))
}

func (p *Pipeline) SetUnconfirmed(account string, n int) {
	if p == nil {
		return
	}
	p.unconfirmed.WithLabelValues(account).Set(float64(n))
}

// Finish records the run duration and completion time.
func (p *Pipeline) Finish(started time.Time) {
	if p == nil {
		return
	}
	now := time.Now()
	p.runDuration.Set(now.Sub(started).Seconds())
	p.lastRun.Set(float64(now.Unix()))
}

// Push sends the registry to a Pushgateway grouped by job and run id.
func (p *Pipeline) Push(ctx context.Context, gatewayURL, job, runID string) error {
	if p == nil || gatewayURL == "" {
		return nil
	}
	err := push.New(gatewayURL, job).
		Gatherer(p.registry).
		Grouping("run_id", runID).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("metrics: push to %s: %w", gatewayURL, err)
	}
	return nil
}
