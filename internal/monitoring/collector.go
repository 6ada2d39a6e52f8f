package monitoring

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rotisserie/eris"

	"github.com/sells-group/retrieval-cli/internal/model"
	"github.com/sells-group/retrieval-cli/internal/store"
	"github.com/sells-group/retrieval-cli/internal/view"
)

var (
	worklistAttempts = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "retrieval",
			Subsystem: "worklist",
			Name:      "attempts",
			Help:      "Attempts in research by days-in-research bucket.",
		},
		[]string{"bucket"},
	)

	worklistOverdue = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "retrieval",
		Subsystem: "worklist",
		Name:      "overdue",
		Help:      "Attempts in research past the SLA.",
	})
)

// Snapshot holds a point-in-time view of the research worklist.
type Snapshot struct {
	InResearch int                 `json:"in_research"`
	Overdue    int                 `json:"overdue"`
	ByBucket   map[view.Bucket]int `json:"by_bucket"`

	// OldestID and OldestDays describe the longest-waiting attempt.
	OldestID   string `json:"oldest_id,omitempty"`
	OldestDays int    `json:"oldest_days"`

	SLADays     int       `json:"sla_days"`
	CollectedAt time.Time `json:"collected_at"`
}

// Collector gathers worklist health from the store.
type Collector struct {
	store   store.Store
	slaDays int
	now     func() time.Time
}

// NewCollector creates a collector that measures overdue attempts against
// slaDays.
func NewCollector(st store.Store, slaDays int) *Collector {
	return &Collector{store: st, slaDays: slaDays, now: time.Now}
}

// Collect gathers a snapshot and updates the worklist gauges.
func (c *Collector) Collect(ctx context.Context) (*Snapshot, error) {
	attempts, err := c.store.ListAttempts(ctx, store.AttemptFilter{
		Statuses: []model.Status{model.StatusResearch},
	})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list attempts")
	}

	now := c.now()
	snap := &Snapshot{
		InResearch:  len(attempts),
		ByBucket:    make(map[view.Bucket]int, len(view.Buckets)-1),
		SLADays:     c.slaDays,
		CollectedAt: now.UTC(),
	}
	for _, b := range view.Buckets[1:] {
		snap.ByBucket[b] = 0
	}

	for _, a := range attempts {
		days := model.DaysInResearch(now, a.LastActionAt)
		if model.IsOverdue(now, a.LastActionAt, c.slaDays) {
			snap.Overdue++
		}
		for _, b := range view.Buckets[1:] {
			if b.Contains(days) {
				snap.ByBucket[b]++
			}
		}
		if snap.OldestID == "" || days > snap.OldestDays {
			snap.OldestID = a.ID
			snap.OldestDays = days
		}
	}

	for b, n := range snap.ByBucket {
		worklistAttempts.WithLabelValues(string(b)).Set(float64(n))
	}
	worklistOverdue.Set(float64(snap.Overdue))

	return snap, nil
}
