// Package metrics records one-shot, timestamp-based measurements of the session:
// how long until the tree first had data (time to interaction) and how long between
// consecutive result deliveries (last-sync latency).
package metrics

import (
	"sync"
	"time"

	"arbor-cli/internal/logging"

	"github.com/sirupsen/logrus"
)

const (
	TimeToInteraction = "time_to_interaction"
)

type Tracker struct {
	mu       sync.Mutex
	now      func() time.Time
	start    time.Time
	measured map[string]time.Duration
	lastSync time.Time
	latency  time.Duration
	syncs    int
	log      logrus.FieldLogger
}

// Snapshot is a copy of everything recorded so far.
type Snapshot struct {
	Start           time.Time                `json:"start" yaml:"start"`
	Measured        map[string]time.Duration `json:"measured" yaml:"measured"`
	LastSync        time.Time                `json:"lastSync,omitempty" yaml:"lastSync,omitempty"`
	LastSyncLatency time.Duration            `json:"lastSyncLatency" yaml:"lastSyncLatency"`
	Syncs           int                      `json:"syncs" yaml:"syncs"`
}

func New(log logrus.FieldLogger) *Tracker {
	if log == nil {
		log = logging.Discard()
	}
	return &Tracker{now: time.Now, measured: map[string]time.Duration{}, log: log}
}

// RegisterStart marks the reference point for MeasureOnce. Later calls reset it.
func (t *Tracker) RegisterStart() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.start = t.now()
}

// MeasureOnce records the time since RegisterStart under name the first time it is
// called for that name. It reports false (and records nothing) on later calls or
// before RegisterStart.
func (t *Tracker) MeasureOnce(name string) (time.Duration, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.start.IsZero() {
		return 0, false
	}
	if _, done := t.measured[name]; done {
		return 0, false
	}
	d := t.now().Sub(t.start)
	t.measured[name] = d
	t.log.WithFields(logrus.Fields{"metric": name, "ms": d.Milliseconds()}).Info("metric measured")
	return d, true
}

// RegisterLastSync records that fresh data arrived and returns the time since the
// previous registration (zero on the first).
func (t *Tracker) RegisterLastSync() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	var d time.Duration
	if !t.lastSync.IsZero() {
		d = now.Sub(t.lastSync)
	}
	t.lastSync = now
	t.latency = d
	t.syncs++
	t.log.WithFields(logrus.Fields{"syncs": t.syncs, "sinceLastMs": d.Milliseconds()}).Debug("data refreshed")
	return d
}

func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	m := make(map[string]time.Duration, len(t.measured))
	for k, v := range t.measured {
		m[k] = v
	}
	return Snapshot{
		Start:           t.start,
		Measured:        m,
		LastSync:        t.lastSync,
		LastSyncLatency: t.latency,
		Syncs:           t.syncs,
	}
}
