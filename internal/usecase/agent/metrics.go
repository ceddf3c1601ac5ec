package agent

import (
	"sync"
	"time"

	"salesintel/internal/domain"
)

// Metrics is the per-instance performance accumulator.
//
// The average is recency weighted: the first sample is taken as-is and each
// later sample is averaged with the running value, (avg + t) / 2. This is not
// a cumulative mean across more than two samples.
type Metrics struct {
	mu           sync.Mutex
	successes    int
	errors       int
	avg          time.Duration
	lastActivity time.Time
	now          func() time.Time
}

// NewMetrics returns an empty accumulator.
func NewMetrics() *Metrics {
	return &Metrics{now: time.Now}
}

// RecordSuccess folds one successful execution time into the accumulator.
func (m *Metrics) RecordSuccess(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.successes++
	m.lastActivity = m.now()
	if m.avg == 0 {
		m.avg = d
	} else {
		m.avg = (m.avg + d) / 2
	}
}

// RecordFailure counts one failed execution.
func (m *Metrics) RecordFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors++
}

// Snapshot returns a copy of the accumulator.
func (m *Metrics) Snapshot() domain.PerformanceSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return domain.PerformanceSnapshot{
		TotalOperations:      m.successes + m.errors,
		SuccessCount:         m.successes,
		ErrorCount:           m.errors,
		AverageExecutionTime: m.avg,
		SuccessRate:          successRate(m.successes, m.errors),
		LastActivity:         m.lastActivity,
	}
}

func successRate(successes, errors int) float64 {
	total := successes + errors
	if total == 0 {
		return 100
	}
	return float64(successes) / float64(total) * 100
}
