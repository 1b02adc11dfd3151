package routing

import (
	"sync"
	"time"
)

// Stats is a snapshot of the engine's running counters. Spam-blocked routes
// count toward TotalProcessed but neither SuccessfulRoutes nor FailedRoutes.
type Stats struct {
	TotalProcessed          int64   `json:"total_processed"`
	SuccessfulRoutes        int64   `json:"successful_routes"`
	FailedRoutes            int64   `json:"failed_routes"`
	SpamBlocked             int64   `json:"spam_blocked"`
	CommandsHandled         int64   `json:"commands_handled"`
	RateLimited             int64   `json:"rate_limited"`
	AnonymousRoutes         int64   `json:"anonymous_routes"`
	AverageProcessingTimeMs float64 `json:"average_processing_time_ms"`
}

// statsRecorder guards Stats with one mutex so the counters and the running
// mean always move together.
type statsRecorder struct {
	mu    sync.Mutex
	stats Stats
}

func (r *statsRecorder) record(outcome Outcome, anonymous bool, elapsed time.Duration) {
	ms := float64(elapsed) / float64(time.Millisecond)

	r.mu.Lock()
	defer r.mu.Unlock()

	s := &r.stats
	s.TotalProcessed++
	switch outcome {
	case OutcomeSuccess:
		s.SuccessfulRoutes++
	case OutcomeCommand:
		s.SuccessfulRoutes++
		s.CommandsHandled++
	case OutcomeSpamBlocked:
		s.SpamBlocked++
	case OutcomeRateLimited:
		s.FailedRoutes++
		s.RateLimited++
	default:
		s.FailedRoutes++
	}
	if anonymous {
		s.AnonymousRoutes++
	}
	// Incremental mean: no sample history is kept.
	s.AverageProcessingTimeMs += (ms - s.AverageProcessingTimeMs) / float64(s.TotalProcessed)
}

func (r *statsRecorder) snapshot() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}
