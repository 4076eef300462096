package recorder

import "time"

// Query outcomes.
const (
	OutcomeOK          = "ok"
	OutcomeError       = "error"
	OutcomeRateLimited = "rate_limited"
	OutcomeNoMatch     = "no_match"
)

// QueryEvent is one journaled query.
type QueryEvent struct {
	ID       string
	Query    string
	Symbol   string
	Source   string
	Strategy string
	Outcome  string
	Error    string
	Duration time.Duration
	At       time.Time
}

// Recorder journals queries for the lifetime of the process.
type Recorder interface {
	RecordQuery(evt *QueryEvent) error
	Recent(limit int) ([]QueryEvent, error)
	Close() error
}
