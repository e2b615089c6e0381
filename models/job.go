package models

import "time"

// JobStatus is the lifecycle state of an analysis job
type JobStatus string

const (
	JobQueued  JobStatus = "queued"
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
	JobFailed  JobStatus = "failed"
)

// Strategy selects how reviews are pulled off the feed
type Strategy string

const (
	// StrategyScrollCopy scrolls to convergence then parses one HTML snapshot
	StrategyScrollCopy Strategy = "scroll_copy"
	// StrategyInteractive reads fields element by element from the live page
	StrategyInteractive Strategy = "interactive"
)

// ParseStrategy maps user-supplied aliases onto a Strategy
func ParseStrategy(s string) (Strategy, bool) {
	switch s {
	case "", "scroll_copy", "scroll_and_copy", "snapshot", "html_snapshot":
		return StrategyScrollCopy, true
	case "interactive", "current", "legacy", "expand_click":
		return StrategyInteractive, true
	}
	return "", false
}

// JobEvent is one progress marker appended while a job runs
type JobEvent struct {
	Stage   string    `json:"stage"`
	Message string    `json:"message,omitempty"`
	Time    time.Time `json:"time"`
}

// AnalysisJob is a queued request to scrape and analyze one business
type AnalysisJob struct {
	ID         string     `json:"id"`
	Query      string     `json:"query"`
	Source     string     `json:"source"`
	Strategy   Strategy   `json:"strategy"`
	Force      bool       `json:"force"`
	MaxReviews int        `json:"max_reviews,omitempty"`
	Status     JobStatus  `json:"status"`
	Attempts   int        `json:"attempts"`
	Error      string     `json:"error,omitempty"`
	BusinessID string     `json:"business_id,omitempty"`
	AnalysisID string     `json:"analysis_id,omitempty"`
	Events     []JobEvent `json:"events,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}
