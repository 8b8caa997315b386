package campaign

import (
	"fmt"
	"slices"
	"time"
)

// Status is the outcome of one send.
type Status string

const (
	StatusSent   Status = "sent"
	StatusFailed Status = "failed"
)

// SendResult is the outcome for one contact row.
type SendResult struct {
	SentAt    time.Time `json:"sent_at"`
	Recipient string    `json:"recipient"`
	Status    Status    `json:"status"`
	Detail    string    `json:"detail,omitempty"`
	Index     int       `json:"index"`
	Attempts  int       `json:"attempts"`
}

// Err returns an error matching ErrSend for a failed result, nil otherwise.
func (r SendResult) Err() error {
	if r.Status != StatusFailed {
		return nil
	}
	return fmt.Errorf("%w: %s: %s", ErrSend, r.Recipient, r.Detail)
}

// State is the lifecycle stage of a campaign.
type State string

const (
	StateScheduled State = "scheduled"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateCanceled  State = "canceled"
)

// Finished reports whether the state is terminal.
func (s State) Finished() bool {
	return s == StateCompleted || s == StateCanceled
}

// Report is a point-in-time view of a campaign.
type Report struct {
	CreatedAt  time.Time    `json:"created_at"`
	SendAt     *time.Time   `json:"send_at,omitempty"`
	StartedAt  *time.Time   `json:"started_at,omitempty"`
	FinishedAt *time.Time   `json:"finished_at,omitempty"`
	ID         string       `json:"id"`
	State      State        `json:"state"`
	Results    []SendResult `json:"results"`
	Skipped    []int        `json:"skipped,omitempty"`
	Log        []Entry      `json:"log"`
	Total      int          `json:"total"`
	Sent       int          `json:"sent"`
	Failed     int          `json:"failed"`
}

// Statuses returns the result statuses in input order.
func (r Report) Statuses() []Status {
	out := make([]Status, len(r.Results))
	for i, res := range r.Results {
		out[i] = res.Status
	}
	return out
}

// Pending returns how many rows have not been attempted yet.
func (r Report) Pending() int {
	return r.Total - len(r.Results)
}

func (r Report) clone() Report {
	r.Results = slices.Clone(r.Results)
	r.Skipped = slices.Clone(r.Skipped)
	r.Log = slices.Clone(r.Log)
	return r
}

func timePtr(t time.Time) *time.Time {
	return &t
}
