package campaign

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// EventType identifies a progress event.
type EventType string

const (
	EventScheduled EventType = "scheduled"
	EventStarted   EventType = "started"
	EventResult    EventType = "result"
	EventFinished  EventType = "finished"
)

// Event is a progress notification from a running campaign.
type Event struct {
	Time   time.Time   `json:"time"`
	Result *SendResult `json:"result,omitempty"`
	Type   EventType   `json:"type"`
	State  State       `json:"state"`
}

// Task is a handle to a detached campaign pass.
type Task struct {
	cancel context.CancelFunc
	done   chan struct{}
	events chan Event
	sink   Sink
	log    *Log
	report Report
	mu     sync.RWMutex
}

func newTask(id string, total int, skipped []int, sendAt time.Time, cancel context.CancelFunc, sink Sink) *Task {
	t := &Task{
		cancel: cancel,
		done:   make(chan struct{}),
		// Room for every event a pass can emit, so sends never block on a slow reader.
		events: make(chan Event, total+3),
		log:    &Log{},
		report: Report{
			ID:        id,
			State:     StateScheduled,
			Total:     total,
			Skipped:   skipped,
			Results:   make([]SendResult, 0, total),
			CreatedAt: time.Now(),
		},
	}
	t.sink = Tee(t.log, sink)
	if !sendAt.IsZero() {
		t.report.SendAt = timePtr(sendAt)
	}
	return t
}

// ID returns the campaign identifier.
func (t *Task) ID() string {
	return t.report.ID
}

// Done is closed when the pass has finished.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Events streams progress. The channel is closed after the finished event.
func (t *Task) Events() <-chan Event {
	return t.events
}

// Cancel stops the pass before the next recipient. Results recorded so far are kept.
func (t *Task) Cancel() {
	t.cancel()
}

// Wait blocks until the pass finishes or ctx is done.
// On ctx expiry it returns the current snapshot with ctx.Err().
func (t *Task) Wait(ctx context.Context) (Report, error) {
	select {
	case <-t.done:
		return t.Snapshot(), nil
	case <-ctx.Done():
		return t.Snapshot(), ctx.Err()
	}
}

// Snapshot returns a copy of the current report.
func (t *Task) Snapshot() Report {
	t.mu.RLock()
	r := t.report.clone()
	t.mu.RUnlock()

	r.Log = t.log.Entries()
	return r
}

func (t *Task) logf(level slog.Level, recipient, format string, args ...any) {
	t.sink.Append(Entry{
		Time:       time.Now(),
		CampaignID: t.report.ID,
		Recipient:  recipient,
		Message:    fmt.Sprintf(format, args...),
		Level:      level,
	})
}

func (t *Task) emit(e Event) {
	e.Time = time.Now()
	select {
	case t.events <- e:
	default:
	}
}

func (t *Task) scheduled() {
	t.emit(Event{Type: EventScheduled, State: StateScheduled})
}

func (t *Task) start() {
	t.mu.Lock()
	t.report.State = StateRunning
	t.report.StartedAt = timePtr(time.Now())
	t.mu.Unlock()

	t.emit(Event{Type: EventStarted, State: StateRunning})
}

func (t *Task) record(res SendResult) {
	t.mu.Lock()
	t.report.Results = append(t.report.Results, res)
	switch res.Status {
	case StatusSent:
		t.report.Sent++
	case StatusFailed:
		t.report.Failed++
	}
	state := t.report.State
	t.mu.Unlock()

	t.emit(Event{Type: EventResult, State: state, Result: &res})
}

func (t *Task) finish(state State) {
	t.mu.Lock()
	t.report.State = state
	t.report.FinishedAt = timePtr(time.Now())
	sent, failed, total := t.report.Sent, t.report.Failed, t.report.Total
	t.mu.Unlock()

	if state == StateCanceled {
		t.logf(slog.LevelWarn, "", "campaign canceled: %d sent, %d failed, %d not attempted", sent, failed, total-sent-failed)
	} else {
		t.logf(slog.LevelInfo, "", "campaign completed: %d sent, %d failed", sent, failed)
	}

	t.emit(Event{Type: EventFinished, State: state})
	close(t.events)
	close(t.done)
}
