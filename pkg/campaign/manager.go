package campaign

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/dmitrymomot/campaigner/pkg/store"
)

const (
	// DefaultMaxConcurrent bounds how many campaigns send at the same time.
	DefaultMaxConcurrent = 4

	// DefaultRetainedReports bounds finished reports kept in memory when no
	// ReportStore is configured. The oldest are evicted first.
	DefaultRetainedReports = 1000
)

// ReportStore keeps finished reports after their task is gone.
// Load must return an error when no report exists for key.
type ReportStore interface {
	Save(ctx context.Context, key string, r Report) error
	Load(ctx context.Context, key string) (Report, error)
}

// Manager runs many campaigns for a long-lived process.
// Sends inside a campaign stay sequential; across campaigns they are bounded
// by a weighted semaphore.
type Manager struct {
	dispatcher  *Dispatcher
	sem         *semaphore.Weighted
	store       ReportStore
	owned       *store.Memory[Report]
	log         *slog.Logger
	tasks       map[string]*Task
	wg          sync.WaitGroup
	saveTimeout time.Duration
	mu          sync.RWMutex
	closed      bool
}

// ManagerOption configures a Manager.
type ManagerOption func(*managerOptions)

type managerOptions struct {
	store         ReportStore
	log           *slog.Logger
	maxConcurrent int64
	saveTimeout   time.Duration
}

// WithMaxConcurrent sets how many campaigns may send at once.
// Default: 4.
func WithMaxConcurrent(n int64) ManagerOption {
	return func(o *managerOptions) {
		if n > 0 {
			o.maxConcurrent = n
		}
	}
}

// WithReportStore persists finished reports.
// Default: an in-memory store holding the last DefaultRetainedReports reports.
func WithReportStore(s ReportStore) ManagerOption {
	return func(o *managerOptions) {
		o.store = s
	}
}

// WithManagerLogger sets the logger for store failures.
func WithManagerLogger(log *slog.Logger) ManagerOption {
	return func(o *managerOptions) {
		if log != nil {
			o.log = log
		}
	}
}

// NewManager creates a Manager on top of d.
func NewManager(d *Dispatcher, opts ...ManagerOption) *Manager {
	o := &managerOptions{
		maxConcurrent: DefaultMaxConcurrent,
		log:           slog.New(slog.DiscardHandler),
		saveTimeout:   5 * time.Second,
	}
	for _, opt := range opts {
		opt(o)
	}

	m := &Manager{
		dispatcher:  d,
		sem:         semaphore.NewWeighted(o.maxConcurrent),
		store:       o.store,
		log:         o.log,
		tasks:       make(map[string]*Task),
		saveTimeout: o.saveTimeout,
	}
	if m.store == nil {
		m.owned = store.NewMemory[Report](store.WithMaxEntries(DefaultRetainedReports))
		m.store = m.owned
	}
	return m
}

// Launch validates and starts c. The pass outlives ctx; only Cancel or
// Shutdown stop it. A launched campaign waits in the scheduled state until
// a concurrency slot frees up.
func (m *Manager) Launch(ctx context.Context, c Campaign) (*Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrShuttingDown
	}

	t, err := m.dispatcher.start(context.WithoutCancel(ctx), c, weightedSlot{m.sem})
	if err != nil {
		return nil, err
	}

	m.tasks[t.ID()] = t
	m.wg.Add(1)
	go m.watch(t)

	return t, nil
}

// Task returns the live task for id.
func (m *Manager) Task(id string) (*Task, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tasks[id]
	return t, ok
}

// Report returns the current or stored report for id.
// A report missing from the store is ErrNotFound; other store errors are returned as is.
func (m *Manager) Report(ctx context.Context, id string) (Report, error) {
	if t, ok := m.Task(id); ok {
		return t.Snapshot(), nil
	}
	r, err := m.store.Load(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return Report{}, errors.Join(ErrNotFound, err)
	}
	return r, err
}

// Cancel stops a running or scheduled campaign.
func (m *Manager) Cancel(ctx context.Context, id string) error {
	t, ok := m.Task(id)
	if !ok {
		if _, err := m.Report(ctx, id); err != nil {
			return err
		}
		return ErrFinished
	}

	select {
	case <-t.Done():
		return ErrFinished
	default:
	}

	t.Cancel()
	return nil
}

// Active returns the number of campaigns that have not finished.
func (m *Manager) Active() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, t := range m.tasks {
		select {
		case <-t.Done():
		default:
			n++
		}
	}
	return n
}

// Shutdown refuses new campaigns, cancels running ones and waits for them
// to record their final reports.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	for _, t := range m.tasks {
		t.Cancel()
	}
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		if m.owned != nil {
			return m.owned.Close()
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// watch persists the final report and drops the task once it is stored.
// A task whose report could not be saved stays live so it remains reachable.
func (m *Manager) watch(t *Task) {
	defer m.wg.Done()
	<-t.Done()

	ctx, cancel := context.WithTimeout(context.Background(), m.saveTimeout)
	defer cancel()

	if err := m.store.Save(ctx, t.ID(), t.Snapshot()); err != nil {
		m.log.Error("failed to store campaign report",
			slog.String("campaign_id", t.ID()),
			slog.String("error", err.Error()),
		)
		return
	}

	m.mu.Lock()
	delete(m.tasks, t.ID())
	m.mu.Unlock()
}

type weightedSlot struct {
	sem *semaphore.Weighted
}

func (s weightedSlot) acquire(ctx context.Context) error { return s.sem.Acquire(ctx, 1) }

func (s weightedSlot) release() { s.sem.Release(1) }
