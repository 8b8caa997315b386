package campaign

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// Entry is one progress or failure line produced by a campaign.
type Entry struct {
	Time       time.Time  `json:"time"`
	CampaignID string     `json:"campaign_id"`
	Recipient  string     `json:"recipient,omitempty"`
	Message    string     `json:"message"`
	Level      slog.Level `json:"level"`
}

// Sink accepts entries from a running campaign.
// Implementations must be safe for concurrent use.
type Sink interface {
	Append(Entry)
}

// Log is an append-only, thread-safe Sink kept in memory.
type Log struct {
	entries []Entry
	mu      sync.Mutex
}

// Append implements Sink.
func (l *Log) Append(e Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
}

// Entries returns a copy of everything appended so far.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.entries)
}

// Len returns the number of entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// LoggerSink writes entries to a slog.Logger.
type LoggerSink struct {
	log *slog.Logger
}

// NewLoggerSink creates a Sink that logs every entry.
func NewLoggerSink(log *slog.Logger) *LoggerSink {
	return &LoggerSink{log: log}
}

// Append implements Sink.
func (s *LoggerSink) Append(e Entry) {
	attrs := []slog.Attr{slog.String("campaign_id", e.CampaignID)}
	if e.Recipient != "" {
		attrs = append(attrs, slog.String("recipient", e.Recipient))
	}
	s.log.LogAttrs(context.Background(), e.Level, e.Message, attrs...)
}

type multiSink []Sink

func (m multiSink) Append(e Entry) {
	for _, s := range m {
		s.Append(e)
	}
}

// Tee fans entries out to every non-nil sink.
func Tee(sinks ...Sink) Sink {
	out := make(multiSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

var (
	_ Sink = (*Log)(nil)
	_ Sink = (*LoggerSink)(nil)
)
