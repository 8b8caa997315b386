package materials

import (
	"context"
	"slices"
	"sync"

	"github.com/dmitrymomot/campaigner/pkg/mailer"
)

type memoryFile struct {
	filename string
	data     []byte
}

// Memory is an in-process Store used when no bucket is configured.
type Memory struct {
	files   map[string]memoryFile
	prefix  string
	maxSize int64
	mu      sync.RWMutex
}

// NewMemory creates an empty in-memory store. A non-positive maxSize uses DefaultMaxSize.
func NewMemory(maxSize int64) *Memory {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Memory{
		files:   make(map[string]memoryFile),
		prefix:  DefaultPrefix,
		maxSize: maxSize,
	}
}

// Put implements Store.
func (m *Memory) Put(_ context.Context, filename string, data []byte) (*Info, error) {
	if err := Validate(data, m.maxSize); err != nil {
		return nil, err
	}

	key := newKey(m.prefix)
	name := displayName(filename)

	m.mu.Lock()
	m.files[key] = memoryFile{filename: name, data: slices.Clone(data)}
	m.mu.Unlock()

	return &Info{Key: key, Filename: name, ContentType: MIMEPDF, Size: int64(len(data))}, nil
}

// Get implements Store.
func (m *Memory) Get(_ context.Context, key string) (*mailer.Attachment, error) {
	m.mu.RLock()
	f, ok := m.files[key]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	return &mailer.Attachment{
		Filename:    f.filename,
		ContentType: MIMEPDF,
		Content:     slices.Clone(f.data),
	}, nil
}

// Delete implements Store.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.files[key]; !ok {
		return ErrNotFound
	}
	delete(m.files, key)
	return nil
}

var _ Store = (*Memory)(nil)
