package store

import (
	"context"
	"sync"

	sserr "github.com/ahems/SportsLeague/pkg/errors"
)

// memoryBackend keeps documents in process. Bodies are copied on the way
// in and out so callers cannot alias stored bytes.
type memoryBackend struct {
	mu         sync.RWMutex
	partitions map[string]map[string][]byte
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{partitions: make(map[string]map[string][]byte)}
}

func (m *memoryBackend) name() string { return string(BackendMemory) }

func (m *memoryBackend) get(ctx context.Context, partition, id string) ([]byte, error) {
	if err := abandoned(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	body, ok := m.partitions[partition][id]
	if !ok {
		return nil, notFound(partition, id)
	}
	return clone(body), nil
}

func (m *memoryBackend) list(ctx context.Context, partition string) ([][]byte, error) {
	if err := abandoned(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	docs := m.partitions[partition]
	out := make([][]byte, 0, len(docs))
	for _, body := range docs {
		out = append(out, clone(body))
	}
	return out, nil
}

func (m *memoryBackend) put(ctx context.Context, partition, id string, body []byte) error {
	if err := abandoned(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	docs, ok := m.partitions[partition]
	if !ok {
		docs = make(map[string][]byte)
		m.partitions[partition] = docs
	}
	docs[id] = clone(body)
	return nil
}

func (m *memoryBackend) del(ctx context.Context, partition, id string) error {
	if err := abandoned(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.partitions[partition][id]; !ok {
		return notFound(partition, id)
	}
	delete(m.partitions[partition], id)
	return nil
}

func (m *memoryBackend) health(context.Context) error { return nil }

func (m *memoryBackend) close() error { return nil }

func clone(b []byte) []byte { return append([]byte(nil), b...) }

func abandoned(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return sserr.Wrap(err, sserr.CodeTimeout, "store: request abandoned")
	}
	return nil
}
