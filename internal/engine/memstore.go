package engine

import (
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// MemStore is a thread-safe in-memory store. When a Persistence is attached
// every write snapshots the touched bucket and saves it in the background.
type MemStore struct {
	mu sync.RWMutex
	// Structure: [bucket][key]value
	data      map[string]map[string]json.RawMessage
	persister *Persistence
	logger    *zap.Logger
	seq       uint64
	wg        sync.WaitGroup
	closed    bool
}

// NewMemStore initializes a store.
// It accepts existing data (from LoadAll) and an optional persister.
func NewMemStore(initialData map[string]map[string]json.RawMessage, p *Persistence, logger *zap.Logger) *MemStore {
	if initialData == nil {
		initialData = make(map[string]map[string]json.RawMessage)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	var seq uint64
	if p != nil {
		seq = p.LastSeq()
	}
	return &MemStore{
		data:      initialData,
		persister: p,
		logger:    logger,
		seq:       seq,
	}
}

// Wait waits for all background persistence tasks to complete.
func (m *MemStore) Wait() {
	m.wg.Wait()
}

func (m *MemStore) Get(bucket, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.data[bucket]
	if !ok {
		return nil, ErrKeyNotFound
	}
	val, ok := b[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *MemStore) Set(bucket, key string, val []byte) error {
	if !json.Valid(val) {
		return ErrInvalidValue
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.data[bucket] == nil {
		m.data[bucket] = make(map[string]json.RawMessage)
	}
	stored := make(json.RawMessage, len(val))
	copy(stored, val)
	m.data[bucket][key] = stored

	snapshot, seq := m.snapshotLocked(bucket)
	m.mu.Unlock()

	m.persist(bucket, snapshot, seq)
	return nil
}

func (m *MemStore) Delete(bucket, key string) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if b, ok := m.data[bucket]; ok {
		delete(b, key)
		if len(b) == 0 {
			delete(m.data, bucket)
		}
	}
	snapshot, seq := m.snapshotLocked(bucket)
	m.mu.Unlock()

	m.persist(bucket, snapshot, seq)
	return nil
}

func (m *MemStore) List(bucket, prefix string) (map[string][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string][]byte)
	for k, v := range m.data[bucket] {
		if prefix != "" && !strings.HasPrefix(k, prefix) {
			continue
		}
		cp := make([]byte, len(v))
		copy(cp, v)
		out[k] = cp
	}
	return out, nil
}

func (m *MemStore) Buckets() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]string, 0, len(m.data))
	for name := range m.data {
		list = append(list, name)
	}
	sort.Strings(list)
	return list, nil
}

// Close waits for pending snapshots and rejects further writes.
func (m *MemStore) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.wg.Wait()
	return nil
}

// snapshotLocked copies a bucket for background persistence.
// It MUST be called while holding m.mu.Lock.
func (m *MemStore) snapshotLocked(bucket string) (map[string]json.RawMessage, uint64) {
	m.seq++
	original := m.data[bucket]
	bucketCopy := make(map[string]json.RawMessage, len(original))
	for k, v := range original {
		bucketCopy[k] = v
	}
	return bucketCopy, m.seq
}

func (m *MemStore) persist(bucket string, snapshot map[string]json.RawMessage, seq uint64) {
	if m.persister == nil {
		return
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if err := m.persister.SaveBucket(bucket, snapshot, seq); err != nil {
			m.logger.Error("bucket snapshot failed", zap.String("bucket", bucket), zap.Error(err))
		}
	}()
}
