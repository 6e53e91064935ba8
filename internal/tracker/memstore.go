package tracker

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/kislikjeka/gnosistrack/internal/ledger"
)

// MemoryStore is an in-process Store. It backs unit tests and the local
// development mode where no database is configured.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[uuid.UUID]*Document
	ops  map[uuid.UUID][]Operation
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[uuid.UUID]*Document),
		ops:  make(map[uuid.UUID][]Operation),
	}
}

func (m *MemoryStore) Load(_ context.Context, userID uuid.UUID) (*Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[userID]
	if !ok {
		return NewDocument(), nil
	}
	cp := *doc
	cp.Transactions = append([]ledger.Transaction(nil), doc.Transactions...)
	return &cp, nil
}

func (m *MemoryStore) Save(_ context.Context, userID uuid.UUID, doc *Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *doc
	cp.Transactions = append([]ledger.Transaction(nil), doc.Transactions...)
	m.docs[userID] = &cp
	return nil
}

func (m *MemoryStore) AppendOperation(_ context.Context, userID uuid.UUID, op Operation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops[userID] = append(m.ops[userID], op)
	return nil
}

func (m *MemoryStore) Operations(_ context.Context, userID uuid.UUID, limit int) ([]Operation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ops := m.ops[userID]
	if limit > 0 && len(ops) > limit {
		ops = ops[len(ops)-limit:]
	}
	return append([]Operation(nil), ops...), nil
}
