package memory

import (
	"context"
	"sync"

	"github.com/plumehq/plume-backend/internal/db/interfaces"
)

// Transaction represents an in-memory transaction. It snapshots the
// whole database at creation and restores the snapshot on rollback.
type Transaction struct {
	mu         sync.RWMutex
	db         *Database
	snapshot   map[string]map[string]map[string]interface{} // table -> id -> record
	committed  bool
	rolledBack bool
}

// NewTransaction creates a new in-memory transaction
func NewTransaction(db *Database) *Transaction {
	tx := &Transaction{
		db:       db,
		snapshot: make(map[string]map[string]map[string]interface{}),
	}

	db.mu.RLock()
	for tableName, table := range db.tables {
		tx.snapshot[tableName] = make(map[string]map[string]interface{}, len(table))
		for id, record := range table {
			tx.snapshot[tableName][id] = cloneRecord(record)
		}
	}
	db.mu.RUnlock()

	return tx
}

// Commit commits the transaction
func (tx *Transaction) Commit(ctx context.Context) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	if tx.committed || tx.rolledBack {
		return interfaces.ErrTransactionCompleted
	}

	tx.committed = true
	return nil
}

// Rollback restores the pre-transaction snapshot
func (tx *Transaction) Rollback(ctx context.Context) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	if tx.committed || tx.rolledBack {
		return interfaces.ErrTransactionCompleted
	}

	tx.db.mu.Lock()
	tx.db.tables = tx.snapshot
	tx.db.mu.Unlock()

	tx.rolledBack = true
	return nil
}

// IsCompleted returns true if the transaction has been committed or rolled back
func (tx *Transaction) IsCompleted() bool {
	tx.mu.RLock()
	defer tx.mu.RUnlock()

	return tx.committed || tx.rolledBack
}
