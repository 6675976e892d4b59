package memory

import (
	"fmt"

	"github.com/iho/txledger/internal/domain"
)

// TransactionRepository implements usecase.TransactionStore with a map.
// Records are never removed.
type TransactionRepository struct {
	transactions map[domain.TxID]*domain.Transaction
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository() *TransactionRepository {
	return &TransactionRepository{
		transactions: make(map[domain.TxID]*domain.Transaction),
	}
}

// Record stores tx unless its id is already taken.
func (r *TransactionRepository) Record(tx *domain.Transaction) error {
	if _, exists := r.transactions[tx.ID]; exists {
		return fmt.Errorf("%w: %d", domain.ErrDuplicateTransaction, tx.ID)
	}
	r.transactions[tx.ID] = tx
	return nil
}

// Get looks up a transaction by id.
func (r *TransactionRepository) Get(id domain.TxID) (*domain.Transaction, bool) {
	tx, ok := r.transactions[id]
	return tx, ok
}

// SetStatus updates the dispute status of a recorded transaction.
func (r *TransactionRepository) SetStatus(id domain.TxID, status domain.DisputeStatus) error {
	tx, ok := r.transactions[id]
	if !ok {
		return fmt.Errorf("%w: %d", domain.ErrTransactionNotFound, id)
	}
	tx.Status = status
	return nil
}

func (r *TransactionRepository) Len() int {
	return len(r.transactions)
}
