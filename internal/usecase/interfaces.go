package usecase

import (
	"context"

	"github.com/iho/txledger/internal/domain"
)

// AccountStore holds account state keyed by client id.
type AccountStore interface {
	// GetOrCreate returns the account, creating a zeroed unlocked one if needed.
	GetOrCreate(client domain.ClientID) *domain.Account
	// Snapshot returns copies of all accounts in no particular order.
	Snapshot() []domain.Account
	Len() int
}

// TransactionStore holds accepted deposits and withdrawals keyed by tx id.
type TransactionStore interface {
	// Record inserts tx; it fails with domain.ErrDuplicateTransaction if the
	// id is already known.
	Record(tx *domain.Transaction) error
	Get(id domain.TxID) (*domain.Transaction, bool)
	// SetStatus changes the dispute status without any legality check.
	SetStatus(id domain.TxID, status domain.DisputeStatus) error
	Len() int
}

// InstructionSource yields instructions in input order. Next returns io.EOF
// when exhausted and an error wrapping domain.ErrMalformedRecord for a record
// that should be skipped.
type InstructionSource interface {
	Next() (domain.Instruction, error)
}

// RejectionSink receives rejected instructions and skipped records.
type RejectionSink interface {
	Reject(instr domain.Instruction, rej *domain.RejectionError)
	Malformed(err error)
}

// ReportPublisher exports the final report to an external system.
type ReportPublisher interface {
	Publish(ctx context.Context, runID string, rows []domain.AccountReport) error
}
