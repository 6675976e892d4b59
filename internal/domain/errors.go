package domain

import (
	"errors"
	"fmt"
)

var (
	// Instruction rejections
	ErrDuplicateTransaction   = errors.New("duplicate transaction id")
	ErrUnknownTransaction     = errors.New("unknown transaction")
	ErrClientMismatch         = errors.New("transaction belongs to another client")
	ErrNonDisputableKind      = errors.New("transaction kind is not disputable")
	ErrIllegalStateTransition = errors.New("illegal dispute state transition")
	ErrInsufficientFunds      = errors.New("insufficient available funds")
	ErrAccountLocked          = errors.New("account is locked")
	ErrInvalidAmount          = errors.New("amount must be positive")

	// Input errors
	ErrMalformedRecord = errors.New("malformed record")
	ErrAmountPrecision = errors.New("amount exceeds four fractional digits")

	// Store errors
	ErrTransactionNotFound = errors.New("transaction not found")

	// Report errors
	ErrLedgerInconsistent = errors.New("ledger is inconsistent")
)

// reasonCodes maps rejection sentinels to stable snake_case codes used as
// log fields and metric labels.
var reasonCodes = map[error]string{
	ErrDuplicateTransaction:   "duplicate_transaction_id",
	ErrUnknownTransaction:     "unknown_transaction",
	ErrClientMismatch:         "client_mismatch",
	ErrNonDisputableKind:      "non_disputable_kind",
	ErrIllegalStateTransition: "illegal_state_transition",
	ErrInsufficientFunds:      "insufficient_funds",
	ErrAccountLocked:          "account_locked",
	ErrInvalidAmount:          "invalid_amount",
}

// RejectionError describes why an instruction was not applied.
type RejectionError struct {
	Kind   InstructionKind
	Client ClientID
	Tx     TxID
	Reason error
	// From is set for ErrIllegalStateTransition.
	From DisputeStatus
}

// Reject builds a RejectionError for instr.
func Reject(instr Instruction, reason error) *RejectionError {
	return &RejectionError{
		Kind:   instr.Kind(),
		Client: instr.ClientID(),
		Tx:     instr.TxID(),
		Reason: reason,
	}
}

func (e *RejectionError) Error() string {
	if e.From != "" {
		return fmt.Sprintf("%s client=%d tx=%d rejected: %v (status %s)", e.Kind, e.Client, e.Tx, e.Reason, e.From)
	}
	return fmt.Sprintf("%s client=%d tx=%d rejected: %v", e.Kind, e.Client, e.Tx, e.Reason)
}

func (e *RejectionError) Unwrap() error {
	return e.Reason
}

// Code returns the stable reason code, "unknown" for unmapped reasons.
func (e *RejectionError) Code() string {
	for sentinel, code := range reasonCodes {
		if errors.Is(e.Reason, sentinel) {
			return code
		}
	}
	return "unknown"
}
