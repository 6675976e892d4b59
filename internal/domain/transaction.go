package domain

// TransactionKind is the kind of a recorded transaction.
type TransactionKind string

const (
	TransactionDeposit    TransactionKind = "deposit"
	TransactionWithdrawal TransactionKind = "withdrawal"
)

// DisputeStatus is the dispute state of a recorded transaction.
type DisputeStatus string

const (
	StatusNormal      DisputeStatus = "normal"
	StatusDisputed    DisputeStatus = "disputed"
	StatusResolved    DisputeStatus = "resolved"
	StatusChargedBack DisputeStatus = "charged_back"
)

// AllowedTransitions lists the legal dispute status transitions.
// ChargedBack is terminal.
func AllowedTransitions() map[DisputeStatus][]DisputeStatus {
	return map[DisputeStatus][]DisputeStatus{
		StatusNormal:      {StatusDisputed},
		StatusDisputed:    {StatusResolved, StatusChargedBack},
		StatusResolved:    {StatusDisputed},
		StatusChargedBack: {},
	}
}

// CanTransition reports whether from -> to is legal.
func CanTransition(from, to DisputeStatus) bool {
	for _, s := range AllowedTransitions()[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Transaction is an accepted deposit or withdrawal.
type Transaction struct {
	ID     TxID
	Client ClientID
	Kind   TransactionKind
	Amount Amount
	Status DisputeStatus
}

// NewTransaction returns a transaction in StatusNormal.
func NewTransaction(id TxID, client ClientID, kind TransactionKind, amount Amount) *Transaction {
	return &Transaction{
		ID:     id,
		Client: client,
		Kind:   kind,
		Amount: amount,
		Status: StatusNormal,
	}
}

// Disputable reports whether the transaction kind may be disputed at all.
func (t *Transaction) Disputable() bool {
	return t.Kind == TransactionDeposit
}
