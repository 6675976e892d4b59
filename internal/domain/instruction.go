package domain

// ClientID identifies a client account.
type ClientID uint16

// TxID identifies a deposit or withdrawal, unique across the input.
type TxID uint32

// InstructionKind is the instruction type as it appears in the input.
type InstructionKind string

const (
	KindDeposit    InstructionKind = "deposit"
	KindWithdrawal InstructionKind = "withdrawal"
	KindDispute    InstructionKind = "dispute"
	KindResolve    InstructionKind = "resolve"
	KindChargeback InstructionKind = "chargeback"
)

// ParseInstructionKind maps an input type string to a kind.
func ParseInstructionKind(s string) (InstructionKind, bool) {
	switch k := InstructionKind(s); k {
	case KindDeposit, KindWithdrawal, KindDispute, KindResolve, KindChargeback:
		return k, true
	}
	return "", false
}

// Instruction is one of Deposit, Withdrawal, Dispute, Resolve or Chargeback.
// The set is closed: only this package can add implementations.
type Instruction interface {
	Kind() InstructionKind
	ClientID() ClientID
	TxID() TxID
	isInstruction()
}

// Deposit credits Amount to the client's available funds.
type Deposit struct {
	Client ClientID
	Tx     TxID
	Amount Amount
}

// Withdrawal debits Amount from the client's available funds.
type Withdrawal struct {
	Client ClientID
	Tx     TxID
	Amount Amount
}

// Dispute freezes the amount of a prior deposit.
type Dispute struct {
	Client ClientID
	Tx     TxID
}

// Resolve releases the funds frozen by an active dispute.
type Resolve struct {
	Client ClientID
	Tx     TxID
}

// Chargeback removes the funds frozen by an active dispute and locks the
// account.
type Chargeback struct {
	Client ClientID
	Tx     TxID
}

func (Deposit) Kind() InstructionKind    { return KindDeposit }
func (Withdrawal) Kind() InstructionKind { return KindWithdrawal }
func (Dispute) Kind() InstructionKind    { return KindDispute }
func (Resolve) Kind() InstructionKind    { return KindResolve }
func (Chargeback) Kind() InstructionKind { return KindChargeback }

func (i Deposit) ClientID() ClientID    { return i.Client }
func (i Withdrawal) ClientID() ClientID { return i.Client }
func (i Dispute) ClientID() ClientID    { return i.Client }
func (i Resolve) ClientID() ClientID    { return i.Client }
func (i Chargeback) ClientID() ClientID { return i.Client }

func (i Deposit) TxID() TxID    { return i.Tx }
func (i Withdrawal) TxID() TxID { return i.Tx }
func (i Dispute) TxID() TxID    { return i.Tx }
func (i Resolve) TxID() TxID    { return i.Tx }
func (i Chargeback) TxID() TxID { return i.Tx }

func (Deposit) isInstruction()    {}
func (Withdrawal) isInstruction() {}
func (Dispute) isInstruction()    {}
func (Resolve) isInstruction()    {}
func (Chargeback) isInstruction() {}
