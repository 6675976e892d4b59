package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/txledger/internal/domain"
	"github.com/iho/txledger/internal/infrastructure/metrics"
)

const (
	outcomeAccepted = "accepted"
	outcomeRejected = "rejected"
)

// Processor applies instructions, one at a time and in order, to the account
// and transaction stores. It is not safe for concurrent use.
type Processor struct {
	accounts     AccountStore
	transactions TransactionStore
	sink         RejectionSink
	metrics      *metrics.Metrics
	logger       zerolog.Logger

	// netFlow is deposits - withdrawals - chargebacks over accepted
	// instructions; it must equal the sum of all account totals.
	netFlow domain.Amount
}

func NewProcessor(
	accounts AccountStore,
	transactions TransactionStore,
	sink RejectionSink,
	metrics *metrics.Metrics,
	logger zerolog.Logger,
) *Processor {
	return &Processor{
		accounts:     accounts,
		transactions: transactions,
		sink:         sink,
		metrics:      metrics,
		logger:       logger,
	}
}

// Summary counts what happened during a run.
type Summary struct {
	Processed  int
	Accepted   int
	Rejected   int
	Malformed  int
	Rejections map[string]int
}

// Run drains source, applying every instruction. Rejections and malformed
// records are reported to the sink and skipped; any other source error stops
// the run.
func (p *Processor) Run(ctx context.Context, source InstructionSource) (*Summary, error) {
	start := time.Now()
	summary := &Summary{Rejections: make(map[string]int)}

	for {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		instr, err := source.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if !errors.Is(err, domain.ErrMalformedRecord) {
				return summary, fmt.Errorf("read instruction: %w", err)
			}
			summary.Malformed++
			p.sink.Malformed(err)
			if p.metrics != nil {
				p.metrics.MalformedRecords.Inc()
			}
			continue
		}

		summary.Processed++
		if err := p.Apply(instr); err != nil {
			var rej *domain.RejectionError
			if !errors.As(err, &rej) {
				return summary, err
			}
			summary.Rejected++
			summary.Rejections[rej.Code()]++
			p.sink.Reject(instr, rej)
			continue
		}
		summary.Accepted++
	}

	if p.metrics != nil {
		p.metrics.Transactions.Set(float64(p.transactions.Len()))
		p.metrics.RunDuration.Observe(time.Since(start).Seconds())
	}

	return summary, nil
}

// Apply applies a single instruction. It returns nil when the instruction was
// accepted and a *domain.RejectionError when it was not; a rejected
// instruction leaves balances and dispute statuses untouched. Only the value
// forms of the instruction types are supported; anything else fails before
// an account is created.
func (p *Processor) Apply(instr domain.Instruction) error {
	var (
		account *domain.Account
		err     error
	)
	switch in := instr.(type) {
	case domain.Deposit:
		account = p.accounts.GetOrCreate(in.Client)
		err = p.deposit(account, in)
	case domain.Withdrawal:
		account = p.accounts.GetOrCreate(in.Client)
		err = p.withdraw(account, in)
	case domain.Dispute:
		account = p.accounts.GetOrCreate(in.Client)
		err = p.dispute(account, in)
	case domain.Resolve:
		account = p.accounts.GetOrCreate(in.Client)
		err = p.resolve(account, in)
	case domain.Chargeback:
		account = p.accounts.GetOrCreate(in.Client)
		err = p.chargeback(account, in)
	default:
		return fmt.Errorf("unsupported instruction %T", instr)
	}

	if p.metrics != nil {
		outcome := outcomeAccepted
		var rej *domain.RejectionError
		if errors.As(err, &rej) {
			outcome = outcomeRejected
			p.metrics.Rejections.WithLabelValues(rej.Code()).Inc()
		}
		p.metrics.Instructions.WithLabelValues(string(instr.Kind()), outcome).Inc()
	}

	if err == nil {
		p.logger.Debug().
			Str("kind", string(instr.Kind())).
			Uint16("client", uint16(instr.ClientID())).
			Uint32("tx", uint32(instr.TxID())).
			Str("available", account.Available.String()).
			Str("held", account.Held.String()).
			Msg("instruction applied")
	}

	return err
}

// NetFlow returns deposits - withdrawals - chargebacks accepted so far.
func (p *Processor) NetFlow() domain.Amount {
	return p.netFlow
}

func (p *Processor) deposit(account *domain.Account, in domain.Deposit) error {
	if !in.Amount.IsPositive() {
		return domain.Reject(in, domain.ErrInvalidAmount)
	}
	if _, exists := p.transactions.Get(in.Tx); exists {
		return domain.Reject(in, domain.ErrDuplicateTransaction)
	}
	if err := account.ValidateMovement(); err != nil {
		return domain.Reject(in, err)
	}

	tx := domain.NewTransaction(in.Tx, in.Client, domain.TransactionDeposit, in.Amount)
	if err := p.transactions.Record(tx); err != nil {
		return domain.Reject(in, err)
	}

	account.Credit(in.Amount)
	p.netFlow = p.netFlow.Add(in.Amount)
	p.observeAmount(in.Kind(), in.Amount)
	return nil
}

func (p *Processor) withdraw(account *domain.Account, in domain.Withdrawal) error {
	if !in.Amount.IsPositive() {
		return domain.Reject(in, domain.ErrInvalidAmount)
	}
	if _, exists := p.transactions.Get(in.Tx); exists {
		return domain.Reject(in, domain.ErrDuplicateTransaction)
	}
	if err := account.ValidateDebit(in.Amount); err != nil {
		return domain.Reject(in, err)
	}
	if err := account.ValidateMovement(); err != nil {
		return domain.Reject(in, err)
	}

	tx := domain.NewTransaction(in.Tx, in.Client, domain.TransactionWithdrawal, in.Amount)
	if err := p.transactions.Record(tx); err != nil {
		return domain.Reject(in, err)
	}

	account.Debit(in.Amount)
	p.netFlow = p.netFlow.Sub(in.Amount)
	p.observeAmount(in.Kind(), in.Amount)
	return nil
}

func (p *Processor) dispute(account *domain.Account, in domain.Dispute) error {
	tx, err := p.transition(in, domain.StatusDisputed)
	if err != nil {
		return err
	}

	account.Hold(tx.Amount)
	return nil
}

func (p *Processor) resolve(account *domain.Account, in domain.Resolve) error {
	tx, err := p.transition(in, domain.StatusResolved)
	if err != nil {
		return err
	}

	account.Release(tx.Amount)
	return nil
}

func (p *Processor) chargeback(account *domain.Account, in domain.Chargeback) error {
	tx, err := p.transition(in, domain.StatusChargedBack)
	if err != nil {
		return err
	}

	account.Reverse(tx.Amount)
	p.netFlow = p.netFlow.Sub(tx.Amount)
	return nil
}

// transition validates that the transaction referenced by instr may move to
// status `to` and, if so, moves it. The caller applies the balance change.
func (p *Processor) transition(instr domain.Instruction, to domain.DisputeStatus) (*domain.Transaction, error) {
	tx, ok := p.transactions.Get(instr.TxID())
	if !ok {
		return nil, domain.Reject(instr, domain.ErrUnknownTransaction)
	}
	if tx.Client != instr.ClientID() {
		return nil, domain.Reject(instr, domain.ErrClientMismatch)
	}
	if !tx.Disputable() {
		return nil, domain.Reject(instr, domain.ErrNonDisputableKind)
	}
	if !domain.CanTransition(tx.Status, to) {
		rej := domain.Reject(instr, domain.ErrIllegalStateTransition)
		rej.From = tx.Status
		return nil, rej
	}

	if err := p.transactions.SetStatus(tx.ID, to); err != nil {
		return nil, domain.Reject(instr, err)
	}
	return tx, nil
}

func (p *Processor) observeAmount(kind domain.InstructionKind, amount domain.Amount) {
	if p.metrics != nil {
		p.metrics.InstructionValue.WithLabelValues(string(kind)).Observe(amount.Float64())
	}
}
