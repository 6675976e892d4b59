package usecase_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/iho/txledger/internal/adapter/repository/memory"
	"github.com/iho/txledger/internal/domain"
	"github.com/iho/txledger/internal/infrastructure/metrics"
	"github.com/iho/txledger/internal/usecase"
	"github.com/iho/txledger/internal/usecase/mocks"
)

type fixture struct {
	accounts     *memory.AccountRepository
	transactions *memory.TransactionRepository
	sink         *mocks.MockRejectionSink
	metrics      *metrics.Metrics
	proc         *usecase.Processor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	f := &fixture{
		accounts:     memory.NewAccountRepository(),
		transactions: memory.NewTransactionRepository(),
		sink:         mocks.NewMockRejectionSink(ctrl),
		metrics:      metrics.New(),
	}
	f.proc = usecase.NewProcessor(f.accounts, f.transactions, f.sink, f.metrics, zerolog.Nop())
	return f
}

func (f *fixture) account(client domain.ClientID) domain.Account {
	return *f.accounts.GetOrCreate(client)
}

func (f *fixture) status(t *testing.T, id domain.TxID) domain.DisputeStatus {
	t.Helper()
	tx, ok := f.transactions.Get(id)
	require.True(t, ok, "transaction %d not recorded", id)
	return tx.Status
}

func (f *fixture) mustApply(t *testing.T, instrs ...domain.Instruction) {
	t.Helper()
	for _, instr := range instrs {
		require.NoError(t, f.proc.Apply(instr), "applying %+v", instr)
	}
}

func amt(s string) domain.Amount {
	return domain.MustParseAmount(s)
}

func assertBalances(t *testing.T, acc domain.Account, available, held string, locked bool) {
	t.Helper()
	assert.Equal(t, available, acc.Available.String(), "available")
	assert.Equal(t, held, acc.Held.String(), "held")
	assert.True(t, acc.Total().Equal(acc.Available.Add(acc.Held)), "total must equal available + held")
	assert.Equal(t, locked, acc.Locked, "locked")
}

func requireRejected(t *testing.T, err error, reason error) *domain.RejectionError {
	t.Helper()
	var rej *domain.RejectionError
	require.True(t, errors.As(err, &rej), "expected rejection, got %v", err)
	require.ErrorIs(t, rej, reason)
	return rej
}

func TestProcessor_DepositOnFreshClient(t *testing.T) {
	f := newFixture(t)

	f.mustApply(t, domain.Deposit{Client: 1, Tx: 1, Amount: amt("1.5")})

	acc := f.account(1)
	assertBalances(t, acc, "1.5000", "0.0000", false)
	assert.Equal(t, "1.5000", acc.Total().String())
	assert.Equal(t, domain.StatusNormal, f.status(t, 1))
}

func TestProcessor_RejectsNonPositiveAmounts(t *testing.T) {
	f := newFixture(t)

	requireRejected(t, f.proc.Apply(domain.Deposit{Client: 1, Tx: 1, Amount: amt("0")}), domain.ErrInvalidAmount)
	requireRejected(t, f.proc.Apply(domain.Withdrawal{Client: 1, Tx: 2, Amount: amt("-1")}), domain.ErrInvalidAmount)

	assertBalances(t, f.account(1), "0.0000", "0.0000", false)
	assert.Equal(t, 0, f.transactions.Len())
}

func TestProcessor_DuplicateTransactionID(t *testing.T) {
	f := newFixture(t)
	f.mustApply(t, domain.Deposit{Client: 1, Tx: 1, Amount: amt("10")})

	requireRejected(t, f.proc.Apply(domain.Deposit{Client: 1, Tx: 1, Amount: amt("5")}), domain.ErrDuplicateTransaction)
	requireRejected(t, f.proc.Apply(domain.Withdrawal{Client: 2, Tx: 1, Amount: amt("5")}), domain.ErrDuplicateTransaction)

	assertBalances(t, f.account(1), "10.0000", "0.0000", false)
	assertBalances(t, f.account(2), "0.0000", "0.0000", false)
}

func TestProcessor_WithdrawalInsufficientFunds(t *testing.T) {
	f := newFixture(t)
	f.mustApply(t, domain.Deposit{Client: 1, Tx: 1, Amount: amt("10")})

	requireRejected(t, f.proc.Apply(domain.Withdrawal{Client: 1, Tx: 2, Amount: amt("15")}), domain.ErrInsufficientFunds)
	assertBalances(t, f.account(1), "10.0000", "0.0000", false)

	_, recorded := f.transactions.Get(2)
	assert.False(t, recorded, "rejected withdrawal must not be recorded")

	f.mustApply(t, domain.Withdrawal{Client: 1, Tx: 3, Amount: amt("10")})
	assertBalances(t, f.account(1), "0.0000", "0.0000", false)
}

func TestProcessor_DisputeResolveCycle(t *testing.T) {
	f := newFixture(t)
	f.mustApply(t, domain.Deposit{Client: 1, Tx: 1, Amount: amt("5")})

	f.mustApply(t, domain.Dispute{Client: 1, Tx: 1})
	assertBalances(t, f.account(1), "0.0000", "5.0000", false)
	assert.Equal(t, "5.0000", f.account(1).Total().String())
	assert.Equal(t, domain.StatusDisputed, f.status(t, 1))

	rej := requireRejected(t, f.proc.Apply(domain.Dispute{Client: 1, Tx: 1}), domain.ErrIllegalStateTransition)
	assert.Equal(t, domain.StatusDisputed, rej.From)

	f.mustApply(t, domain.Resolve{Client: 1, Tx: 1})
	assertBalances(t, f.account(1), "5.0000", "0.0000", false)
	assert.Equal(t, domain.StatusResolved, f.status(t, 1))

	requireRejected(t, f.proc.Apply(domain.Resolve{Client: 1, Tx: 1}), domain.ErrIllegalStateTransition)
	requireRejected(t, f.proc.Apply(domain.Chargeback{Client: 1, Tx: 1}), domain.ErrIllegalStateTransition)

	// A resolved transaction may be disputed again.
	f.mustApply(t, domain.Dispute{Client: 1, Tx: 1})
	assertBalances(t, f.account(1), "0.0000", "5.0000", false)
	assert.Equal(t, domain.StatusDisputed, f.status(t, 1))
}

func TestProcessor_Chargeback(t *testing.T) {
	f := newFixture(t)
	f.mustApply(t,
		domain.Deposit{Client: 1, Tx: 1, Amount: amt("5")},
		domain.Dispute{Client: 1, Tx: 1},
		domain.Chargeback{Client: 1, Tx: 1},
	)

	assertBalances(t, f.account(1), "0.0000", "0.0000", true)
	assert.Equal(t, domain.StatusChargedBack, f.status(t, 1))

	requireRejected(t, f.proc.Apply(domain.Deposit{Client: 1, Tx: 2, Amount: amt("1")}), domain.ErrAccountLocked)
	requireRejected(t, f.proc.Apply(domain.Dispute{Client: 1, Tx: 1}), domain.ErrIllegalStateTransition)
	requireRejected(t, f.proc.Apply(domain.Resolve{Client: 1, Tx: 1}), domain.ErrIllegalStateTransition)
	requireRejected(t, f.proc.Apply(domain.Chargeback{Client: 1, Tx: 1}), domain.ErrIllegalStateTransition)

	assertBalances(t, f.account(1), "0.0000", "0.0000", true)
}

func TestProcessor_LockedAccountRejectsWithdrawal(t *testing.T) {
	f := newFixture(t)
	f.mustApply(t,
		domain.Deposit{Client: 1, Tx: 1, Amount: amt("5")},
		domain.Deposit{Client: 1, Tx: 2, Amount: amt("3")},
		domain.Dispute{Client: 1, Tx: 1},
		domain.Chargeback{Client: 1, Tx: 1},
	)

	requireRejected(t, f.proc.Apply(domain.Withdrawal{Client: 1, Tx: 3, Amount: amt("1")}), domain.ErrAccountLocked)
	assertBalances(t, f.account(1), "3.0000", "0.0000", true)
}

func TestProcessor_LockedAccountStillSettlesDisputes(t *testing.T) {
	f := newFixture(t)
	f.mustApply(t,
		domain.Deposit{Client: 1, Tx: 1, Amount: amt("5")},
		domain.Deposit{Client: 1, Tx: 2, Amount: amt("3")},
		domain.Dispute{Client: 1, Tx: 1},
		domain.Dispute{Client: 1, Tx: 2},
		domain.Chargeback{Client: 1, Tx: 1},
	)
	assertBalances(t, f.account(1), "0.0000", "3.0000", true)

	f.mustApply(t, domain.Resolve{Client: 1, Tx: 2})
	assertBalances(t, f.account(1), "3.0000", "0.0000", true)
}

func TestProcessor_WithdrawalsAreNotDisputable(t *testing.T) {
	f := newFixture(t)
	f.mustApply(t,
		domain.Deposit{Client: 1, Tx: 1, Amount: amt("10")},
		domain.Withdrawal{Client: 1, Tx: 2, Amount: amt("4")},
	)

	for _, instr := range []domain.Instruction{
		domain.Dispute{Client: 1, Tx: 2},
		domain.Resolve{Client: 1, Tx: 2},
		domain.Chargeback{Client: 1, Tx: 2},
	} {
		requireRejected(t, f.proc.Apply(instr), domain.ErrNonDisputableKind)
	}

	assertBalances(t, f.account(1), "6.0000", "0.0000", false)
	assert.Equal(t, domain.StatusNormal, f.status(t, 2))
}

func TestProcessor_UnknownTransactionAndClientMismatch(t *testing.T) {
	f := newFixture(t)
	f.mustApply(t, domain.Deposit{Client: 1, Tx: 1, Amount: amt("10")})

	tests := []struct {
		name   string
		instr  domain.Instruction
		reason error
	}{
		{"dispute unknown", domain.Dispute{Client: 1, Tx: 42}, domain.ErrUnknownTransaction},
		{"resolve unknown", domain.Resolve{Client: 1, Tx: 42}, domain.ErrUnknownTransaction},
		{"chargeback unknown", domain.Chargeback{Client: 1, Tx: 42}, domain.ErrUnknownTransaction},
		{"dispute other client", domain.Dispute{Client: 2, Tx: 1}, domain.ErrClientMismatch},
		{"resolve other client", domain.Resolve{Client: 2, Tx: 1}, domain.ErrClientMismatch},
		{"chargeback other client", domain.Chargeback{Client: 2, Tx: 1}, domain.ErrClientMismatch},
		{"resolve without dispute", domain.Resolve{Client: 1, Tx: 1}, domain.ErrIllegalStateTransition},
		{"chargeback without dispute", domain.Chargeback{Client: 1, Tx: 1}, domain.ErrIllegalStateTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requireRejected(t, f.proc.Apply(tt.instr), tt.reason)
			assertBalances(t, f.account(1), "10.0000", "0.0000", false)
			assert.Equal(t, domain.StatusNormal, f.status(t, 1))
		})
	}

	assertBalances(t, f.account(2), "0.0000", "0.0000", false)
}

func TestProcessor_DisputeAfterWithdrawalOverdraws(t *testing.T) {
	f := newFixture(t)
	f.mustApply(t,
		domain.Deposit{Client: 1, Tx: 1, Amount: amt("20")},
		domain.Withdrawal{Client: 1, Tx: 2, Amount: amt("15")},
		domain.Dispute{Client: 1, Tx: 1},
	)

	assertBalances(t, f.account(1), "-15.0000", "20.0000", false)
	assert.Equal(t, "5.0000", f.account(1).Total().String())
}

func TestProcessor_RejectionIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.mustApply(t,
		domain.Deposit{Client: 1, Tx: 1, Amount: amt("10")},
		domain.Dispute{Client: 1, Tx: 1},
	)

	before := f.accounts.Snapshot()
	rejected := []domain.Instruction{
		domain.Dispute{Client: 1, Tx: 1},
		domain.Withdrawal{Client: 1, Tx: 2, Amount: amt("1")},
		domain.Deposit{Client: 1, Tx: 1, Amount: amt("1")},
		domain.Dispute{Client: 1, Tx: 99},
	}

	for i := 0; i < 5; i++ {
		for _, instr := range rejected {
			require.Error(t, f.proc.Apply(instr))
		}
	}

	assert.ElementsMatch(t, before, f.accounts.Snapshot())
	assert.Equal(t, domain.StatusDisputed, f.status(t, 1))
	assert.Equal(t, 1, f.transactions.Len())
}

func TestProcessor_UnsupportedInstruction(t *testing.T) {
	f := newFixture(t)

	err := f.proc.Apply(&domain.Deposit{Client: 1, Tx: 1, Amount: amt("1")})
	require.Error(t, err)

	var rej *domain.RejectionError
	assert.False(t, errors.As(err, &rej), "unsupported instructions are not ordinary rejections")
	assert.Zero(t, f.accounts.Len(), "unsupported instructions must not create accounts")
	assert.Zero(t, f.transactions.Len())
}

func TestProcessor_MetricsCountOutcomes(t *testing.T) {
	f := newFixture(t)
	f.mustApply(t, domain.Deposit{Client: 1, Tx: 1, Amount: amt("10")})
	_ = f.proc.Apply(domain.Withdrawal{Client: 1, Tx: 2, Amount: amt("20")})

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Instructions.WithLabelValues("deposit", "accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Instructions.WithLabelValues("withdrawal", "rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Rejections.WithLabelValues("insufficient_funds")))
}

// sliceSource replays a fixed list of instructions and errors.
type sliceSource struct {
	items []any
}

func (s *sliceSource) Next() (domain.Instruction, error) {
	if len(s.items) == 0 {
		return nil, io.EOF
	}
	item := s.items[0]
	s.items = s.items[1:]
	if err, ok := item.(error); ok {
		return nil, err
	}
	return item.(domain.Instruction), nil
}

func TestProcessor_RunEndToEnd(t *testing.T) {
	f := newFixture(t)
	source := &sliceSource{items: []any{
		domain.Deposit{Client: 1, Tx: 1, Amount: amt("20")},
		domain.Deposit{Client: 1, Tx: 2, Amount: amt("10")},
		domain.Withdrawal{Client: 1, Tx: 3, Amount: amt("5")},
		domain.Dispute{Client: 1, Tx: 1},
	}}

	summary, err := f.proc.Run(context.Background(), source)
	require.NoError(t, err)

	assert.Equal(t, 4, summary.Processed)
	assert.Equal(t, 4, summary.Accepted)
	assert.Zero(t, summary.Rejected)

	acc := f.account(1)
	assertBalances(t, acc, "5.0000", "20.0000", false)
	assert.Equal(t, "25.0000", acc.Total().String())
	assert.Equal(t, "25.0000", f.proc.NetFlow().String())
}

func TestProcessor_RunReportsRejectionsAndMalformedRecords(t *testing.T) {
	f := newFixture(t)
	malformed := errors.Join(domain.ErrMalformedRecord, errors.New("line 3"))
	source := &sliceSource{items: []any{
		domain.Deposit{Client: 1, Tx: 1, Amount: amt("10")},
		malformed,
		domain.Withdrawal{Client: 1, Tx: 2, Amount: amt("15")},
		domain.Dispute{Client: 2, Tx: 1},
		domain.Withdrawal{Client: 1, Tx: 3, Amount: amt("2.5")},
	}}

	gomock.InOrder(
		f.sink.EXPECT().Malformed(malformed),
		f.sink.EXPECT().Reject(domain.Withdrawal{Client: 1, Tx: 2, Amount: amt("15")}, gomock.Any()).
			Do(func(_ domain.Instruction, rej *domain.RejectionError) {
				assert.ErrorIs(t, rej, domain.ErrInsufficientFunds)
			}),
		f.sink.EXPECT().Reject(domain.Dispute{Client: 2, Tx: 1}, gomock.Any()).
			Do(func(_ domain.Instruction, rej *domain.RejectionError) {
				assert.ErrorIs(t, rej, domain.ErrClientMismatch)
			}),
	)

	summary, err := f.proc.Run(context.Background(), source)
	require.NoError(t, err)

	assert.Equal(t, 4, summary.Processed)
	assert.Equal(t, 2, summary.Accepted)
	assert.Equal(t, 2, summary.Rejected)
	assert.Equal(t, 1, summary.Malformed)
	assert.Equal(t, map[string]int{"insufficient_funds": 1, "client_mismatch": 1}, summary.Rejections)
	assertBalances(t, f.account(1), "7.5000", "0.0000", false)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.MalformedRecords))
}

func TestProcessor_RunStopsOnSourceFailure(t *testing.T) {
	f := newFixture(t)
	ioErr := errors.New("disk on fire")
	source := &sliceSource{items: []any{
		domain.Deposit{Client: 1, Tx: 1, Amount: amt("10")},
		ioErr,
		domain.Deposit{Client: 1, Tx: 2, Amount: amt("10")},
	}}

	summary, err := f.proc.Run(context.Background(), source)
	require.ErrorIs(t, err, ioErr)
	assert.Equal(t, 1, summary.Accepted)
	assertBalances(t, f.account(1), "10.0000", "0.0000", false)
}

func TestProcessor_RunHonoursCancellation(t *testing.T) {
	ctrl := gomock.NewController(t)
	source := mocks.NewMockInstructionSource(ctrl)
	source.EXPECT().Next().Times(0)

	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.proc.Run(ctx, source)
	assert.ErrorIs(t, err, context.Canceled)
}
