package usecase

import (
	"context"
	"fmt"

	"github.com/iho/txledger/internal/domain"
	"github.com/iho/txledger/internal/infrastructure/metrics"
)

// ReportUseCase folds the final account state into report rows.
type ReportUseCase struct {
	accounts AccountStore
	metrics  *metrics.Metrics
}

// NewReportUseCase creates a new report use case
func NewReportUseCase(accounts AccountStore, metrics *metrics.Metrics) *ReportUseCase {
	return &ReportUseCase{
		accounts: accounts,
		metrics:  metrics,
	}
}

// Generate returns one row per account, in no particular order.
func (uc *ReportUseCase) Generate() []domain.AccountReport {
	snapshot := uc.accounts.Snapshot()
	rows := make([]domain.AccountReport, 0, len(snapshot))
	locked := 0

	for i := range snapshot {
		rows = append(rows, snapshot[i].Report())
		if snapshot[i].Locked {
			locked++
		}
	}

	if uc.metrics != nil {
		uc.metrics.Accounts.Set(float64(len(rows)))
		uc.metrics.LockedAccounts.Set(float64(locked))
	}

	return rows
}

// Reconcile checks the report against the processor's net accepted flow:
// every row must satisfy total = available + held with held >= 0, and the
// totals must add up to netFlow.
func (uc *ReportUseCase) Reconcile(rows []domain.AccountReport, netFlow domain.Amount) error {
	sum := domain.ZeroAmount

	for _, row := range rows {
		if !row.Total.Equal(row.Available.Add(row.Held)) {
			return fmt.Errorf("%w: client %d total %s != available %s + held %s",
				domain.ErrLedgerInconsistent, row.Client, row.Total, row.Available, row.Held)
		}
		if row.Held.IsNegative() {
			return fmt.Errorf("%w: client %d has negative held funds %s",
				domain.ErrLedgerInconsistent, row.Client, row.Held)
		}
		sum = sum.Add(row.Total)
	}

	if !sum.Equal(netFlow) {
		return fmt.Errorf("%w: account totals %s != net flow %s",
			domain.ErrLedgerInconsistent, sum, netFlow)
	}

	return nil
}

// Publish hands the rows to publisher under runID. Empty reports are not
// published.
func (uc *ReportUseCase) Publish(ctx context.Context, publisher ReportPublisher, runID string, rows []domain.AccountReport) error {
	if len(rows) == 0 {
		return nil
	}

	if err := publisher.Publish(ctx, runID, rows); err != nil {
		return fmt.Errorf("failed to publish report %s: %w", runID, err)
	}

	return nil
}
