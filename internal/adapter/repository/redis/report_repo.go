package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iho/txledger/internal/domain"
	"github.com/iho/txledger/internal/infrastructure/metrics"
)

const (
	fieldAvailable = "available"
	fieldHeld      = "held"
	fieldTotal     = "total"
	fieldLocked    = "locked"
)

// ReportRepository implements usecase.ReportPublisher using Redis. Each run
// is stored as one hash per client under <prefix><run>:client:<id>, indexed
// by the sorted set <prefix><run>:clients.
type ReportRepository struct {
	client  *redis.Client
	prefix  string
	ttl     time.Duration
	retrier *Retrier
	metrics *metrics.Metrics
}

// NewReportRepository creates a new ReportRepository. A zero ttl keeps keys
// forever.
func NewReportRepository(client *redis.Client, prefix string, ttl time.Duration, retrier *Retrier, metrics *metrics.Metrics) *ReportRepository {
	return &ReportRepository{
		client:  client,
		prefix:  prefix,
		ttl:     ttl,
		retrier: retrier,
		metrics: metrics,
	}
}

func (r *ReportRepository) indexKey(runID string) string {
	return r.prefix + runID + ":clients"
}

func (r *ReportRepository) clientKey(runID string, client domain.ClientID) string {
	return fmt.Sprintf("%s%s:client:%d", r.prefix, runID, client)
}

// Publish writes all rows in a single MULTI/EXEC, retrying transient errors.
func (r *ReportRepository) Publish(ctx context.Context, runID string, rows []domain.AccountReport) error {
	op := func() error { return r.publish(ctx, runID, rows) }
	if r.retrier == nil {
		return r.observe("publish", op())
	}
	return r.observe("publish", r.retrier.Retry(ctx, op))
}

func (r *ReportRepository) publish(ctx context.Context, runID string, rows []domain.AccountReport) error {
	index := r.indexKey(runID)

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, row := range rows {
			key := r.clientKey(runID, row.Client)
			pipe.HSet(ctx, key, map[string]any{
				fieldAvailable: row.Available.String(),
				fieldHeld:      row.Held.String(),
				fieldTotal:     row.Total.String(),
				fieldLocked:    strconv.FormatBool(row.Locked),
			})
			pipe.ZAdd(ctx, index, redis.Z{Score: float64(row.Client), Member: strconv.FormatUint(uint64(row.Client), 10)})
			if r.ttl > 0 {
				pipe.Expire(ctx, key, r.ttl)
			}
		}
		if r.ttl > 0 && len(rows) > 0 {
			pipe.Expire(ctx, index, r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to publish report %s: %w", runID, err)
	}

	return nil
}

func (r *ReportRepository) observe(operation string, err error) error {
	if r.metrics != nil {
		r.metrics.RedisOperations.WithLabelValues(operation).Inc()
		if err != nil {
			r.metrics.RedisErrors.WithLabelValues(operation).Inc()
		}
	}
	return err
}
