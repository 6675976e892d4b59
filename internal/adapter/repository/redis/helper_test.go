package redis

import (
	"context"
	"fmt"
	"strconv"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	redislib "github.com/redis/go-redis/v9"

	"github.com/iho/txledger/internal/domain"
)

func newTestRedisClient(t *testing.T) (*redislib.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redislib.NewClient(&redislib.Options{
		Addr:       mr.Addr(),
		MaxRetries: -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	return client, mr
}

// readReport loads a published run back, ordered by client id.
func readReport(ctx context.Context, r *ReportRepository, runID string) ([]domain.AccountReport, error) {
	members, err := r.client.ZRange(ctx, r.indexKey(runID), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	rows := make([]domain.AccountReport, 0, len(members))
	for _, member := range members {
		id, err := strconv.ParseUint(member, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("invalid client id %q: %w", member, err)
		}

		fields, err := r.client.HGetAll(ctx, r.clientKey(runID, domain.ClientID(id))).Result()
		if err != nil {
			return nil, err
		}

		row, err := decodeRow(domain.ClientID(id), fields)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}

	return rows, nil
}

func decodeRow(client domain.ClientID, fields map[string]string) (domain.AccountReport, error) {
	row := domain.AccountReport{Client: client}

	amounts := []struct {
		name string
		dst  *domain.Amount
	}{
		{fieldAvailable, &row.Available},
		{fieldHeld, &row.Held},
		{fieldTotal, &row.Total},
	}
	for _, a := range amounts {
		v, err := domain.ParseAmount(fields[a.name])
		if err != nil {
			return row, fmt.Errorf("client %d field %s: %w", client, a.name, err)
		}
		*a.dst = v
	}

	locked, err := strconv.ParseBool(fields[fieldLocked])
	if err != nil {
		return row, fmt.Errorf("client %d field %s: %w", client, fieldLocked, err)
	}
	row.Locked = locked

	return row, nil
}
