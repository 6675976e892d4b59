package csvio

import (
	"cmp"
	"encoding/csv"
	"io"
	"slices"
	"strconv"

	"github.com/iho/txledger/internal/domain"
)

var reportHeader = []string{"client", "available", "held", "total", "locked"}

// WriteReport writes rows as CSV sorted by client id, so that the same
// ledger always serializes to the same bytes.
func WriteReport(w io.Writer, rows []domain.AccountReport) error {
	sorted := slices.Clone(rows)
	slices.SortFunc(sorted, func(a, b domain.AccountReport) int {
		return cmp.Compare(a.Client, b.Client)
	})

	cw := csv.NewWriter(w)
	if err := cw.Write(reportHeader); err != nil {
		return err
	}

	for _, row := range sorted {
		record := []string{
			strconv.FormatUint(uint64(row.Client), 10),
			row.Available.String(),
			row.Held.String(),
			row.Total.String(),
			strconv.FormatBool(row.Locked),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
