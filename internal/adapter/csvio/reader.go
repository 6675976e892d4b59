package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/iho/txledger/internal/domain"
)

// Column layout of the input file.
const (
	colType = iota
	colClient
	colTx
	colAmount

	minColumns = colTx + 1
	maxColumns = colAmount + 1
)

// ParseError is returned by Reader.Next for a record that cannot be turned
// into an instruction. It wraps domain.ErrMalformedRecord, so the run loop
// skips it and moves on.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Reader turns `type,client,tx,amount` CSV records into instructions.
// Fields are trimmed, the amount column may be absent for dispute, resolve
// and chargeback rows, and a leading header row is skipped.
type Reader struct {
	r       *csv.Reader
	started bool
}

// NewReader creates a Reader over r.
func NewReader(r io.Reader) *Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	return &Reader{r: cr}
}

// Next returns the next instruction, io.EOF at the end of input, a
// *ParseError for a malformed record, or the underlying read error.
func (r *Reader) Next() (domain.Instruction, error) {
	for {
		record, err := r.r.Read()
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		if err != nil {
			var csvErr *csv.ParseError
			if errors.As(err, &csvErr) {
				return nil, &ParseError{
					Line: csvErr.Line,
					Err:  fmt.Errorf("%w: %w", domain.ErrMalformedRecord, csvErr.Err),
				}
			}
			return nil, err
		}

		line, _ := r.r.FieldPos(0)
		for i := range record {
			record[i] = strings.TrimSpace(record[i])
		}

		if !r.started {
			r.started = true
			if strings.EqualFold(record[colType], "type") {
				continue
			}
		}

		instr, err := parseRecord(record)
		if err != nil {
			return nil, &ParseError{Line: line, Err: err}
		}
		return instr, nil
	}
}

func parseRecord(record []string) (domain.Instruction, error) {
	if len(record) < minColumns || len(record) > maxColumns {
		return nil, fmt.Errorf("%w: expected %d or %d fields, got %d",
			domain.ErrMalformedRecord, minColumns, maxColumns, len(record))
	}

	kind, ok := domain.ParseInstructionKind(strings.ToLower(record[colType]))
	if !ok {
		return nil, fmt.Errorf("%w: unknown type %q", domain.ErrMalformedRecord, record[colType])
	}

	client, err := strconv.ParseUint(record[colClient], 10, 16)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid client %q", domain.ErrMalformedRecord, record[colClient])
	}

	tx, err := strconv.ParseUint(record[colTx], 10, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid tx %q", domain.ErrMalformedRecord, record[colTx])
	}

	clientID, txID := domain.ClientID(client), domain.TxID(tx)

	switch kind {
	case domain.KindDeposit, domain.KindWithdrawal:
		if len(record) <= colAmount {
			return nil, fmt.Errorf("%w: %s without amount", domain.ErrMalformedRecord, kind)
		}
		amount, err := domain.ParseAmount(record[colAmount])
		if err != nil {
			return nil, err
		}
		if kind == domain.KindDeposit {
			return domain.Deposit{Client: clientID, Tx: txID, Amount: amount}, nil
		}
		return domain.Withdrawal{Client: clientID, Tx: txID, Amount: amount}, nil
	case domain.KindDispute:
		return domain.Dispute{Client: clientID, Tx: txID}, nil
	case domain.KindResolve:
		return domain.Resolve{Client: clientID, Tx: txID}, nil
	default:
		return domain.Chargeback{Client: clientID, Tx: txID}, nil
	}
}
