package rejection

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/txledger/internal/adapter/csvio"
	"github.com/iho/txledger/internal/domain"
	"github.com/iho/txledger/internal/usecase"
)

var (
	_ usecase.RejectionSink = (*LogSink)(nil)
	_ usecase.RejectionSink = NopSink{}
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var event map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &event))
	return event
}

func TestLogSink_Reject(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogSink(zerolog.New(&buf))

	instr := domain.Withdrawal{Client: 4, Tx: 12, Amount: domain.MustParseAmount("15")}
	sink.Reject(instr, domain.Reject(instr, domain.ErrInsufficientFunds))

	event := decodeLine(t, &buf)
	assert.Equal(t, "warn", event["level"])
	assert.Equal(t, "instruction rejected", event["message"])
	assert.Equal(t, "withdrawal", event["kind"])
	assert.Equal(t, float64(4), event["client"])
	assert.Equal(t, float64(12), event["tx"])
	assert.Equal(t, "insufficient_funds", event["reason"])
	assert.Equal(t, "15.0000", event["amount"])
}

func TestLogSink_RejectIncludesStatus(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogSink(zerolog.New(&buf))

	instr := domain.Dispute{Client: 1, Tx: 1}
	rej := domain.Reject(instr, domain.ErrIllegalStateTransition)
	rej.From = domain.StatusChargedBack
	sink.Reject(instr, rej)

	event := decodeLine(t, &buf)
	assert.Equal(t, "charged_back", event["status"])
	assert.NotContains(t, event, "amount")
}

func TestLogSink_Malformed(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogSink(zerolog.New(&buf))

	sink.Malformed(&csvio.ParseError{Line: 7, Err: fmt.Errorf("%w: bad", domain.ErrMalformedRecord)})

	event := decodeLine(t, &buf)
	assert.Equal(t, "malformed record skipped", event["message"])
	assert.Equal(t, float64(7), event["line"])
}
