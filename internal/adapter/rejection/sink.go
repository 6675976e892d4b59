package rejection

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/iho/txledger/internal/adapter/csvio"
	"github.com/iho/txledger/internal/domain"
)

// LogSink implements usecase.RejectionSink by writing one structured event
// per rejected instruction or skipped record.
type LogSink struct {
	logger zerolog.Logger
}

// NewLogSink creates a new LogSink.
func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Reject logs a rejected instruction.
func (s *LogSink) Reject(instr domain.Instruction, rej *domain.RejectionError) {
	event := s.logger.Warn().
		Str("kind", string(instr.Kind())).
		Uint16("client", uint16(instr.ClientID())).
		Uint32("tx", uint32(instr.TxID())).
		Str("reason", rej.Code()).
		AnErr("error", rej.Reason)

	switch in := instr.(type) {
	case domain.Deposit:
		event = event.Str("amount", in.Amount.String())
	case domain.Withdrawal:
		event = event.Str("amount", in.Amount.String())
	}
	if rej.From != "" {
		event = event.Str("status", string(rej.From))
	}

	event.Msg("instruction rejected")
}

// Malformed logs a record skipped at the parsing boundary.
func (s *LogSink) Malformed(err error) {
	event := s.logger.Warn().Err(err)

	var parseErr *csvio.ParseError
	if errors.As(err, &parseErr) {
		event = event.Int("line", parseErr.Line)
	}

	event.Msg("malformed record skipped")
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) Reject(domain.Instruction, *domain.RejectionError) {}

func (NopSink) Malformed(error) {}
