package engine

import (
	"math"

	"github.com/oz-earth/smart-contracts/pkg/domain"
)

// accountant is the ledger's post-transfer hook. It is the single
// point where supply counters are kept consistent with actual unit
// movement: issuance legs increment issued, burn legs move issued to
// burned, plain transfer legs change nothing.
//
// It runs synchronously inside an engine call that already holds the
// mutex, so it must not lock.
type accountant struct{ e *Engine }

func (a accountant) AfterTransfer(operator, from, to domain.Address, ids, amounts []uint64, aux []byte) error {
	switch {
	case from == domain.ZeroAddress:
		return a.e.recordIssuance(ids, amounts)
	case to == domain.ZeroAddress:
		return a.e.recordBurn(ids, amounts)
	}
	return nil
}

// recordIssuance validates every leg against current counters before
// applying any, so a failing leg leaves all counters untouched and
// aborts the balance mutation that triggered it. All comparisons are
// phrased against remaining headroom so no sum of uint64 counters can
// wrap; issued+burned <= ceiling holds for locked tokens and keeps the
// subtractions safe.
func (e *Engine) recordIssuance(ids, amounts []uint64) error {
	delta := map[uint64]uint64{}
	for i, id := range ids {
		tok, ok := e.tokens[id]
		if !ok {
			return domain.ErrTokenNotFound
		}
		if amounts[i] > math.MaxUint64-delta[id] {
			return domain.ErrAmountOverflow
		}
		delta[id] += amounts[i]
		if tok.Locked {
			if delta[id] > tok.Ceiling-tok.Issued-tok.Burned {
				return domain.ErrCeilingExceeded
			}
		} else if delta[id] > math.MaxUint64-tok.Issued-tok.Burned {
			return domain.ErrAmountOverflow
		}
	}
	for i, id := range ids {
		tok := e.tokens[id]
		tok.Issued += amounts[i]
		e.tokens[id] = tok
	}
	return nil
}

func (e *Engine) recordBurn(ids, amounts []uint64) error {
	delta := map[uint64]uint64{}
	for i, id := range ids {
		tok, ok := e.tokens[id]
		if !ok {
			return domain.ErrTokenNotFound
		}
		if amounts[i] > math.MaxUint64-delta[id] {
			return domain.ErrAmountOverflow
		}
		delta[id] += amounts[i]
		if tok.Issued < delta[id] {
			return domain.ErrBurnExceedsIssued
		}
	}
	for i, id := range ids {
		tok := e.tokens[id]
		tok.Issued -= amounts[i]
		tok.Burned += amounts[i]
		e.tokens[id] = tok
	}
	return nil
}
