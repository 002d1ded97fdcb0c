package engine

import (
	"github.com/oz-earth/smart-contracts/pkg/domain"
	"github.com/oz-earth/smart-contracts/pkg/ledger"
)

// AtomicSwap executes every leg as an individually authorized transfer
// in strict index order, as one indivisible unit. Any leg's failure
// reverts all preceding legs. A reentrancy exclusion covers the whole
// call.
func (e *Engine) AtomicSwap(caller domain.Address, from, to []domain.Address, ids, amounts []uint64, aux [][]byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.gate.CheckNotPaused(); err != nil {
		return err
	}
	if e.inSwap {
		return domain.ErrReentrant
	}
	e.inSwap = true
	defer func() { e.inSwap = false }()

	n := len(from)
	if len(to) != n || len(ids) != n || len(amounts) != n || len(aux) != n {
		return domain.ErrLengthMismatch
	}
	legs := make([]ledger.Leg, n)
	for i := 0; i < n; i++ {
		legs[i] = ledger.Leg{From: from[i], To: to[i], ID: ids[i], Amount: amounts[i], Aux: aux[i]}
	}
	if err := e.bank.TransferLegs(caller, legs); err != nil {
		return err
	}
	e.emit(domain.Event{
		Kind:     domain.EventTradeCompleted,
		Operator: caller,
		From:     append([]domain.Address(nil), from...),
		To:       append([]domain.Address(nil), to...),
		TokenIDs: append([]uint64(nil), ids...),
		Amounts:  append([]uint64(nil), amounts...),
	})
	return nil
}

// Burn destroys amount units held by from. Caller must be the holder
// or an approved operator; the supply accountant enforces that no more
// than the outstanding issued units are destroyed.
func (e *Engine) Burn(caller, from domain.Address, id, amount uint64, aux []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.gate.CheckNotPaused(); err != nil {
		return err
	}
	return e.bank.Debit(caller, from, id, amount, aux)
}

func (e *Engine) BurnBatch(caller, from domain.Address, ids, amounts []uint64, aux []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.gate.CheckNotPaused(); err != nil {
		return err
	}
	return e.bank.DebitBatch(caller, from, ids, amounts, aux)
}

// SetApprovalForAll lets the caller authorize or revoke an operator
// for all of its tokens.
func (e *Engine) SetApprovalForAll(caller, operator domain.Address, approved bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.gate.CheckNotPaused(); err != nil {
		return err
	}
	if operator == domain.ZeroAddress {
		return domain.ErrZeroAddress
	}
	e.bank.SetApprovalForAll(caller, operator, approved)
	return nil
}

// IsApprovedForAll reports whether operator may move owner's units.
func (e *Engine) IsApprovedForAll(owner, operator domain.Address) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bank.IsApprovedForAll(owner, operator)
}
