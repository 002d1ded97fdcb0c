// Package ledger is the multi-token balance substrate: per-account
// per-token unit counts, operator approvals, and credit/debit/transfer
// primitives. After every balance mutation it synchronously notifies a
// single registered hook; a hook failure rolls the mutation back, so
// callers observe strict all-or-nothing semantics.
package ledger

import (
	"math"

	"github.com/oz-earth/smart-contracts/pkg/domain"
)

// Hook receives one notification per balance-changing operation.
// from == ZeroAddress signals issuance, to == ZeroAddress signals burn.
// Returning an error aborts the operation that triggered it.
type Hook interface {
	AfterTransfer(operator, from, to domain.Address, ids, amounts []uint64, aux []byte) error
}

// Leg is one transfer in a multi-leg batch.
type Leg struct {
	From   domain.Address
	To     domain.Address
	ID     uint64
	Amount uint64
	Aux    []byte
}

type Ledger struct {
	balances  map[uint64]map[domain.Address]uint64
	approvals map[domain.Address]map[domain.Address]bool
	hook      Hook
}

func New() *Ledger {
	return &Ledger{
		balances:  map[uint64]map[domain.Address]uint64{},
		approvals: map[domain.Address]map[domain.Address]bool{},
	}
}

// SetHook registers the sole post-transfer handler. It must be set
// before any balance mutation.
func (l *Ledger) SetHook(h Hook) { l.hook = h }

func (l *Ledger) BalanceOf(acct domain.Address, id uint64) uint64 {
	return l.balances[id][acct]
}

func (l *Ledger) SetApprovalForAll(owner, operator domain.Address, approved bool) {
	if l.approvals[owner] == nil {
		l.approvals[owner] = map[domain.Address]bool{}
	}
	l.approvals[owner][operator] = approved
}

func (l *Ledger) IsApprovedForAll(owner, operator domain.Address) bool {
	return owner == operator || l.approvals[owner][operator]
}

// Credit mints amount units of id to the recipient.
func (l *Ledger) Credit(operator, to domain.Address, id, amount uint64, aux []byte) error {
	return l.CreditBatch(operator, to, []uint64{id}, []uint64{amount}, aux)
}

// CreditBatch mints several token ids to one recipient as a single
// notification. All-or-nothing.
func (l *Ledger) CreditBatch(operator, to domain.Address, ids, amounts []uint64, aux []byte) error {
	if to == domain.ZeroAddress {
		return domain.ErrZeroAddress
	}
	if len(ids) != len(amounts) {
		return domain.ErrLengthMismatch
	}
	var undo undoLog
	for i := range ids {
		if amounts[i] > math.MaxUint64-l.balances[ids[i]][to] {
			undo.revert(l)
			return domain.ErrAmountOverflow
		}
		undo.add(l, to, ids[i], amounts[i])
	}
	if err := l.notify(operator, domain.ZeroAddress, to, ids, amounts, aux); err != nil {
		undo.revert(l)
		return err
	}
	return nil
}

// Debit burns amount units of id held by from. The operator must be
// the holder or an approved operator.
func (l *Ledger) Debit(operator, from domain.Address, id, amount uint64, aux []byte) error {
	return l.DebitBatch(operator, from, []uint64{id}, []uint64{amount}, aux)
}

func (l *Ledger) DebitBatch(operator, from domain.Address, ids, amounts []uint64, aux []byte) error {
	if from == domain.ZeroAddress {
		return domain.ErrZeroAddress
	}
	if !l.IsApprovedForAll(from, operator) {
		return domain.ErrNotApproved
	}
	if len(ids) != len(amounts) {
		return domain.ErrLengthMismatch
	}
	var undo undoLog
	for i := range ids {
		if l.balances[ids[i]][from] < amounts[i] {
			undo.revert(l)
			return domain.ErrInsufficientBalance
		}
		undo.sub(l, from, ids[i], amounts[i])
	}
	if err := l.notify(operator, from, domain.ZeroAddress, ids, amounts, aux); err != nil {
		undo.revert(l)
		return err
	}
	return nil
}

// Transfer moves units between two accounts.
func (l *Ledger) Transfer(operator, from, to domain.Address, id, amount uint64, aux []byte) error {
	return l.TransferLegs(operator, []Leg{{From: from, To: to, ID: id, Amount: amount, Aux: aux}})
}

// TransferLegs executes every leg in index order as an individually
// authorized transfer, notifying the hook once per leg. Any failure
// reverts all preceding legs.
func (l *Ledger) TransferLegs(operator domain.Address, legs []Leg) error {
	var undo undoLog
	for _, leg := range legs {
		if err := l.transferLeg(operator, leg, &undo); err != nil {
			undo.revert(l)
			return err
		}
	}
	return nil
}

func (l *Ledger) transferLeg(operator domain.Address, leg Leg, undo *undoLog) error {
	if leg.From == domain.ZeroAddress || leg.To == domain.ZeroAddress {
		return domain.ErrZeroAddress
	}
	if !l.IsApprovedForAll(leg.From, operator) {
		return domain.ErrNotApproved
	}
	if l.balances[leg.ID][leg.From] < leg.Amount {
		return domain.ErrInsufficientBalance
	}
	if leg.Amount > math.MaxUint64-l.balances[leg.ID][leg.To] {
		return domain.ErrAmountOverflow
	}
	undo.sub(l, leg.From, leg.ID, leg.Amount)
	undo.add(l, leg.To, leg.ID, leg.Amount)
	return l.notify(operator, leg.From, leg.To, []uint64{leg.ID}, []uint64{leg.Amount}, leg.Aux)
}

func (l *Ledger) notify(operator, from, to domain.Address, ids, amounts []uint64, aux []byte) error {
	if l.hook == nil {
		return nil
	}
	return l.hook.AfterTransfer(operator, from, to, ids, amounts, aux)
}

// undoLog records applied balance deltas so a failed operation can be
// unwound exactly.
type undoLog struct {
	entries []undoEntry
}

type undoEntry struct {
	acct   domain.Address
	id     uint64
	amount uint64
	credit bool
}

func (u *undoLog) add(l *Ledger, acct domain.Address, id, amount uint64) {
	if l.balances[id] == nil {
		l.balances[id] = map[domain.Address]uint64{}
	}
	l.balances[id][acct] += amount
	u.entries = append(u.entries, undoEntry{acct: acct, id: id, amount: amount, credit: true})
}

func (u *undoLog) sub(l *Ledger, acct domain.Address, id, amount uint64) {
	if l.balances[id] == nil {
		l.balances[id] = map[domain.Address]uint64{}
	}
	l.balances[id][acct] -= amount
	u.entries = append(u.entries, undoEntry{acct: acct, id: id, amount: amount})
}

func (u *undoLog) revert(l *Ledger) {
	for i := len(u.entries) - 1; i >= 0; i-- {
		e := u.entries[i]
		if e.credit {
			l.balances[e.id][e.acct] -= e.amount
		} else {
			l.balances[e.id][e.acct] += e.amount
		}
	}
	u.entries = nil
}
