// Package engine is the issuance ledger core: project and token
// registries, supply accounting, the issuance controller, and the
// transfer orchestrator.
//
// Every mutating call is atomic. It runs to completion under one mutex
// and either commits fully or leaves all state exactly as it was.
package engine

import (
	"sync"
	"time"

	"github.com/oz-earth/smart-contracts/pkg/domain"
	"github.com/oz-earth/smart-contracts/pkg/ledger"
	"github.com/oz-earth/smart-contracts/pkg/roles"
)

type Engine struct {
	mu sync.Mutex

	dir  *roles.Directory
	gate *roles.Gate
	bank *ledger.Ledger

	projects     map[uint64]domain.Project
	tokens       map[uint64]domain.Token
	projectCount uint64
	tokenCount   uint64

	inSwap bool

	now    func() time.Time
	sink   domain.EventSink
	events []domain.Event
}

type Option func(*Engine)

// WithClock overrides the timestamp source. Used by tests and replay.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithSink registers a synchronous observer for emitted events.
func WithSink(sink domain.EventSink) Option {
	return func(e *Engine) { e.sink = sink }
}

// New builds an engine whose bootstrap account holds the admin and
// pauser roles. The engine registers itself as the balance ledger's
// sole post-transfer hook.
func New(admin domain.Address, opts ...Option) *Engine {
	dir := roles.NewDirectory(admin)
	e := &Engine{
		dir:      dir,
		gate:     roles.NewGate(dir),
		bank:     ledger.New(),
		projects: map[uint64]domain.Project{},
		tokens:   map[uint64]domain.Token{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.bank.SetHook(accountant{e})
	return e
}

func (e *Engine) emit(ev domain.Event) {
	ev.At = e.now()
	e.events = append(e.events, ev)
	if e.sink != nil {
		e.sink(ev)
	}
}

// CreateTenant grants the tenant role to owner. Admin only.
func (e *Engine) CreateTenant(caller, owner domain.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.gate.CheckNotPaused(); err != nil {
		return err
	}
	if err := e.dir.Grant(caller, roles.Tenant, owner); err != nil {
		return err
	}
	e.emit(domain.Event{Kind: domain.EventTenantCreated, Operator: caller, Account: owner})
	return nil
}

// GrantRole and RevokeRole expose the access directory. Admin only.
func (e *Engine) GrantRole(caller domain.Address, role roles.Role, acct domain.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.gate.CheckNotPaused(); err != nil {
		return err
	}
	return e.dir.Grant(caller, role, acct)
}

func (e *Engine) RevokeRole(caller domain.Address, role roles.Role, acct domain.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.gate.CheckNotPaused(); err != nil {
		return err
	}
	return e.dir.Revoke(caller, role, acct)
}

func (e *Engine) HasRole(role roles.Role, acct domain.Address) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dir.HasRole(role, acct)
}

// Pause and Unpause toggle the gate. Pauser only. Unpause must work
// while paused, so neither checks the gate.
func (e *Engine) Pause(caller domain.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gate.Pause(caller)
}

func (e *Engine) Unpause(caller domain.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gate.Unpause(caller)
}

func (e *Engine) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gate.Paused()
}

// GetProject looks up a project record. ok is false if the identifier
// was never allocated.
func (e *Engine) GetProject(id uint64) (domain.Project, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.projects[id]
	return p, ok
}

// GetToken looks up a token record.
func (e *Engine) GetToken(id uint64) (domain.Token, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, ok := e.tokens[id]
	return t, ok
}

// TotalSupply reports the currently outstanding issued units of id.
func (e *Engine) TotalSupply(id uint64) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tokens[id].Issued
}

// Exists reports whether id has outstanding supply.
func (e *Engine) Exists(id uint64) bool {
	return e.TotalSupply(id) > 0
}

func (e *Engine) BalanceOf(acct domain.Address, id uint64) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bank.BalanceOf(acct, id)
}

// BalanceNFT enumerates every token the account holds a positive
// balance of. The scan covers ids 1..tokenCount inclusive: identifiers
// start at 1 and the counter holds the last allocated id.
func (e *Engine) BalanceNFT(acct domain.Address) (ids []uint64, balances []uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for id := uint64(1); id <= e.tokenCount; id++ {
		if bal := e.bank.BalanceOf(acct, id); bal > 0 {
			ids = append(ids, id)
			balances = append(balances, bal)
		}
	}
	return ids, balances
}

// Events returns a copy of the append-only notification log.
func (e *Engine) Events() []domain.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.Event, len(e.events))
	copy(out, e.events)
	return out
}
