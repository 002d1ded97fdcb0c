package engine

import (
	"errors"
	"math"
	"testing"

	"github.com/oz-earth/smart-contracts/pkg/domain"
	"github.com/oz-earth/smart-contracts/pkg/roles"
)

const (
	admin  = domain.Address("acc_admin")
	tenant = domain.Address("acc_tenant")
	holder = domain.Address("acc_holder")
	other  = domain.Address("acc_other")
)

var digest = domain.Digest{0x01, 0x02}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e := New(admin)
	if err := e.CreateTenant(admin, tenant); err != nil {
		t.Fatalf("create tenant: %v", err)
	}
	return e
}

func newProject(t *testing.T, e *Engine, class domain.AssetClass) uint64 {
	t.Helper()
	id, err := e.CreateProject(tenant, class)
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	return id
}

func TestCreateTenantAdminOnly(t *testing.T) {
	e := New(admin)
	if err := e.CreateTenant(other, tenant); !errors.Is(err, domain.ErrAdminRequired) {
		t.Fatalf("expected ErrAdminRequired, got %v", err)
	}
	if err := e.CreateTenant(admin, tenant); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !e.HasRole(roles.Tenant, tenant) {
		t.Fatalf("expected tenant role granted")
	}
}

func TestCreateProjectTenantOnly(t *testing.T) {
	e := newTestEngine(t)
	if _, err := e.CreateProject(other, domain.ClassFungible); !errors.Is(err, domain.ErrTenantOnly) {
		t.Fatalf("expected ErrTenantOnly, got %v", err)
	}
	if _, err := e.CreateProject(tenant, domain.AssetClass("BOGUS")); !errors.Is(err, domain.ErrInvalidClass) {
		t.Fatalf("expected ErrInvalidClass, got %v", err)
	}
	id := newProject(t, e, domain.ClassFungible)
	p, ok := e.GetProject(id)
	if !ok || p.Owner != tenant || p.Class != domain.ClassFungible {
		t.Fatalf("unexpected project: %+v ok=%v", p, ok)
	}
	if _, ok := e.GetProject(id + 1); ok {
		t.Fatalf("expected missing project lookup to report absence")
	}
}

// Mint 100 unlocked units, then lock with a ceiling below supply
// (fails) and above it (succeeds).
func TestUnlockedMintThenLock(t *testing.T) {
	e := newTestEngine(t)
	pid := newProject(t, e, domain.ClassFungible)
	id, err := e.MintNew(tenant, holder, 100, 999, digest, false, pid, nil)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	tok, _ := e.GetToken(id)
	if tok.Ceiling != 0 || tok.Locked || tok.Issued != 100 || tok.Burned != 0 {
		t.Fatalf("expected unlocked ceiling-0 token with issued=100, got %+v", tok)
	}
	if _, err := e.LockToken(tenant, id, 50); !errors.Is(err, domain.ErrCeilingBelowSupply) {
		t.Fatalf("expected ErrCeilingBelowSupply, got %v", err)
	}
	tok, err = e.LockToken(tenant, id, 150)
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	if !tok.Locked || tok.Ceiling != 150 {
		t.Fatalf("expected locked ceiling=150, got %+v", tok)
	}
	if _, err := e.LockToken(tenant, id, 200); !errors.Is(err, domain.ErrTokenLocked) {
		t.Fatalf("expected ErrTokenLocked, got %v", err)
	}
}

func TestLockTokenChecks(t *testing.T) {
	e := newTestEngine(t)
	pid := newProject(t, e, domain.ClassFungible)
	if _, err := e.LockToken(tenant, 99, 10); !errors.Is(err, domain.ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound, got %v", err)
	}
	id, err := e.MintNew(tenant, holder, 10, 0, digest, false, pid, nil)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := e.LockToken(other, id, 100); !errors.Is(err, domain.ErrNotMinter) {
		t.Fatalf("expected ErrNotMinter, got %v", err)
	}
}

func TestNonFungiblePolicy(t *testing.T) {
	e := newTestEngine(t)
	pid := newProject(t, e, domain.ClassNonFungible)
	// Caller-supplied amount/ceiling/locked are all overridden.
	id, err := e.MintNew(tenant, holder, 5, 10, digest, false, pid, nil)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	tok, _ := e.GetToken(id)
	if tok.Ceiling != 1 || !tok.Locked || tok.Issued != 1 {
		t.Fatalf("expected ceiling=1 locked issued=1, got %+v", tok)
	}
	if got := e.BalanceOf(holder, id); got != 1 {
		t.Fatalf("expected delivered amount 1, got %d", got)
	}
	if _, err := e.MintExisting(tenant, holder, id, 1, nil); !errors.Is(err, domain.ErrNonFungibleRemint) {
		t.Fatalf("expected ErrNonFungibleRemint, got %v", err)
	}
}

func TestMintNewAuthorization(t *testing.T) {
	e := newTestEngine(t)
	pid := newProject(t, e, domain.ClassFungible)
	if _, err := e.MintNew(other, holder, 1, 0, digest, false, pid, nil); !errors.Is(err, domain.ErrTenantOnly) {
		t.Fatalf("expected ErrTenantOnly, got %v", err)
	}
	if err := e.CreateTenant(admin, other); err != nil {
		t.Fatalf("create tenant: %v", err)
	}
	if _, err := e.MintNew(other, holder, 1, 0, digest, false, pid, nil); !errors.Is(err, domain.ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if _, err := e.MintNew(tenant, holder, 1, 0, digest, false, 0, nil); !errors.Is(err, domain.ErrProjectNotFound) {
		t.Fatalf("expected ErrProjectNotFound for id 0, got %v", err)
	}
	if _, err := e.MintNew(tenant, holder, 1, 0, digest, false, pid+1, nil); !errors.Is(err, domain.ErrProjectNotFound) {
		t.Fatalf("expected ErrProjectNotFound past counter, got %v", err)
	}
}

func TestMintNewLockedCeilingEnforcedAtCredit(t *testing.T) {
	e := newTestEngine(t)
	pid := newProject(t, e, domain.ClassFungible)
	_, err := e.MintNew(tenant, holder, 10, 5, digest, true, pid, nil)
	if !errors.Is(err, domain.ErrCeilingExceeded) {
		t.Fatalf("expected ErrCeilingExceeded, got %v", err)
	}
	// Failed mint must not leak the allocated identifier.
	if _, ok := e.GetToken(1); ok {
		t.Fatalf("expected no token record after failed mint")
	}
	id, err := e.MintNew(tenant, holder, 5, 5, digest, true, pid, nil)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if id != 1 {
		t.Fatalf("expected identifier 1 reused after rollback, got %d", id)
	}
}

func TestCeilingInvariantOnExistingMint(t *testing.T) {
	e := newTestEngine(t)
	pid := newProject(t, e, domain.ClassFungible)
	id, err := e.MintNew(tenant, holder, 60, 100, digest, true, pid, nil)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := e.MintExisting(tenant, holder, id, 50, nil); !errors.Is(err, domain.ErrCeilingExceeded) {
		t.Fatalf("expected ErrCeilingExceeded, got %v", err)
	}
	tok, _ := e.GetToken(id)
	if tok.Issued != 60 || tok.Burned != 0 {
		t.Fatalf("expected counters unchanged after failed mint, got %+v", tok)
	}
	if got := e.BalanceOf(holder, id); got != 60 {
		t.Fatalf("expected balance unchanged, got %d", got)
	}
	if _, err := e.MintExisting(tenant, holder, id, 40, nil); err != nil {
		t.Fatalf("mint to ceiling: %v", err)
	}
	if got := e.TotalSupply(id); got != 100 {
		t.Fatalf("expected supply 100, got %d", got)
	}
}

// A mint amount large enough to wrap the counter sums must not slip
// past the ceiling of a locked token.
func TestMintOverflowCannotBypassCeiling(t *testing.T) {
	e := newTestEngine(t)
	pid := newProject(t, e, domain.ClassFungible)
	id, err := e.MintNew(tenant, holder, 5, 5, digest, true, pid, nil)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := e.MintExisting(tenant, other, id, math.MaxUint64-2, nil); !errors.Is(err, domain.ErrCeilingExceeded) {
		t.Fatalf("expected ErrCeilingExceeded, got %v", err)
	}
	tok, _ := e.GetToken(id)
	if tok.Issued != 5 || tok.Burned != 0 || tok.Ceiling != 5 {
		t.Fatalf("expected counters unchanged, got %+v", tok)
	}
	if e.BalanceOf(holder, id) != 5 || e.BalanceOf(other, id) != 0 {
		t.Fatalf("expected balances unchanged, got %d/%d", e.BalanceOf(holder, id), e.BalanceOf(other, id))
	}
}

func TestMintOverflowOnUnlockedToken(t *testing.T) {
	e := newTestEngine(t)
	pid := newProject(t, e, domain.ClassFungible)
	id, err := e.MintNew(tenant, holder, math.MaxUint64, 0, digest, false, pid, nil)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := e.MintExisting(tenant, holder, id, 1, nil); !errors.Is(err, domain.ErrAmountOverflow) {
		t.Fatalf("expected ErrAmountOverflow, got %v", err)
	}
	tok, _ := e.GetToken(id)
	if tok.Issued != math.MaxUint64 || tok.Burned != 0 {
		t.Fatalf("expected counters unchanged, got %+v", tok)
	}
	if got := e.BalanceOf(holder, id); got != math.MaxUint64 {
		t.Fatalf("expected balance unchanged, got %d", got)
	}
}

func TestMintExistingChecks(t *testing.T) {
	e := newTestEngine(t)
	pid := newProject(t, e, domain.ClassFungible)
	id, err := e.MintNew(tenant, holder, 10, 0, digest, false, pid, nil)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := e.MintExisting(tenant, holder, 0, 1, nil); !errors.Is(err, domain.ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound for id 0, got %v", err)
	}
	if _, err := e.MintExisting(tenant, holder, id+1, 1, nil); !errors.Is(err, domain.ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound past counter, got %v", err)
	}
	if err := e.CreateTenant(admin, other); err != nil {
		t.Fatalf("create tenant: %v", err)
	}
	if _, err := e.MintExisting(other, holder, id, 1, nil); !errors.Is(err, domain.ErrNotMinter) {
		t.Fatalf("expected ErrNotMinter, got %v", err)
	}
}

// Burn scenario: 100 issued, burn 30 leaves 70/30, burning 80 more
// fails with no mutation.
func TestBurnAccounting(t *testing.T) {
	e := newTestEngine(t)
	pid := newProject(t, e, domain.ClassFungible)
	id, err := e.MintNew(tenant, holder, 100, 0, digest, false, pid, nil)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := e.Burn(holder, holder, id, 30, nil); err != nil {
		t.Fatalf("burn: %v", err)
	}
	tok, _ := e.GetToken(id)
	if tok.Issued != 70 || tok.Burned != 30 {
		t.Fatalf("expected issued=70 burned=30, got %+v", tok)
	}
	if err := e.Burn(holder, holder, id, 80, nil); !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	tok, _ = e.GetToken(id)
	if tok.Issued != 70 || tok.Burned != 30 {
		t.Fatalf("expected counters unchanged after failed burn, got %+v", tok)
	}
}

func TestBurnBatchAllOrNothing(t *testing.T) {
	e := newTestEngine(t)
	pid := newProject(t, e, domain.ClassFungible)
	id, err := e.MintNew(tenant, holder, 50, 0, digest, false, pid, nil)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := e.AtomicSwap(holder,
		[]domain.Address{holder}, []domain.Address{other},
		[]uint64{id}, []uint64{25}, [][]byte{nil}); err != nil {
		t.Fatalf("swap: %v", err)
	}
	// Second entry overdraws the remaining balance; the first must not
	// persist.
	err = e.BurnBatch(holder, holder, []uint64{id, id}, []uint64{20, 20}, nil)
	if !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	tok, _ := e.GetToken(id)
	if tok.Issued != 50 || tok.Burned != 0 {
		t.Fatalf("expected counters unchanged, got %+v", tok)
	}
	if e.BalanceOf(holder, id) != 25 {
		t.Fatalf("expected balance unchanged, got %d", e.BalanceOf(holder, id))
	}
}

func TestBurnAuthorization(t *testing.T) {
	e := newTestEngine(t)
	pid := newProject(t, e, domain.ClassFungible)
	id, err := e.MintNew(tenant, holder, 10, 0, digest, false, pid, nil)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := e.Burn(other, holder, id, 1, nil); !errors.Is(err, domain.ErrNotApproved) {
		t.Fatalf("expected ErrNotApproved, got %v", err)
	}
	if err := e.SetApprovalForAll(holder, other, true); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := e.Burn(other, holder, id, 1, nil); err != nil {
		t.Fatalf("burn via operator: %v", err)
	}
	if got := e.TotalSupply(id); got != 9 {
		t.Fatalf("expected supply 9, got %d", got)
	}
}

func TestPauseBlocksMutations(t *testing.T) {
	e := newTestEngine(t)
	pid := newProject(t, e, domain.ClassFungible)
	if err := e.Pause(admin); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if _, err := e.CreateProject(tenant, domain.ClassFungible); !errors.Is(err, domain.ErrPaused) {
		t.Fatalf("expected ErrPaused, got %v", err)
	}
	if _, err := e.MintNew(tenant, holder, 1, 0, digest, false, pid, nil); !errors.Is(err, domain.ErrPaused) {
		t.Fatalf("expected ErrPaused, got %v", err)
	}
	if err := e.Burn(holder, holder, 1, 1, nil); !errors.Is(err, domain.ErrPaused) {
		t.Fatalf("expected ErrPaused, got %v", err)
	}
	if err := e.Unpause(admin); err != nil {
		t.Fatalf("unpause: %v", err)
	}
	if _, err := e.CreateProject(tenant, domain.ClassFungible); err != nil {
		t.Fatalf("expected mint surface usable after unpause: %v", err)
	}
}

func TestExistsAndTotalSupply(t *testing.T) {
	e := newTestEngine(t)
	pid := newProject(t, e, domain.ClassFungible)
	if e.Exists(1) {
		t.Fatalf("expected no supply before mint")
	}
	id, err := e.MintNew(tenant, holder, 3, 0, digest, false, pid, nil)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if !e.Exists(id) || e.TotalSupply(id) != 3 {
		t.Fatalf("expected supply 3, got %d", e.TotalSupply(id))
	}
	if err := e.Burn(holder, holder, id, 3, nil); err != nil {
		t.Fatalf("burn: %v", err)
	}
	if e.Exists(id) {
		t.Fatalf("expected fully burned token to report no supply")
	}
}
