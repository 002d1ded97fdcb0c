package roles

import (
	"errors"
	"testing"

	"github.com/oz-earth/smart-contracts/pkg/domain"
)

const (
	admin    = domain.Address("acc_admin")
	outsider = domain.Address("acc_outsider")
	t1       = domain.Address("acc_t1")
)

func TestGrantRequiresAdmin(t *testing.T) {
	d := NewDirectory(admin)
	if err := d.Grant(outsider, Tenant, t1); !errors.Is(err, domain.ErrAdminRequired) {
		t.Fatalf("expected ErrAdminRequired, got %v", err)
	}
	if err := d.Grant(admin, Tenant, t1); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !d.HasRole(Tenant, t1) {
		t.Fatalf("expected tenant role after grant")
	}
	if err := d.Grant(admin, Tenant, domain.ZeroAddress); !errors.Is(err, domain.ErrZeroAddress) {
		t.Fatalf("expected ErrZeroAddress, got %v", err)
	}
}

func TestRevoke(t *testing.T) {
	d := NewDirectory(admin)
	if err := d.Grant(admin, Tenant, t1); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := d.Revoke(outsider, Tenant, t1); !errors.Is(err, domain.ErrAdminRequired) {
		t.Fatalf("expected ErrAdminRequired, got %v", err)
	}
	if err := d.Revoke(admin, Tenant, t1); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if d.HasRole(Tenant, t1) {
		t.Fatalf("expected role revoked")
	}
}

func TestBootstrapRoles(t *testing.T) {
	d := NewDirectory(admin)
	if !d.HasRole(Admin, admin) || !d.HasRole(Pauser, admin) {
		t.Fatalf("expected bootstrap account to hold admin and pauser")
	}
}

func TestPauseGate(t *testing.T) {
	d := NewDirectory(admin)
	g := NewGate(d)
	if err := g.CheckNotPaused(); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := g.Pause(outsider); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := g.Pause(admin); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := g.CheckNotPaused(); !errors.Is(err, domain.ErrPaused) {
		t.Fatalf("expected ErrPaused, got %v", err)
	}
	if err := g.Unpause(admin); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if g.Paused() {
		t.Fatalf("expected gate open after unpause")
	}
}
