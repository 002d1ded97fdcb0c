// Package roles provides the access directory and the pause gate
// consumed by the issuance engine.
//
// It intentionally avoids persistence: grants live for the lifetime of
// the process that owns the engine, under the same atomicity as the
// surrounding call.
package roles

import (
	"github.com/oz-earth/smart-contracts/pkg/domain"
)

type Role string

const (
	Admin  Role = "ADMIN"
	Tenant Role = "TENANT"
	Pauser Role = "PAUSER"
)

// Directory resolves whether an account holds a named role. Grants and
// revocations are admin-gated.
type Directory struct {
	grants map[Role]map[domain.Address]bool
}

// NewDirectory seeds the bootstrap account with the admin and pauser
// roles.
func NewDirectory(admin domain.Address) *Directory {
	d := &Directory{grants: map[Role]map[domain.Address]bool{}}
	d.set(Admin, admin)
	d.set(Pauser, admin)
	return d
}

func (d *Directory) set(role Role, acct domain.Address) {
	if d.grants[role] == nil {
		d.grants[role] = map[domain.Address]bool{}
	}
	d.grants[role][acct] = true
}

func (d *Directory) HasRole(role Role, acct domain.Address) bool {
	return d.grants[role][acct]
}

func (d *Directory) Grant(caller domain.Address, role Role, acct domain.Address) error {
	if !d.HasRole(Admin, caller) {
		return domain.ErrAdminRequired
	}
	if acct == domain.ZeroAddress {
		return domain.ErrZeroAddress
	}
	d.set(role, acct)
	return nil
}

func (d *Directory) Revoke(caller domain.Address, role Role, acct domain.Address) error {
	if !d.HasRole(Admin, caller) {
		return domain.ErrAdminRequired
	}
	delete(d.grants[role], acct)
	return nil
}
