package roles

import "github.com/oz-earth/smart-contracts/pkg/domain"

// Gate is the pause switch. Every mutating entry point checks
// CheckNotPaused first; only a pauser-role account may toggle it.
type Gate struct {
	dir    *Directory
	paused bool
}

func NewGate(dir *Directory) *Gate { return &Gate{dir: dir} }

func (g *Gate) Paused() bool { return g.paused }

func (g *Gate) CheckNotPaused() error {
	if g.paused {
		return domain.ErrPaused
	}
	return nil
}

func (g *Gate) Pause(caller domain.Address) error {
	if !g.dir.HasRole(Pauser, caller) {
		return domain.ErrUnauthorized
	}
	g.paused = true
	return nil
}

func (g *Gate) Unpause(caller domain.Address) error {
	if !g.dir.HasRole(Pauser, caller) {
		return domain.ErrUnauthorized
	}
	g.paused = false
	return nil
}
