package engine

import (
	"github.com/oz-earth/smart-contracts/pkg/domain"
	"github.com/oz-earth/smart-contracts/pkg/roles"
)

// CreateProject registers a new project owned by the caller. Tenant
// only. The asset-class policy is fixed for the project's lifetime.
func (e *Engine) CreateProject(caller domain.Address, class domain.AssetClass) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.gate.CheckNotPaused(); err != nil {
		return 0, err
	}
	if !e.dir.HasRole(roles.Tenant, caller) {
		return 0, domain.ErrTenantOnly
	}
	if !class.Valid() {
		return 0, domain.ErrInvalidClass
	}
	e.projectCount++
	p := domain.Project{ID: e.projectCount, Owner: caller, Class: class, CreatedAt: e.now()}
	e.projects[p.ID] = p
	e.emit(domain.Event{Kind: domain.EventProjectCreated, Operator: caller, Project: &p})
	return p.ID, nil
}

// LockToken fixes a token's supply ceiling. One-way: there is no
// unlock. Token minter only.
func (e *Engine) LockToken(caller domain.Address, tokenID, ceiling uint64) (domain.Token, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.gate.CheckNotPaused(); err != nil {
		return domain.Token{}, err
	}
	tok, ok := e.tokens[tokenID]
	if !ok {
		return domain.Token{}, domain.ErrTokenNotFound
	}
	if caller != tok.Minter {
		return domain.Token{}, domain.ErrNotMinter
	}
	if tok.Locked {
		return domain.Token{}, domain.ErrTokenLocked
	}
	if ceiling < tok.Issued+tok.Burned {
		return domain.Token{}, domain.ErrCeilingBelowSupply
	}
	tok.Ceiling = ceiling
	tok.Locked = true
	e.tokens[tokenID] = tok
	e.emit(domain.Event{Kind: domain.EventTokenLocked, Operator: caller, Tokens: []domain.Token{tok}})
	return tok, nil
}

// applyClassPolicy normalizes caller-supplied mint parameters to the
// project's asset class. NonFungible forces a single locked unit;
// anything minted unlocked carries no ceiling.
func applyClassPolicy(class domain.AssetClass, amount, ceiling uint64, locked bool) (uint64, uint64, bool) {
	if class == domain.ClassNonFungible {
		return 1, 1, true
	}
	if !locked {
		ceiling = 0
	}
	return amount, ceiling, locked
}

// MintNew allocates a fresh token under projectID and credits the
// recipient. Caller must hold the tenant role and own the project.
func (e *Engine) MintNew(caller, to domain.Address, amount, ceiling uint64, metadata domain.Digest, locked bool, projectID uint64, aux []byte) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.gate.CheckNotPaused(); err != nil {
		return 0, err
	}
	proj, err := e.mintableProject(caller, projectID)
	if err != nil {
		return 0, err
	}
	amount, ceiling, locked = applyClassPolicy(proj.Class, amount, ceiling, locked)

	e.tokenCount++
	id := e.tokenCount
	e.tokens[id] = domain.Token{
		ID:        id,
		Minter:    caller,
		ProjectID: projectID,
		Ceiling:   ceiling,
		Class:     proj.Class,
		Metadata:  metadata,
		Locked:    locked,
		CreatedAt: e.now(),
	}
	if err := e.bank.Credit(caller, to, id, amount, aux); err != nil {
		delete(e.tokens, id)
		e.tokenCount--
		return 0, err
	}
	e.emit(domain.Event{
		Kind:     domain.EventMintSingle,
		Operator: caller,
		Account:  to,
		Tokens:   []domain.Token{e.tokens[id]},
		TokenIDs: []uint64{id},
		Amounts:  []uint64{amount},
	})
	return id, nil
}

// MintExisting issues further units of an existing token. The token
// must not be NonFungible, and the caller must be both its original
// minter and the owner of its project.
func (e *Engine) MintExisting(caller, to domain.Address, tokenID, amount uint64, aux []byte) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.gate.CheckNotPaused(); err != nil {
		return 0, err
	}
	if !e.dir.HasRole(roles.Tenant, caller) {
		return 0, domain.ErrTenantOnly
	}
	if tokenID == 0 || tokenID > e.tokenCount {
		return 0, domain.ErrTokenNotFound
	}
	tok := e.tokens[tokenID]
	if tok.Class == domain.ClassNonFungible {
		return 0, domain.ErrNonFungibleRemint
	}
	if caller != tok.Minter {
		return 0, domain.ErrNotMinter
	}
	if caller != e.projects[tok.ProjectID].Owner {
		return 0, domain.ErrNotOwner
	}
	if err := e.bank.Credit(caller, to, tokenID, amount, aux); err != nil {
		return 0, err
	}
	e.emit(domain.Event{
		Kind:     domain.EventMintSingle,
		Operator: caller,
		Account:  to,
		Tokens:   []domain.Token{e.tokens[tokenID]},
		TokenIDs: []uint64{tokenID},
		Amounts:  []uint64{amount},
	})
	return tokenID, nil
}

// MintBatch allocates count fresh tokens under projectID with one
// batched credit and one batch event. Length validation happens before
// any identifier is allocated; the credit step is all-or-nothing.
func (e *Engine) MintBatch(caller, to domain.Address, count uint64, amounts []uint64, metadata []domain.Digest, ceiling uint64, locked bool, projectID uint64, aux []byte) ([]uint64, []uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.gate.CheckNotPaused(); err != nil {
		return nil, nil, err
	}
	if count == 0 {
		return nil, nil, domain.ErrEmptyBatch
	}
	if uint64(len(amounts)) != count || uint64(len(metadata)) != count {
		return nil, nil, domain.ErrLengthMismatch
	}
	proj, err := e.mintableProject(caller, projectID)
	if err != nil {
		return nil, nil, err
	}

	issued := make([]uint64, count)
	ids := make([]uint64, count)
	created := make([]domain.Token, count)
	firstID := e.tokenCount + 1
	for i := uint64(0); i < count; i++ {
		amt, ceil, lock := applyClassPolicy(proj.Class, amounts[i], ceiling, locked)
		id := firstID + i
		tok := domain.Token{
			ID:        id,
			Minter:    caller,
			ProjectID: projectID,
			Ceiling:   ceil,
			Class:     proj.Class,
			Metadata:  metadata[i],
			Locked:    lock,
			CreatedAt: e.now(),
		}
		e.tokens[id] = tok
		ids[i] = id
		issued[i] = amt
		created[i] = tok
	}
	e.tokenCount += count

	if err := e.bank.CreditBatch(caller, to, ids, issued, aux); err != nil {
		for _, id := range ids {
			delete(e.tokens, id)
		}
		e.tokenCount -= count
		return nil, nil, err
	}
	for i, id := range ids {
		created[i] = e.tokens[id]
	}
	e.emit(domain.Event{
		Kind:     domain.EventMintBatch,
		Operator: caller,
		Account:  to,
		Tokens:   created,
		TokenIDs: ids,
		Amounts:  issued,
	})
	return ids, issued, nil
}

// mintableProject resolves projectID and checks the caller may mint
// under it.
func (e *Engine) mintableProject(caller domain.Address, projectID uint64) (domain.Project, error) {
	if !e.dir.HasRole(roles.Tenant, caller) {
		return domain.Project{}, domain.ErrTenantOnly
	}
	if projectID == 0 || projectID > e.projectCount {
		return domain.Project{}, domain.ErrProjectNotFound
	}
	proj := e.projects[projectID]
	if caller != proj.Owner {
		return domain.Project{}, domain.ErrNotOwner
	}
	return proj, nil
}
