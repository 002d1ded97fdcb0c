// Package authn maps bearer tokens to ledger accounts. Tokens are
// random, handed out once, and held only as sha256 hashes.
package authn

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"

	"github.com/oz-earth/smart-contracts/pkg/domain"
)

func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

type Registry struct {
	mu     sync.RWMutex
	byHash map[string]domain.Address
}

func NewRegistry() *Registry {
	return &Registry{byHash: map[string]domain.Address{}}
}

// Seed registers a pre-shared token, used to bootstrap the admin
// account from configuration.
func (r *Registry) Seed(token string, acct domain.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byHash[HashToken(token)] = acct
}

// Issue mints a fresh bearer token for acct. The raw token is returned
// exactly once; only its hash is retained.
func (r *Registry) Issue(acct domain.Address) string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	token := "reg_live_" + hex.EncodeToString(b)
	r.Seed(token, acct)
	return token
}

// Authenticate resolves an Authorization header to an account.
func (r *Registry) Authenticate(authorization string) (domain.Address, error) {
	token, ok := parseBearer(authorization)
	if !ok {
		return domain.ZeroAddress, domain.ErrUnauthorized
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	acct, ok := r.byHash[HashToken(token)]
	if !ok {
		return domain.ZeroAddress, domain.ErrUnauthorized
	}
	return acct, nil
}

func parseBearer(authorization string) (string, bool) {
	const prefix = "Bearer "
	if !strings.HasPrefix(authorization, prefix) {
		return "", false
	}
	tok := strings.TrimSpace(strings.TrimPrefix(authorization, prefix))
	return tok, tok != ""
}
