package domain

import (
	"encoding/hex"
	"fmt"
	"time"
)

// AssetClass is the issuance policy a project applies to every token
// created under it.
type AssetClass string

const (
	ClassFungible     AssetClass = "FUNGIBLE"
	ClassNonFungible  AssetClass = "NON_FUNGIBLE"
	ClassSemiFungible AssetClass = "SEMI_FUNGIBLE"
)

func (c AssetClass) Valid() bool {
	switch c {
	case ClassFungible, ClassNonFungible, ClassSemiFungible:
		return true
	}
	return false
}

// Address identifies an account. The zero value is the mint/burn
// sentinel: a transfer leg from ZeroAddress is an issuance, a leg to
// ZeroAddress is a burn.
type Address string

const ZeroAddress Address = ""

// Digest is a 32-byte metadata digest attached to a token at creation.
type Digest [32]byte

func (d Digest) String() string { return hex.EncodeToString(d[:]) }

func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Digest) UnmarshalText(b []byte) error {
	parsed, err := ParseDigest(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func ParseDigest(s string) (Digest, error) {
	var d Digest
	b, err := hex.DecodeString(s)
	if err != nil {
		return d, fmt.Errorf("metadata digest: %w", err)
	}
	if len(b) != len(d) {
		return d, fmt.Errorf("metadata digest: want %d bytes, got %d", len(d), len(b))
	}
	copy(d[:], b)
	return d, nil
}

// Project groups tokens under one owning tenant and one asset-class
// policy. Immutable after creation.
type Project struct {
	ID        uint64     `json:"project_id"`
	Owner     Address    `json:"owner"`
	Class     AssetClass `json:"asset_class"`
	CreatedAt time.Time  `json:"created_at"`
}

// Token is one issuable asset class with its own supply accounting.
//
// While Locked, Issued+Burned <= Ceiling holds after every mutation.
// While unlocked, Ceiling is zero and issuance is unbounded.
type Token struct {
	ID        uint64     `json:"token_id"`
	Minter    Address    `json:"minter"`
	ProjectID uint64     `json:"project_id"`
	Ceiling   uint64     `json:"ceiling"`
	Issued    uint64     `json:"issued"`
	Burned    uint64     `json:"burned"`
	Class     AssetClass `json:"asset_class"`
	Metadata  Digest     `json:"metadata_hash"`
	Locked    bool       `json:"locked"`
	CreatedAt time.Time  `json:"created_at"`
}

// MetadataRef returns the deterministic reference string for the
// token's metadata. No resolution is performed.
func (t Token) MetadataRef() string {
	return fmt.Sprintf("token://%d/%s", t.ID, t.Metadata)
}
