// Package domain holds the vault ledger model and the pure decision
// functions that validate initialize, deposit, and withdraw requests.
package domain

import (
	"crypto/ed25519"
	"encoding/base64"
	"strings"
	"time"

	apperrors "github.com/louisbranch/tokenvault/internal/platform/errors"
)

// Identity is a principal's ed25519 public key encoded as unpadded base64url.
type Identity string

// Asset identifies a fungible asset kind.
type Asset string

// Operation names a state-changing vault operation.
type Operation string

const (
	OperationInitialize Operation = "initialize"
	OperationDeposit    Operation = "deposit"
	OperationWithdraw   Operation = "withdraw"
)

// Valid reports whether op is one of the known operations.
func (op Operation) Valid() bool {
	switch op {
	case OperationInitialize, OperationDeposit, OperationWithdraw:
		return true
	default:
		return false
	}
}

// Vault is the singleton vault ledger.
type Vault struct {
	Authority     Identity
	AcceptedAsset Asset
	Initialized   bool
	// Address is the vault's derived location. It owns PooledAccount.
	Address       string
	PooledAccount string
	CreatedAt     time.Time
}

// Depositor is a per-depositor ledger record.
type Depositor struct {
	Owner     Identity
	Balance   uint64
	Address   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Entry is one journal row written for every successful operation.
type Entry struct {
	ID               string
	Seq              int64
	Operation        Operation
	Actor            Identity
	Amount           uint64
	DepositorBalance uint64
	PooledBalance    uint64
	CreatedAt        time.Time
}

// ParseIdentity validates raw as an encoded ed25519 public key.
func ParseIdentity(raw string) (Identity, error) {
	trimmed := strings.TrimSpace(raw)
	decoded, err := base64.RawURLEncoding.DecodeString(trimmed)
	if err != nil || len(decoded) != ed25519.PublicKeySize {
		return "", apperrors.WithMetadata(
			apperrors.CodeVaultInvalidIdentity,
			"identity is not an ed25519 public key",
			map[string]string{"Identity": trimmed},
		)
	}
	return Identity(trimmed), nil
}

// IdentityFromPublicKey encodes key as an Identity.
func IdentityFromPublicKey(key ed25519.PublicKey) Identity {
	return Identity(base64.RawURLEncoding.EncodeToString(key))
}

// PublicKey decodes the identity. It returns nil for malformed values.
func (i Identity) PublicKey() ed25519.PublicKey {
	decoded, err := base64.RawURLEncoding.DecodeString(string(i))
	if err != nil || len(decoded) != ed25519.PublicKeySize {
		return nil
	}
	return ed25519.PublicKey(decoded)
}

func (i Identity) String() string { return string(i) }

func (a Asset) String() string { return string(a) }

// Normalize trims surrounding whitespace so grants, requests and stored
// ledgers compare the same asset text.
func (a Asset) Normalize() Asset { return Asset(strings.TrimSpace(string(a))) }
