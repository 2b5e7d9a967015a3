// Package address derives deterministic, collision-resistant locations for
// vault records and holding accounts.
//
// A location is the SHA3-256 digest of a namespace, a tag, and each seed
// length-prefixed, rendered as lowercase hex. Derivation is pure: the same
// inputs always yield the same location and no secret material is involved.
package address

import (
	"encoding/binary"
	"encoding/hex"
	"io"

	"golang.org/x/crypto/sha3"
)

const namespace = "tokenvault/address/v1"

// Tags used by the vault.
const (
	TagVault       = "vault"
	TagUserAccount = "user_account"
	TagHolding     = "holding"
)

// Derive returns the location for tag and seeds.
func Derive(tag string, seeds ...[]byte) string {
	h := sha3.New256()
	writeSegment(h, []byte(namespace))
	writeSegment(h, []byte(tag))
	for _, seed := range seeds {
		writeSegment(h, seed)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Vault returns the vault ledger location.
func Vault() string {
	return Derive(TagVault)
}

// DepositorLedger returns the ledger location for a depositor identity.
func DepositorLedger(owner string) string {
	return Derive(TagUserAccount, []byte(owner))
}

// HoldingAccount returns the holding account location for owner and asset.
func HoldingAccount(owner, asset string) string {
	return Derive(TagHolding, []byte(owner), []byte(asset))
}

func writeSegment(w io.Writer, segment []byte) {
	var size [8]byte
	binary.BigEndian.PutUint64(size[:], uint64(len(segment)))
	_, _ = w.Write(size[:])
	_, _ = w.Write(segment)
}
