// Package authz verifies signed request grants.
//
// A grant is an EdDSA JWT signed with the acting principal's ed25519 key. It
// names the operation, the amount, and the asset it authorizes, so a grant
// produced for one request cannot be used for a different one. Replay of the
// same grant is prevented by the store, which records consumed grant IDs.
package authz

import (
	"crypto/ed25519"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/louisbranch/tokenvault/internal/platform/id"
	"github.com/louisbranch/tokenvault/internal/services/vault/domain"
)

// DefaultAudience is the audience vault grants are issued for.
const DefaultAudience = "tokenvault"

// DefaultMaxTTL bounds how far in the future a grant may expire.
const DefaultMaxTTL = 15 * time.Minute

// Config defines how grants are verified.
type Config struct {
	Audience string
	MaxTTL   time.Duration
	Now      func() time.Time
}

// Expectation is the request a grant must authorize.
type Expectation struct {
	Signer    domain.Identity
	Operation domain.Operation
	Amount    uint64
	Asset     domain.Asset
}

// Claims captures validated grant claims.
type Claims struct {
	Signer    domain.Identity
	Operation domain.Operation
	Amount    uint64
	Asset     domain.Asset
	GrantID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// grantClaims is the wire form used for JWT encoding.
type grantClaims struct {
	jwt.RegisteredClaims
	Operation string `json:"op"`
	Amount    string `json:"amount"`
	Asset     string `json:"asset,omitempty"`
}

// Verifier checks grants against an expectation.
type Verifier struct {
	audience string
	maxTTL   time.Duration
	now      func() time.Time
}

// NewVerifier returns a verifier with defaults applied.
func NewVerifier(cfg Config) *Verifier {
	v := &Verifier{
		audience: strings.TrimSpace(cfg.Audience),
		maxTTL:   cfg.MaxTTL,
		now:      cfg.Now,
	}
	if v.audience == "" {
		v.audience = DefaultAudience
	}
	if v.maxTTL <= 0 {
		v.maxTTL = DefaultMaxTTL
	}
	if v.now == nil {
		v.now = time.Now
	}
	return v
}

// VerifySigner checks that grant was signed by expected.Signer and
// authorizes exactly the expected request. Every failure is reported as
// VAULT_UNAUTHORIZED.
func (v *Verifier) VerifySigner(grant string, expected Expectation) (Claims, error) {
	grant = strings.TrimSpace(grant)
	if grant == "" {
		return Claims{}, domain.ErrUnauthorized("grant is required", nil)
	}
	key := expected.Signer.PublicKey()
	if key == nil {
		return Claims{}, domain.ErrUnauthorized("acting identity is not a signer key", nil)
	}

	var parsed grantClaims
	_, err := jwt.ParseWithClaims(grant, &parsed, func(*jwt.Token) (any, error) {
		return key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return Claims{}, mapJWTError(err)
	}

	if parsed.Subject != string(expected.Signer) {
		return Claims{}, domain.ErrUnauthorized("grant subject does not match the acting identity", nil)
	}
	if !audienceContains(parsed.Audience, v.audience) {
		return Claims{}, domain.ErrUnauthorized("grant audience mismatch", nil)
	}
	if strings.TrimSpace(parsed.ID) == "" {
		return Claims{}, domain.ErrUnauthorized("grant id is required", nil)
	}
	if parsed.ExpiresAt == nil {
		return Claims{}, domain.ErrUnauthorized("grant expiry is required", nil)
	}

	now := v.now().UTC()
	exp := parsed.ExpiresAt.Time.UTC()
	if !exp.After(now) {
		return Claims{}, domain.ErrUnauthorized("grant is expired", nil)
	}
	if exp.Sub(now) > v.maxTTL {
		return Claims{}, domain.ErrUnauthorized("grant lifetime exceeds the allowed maximum", nil)
	}
	if parsed.NotBefore != nil && now.Before(parsed.NotBefore.Time.UTC()) {
		return Claims{}, domain.ErrUnauthorized("grant is not active yet", nil)
	}

	if domain.Operation(parsed.Operation) != expected.Operation {
		return Claims{}, domain.ErrUnauthorized("grant operation mismatch", nil)
	}
	amount, err := strconv.ParseUint(parsed.Amount, 10, 64)
	if err != nil || amount != expected.Amount {
		return Claims{}, domain.ErrUnauthorized("grant amount mismatch", err)
	}
	if domain.Asset(parsed.Asset) != expected.Asset {
		return Claims{}, domain.ErrUnauthorized("grant asset mismatch", nil)
	}

	claims := Claims{
		Signer:    expected.Signer,
		Operation: expected.Operation,
		Amount:    amount,
		Asset:     expected.Asset,
		GrantID:   parsed.ID,
		ExpiresAt: exp,
	}
	if parsed.IssuedAt != nil {
		claims.IssuedAt = parsed.IssuedAt.Time.UTC()
	}
	return claims, nil
}

// GrantRequest describes a grant to sign.
type GrantRequest struct {
	Operation domain.Operation
	Amount    uint64
	Asset     domain.Asset
	Audience  string
	TTL       time.Duration
	// GrantID defaults to a fresh platform id.
	GrantID string
	Now     time.Time
}

// Sign issues a grant for req signed by key. The subject is the identity of key.
func Sign(key ed25519.PrivateKey, req GrantRequest) (string, error) {
	if len(key) != ed25519.PrivateKeySize {
		return "", errors.New("signing key must be an ed25519 private key")
	}
	if !req.Operation.Valid() {
		return "", errors.New("grant operation is required")
	}
	audience := strings.TrimSpace(req.Audience)
	if audience == "" {
		audience = DefaultAudience
	}
	ttl := req.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}
	grantID := strings.TrimSpace(req.GrantID)
	if grantID == "" {
		generated, err := id.NewID()
		if err != nil {
			return "", err
		}
		grantID = generated
	}

	signer := domain.IdentityFromPublicKey(key.Public().(ed25519.PublicKey))
	claims := grantClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(signer),
			Audience:  jwt.ClaimStrings{audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        grantID,
		},
		Operation: string(req.Operation),
		Amount:    strconv.FormatUint(req.Amount, 10),
		Asset:     string(req.Asset.Normalize()),
	}
	return jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(key)
}

// mapJWTError translates jwt library errors to vault errors.
func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenSignatureInvalid) || errors.Is(err, jwt.ErrEd25519Verification) {
		return domain.ErrUnauthorized("grant was not signed by the acting identity", err)
	}
	if errors.Is(err, jwt.ErrTokenUnverifiable) {
		return domain.ErrUnauthorized("grant algorithm is not accepted", err)
	}
	return domain.ErrUnauthorized("grant is malformed", err)
}

func audienceContains(aud jwt.ClaimStrings, value string) bool {
	for _, item := range aud {
		if item == value {
			return true
		}
	}
	return false
}
