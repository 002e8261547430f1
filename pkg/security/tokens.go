package security

import (
	"crypto/x509"
	"encoding/pem"
	"sync"
	"time"

	"github.com/aliciabus/alicia/pkg/errs"
	"github.com/aliciabus/alicia/pkg/types"
	"github.com/google/uuid"
)

// TokenTTL is how long a minted bearer token remains valid.
const TokenTTL = time.Hour

// TokenStore is the in-memory bearer-token table. Tokens do not survive
// a restart (per design: token persistence is intentionally out of
// scope, so a restarted gateway simply re-authenticates every device).
type TokenStore struct {
	mu      sync.Mutex
	byToken map[string]*types.SecurityPrincipal
}

// NewTokenStore creates an empty token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{byToken: make(map[string]*types.SecurityPrincipal)}
}

// AuthenticateDevice parses a PEM-encoded X.509 certificate, rejects it
// if it falls outside its validity window or carries no CommonName, and
// on success mints and records a bearer token for the certificate's CN.
func (ts *TokenStore) AuthenticateDevice(certPEM []byte, now time.Time) (*types.SecurityPrincipal, error) {
	block, _ := pem.Decode(certPEM)
	if block == nil {
		return nil, errs.New(errs.KindValidation, "certificate is not valid PEM")
	}

	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, errs.Wrap(errs.KindValidation, "parse certificate", err)
	}

	if cert.Subject.CommonName == "" {
		return nil, errs.New(errs.KindValidation, "certificate missing common name")
	}
	if now.Before(cert.NotBefore) || now.After(cert.NotAfter) {
		return nil, errs.New(errs.KindAuth, "certificate outside validity window")
	}

	token := uuid.NewString()

	principal := &types.SecurityPrincipal{
		DeviceID:  cert.Subject.CommonName,
		Token:     token,
		IssuedAt:  now,
		ExpiresAt: now.Add(TokenTTL),
	}

	ts.mu.Lock()
	ts.byToken[token] = principal
	ts.mu.Unlock()

	return principal, nil
}

// ValidateToken looks up token, evicting it first if it has already
// expired. A missing token and an expired token both return an
// errs.KindAuth error; only the message ("token not found" or "token
// expired") tells them apart.
func (ts *TokenStore) ValidateToken(token string, now time.Time) (*types.SecurityPrincipal, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	principal, ok := ts.byToken[token]
	if !ok {
		return nil, errs.New(errs.KindAuth, "token not found")
	}
	if principal.Expired(now) {
		delete(ts.byToken, token)
		return nil, errs.New(errs.KindAuth, "token expired")
	}
	return principal, nil
}

// Revoke evicts token immediately, regardless of expiry.
func (ts *TokenStore) Revoke(token string) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	delete(ts.byToken, token)
}

// Count returns the number of live (not yet lazily evicted) tokens.
func (ts *TokenStore) Count() int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return len(ts.byToken)
}

// Active returns the principals backing every currently live token —
// the gateway's stand-in for a certificate inventory, since raw
// certificates are not retained past authentication.
func (ts *TokenStore) Active() []types.SecurityPrincipal {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	out := make([]types.SecurityPrincipal, 0, len(ts.byToken))
	for _, p := range ts.byToken {
		out = append(out, *p)
	}
	return out
}

// SweepExpired evicts every token past its expiry, independent of
// on-lookup laziness, so long-idle tokens don't linger in memory.
func (ts *TokenStore) SweepExpired(now time.Time) int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	evicted := 0
	for token, principal := range ts.byToken {
		if principal.Expired(now) {
			delete(ts.byToken, token)
			evicted++
		}
	}
	return evicted
}
