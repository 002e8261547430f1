package security

import (
	"context"
	"crypto/rsa"
	"time"

	"github.com/aliciabus/alicia/pkg/errs"
	"github.com/aliciabus/alicia/pkg/types"
)

// Gateway is the security service: device authentication, token
// lifecycle, and authenticated message encryption, all against a single
// bounded event log.
type Gateway struct {
	tokens *TokenStore
	cipher *Cipher
	events *EventLog
}

// NewGateway builds a Gateway around an RSA key pair used for message
// wrapping.
func NewGateway(key *rsa.PrivateKey) *Gateway {
	return &Gateway{
		tokens: NewTokenStore(),
		cipher: NewCipher(key),
		events: NewEventLog(),
	}
}

// AuthenticateDevice validates certPEM and mints a bearer token,
// recording the outcome to the event log either way.
func (g *Gateway) AuthenticateDevice(certPEM []byte) (*types.SecurityPrincipal, error) {
	principal, err := g.tokens.AuthenticateDevice(certPEM, time.Now())
	if err != nil {
		g.events.Record(EventAuthFailure, map[string]any{"error": err.Error()})
		return nil, err
	}
	g.events.Record(EventAuthSuccess, map[string]any{"device_id": principal.DeviceID})
	g.events.Record(EventTokenIssued, map[string]any{"device_id": principal.DeviceID})
	return principal, nil
}

// ValidateToken checks token against the store. Every auth failure,
// whether the token was missing or expired, is recorded as a
// token_invalid event; token_expired events come only from SweepLoop.
func (g *Gateway) ValidateToken(token string) (*types.SecurityPrincipal, error) {
	principal, err := g.tokens.ValidateToken(token, time.Now())
	if err != nil {
		if errs.KindOf(err) == errs.KindAuth {
			g.events.Record(EventTokenInvalid, map[string]any{"reason": err.Error()})
		}
		return nil, err
	}
	return principal, nil
}

// EncryptMessage seals payload for transport.
func (g *Gateway) EncryptMessage(payload []byte) ([]byte, error) {
	ciphertext, err := g.cipher.Encrypt(payload)
	if err != nil {
		g.events.Record(EventCryptoError, map[string]any{"op": "encrypt", "error": err.Error()})
		return nil, err
	}
	return ciphertext, nil
}

// DecryptMessage opens a ciphertext produced by EncryptMessage.
func (g *Gateway) DecryptMessage(ciphertext []byte) ([]byte, error) {
	payload, err := g.cipher.Decrypt(ciphertext)
	if err != nil {
		g.events.Record(EventCryptoError, map[string]any{"op": "decrypt", "error": err.Error()})
		return nil, err
	}
	return payload, nil
}

// RecentEvents returns the last n security events (0 for all retained).
func (g *Gateway) RecentEvents(n int) []Event {
	return g.events.Recent(n)
}

// ActiveTokenCount reports how many tokens are currently live.
func (g *Gateway) ActiveTokenCount() int {
	return g.tokens.Count()
}

// ActiveCertificates returns the principals minted from currently live
// tokens, standing in for a certificate inventory.
func (g *Gateway) ActiveCertificates() []types.SecurityPrincipal {
	return g.tokens.Active()
}

// SweepLoop periodically evicts expired tokens until ctx is canceled,
// supplementing the on-lookup laziness ValidateToken already performs.
func (g *Gateway) SweepLoop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := g.tokens.SweepExpired(time.Now()); n > 0 {
				g.events.Record(EventTokenExpired, map[string]any{"count": n})
			}
		case <-ctx.Done():
			return
		}
	}
}
