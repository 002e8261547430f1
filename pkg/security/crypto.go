// Package security is the gateway that authenticates devices, issues and
// validates bearer tokens, and performs authenticated message encryption
// on request, recording every operation to a bounded security event log.
package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"io"

	"github.com/aliciabus/alicia/pkg/errs"
)

const aesKeySize = 32 // AES-256

// Cipher performs authenticated hybrid encryption: a fresh AES-256-GCM
// key encrypts the payload, and that key is wrapped with RSA-OAEP under
// the gateway's key pair. There is no plaintext fallback — a missing or
// malformed key on either side is a hard error.
type Cipher struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
}

// NewCipher builds a Cipher around an RSA key pair. Generate one with
// GenerateKeyPair for a fresh gateway, or load an existing one.
func NewCipher(priv *rsa.PrivateKey) *Cipher {
	return &Cipher{privateKey: priv, publicKey: &priv.PublicKey}
}

// GenerateKeyPair creates a new 2048-bit RSA key pair for message
// wrapping.
func GenerateKeyPair() (*rsa.PrivateKey, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, "generate gateway key pair", err)
	}
	return key, nil
}

// wireEnvelope is the on-wire shape of an encrypted message: the
// RSA-OAEP wrapped AES key, the GCM nonce, and the ciphertext.
type wireEnvelope struct {
	WrappedKey []byte `json:"wrapped_key"`
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

// Encrypt wraps plaintext in a fresh AES-256-GCM envelope and seals the
// AES key under RSA-OAEP. The result is the marshaled wireEnvelope.
func (c *Cipher) Encrypt(plaintext []byte) ([]byte, error) {
	aesKey := make([]byte, aesKeySize)
	if _, err := io.ReadFull(rand.Reader, aesKey); err != nil {
		return nil, errs.Wrap(errs.KindInternal, "generate message key", err)
	}

	block, err := aes.NewCipher(aesKey)
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, "create cipher", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, "create gcm", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, errs.Wrap(errs.KindInternal, "generate nonce", err)
	}

	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)

	wrappedKey, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, c.publicKey, aesKey, nil)
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, "wrap message key", err)
	}

	env := wireEnvelope{WrappedKey: wrappedKey, Nonce: nonce, Ciphertext: ciphertext}
	return encodeWireEnvelope(env)
}

// Decrypt unwraps the AES key with RSA-OAEP and opens the GCM
// ciphertext. Any failure — malformed envelope, wrong key, tampered
// ciphertext — is reported as a classified error; there is no partial
// or best-effort result.
func (c *Cipher) Decrypt(data []byte) ([]byte, error) {
	env, err := decodeWireEnvelope(data)
	if err != nil {
		return nil, err
	}

	aesKey, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, c.privateKey, env.WrappedKey, nil)
	if err != nil {
		return nil, errs.Wrap(errs.KindAuth, "unwrap message key", err)
	}

	block, err := aes.NewCipher(aesKey)
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, "create cipher", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, "create gcm", err)
	}
	if len(env.Nonce) != gcm.NonceSize() {
		return nil, errs.New(errs.KindValidation, "malformed nonce")
	}

	plaintext, err := gcm.Open(nil, env.Nonce, env.Ciphertext, nil)
	if err != nil {
		return nil, errs.Wrap(errs.KindAuth, "decrypt message", err)
	}
	return plaintext, nil
}
