package security

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func selfSignedCert(t *testing.T, cn string, notBefore, notAfter time.Time) []byte {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: cn},
		NotBefore:    notBefore,
		NotAfter:     notAfter,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
}

func newTestGateway(t *testing.T) *Gateway {
	t.Helper()
	key, err := GenerateKeyPair()
	require.NoError(t, err)
	return NewGateway(key)
}

func TestGateway_AuthenticateDevice_Success(t *testing.T) {
	gw := newTestGateway(t)
	cert := selfSignedCert(t, "device-1", time.Now().Add(-time.Hour), time.Now().Add(time.Hour))

	principal, err := gw.AuthenticateDevice(cert)
	require.NoError(t, err)
	assert.Equal(t, "device-1", principal.DeviceID)
	assert.Equal(t, 1, gw.ActiveTokenCount())
}

func TestGateway_AuthenticateDevice_ExpiredRejected(t *testing.T) {
	gw := newTestGateway(t)
	cert := selfSignedCert(t, "device-1", time.Now().Add(-48*time.Hour), time.Now().Add(-24*time.Hour))

	_, err := gw.AuthenticateDevice(cert)
	assert.Error(t, err)
}

func TestGateway_AuthenticateDevice_MissingCN(t *testing.T) {
	gw := newTestGateway(t)
	cert := selfSignedCert(t, "", time.Now().Add(-time.Hour), time.Now().Add(time.Hour))

	_, err := gw.AuthenticateDevice(cert)
	assert.Error(t, err)
}

func TestGateway_ValidateToken(t *testing.T) {
	gw := newTestGateway(t)
	cert := selfSignedCert(t, "device-1", time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	principal, err := gw.AuthenticateDevice(cert)
	require.NoError(t, err)

	_, err = gw.ValidateToken(principal.Token)
	assert.NoError(t, err)

	_, err = gw.ValidateToken("not-a-real-token")
	assert.Error(t, err)
}

func TestGateway_EncryptDecryptRoundTrip(t *testing.T) {
	gw := newTestGateway(t)
	plaintext := []byte("turn on the kitchen lights")

	ciphertext, err := gw.EncryptMessage(plaintext)
	require.NoError(t, err)

	decrypted, err := gw.DecryptMessage(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestGateway_DecryptRejectsTamperedCiphertext(t *testing.T) {
	gw := newTestGateway(t)
	ciphertext, err := gw.EncryptMessage([]byte("payload"))
	require.NoError(t, err)
	tampered := append([]byte{}, ciphertext...)
	tampered[len(tampered)-1] ^= 0xFF

	_, err = gw.DecryptMessage(tampered)
	assert.Error(t, err)
}

func TestGateway_EventLogRecordsOperations(t *testing.T) {
	gw := newTestGateway(t)
	cert := selfSignedCert(t, "device-1", time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	_, err := gw.AuthenticateDevice(cert)
	require.NoError(t, err)

	events := gw.RecentEvents(0)
	require.NotEmpty(t, events)

	foundSuccess := false
	for _, e := range events {
		if e.Type == EventAuthSuccess {
			foundSuccess = true
		}
	}
	assert.True(t, foundSuccess, "expected an auth_success event")
}

func TestEventLog_BoundedCapacity(t *testing.T) {
	log := NewEventLog()
	for i := 0; i < EventLogCapacity+10; i++ {
		log.Record(EventAuthSuccess, nil)
	}
	assert.Len(t, log.Recent(0), EventLogCapacity)
}

func TestTokenStore_SweepExpired(t *testing.T) {
	ts := NewTokenStore()
	cert := selfSignedCert(t, "device-1", time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	principal, err := ts.AuthenticateDevice(cert, time.Now())
	require.NoError(t, err)

	evicted := ts.SweepExpired(principal.ExpiresAt.Add(time.Minute))
	assert.Equal(t, 1, evicted)
	assert.Equal(t, 0, ts.Count())
}
