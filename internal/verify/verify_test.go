package verify

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/require"

	"bootcore/internal/backend"
	"bootcore/internal/keystore"
)

type fixture struct {
	dispatcher *Dispatcher
	store      *keystore.Store
	handle     keystore.Handle
	priv       *ecdsa.PrivateKey
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	point := elliptic.Marshal(elliptic.P256(), priv.PublicKey.X, priv.PublicKey.Y)

	store := keystore.NewStore()
	h, err := store.Import(backend.Attributes{
		Type:  backend.KeyTypeECCPublic,
		Alg:   backend.SignatureAlgorithm{Scheme: backend.SchemeECDSA, Hash: backend.HashSHA256},
		Usage: backend.UsageVerifyHash | backend.UsageExport,
	}, point)
	require.NoError(t, err)

	return &fixture{
		dispatcher: New(store, backend.NewSoftware(rand.Reader), nil),
		store:      store,
		handle:     h,
		priv:       priv,
	}
}

func (f *fixture) sign(t *testing.T, digest []byte) []byte {
	t.Helper()
	r, s, err := ecdsa.Sign(rand.Reader, f.priv, digest)
	require.NoError(t, err)
	sig := make([]byte, 64)
	r.FillBytes(sig[:32])
	s.FillBytes(sig[32:])
	return sig
}

func TestVerifyHash(t *testing.T) {
	f := newFixture(t)
	digest := sha256.Sum256([]byte("boot image"))
	sig := f.sign(t, digest[:])

	alg := backend.SignatureAlgorithm{Scheme: backend.SchemeECDSA, Hash: backend.HashSHA256}
	require.NoError(t, f.dispatcher.VerifyHash(f.handle, alg, digest[:], sig))

	sig[5] ^= 0x40
	err := f.dispatcher.VerifyHash(f.handle, alg, digest[:], sig)
	require.ErrorIs(t, err, backend.ErrVerifyFailed)

	// The key survives a failed verification.
	_, err = f.store.GetAttributes(f.handle)
	require.NoError(t, err)
}

func TestVerifyHashAlgorithmMismatch(t *testing.T) {
	f := newFixture(t)
	digest := sha256.Sum256([]byte("boot image"))

	// RSA scheme against an EC key is refused before the backend runs.
	err := f.dispatcher.VerifyHash(f.handle,
		backend.SignatureAlgorithm{Scheme: backend.SchemeRSAPKCS1v15, Hash: backend.HashSHA256},
		digest[:], make([]byte, 256))
	require.ErrorIs(t, err, ErrAlgorithmMismatch)

	err = f.dispatcher.VerifyHash(f.handle,
		backend.SignatureAlgorithm{Scheme: backend.SchemeRSAPSS, Hash: backend.HashSHA256},
		digest[:], make([]byte, 256))
	require.ErrorIs(t, err, ErrAlgorithmMismatch)
}

func TestVerifyHashUnknownHandle(t *testing.T) {
	f := newFixture(t)
	digest := sha256.Sum256([]byte("boot image"))

	err := f.dispatcher.VerifyHash(f.handle+1,
		backend.SignatureAlgorithm{Scheme: backend.SchemeECDSA, Hash: backend.HashSHA256},
		digest[:], make([]byte, 64))
	require.ErrorIs(t, err, keystore.ErrDoesNotExist)
}

func TestExportPublicKey(t *testing.T) {
	f := newFixture(t)

	out := make([]byte, 128)
	n, err := f.dispatcher.ExportPublicKey(f.handle, out)
	require.NoError(t, err)
	require.Equal(t, 65, n)
	require.Equal(t, byte(0x04), out[0])

	_, err = f.dispatcher.ExportPublicKey(f.handle+1, out)
	require.ErrorIs(t, err, keystore.ErrDoesNotExist)

	_, err = f.dispatcher.ExportPublicKey(f.handle, make([]byte, 10))
	require.ErrorIs(t, err, backend.ErrBufferTooSmall)
}
