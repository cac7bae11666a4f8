package backend

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/x509"
	"fmt"
	"hash"
	"io"
	"math/big"

	"golang.org/x/crypto/sha3"
)

// Software is a pure-software reference backend built on the Go crypto
// primitives. It implements the same contract a hardware accelerator
// driver would, which makes the trust core runnable on hosts and inside
// tests.
//
// Key encodings match what the boot chain passes around: RSA public keys
// as the PKCS#1 RSAPublicKey DER structure, EC public keys as the
// uncompressed point (0x04 || X || Y). ECDSA signatures are the raw
// fixed-width r || s encoding.
type Software struct {
	rand io.Reader
}

// NewSoftware creates a software backend. rand supplies randomness for
// schemes that need it and may be nil for verification-only use.
func NewSoftware(rand io.Reader) *Software {
	return &Software{rand: rand}
}

// SetRand replaces the randomness source. The boot flow calls this
// after assembling the trust core so schemes that draw randomness use
// the core's self-tested entropy service instead of a separate source.
func (b *Software) SetRand(rand io.Reader) { b.rand = rand }

type softHash struct {
	h hash.Hash
}

func (s *softHash) Update(p []byte) error {
	s.h.Write(p)
	return nil
}

func (s *softHash) Finish(out []byte) (int, error) {
	if len(out) < s.h.Size() {
		return 0, ErrBufferTooSmall
	}
	return copy(out, s.h.Sum(nil)), nil
}

func (s *softHash) Abort() {}

// NewHash begins a streaming digest.
func (b *Software) NewHash(alg HashAlgorithm) (HashSession, error) {
	var h hash.Hash
	switch alg {
	case HashSHA256:
		h = sha256.New()
	case HashSHA384:
		h = sha512.New384()
	case HashSHA512:
		h = sha512.New()
	case HashSHA3_256:
		h = sha3.New256()
	case HashSHA3_384:
		h = sha3.New384()
	default:
		return nil, fmt.Errorf("%w: %v", ErrNotSupported, alg)
	}
	return &softHash{h: h}, nil
}

// VerifyHash checks signature against hash with the given key material.
func (b *Software) VerifyHash(attr Attributes, key []byte, alg SignatureAlgorithm, hash, signature []byte) error {
	switch {
	case attr.Type.IsRSA() && alg.Scheme.IsRSA():
		return b.verifyRSA(key, alg, hash, signature)
	case attr.Type.IsECC() && alg.Scheme.IsECDSA():
		return b.verifyECDSA(attr, key, hash, signature)
	default:
		return fmt.Errorf("%w: %v key with %v signature", ErrNotSupported, attr.Type, alg)
	}
}

func (b *Software) verifyRSA(key []byte, alg SignatureAlgorithm, hash, signature []byte) error {
	pub, err := x509.ParsePKCS1PublicKey(key)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadKeyEncoding, err)
	}
	ch, err := cryptoHash(alg.Hash)
	if err != nil {
		return err
	}
	switch alg.Scheme {
	case SchemeRSAPKCS1v15:
		if rsa.VerifyPKCS1v15(pub, ch, hash, signature) != nil {
			return ErrVerifyFailed
		}
	case SchemeRSAPSS:
		if rsa.VerifyPSS(pub, ch, hash, signature, nil) != nil {
			return ErrVerifyFailed
		}
	default:
		return fmt.Errorf("%w: %v", ErrNotSupported, alg)
	}
	return nil
}

func (b *Software) verifyECDSA(attr Attributes, key []byte, hash, signature []byte) error {
	curve, err := curveForBits(attr.Bits)
	if err != nil {
		return err
	}
	x, y := elliptic.Unmarshal(curve, key)
	if x == nil {
		return fmt.Errorf("%w: not an uncompressed point on %s", ErrBadKeyEncoding, curve.Params().Name)
	}
	pub := &ecdsa.PublicKey{Curve: curve, X: x, Y: y}

	// Raw signature: r and s as fixed-width big-endian halves.
	n := (curve.Params().BitSize + 7) / 8
	if len(signature) != 2*n {
		return fmt.Errorf("%w: want %d signature bytes, got %d", ErrVerifyFailed, 2*n, len(signature))
	}
	r := new(big.Int).SetBytes(signature[:n])
	s := new(big.Int).SetBytes(signature[n:])

	if !ecdsa.Verify(pub, hash, r, s) {
		return ErrVerifyFailed
	}
	return nil
}

// ExportPublicKey copies the already-public key bytes into out.
func (b *Software) ExportPublicKey(attr Attributes, key []byte, out []byte) (int, error) {
	if !attr.Type.IsPublic() {
		return 0, fmt.Errorf("%w: export of %v key", ErrNotSupported, attr.Type)
	}
	if len(out) < len(key) {
		return 0, ErrBufferTooSmall
	}
	return copy(out, key), nil
}

func cryptoHash(alg HashAlgorithm) (crypto.Hash, error) {
	switch alg {
	case HashSHA256:
		return crypto.SHA256, nil
	case HashSHA384:
		return crypto.SHA384, nil
	case HashSHA512:
		return crypto.SHA512, nil
	case HashSHA3_256:
		return crypto.SHA3_256, nil
	case HashSHA3_384:
		return crypto.SHA3_384, nil
	default:
		return 0, fmt.Errorf("%w: %v", ErrNotSupported, alg)
	}
}

func curveForBits(bits int) (elliptic.Curve, error) {
	switch bits {
	case 256:
		return elliptic.P256(), nil
	case 384:
		return elliptic.P384(), nil
	default:
		return nil, fmt.Errorf("%w: %d-bit curve", ErrNotSupported, bits)
	}
}
