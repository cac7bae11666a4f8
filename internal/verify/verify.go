// Package verify routes hash/signature verification to the crypto
// backend using the key resolved from the configured store.
//
// The dispatcher owns the routing and validation logic only: a key type
// that does not match the requested algorithm family is rejected before
// the backend ever sees it, and the signature math itself is delegated
// entirely to the backend.
package verify

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"bootcore/internal/backend"
	"bootcore/internal/keystore"
	"bootcore/internal/metrics"
)

// Verification errors
var (
	// ErrAlgorithmMismatch indicates a signature algorithm from a
	// different family than the resolved key.
	ErrAlgorithmMismatch = errors.New("verify: algorithm does not match key type")

	// ErrUnsupportedKeyType indicates a resolved key of a family the
	// dispatcher cannot route.
	ErrUnsupportedKeyType = errors.New("verify: unsupported key type")

	// ErrNotPublicKey indicates an export request for non-public material.
	ErrNotPublicKey = errors.New("verify: key is not public material")
)

// Dispatcher validates hashes against signatures with the stored key.
type Dispatcher struct {
	keys    keystore.Resolver
	backend backend.Backend
	log     *slog.Logger
}

// New creates a dispatcher over the given key resolver and backend.
// A nil logger discards log output.
func New(keys keystore.Resolver, b backend.Backend, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Dispatcher{keys: keys, backend: b, log: log}
}

// VerifyHash checks signature against hash using the key named by h.
// RSA keys accept PKCS#1v1.5 and PSS algorithms, EC keys accept the
// ECDSA family; any other pairing is ErrAlgorithmMismatch. A failed
// verification leaves the key store untouched.
func (d *Dispatcher) VerifyHash(h keystore.Handle, alg backend.SignatureAlgorithm, hash, signature []byte) error {
	attr, key, err := d.keys.Resolve(h)
	if err != nil {
		return err
	}

	switch {
	case attr.Type.IsRSA():
		if !alg.Scheme.IsRSA() {
			return fmt.Errorf("%w: %v signature with %v key", ErrAlgorithmMismatch, alg, attr.Type)
		}
	case attr.Type.IsECC():
		if !alg.Scheme.IsECDSA() {
			return fmt.Errorf("%w: %v signature with %v key", ErrAlgorithmMismatch, alg, attr.Type)
		}
	default:
		return fmt.Errorf("%w: %v", ErrUnsupportedKeyType, attr.Type)
	}

	if err := d.backend.VerifyHash(attr, key, alg, hash, signature); err != nil {
		metrics.VerificationFinished(false)
		d.log.Debug("verification failed",
			"handle", h, "alg", alg.String(), "err", err)
		return err
	}
	metrics.VerificationFinished(true)
	return nil
}

// ExportPublicKey copies the public key encoding named by h into out
// and returns its length. The resolved key must be public material; the
// copy itself is delegated to the backend's export shim.
func (d *Dispatcher) ExportPublicKey(h keystore.Handle, out []byte) (int, error) {
	attr, key, err := d.keys.Resolve(h)
	if err != nil {
		return 0, err
	}
	if !attr.Type.IsPublic() {
		return 0, fmt.Errorf("%w: %v", ErrNotPublicKey, attr.Type)
	}
	return d.backend.ExportPublicKey(attr, key, out)
}
