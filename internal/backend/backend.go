// Package backend defines the crypto backend contract consumed by the
// trust core, along with the key and algorithm vocabulary shared by the
// key store, the hash engine and the verification dispatcher.
//
// The trust core never performs bulk cryptographic arithmetic itself.
// Hash compression and signature math are delegated to a Backend, which
// on target hardware wraps an accelerator driver and on hosts is the
// Software reference implementation in this package.
package backend

import "errors"

// Backend errors
var (
	// ErrNotSupported indicates the backend does not implement the
	// requested algorithm or key type.
	ErrNotSupported = errors.New("backend: algorithm not supported")

	// ErrVerifyFailed indicates the signature does not match the hash.
	ErrVerifyFailed = errors.New("backend: signature verification failed")

	// ErrBadKeyEncoding indicates key material that cannot be parsed.
	ErrBadKeyEncoding = errors.New("backend: malformed key encoding")

	// ErrBufferTooSmall indicates an output buffer shorter than the result.
	ErrBufferTooSmall = errors.New("backend: output buffer too small")
)

// HashSession is one in-progress streaming digest. A session is obtained
// from Backend.NewHash and is consumed by Finish or discarded by Abort.
type HashSession interface {
	// Update absorbs input into the digest. Callers guarantee a
	// non-empty slice.
	Update(p []byte) error

	// Finish writes the digest into out and returns its length.
	Finish(out []byte) (int, error)

	// Abort releases the session. It is safe to call after Finish.
	Abort()
}

// Backend is the pluggable crypto backend.
type Backend interface {
	// NewHash begins a streaming digest for the given algorithm.
	NewHash(alg HashAlgorithm) (HashSession, error)

	// VerifyHash checks signature against a precomputed hash using the
	// given key material. A mismatching signature is reported as
	// ErrVerifyFailed; anything else indicates an operational failure.
	VerifyHash(attr Attributes, key []byte, alg SignatureAlgorithm, hash, signature []byte) error

	// ExportPublicKey writes the public key encoding into out and
	// returns its length. The key must already be public material.
	ExportPublicKey(attr Attributes, key []byte, out []byte) (int, error)
}
