// Package keystore holds the single verification key trusted by the
// boot flow. A Store keeps exactly one imported key at a time: importing
// a new key silently replaces the previous one, and handles increase
// monotonically without reuse so a stale handle from a destroyed key is
// detectably wrong rather than merely absent.
//
// An alternate variant sources the key from an immutable
// platform-provisioned table instead of caller-supplied bytes; both
// variants present the same Resolver contract to the verification
// dispatcher.
package keystore

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/awnumar/memguard"

	"bootcore/internal/backend"
)

// Key store errors
var (
	// ErrDoesNotExist indicates a handle that does not name the
	// currently valid key.
	ErrDoesNotExist = errors.New("keystore: key does not exist")

	// ErrInvalidKeyEncoding indicates raw key material whose bit size
	// cannot be derived.
	ErrInvalidKeyEncoding = errors.New("keystore: invalid key encoding")

	// ErrUnsupportedKeyType indicates a key family the slot cannot hold.
	ErrUnsupportedKeyType = errors.New("keystore: unsupported key type")

	// ErrImportNotSupported indicates an import into a
	// platform-provisioned store.
	ErrImportNotSupported = errors.New("keystore: store does not accept imported keys")
)

// Handle names an imported key. Handles are allocated monotonically and
// never reused, even after the key they named is destroyed.
type Handle uint32

// Resolver resolves a key handle to attributes and material for
// verification. Implemented by both Store and BuiltinStore.
type Resolver interface {
	Resolve(h Handle) (backend.Attributes, []byte, error)
}

// Store is the imported-key slot. The zero value is an empty slot.
type Store struct {
	material []byte
	attr     backend.Attributes
	handle   Handle
	valid    bool
}

// NewStore creates an empty key slot.
func NewStore() *Store {
	return &Store{}
}

// Import stores a key, unconditionally replacing any previously held
// one, and returns its freshly allocated handle. When the supplied
// attributes carry no bit size it is derived from the raw encoding.
// The material is copied so Destroy can wipe it deterministically.
func (s *Store) Import(attr backend.Attributes, material []byte) (Handle, error) {
	bits := attr.Bits
	if bits == 0 {
		var err error
		bits, err = bitsFromEncoding(attr.Type, material)
		if err != nil {
			return 0, err
		}
	}

	if s.material != nil {
		memguard.WipeBytes(s.material)
	}
	s.material = append([]byte(nil), material...)
	s.attr = attr
	s.attr.Bits = bits
	s.handle++
	s.valid = true
	return s.handle, nil
}

// GetAttributes returns the attributes of the key named by h. A handle
// that is not the currently valid one fails with ErrDoesNotExist, which
// covers both destroyed keys and keys replaced by a later import.
func (s *Store) GetAttributes(h Handle) (backend.Attributes, error) {
	if !s.valid || s.handle != h {
		return backend.Attributes{}, ErrDoesNotExist
	}
	return s.attr, nil
}

// Destroy wipes the key material and invalidates the slot. The handle
// counter keeps advancing so a later import cannot resurrect h.
func (s *Store) Destroy(h Handle) error {
	if !s.valid || s.handle != h {
		return ErrDoesNotExist
	}
	memguard.WipeBytes(s.material)
	s.material = nil
	s.attr = backend.Attributes{}
	s.valid = false
	return nil
}

// Resolve implements Resolver.
func (s *Store) Resolve(h Handle) (backend.Attributes, []byte, error) {
	if !s.valid || s.handle != h {
		return backend.Attributes{}, nil, ErrDoesNotExist
	}
	return s.attr, s.material, nil
}

// bitsFromEncoding derives the key bit size from its raw encoding.
func bitsFromEncoding(t backend.KeyType, data []byte) (int, error) {
	switch t {
	case backend.KeyTypeRSAPublic:
		// RSAPublicKey DER. For 2048/3072/4096-bit keys the modulus
		// TLV places a 2-byte big-endian length at offset 6, counting
		// one leading 0x00 pad byte: the modulus MSB is always set,
		// so DER inserts the pad to keep the INTEGER positive.
		if len(data) < 8 {
			return 0, fmt.Errorf("%w: truncated RSA encoding", ErrInvalidKeyEncoding)
		}
		n := int(binary.BigEndian.Uint16(data[6:8])) - 1
		if n <= 0 {
			return 0, fmt.Errorf("%w: bad RSA modulus length", ErrInvalidKeyEncoding)
		}
		return n * 8, nil

	case backend.KeyTypeECCPublic:
		// Uncompressed point: 0x04 tag followed by X and Y coordinates
		// of equal length.
		if len(data) < 3 || data[0] != 0x04 || (len(data)-1)%2 != 0 {
			return 0, fmt.Errorf("%w: not an uncompressed EC point", ErrInvalidKeyEncoding)
		}
		return (len(data) - 1) / 2 * 8, nil

	default:
		return 0, fmt.Errorf("%w: %v", ErrUnsupportedKeyType, t)
	}
}
