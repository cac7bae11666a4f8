package keystore

import (
	"fmt"

	"bootcore/internal/backend"
)

// MaxBuiltinKeySize is the fixed capacity of the builtin key buffer,
// sized for the largest supported public key encoding: an uncompressed
// P-384 point.
const MaxBuiltinKeySize = 97

// Descriptor identifies one entry of the platform key table.
type Descriptor struct {
	Handle Handle
	Name   string
}

// KeyInfo describes material produced by a Loader.
type KeyInfo struct {
	Length int
	Bits   int
	Alg    backend.SignatureAlgorithm
	Type   backend.KeyType
}

// Loader is the platform key-loader contract: lookup of a provisioned
// key descriptor, filling a caller buffer with its material, and the
// platform-defined usage policy.
type Loader interface {
	Lookup(h Handle) (Descriptor, error)
	Load(d Descriptor, buf []byte) (KeyInfo, error)
	Policy(d Descriptor) backend.Usage
}

// BuiltinStore resolves keys from an immutable platform-provisioned
// table instead of caller-supplied bytes. It satisfies the same
// Resolver contract as the imported-key Store.
type BuiltinStore struct {
	loader Loader
	buf    [MaxBuiltinKeySize]byte
}

// NewBuiltinStore creates a store backed by the given platform loader.
func NewBuiltinStore(loader Loader) *BuiltinStore {
	return &BuiltinStore{loader: loader}
}

// Resolve implements Resolver by loading the provisioned key into the
// fixed-size buffer and assembling its attributes from the loader
// metadata and policy.
func (s *BuiltinStore) Resolve(h Handle) (backend.Attributes, []byte, error) {
	d, err := s.loader.Lookup(h)
	if err != nil {
		return backend.Attributes{}, nil, fmt.Errorf("%w: handle %d", ErrDoesNotExist, h)
	}

	info, err := s.loader.Load(d, s.buf[:])
	if err != nil {
		return backend.Attributes{}, nil, fmt.Errorf("keystore: load builtin key %q: %w", d.Name, err)
	}
	if info.Length > len(s.buf) {
		return backend.Attributes{}, nil, fmt.Errorf("%w: builtin key %q reports %d bytes", ErrInvalidKeyEncoding, d.Name, info.Length)
	}

	attr := backend.Attributes{
		Type:  info.Type,
		Bits:  info.Bits,
		Alg:   info.Alg,
		Usage: s.loader.Policy(d),
	}
	return attr, s.buf[:info.Length], nil
}
