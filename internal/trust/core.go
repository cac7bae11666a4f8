// Package trust assembles the cryptographic trust core of the boot
// flow: the key slot, the entropy service, the hash engine and the
// verification dispatcher, owned together by a single Core.
//
// A Core is an explicit context object created once by the boot
// sequence and passed to everything that needs it. There is no
// process-wide state: the single-key-at-a-time invariant is a property
// of the one Core instance the boot owns. The Core is single-threaded
// by construction and must not be shared across goroutines.
package trust

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"bootcore/internal/backend"
	"bootcore/internal/config"
	"bootcore/internal/hashop"
	"bootcore/internal/keystore"
	"bootcore/internal/logging"
	"bootcore/internal/rng"
	"bootcore/internal/verify"
)

// Core construction errors
var (
	ErrMissingPort    = errors.New("trust: hardware port is required")
	ErrMissingBackend = errors.New("trust: crypto backend is required")
	ErrMissingLoader  = errors.New("trust: builtin key source requires a platform loader")
)

// Options carries the collaborators a Core is built from.
type Options struct {
	// Port is the hardware entropy port.
	Port rng.Port

	// Backend is the crypto backend.
	Backend backend.Backend

	// Loader is the platform key loader, required when the
	// configuration selects the builtin key source.
	Loader keystore.Loader

	// Logger receives structured log output. Nil discards it.
	Logger *slog.Logger
}

// Core owns the trust state for one boot sequence.
type Core struct {
	rng        *rng.Service
	store      *keystore.Store
	resolver   keystore.Resolver
	backend    backend.Backend
	dispatcher *verify.Dispatcher
	log        *slog.Logger
}

// New builds a Core from the configuration and collaborators.
func New(cfg *config.Config, opts Options) (*Core, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.Port == nil {
		return nil, ErrMissingPort
	}
	if opts.Backend == nil {
		return nil, ErrMissingBackend
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	c := &Core{
		backend: opts.Backend,
		log:     log,
	}

	c.rng = rng.NewService(opts.Port, rng.Config{
		SampleRate:     cfg.RNG.SampleRate,
		MaxAttempts:    cfg.RNG.MaxAttempts,
		DPAMitigations: cfg.RNG.DPAMitigations,
		SelfTest:       cfg.RNG.SelfTest,
	}, logging.Component(log, "rng"))

	switch cfg.Keys.Source {
	case config.KeySourceImported:
		c.store = keystore.NewStore()
		c.resolver = c.store
	case config.KeySourceBuiltin:
		if opts.Loader == nil {
			return nil, ErrMissingLoader
		}
		c.resolver = keystore.NewBuiltinStore(opts.Loader)
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidKeySource, cfg.Keys.Source)
	}

	c.dispatcher = verify.New(c.resolver, opts.Backend, logging.Component(log, "verify"))
	return c, nil
}

// ImportKey stores a verification key, replacing any previous one, and
// returns its handle. It fails when the Core uses the builtin key
// source: platform-provisioned keys cannot be replaced at runtime.
func (c *Core) ImportKey(attr backend.Attributes, material []byte) (keystore.Handle, error) {
	if c.store == nil {
		return 0, keystore.ErrImportNotSupported
	}
	h, err := c.store.Import(attr, material)
	if err != nil {
		return 0, err
	}
	c.log.Debug("key imported", "handle", h, "type", attr.Type.String())
	return h, nil
}

// KeyAttributes returns the attributes of the key named by h.
func (c *Core) KeyAttributes(h keystore.Handle) (backend.Attributes, error) {
	if c.store == nil {
		attr, _, err := c.resolver.Resolve(h)
		return attr, err
	}
	return c.store.GetAttributes(h)
}

// DestroyKey wipes the imported key named by h.
func (c *Core) DestroyKey(h keystore.Handle) error {
	if c.store == nil {
		return keystore.ErrImportNotSupported
	}
	return c.store.Destroy(h)
}

// NewHash creates an idle hash operation bound to the Core's backend.
func (c *Core) NewHash() *hashop.Operation {
	return hashop.New(c.backend)
}

// VerifyHash validates hash against signature with the key named by h.
func (c *Core) VerifyHash(h keystore.Handle, alg backend.SignatureAlgorithm, hash, signature []byte) error {
	return c.dispatcher.VerifyHash(h, alg, hash, signature)
}

// ExportPublicKey copies the public key named by h into out.
func (c *Core) ExportPublicKey(h keystore.Handle, out []byte) (int, error) {
	return c.dispatcher.ExportPublicKey(h, out)
}

// Random fills buf with random bytes of the given quality.
func (c *Core) Random(buf []byte, quality rng.Quality) error {
	return c.rng.GetRandom(buf, quality)
}

// RandomUint returns a value uniformly distributed in [0, bound).
func (c *Core) RandomUint(bound uint32, quality rng.Quality) (uint32, error) {
	return c.rng.GetRandomUint(bound, quality)
}

// RandomPermutation fills perm with a permutation of [0, len(perm)),
// shuffled when DPA mitigations are enabled.
func (c *Core) RandomPermutation(perm []int, quality rng.Quality) {
	c.rng.GetRandomPermutation(perm, quality)
}

// RNG exposes the entropy service, e.g. as an io.Reader for crypto
// primitives that take a randomness source.
func (c *Core) RNG() *rng.Service { return c.rng }
