// Package rng supplies random numbers to the trust core: buffered draws
// from a hardware true-random source, a fast xorshift+ generator for
// side-channel countermeasures, unbiased bounded-integer sampling, and
// permutation generation.
//
// Two qualities are served. Secure draws come from the noise source
// behind a Port, self-tested and retry-bounded; Fast draws come from a
// xorshift+ generator seeded once per Service from the secure source.
// Fast output must never be used for cryptographic material.
//
// Every retry loop is attempt-bounded. Exhausting a bound is reported
// as a FatalError: there is no safe degraded mode for a boot flow that
// cannot obtain entropy, and the caller is expected to halt.
package rng

import (
	"encoding/binary"
	"io"
	"log/slog"
	"math/bits"

	"bootcore/internal/metrics"
)

// Quality selects which generator and buffer pair serves a request.
type Quality int

const (
	// Secure draws from the hardware true-random source.
	Secure Quality = iota

	// Fast draws from the xorshift+ generator. Not cryptographically
	// secure; only for randomization that does not depend on secrets.
	Fast
)

// String returns a human-readable name for the quality.
func (q Quality) String() string {
	switch q {
	case Secure:
		return "secure"
	case Fast:
		return "fast"
	default:
		return "invalid"
	}
}

// fastBlockSize is the refill granularity of the fast buffer: one
// xorshift+ step produces one 64-bit word.
const fastBlockSize = 8

// Config holds the RNG service configuration.
type Config struct {
	// SampleRate is the oscillator subsampling divider programmed into
	// the noise source.
	SampleRate uint32

	// MaxAttempts bounds every retry loop: hardware statistical-test
	// failures and rejection-sampling redraws alike.
	MaxAttempts int

	// DPAMitigations enables permutation shuffling. When disabled,
	// GetRandomPermutation returns the identity permutation.
	DPAMitigations bool

	// SelfTest re-checks drawn blocks with software SP 800-90B
	// continuous tests, for ports whose hardware does not run them.
	SelfTest bool
}

// DefaultConfig returns the configuration used by the boot flow.
func DefaultConfig() Config {
	return Config{
		SampleRate:     0x500,
		MaxAttempts:    16,
		DPAMitigations: true,
		SelfTest:       false,
	}
}

// buffer is one refillable entropy buffer. Bytes at [0, used) have
// already been handed out; [used, len) are available. used == len means
// empty, which is also the initial state.
type buffer struct {
	data []byte
	used int
}

func newBuffer(size int) buffer {
	return buffer{data: make([]byte, size), used: size}
}

func (b *buffer) remaining() int { return len(b.data) - b.used }

// Service draws bytes from either source through a per-quality buffer.
// It owns all generator state; nothing in this package is process-wide.
// Not safe for concurrent use: the boot sequence calls it serially.
type Service struct {
	trng      *trng
	lfsr      xorshift128p
	secureBuf buffer
	fastBuf   buffer
	mitigate  bool
	attempts  int
	log       *slog.Logger
}

// NewService creates an RNG service over the given hardware port.
// A nil logger discards log output.
func NewService(port Port, cfg Config, log *slog.Logger) *Service {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultConfig().MaxAttempts
	}
	return &Service{
		trng:      newTRNG(port, cfg, log),
		secureBuf: newBuffer(BlockSize),
		fastBuf:   newBuffer(fastBlockSize),
		mitigate:  cfg.DPAMitigations,
		attempts:  cfg.MaxAttempts,
		log:       log,
	}
}

func roundUp(n, boundary int) int {
	return (n + boundary - 1) - ((n + boundary - 1) % boundary)
}

// GetRandom fills buf with random bytes of the given quality, refilling
// the per-quality buffer from its source as needed.
//
// When the request length is word-aligned, the buffer cursor is first
// advanced to a word boundary so the copies stay aligned; the skipped
// bytes are discarded, which does not change the distribution of the
// returned bytes. If serving the request needs a hardware refill, the
// noise source is started before the first draw and stopped once the
// request completes or fails.
func (s *Service) GetRandom(buf []byte, quality Quality) error {
	var b *buffer
	var fill func([]byte) error
	switch quality {
	case Secure:
		b = &s.secureBuf
		fill = s.trng.readBlock
	case Fast:
		b = &s.fastBuf
		fill = s.fillFast
	default:
		return ErrInvalidQuality
	}

	if len(buf)%WordSize == 0 {
		b.used = roundUp(b.used, WordSize)
	}

	if b.remaining() < len(buf) && quality == Secure {
		s.trng.start()
		defer s.trng.stop()
	}

	for len(buf) > 0 {
		if b.used == len(b.data) {
			if err := fill(b.data); err != nil {
				return err
			}
			b.used = 0
			metrics.BufferRefilled(quality.String())
		}
		n := copy(buf, b.data[b.used:])
		b.used += n
		buf = buf[n:]
	}
	return nil
}

// fillFast writes one xorshift+ word, seeding the generator from the
// secure source on first use. The seed is drawn exactly once per
// Service: fast output only randomizes operation order, so reseeding
// buys nothing.
func (s *Service) fillFast(dst []byte) error {
	if !s.lfsr.seeded {
		var seed [16]byte
		if err := s.GetRandom(seed[:], Secure); err != nil {
			return err
		}
		s.lfsr.seed(
			binary.LittleEndian.Uint64(seed[:8]),
			binary.LittleEndian.Uint64(seed[8:]),
		)
	}
	binary.LittleEndian.PutUint64(dst, s.lfsr.next())
	return nil
}

// GetRandomUint returns a value uniformly distributed in [0, bound).
//
// This is the SP 800-90A A.5.1 rejection method: mask a full-width draw
// down to the bit width of bound and redraw until the result lands
// inside it. Unlike reduction modulo bound it introduces no bias. The
// redraw loop shares the hardware attempt budget; exhausting it is a
// FatalError.
func (s *Service) GetRandomUint(bound uint32, quality Quality) (uint32, error) {
	if bound == 0 {
		return 0, ErrZeroBound
	}

	var mask uint32
	if bound&(bound-1) == 0 {
		// Exact power of two.
		mask = bound - 1
	} else {
		// All-ones shifted down to the leading bit of bound.
		mask = ^uint32(0) >> uint(bits.LeadingZeros32(bound))
	}

	var raw [4]byte
	for attempt := 0; attempt < s.attempts; attempt++ {
		if err := s.GetRandom(raw[:], quality); err != nil {
			return 0, err
		}
		v := binary.LittleEndian.Uint32(raw[:]) & mask
		if v < bound {
			return v, nil
		}
		metrics.RejectionRetried()
	}

	s.log.Error("rejection sampling exhausted its attempt budget",
		"bound", bound, "max_attempts", s.attempts)
	return 0, &FatalError{Op: "bounded draw", Err: ErrTooManyAttempts}
}

// GetRandomPermutation fills perm with a permutation of [0, len(perm)).
//
// With DPA mitigations enabled the identity permutation is shuffled
// with Fisher-Yates; otherwise it is returned as-is, and callers that
// rely on real randomization must check MitigationsEnabled. A failed
// draw skips that swap step instead of aborting the permutation: a
// partially shuffled order is still a usable countermeasure, while no
// order at all would stall the boot. Known tradeoff, kept on purpose.
func (s *Service) GetRandomPermutation(perm []int, quality Quality) {
	for i := range perm {
		perm[i] = i
	}
	if !s.mitigate {
		return
	}
	for i := 0; i < len(perm); i++ {
		j, err := s.GetRandomUint(uint32(len(perm)-i), quality)
		if err != nil {
			continue
		}
		k := i + int(j)
		perm[i], perm[k] = perm[k], perm[i]
	}
}

// MitigationsEnabled reports whether permutations are actually shuffled.
func (s *Service) MitigationsEnabled() bool { return s.mitigate }

// Read implements io.Reader at Secure quality, for callers that want
// the service as a randomness source for crypto primitives.
func (s *Service) Read(p []byte) (int, error) {
	if err := s.GetRandom(p, Secure); err != nil {
		return 0, err
	}
	return len(p), nil
}
