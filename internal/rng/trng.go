package rng

import (
	"log/slog"

	"bootcore/internal/metrics"
)

// pollsPerAttempt bounds the busy-wait on the ready bit. Hardware
// either delivers a block or fails a statistical test within a few
// sample periods; a source that does neither is as dead as one that
// keeps failing.
const pollsPerAttempt = 1024

// trng drives the true-random noise source through a Port: paired
// start/stop, the bounded ready/fail poll, and the read that re-arms
// generation.
type trng struct {
	port        Port
	sampleRate  uint32
	maxAttempts int
	check       *selfTest
	log         *slog.Logger
}

func newTRNG(port Port, cfg Config, log *slog.Logger) *trng {
	t := &trng{
		port:        port,
		sampleRate:  cfg.SampleRate,
		maxAttempts: cfg.MaxAttempts,
		log:         log,
	}
	if cfg.SelfTest {
		t.check = newSelfTest()
	}
	return t
}

// start arms the noise source. Every start must be paired with a stop,
// on error paths included, so the generator is never left running
// longer than necessary.
func (t *trng) start() {
	t.port.EnableClock(true)
	t.port.SoftReset()

	// Reset completion is not observable, so re-program the sample
	// rate until the write sticks.
	for {
		t.port.EnableClock(true)
		t.port.SetSampleRate(t.sampleRate)
		if t.port.SampleRate() == t.sampleRate {
			break
		}
	}

	t.port.EnableSource(false)
	t.port.ClearIRQ(irqAll)
	t.port.MaskIRQ(irqAll &^ IRQEHRValid)
	t.port.EnableSource(true)
}

// stop disarms the noise source and gates its clock. It is safe to call
// more than once.
func (t *trng) stop() {
	t.port.EnableSource(false)
	t.port.EnableClock(false)
}

// readBlock fills dst with one fresh block. Statistical-test failures
// reset the sampler and retry, bounded by the attempt budget; exceeding
// it stops the source and reports a FatalError.
func (t *trng) readBlock(dst []byte) error {
	attempts := 0
	polls := 0
	for {
		isr := t.port.IRQStatus()

		if isr&irqTestFail != 0 {
			// The holding register contents are not random.
			t.port.ResetBitsCounter()
			t.port.ClearIRQ(irqAll)
			metrics.SelfTestFailed()
			if attempts++; attempts >= t.maxAttempts {
				return t.fatal()
			}
			continue
		}

		if isr&IRQEHRValid == 0 {
			if polls++; polls >= t.maxAttempts*pollsPerAttempt {
				return t.fatal()
			}
			continue
		}

		t.port.ResetBitsCounter()

		// Clear the valid bit before the read restarts the generator,
		// so the stale bit cannot race the next block.
		t.port.ClearIRQ(irqAll)

		block := t.port.ReadBlock()

		if t.check != nil && !t.check.feed(block[:]) {
			metrics.SelfTestFailed()
			if attempts++; attempts >= t.maxAttempts {
				return t.fatal()
			}
			continue
		}

		metrics.EntropyBlockDrawn()
		copy(dst, block[:])
		return nil
	}
}

func (t *trng) fatal() error {
	t.stop()
	t.log.Error("noise source exhausted its attempt budget",
		"max_attempts", t.maxAttempts)
	return &FatalError{Op: "read noise source", Err: ErrTooManyAttempts}
}
