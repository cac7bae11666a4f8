package rng

// Continuous health tests applied to blocks drawn from the secure
// source. The hardware runs its own statistical tests in silicon and
// reports them through the interrupt status register; simulated and
// host-side ports cannot, so the driver optionally re-checks drawn
// blocks in software with the two NIST SP 800-90B continuous tests.
//
// A block that trips a test is discarded and counts against the same
// attempt budget as a hardware test failure.

// Repetition count test cutoff (SP 800-90B 4.4.1): the same byte value
// this many times in a row marks the source as stuck.
const repetitionCutoff = 21

// Adaptive proportion test parameters (SP 800-90B 4.4.2): within a
// window, the first sample recurring at least cutoff times marks the
// source as biased.
const (
	aptWindow = 512
	aptCutoff = 325
)

type selfTest struct {
	// repetition count state
	last   byte
	repeat int

	// adaptive proportion state
	sample  byte
	matches int
	seen    int
}

func newSelfTest() *selfTest {
	return &selfTest{}
}

// feed runs both tests over a drawn block. It returns false when a test
// trips; the block must then be discarded.
func (t *selfTest) feed(block []byte) bool {
	ok := true
	for _, b := range block {
		if b == t.last {
			t.repeat++
			if t.repeat >= repetitionCutoff {
				ok = false
				t.repeat = 0
			}
		} else {
			t.last = b
			t.repeat = 1
		}

		if t.seen == 0 {
			t.sample = b
			t.matches = 1
		} else if b == t.sample {
			t.matches++
			if t.matches >= aptCutoff {
				ok = false
				t.matches = 0
			}
		}
		t.seen++
		if t.seen == aptWindow {
			t.seen = 0
		}
	}
	return ok
}
