package rng

import "io"

// ReaderPort adapts an io.Reader to the Port interface, so host-side
// tooling can run the trust core against crypto/rand or a character
// device like /dev/hwrng. Register writes that have no host analog are
// accepted and ignored.
//
// A read failure is surfaced as a statistical-test failure: the driver
// retries within its attempt budget and reports a fatal error if the
// reader never recovers.
type ReaderPort struct {
	r          io.Reader
	sampleRate uint32
	armed      bool
	next       [BlockSize]byte
	ok         bool
}

// NewReaderPort creates a port drawing blocks from r.
func NewReaderPort(r io.Reader) *ReaderPort {
	return &ReaderPort{r: r}
}

func (p *ReaderPort) EnableClock(on bool) {}

func (p *ReaderPort) SoftReset() {}

func (p *ReaderPort) SetSampleRate(rate uint32) { p.sampleRate = rate }

func (p *ReaderPort) SampleRate() uint32 { return p.sampleRate }

func (p *ReaderPort) EnableSource(on bool) {
	p.armed = on
	if on {
		p.refill()
	}
}

func (p *ReaderPort) refill() {
	_, err := io.ReadFull(p.r, p.next[:])
	p.ok = err == nil
}

func (p *ReaderPort) IRQStatus() uint32 {
	if !p.armed {
		return 0
	}
	if !p.ok {
		return IRQCRNGTFail
	}
	return IRQEHRValid
}

func (p *ReaderPort) ClearIRQ(mask uint32) {
	// Clearing a failure restarts generation: give the reader another
	// chance before the driver burns its next attempt.
	if p.armed && !p.ok && mask&irqTestFail != 0 {
		p.refill()
	}
}

func (p *ReaderPort) MaskIRQ(mask uint32) {}

func (p *ReaderPort) ResetBitsCounter() {}

func (p *ReaderPort) ReadBlock() [BlockSize]byte {
	block := p.next
	p.refill()
	return block
}
