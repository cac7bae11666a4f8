package rng

import "math/rand"

// SimPort is a register-level simulation of the noise source, used by
// the package tests and by deterministic tooling. Blocks come from a
// seeded math/rand stream (this is a simulation, not an entropy
// source). Failure injection mimics the two ways real hardware
// misbehaves: statistical-test failures and a sampler that never
// becomes ready.
type SimPort struct {
	rnd *rand.Rand

	clockOn    bool
	sourceOn   bool
	sampleRate uint32
	isr        uint32

	// resetLatency models reset completion: SetSampleRate writes are
	// swallowed while a reset is still in progress.
	resetLatency int

	// FailReads injects that many statistical-test failures before
	// blocks start passing again.
	FailReads int

	// StuckBlock, when non-nil, overrides the random stream so every
	// block has this exact content.
	StuckBlock *[BlockSize]byte

	// Counters observed by tests.
	Reads        int
	SourceStarts int
	SourceStops  int
}

// NewSimPort creates a simulated port with a deterministic block stream.
func NewSimPort(seed int64) *SimPort {
	return &SimPort{rnd: rand.New(rand.NewSource(seed))}
}

func (p *SimPort) EnableClock(on bool) { p.clockOn = on }

func (p *SimPort) SoftReset() {
	// Reset value of the sample-rate register, used by the driver to
	// detect reset completion.
	p.sampleRate = 0xFFFF
	p.resetLatency = 1
}

func (p *SimPort) SetSampleRate(rate uint32) {
	if p.resetLatency > 0 {
		p.resetLatency--
		return
	}
	p.sampleRate = rate
}

func (p *SimPort) SampleRate() uint32 { return p.sampleRate }

func (p *SimPort) EnableSource(on bool) {
	if on == p.sourceOn {
		return
	}
	p.sourceOn = on
	if on {
		p.SourceStarts++
		p.isr = IRQEHRValid
	} else {
		p.SourceStops++
		p.isr = 0
	}
}

func (p *SimPort) IRQStatus() uint32 {
	if p.FailReads > 0 {
		return IRQCRNGTFail
	}
	return p.isr
}

func (p *SimPort) ClearIRQ(mask uint32) {
	if p.FailReads > 0 && mask&irqTestFail != 0 {
		p.FailReads--
		if p.FailReads == 0 {
			// Generator restarted; next block is valid.
			p.isr = IRQEHRValid
		}
	}
	p.isr &^= mask
}

func (p *SimPort) MaskIRQ(mask uint32) {}

func (p *SimPort) ResetBitsCounter() {}

func (p *SimPort) ReadBlock() [BlockSize]byte {
	p.Reads++
	var block [BlockSize]byte
	if p.StuckBlock != nil {
		block = *p.StuckBlock
	} else {
		p.rnd.Read(block[:])
	}
	// Reading re-arms generation; the next block is immediately valid
	// in simulation.
	p.isr |= IRQEHRValid
	return block
}
