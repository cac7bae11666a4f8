package rng

// BlockSize is the width in bytes of the entropy holding register: one
// hardware draw produces exactly one block.
const BlockSize = 24

// WordSize is the hardware word width in bytes. Word-aligned requests
// take an aligned copy path through the entropy buffer.
const WordSize = 4

// Interrupt status bits reported by Port.IRQStatus.
const (
	// IRQEHRValid is set when the holding register contains a fresh
	// block that has passed the hardware statistical tests.
	IRQEHRValid uint32 = 1 << 0

	// IRQAutocorrFail is set when the autocorrelation test failed.
	IRQAutocorrFail uint32 = 1 << 1

	// IRQCRNGTFail is set when the continuous RNG test failed.
	IRQCRNGTFail uint32 = 1 << 2

	// IRQVNCFail is set when the Von Neumann corrector test failed.
	IRQVNCFail uint32 = 1 << 3
)

// irqTestFail covers every statistical-test failure bit. When any of
// these is set the holding register contents are not random.
const irqTestFail = IRQAutocorrFail | IRQCRNGTFail | IRQVNCFail

// irqAll covers every interrupt bit the driver ever clears.
const irqAll uint32 = 0x3F

// Port models the register block of the true-random noise source. The
// driver only ever touches the hardware through this interface, so the
// self-test and buffering logic can run against a simulated source.
//
// Implementations are not required to be safe for concurrent use; the
// trust core is single-threaded by construction.
type Port interface {
	// EnableClock gates the sampling clock.
	EnableClock(on bool)

	// SoftReset resets the sampling circuitry. There is no way to
	// observe reset completion directly; the driver re-programs the
	// sample rate until the write sticks.
	SoftReset()

	// SetSampleRate programs the oscillator subsampling divider.
	SetSampleRate(rate uint32)

	// SampleRate reads back the programmed divider.
	SampleRate() uint32

	// EnableSource arms or disarms the noise source.
	EnableSource(on bool)

	// IRQStatus reads the interrupt status register.
	IRQStatus() uint32

	// ClearIRQ clears the given interrupt bits, restarting generation
	// after a failed statistical test.
	ClearIRQ(mask uint32)

	// MaskIRQ sets the interrupt mask register.
	MaskIRQ(mask uint32)

	// ResetBitsCounter resets the collected-bits counter ahead of a
	// holding-register read.
	ResetBitsCounter()

	// ReadBlock reads the entropy holding register. The read itself
	// re-arms generation of the next block.
	ReadBlock() [BlockSize]byte
}
