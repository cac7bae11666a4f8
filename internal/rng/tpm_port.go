//go:build linux

// TPM-backed entropy port for host-side tooling and development
// platforms without a discrete noise source. Uses /dev/tpmrm0 (TPM
// Resource Manager) or /dev/tpm0 (direct access).

package rng

import (
	"os"

	"github.com/google/go-tpm/tpm2"
	"github.com/google/go-tpm/tpm2/transport"
)

// TPM device paths in order of preference.
var tpmDevicePaths = []string{
	"/dev/tpmrm0",
	"/dev/tpm0",
}

// TPMPort draws entropy blocks from a TPM 2.0 RNG. The register-level
// operations that have no TPM analog are accepted and ignored; a failed
// GetRandom command is surfaced as a statistical-test failure so the
// driver's bounded retry applies.
type TPMPort struct {
	devicePath string
	tpm        transport.TPMCloser
	sampleRate uint32
	armed      bool
	next       [BlockSize]byte
	ok         bool
}

// NewTPMPort opens a TPM port on the given device path. An empty path
// auto-detects the first usable TPM device.
func NewTPMPort(devicePath string) (*TPMPort, error) {
	if devicePath == "" {
		for _, path := range tpmDevicePaths {
			if _, err := os.Stat(path); err == nil {
				devicePath = path
				break
			}
		}
	}
	t, err := transport.OpenTPM(devicePath)
	if err != nil {
		return nil, err
	}
	return &TPMPort{devicePath: devicePath, tpm: t}, nil
}

// Close releases the TPM device.
func (p *TPMPort) Close() error {
	return p.tpm.Close()
}

func (p *TPMPort) EnableClock(on bool) {}

func (p *TPMPort) SoftReset() {}

func (p *TPMPort) SetSampleRate(rate uint32) { p.sampleRate = rate }

func (p *TPMPort) SampleRate() uint32 { return p.sampleRate }

func (p *TPMPort) EnableSource(on bool) {
	p.armed = on
	if on {
		p.refill()
	}
}

func (p *TPMPort) refill() {
	cmd := tpm2.GetRandom{BytesRequested: BlockSize}
	rsp, err := cmd.Execute(p.tpm)
	if err != nil || len(rsp.RandomBytes.Buffer) != BlockSize {
		p.ok = false
		return
	}
	copy(p.next[:], rsp.RandomBytes.Buffer)
	p.ok = true
}

func (p *TPMPort) IRQStatus() uint32 {
	if !p.armed {
		return 0
	}
	if !p.ok {
		return IRQCRNGTFail
	}
	return IRQEHRValid
}

func (p *TPMPort) ClearIRQ(mask uint32) {
	if p.armed && !p.ok && mask&irqTestFail != 0 {
		p.refill()
	}
}

func (p *TPMPort) MaskIRQ(mask uint32) {}

func (p *TPMPort) ResetBitsCounter() {}

func (p *TPMPort) ReadBlock() [BlockSize]byte {
	block := p.next
	p.refill()
	return block
}
