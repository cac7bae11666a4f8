package rng

import (
	"crypto/rand"
	"fmt"
)

// Entropy source names accepted by Open.
const (
	// SourceReader draws entropy blocks from the operating system
	// random source.
	SourceReader = "reader"

	// SourceTPM draws entropy blocks from a TPM 2.0 device.
	SourceTPM = "tpm"
)

// Open constructs the entropy Port named by source. device is the TPM
// character device path for SourceTPM, empty for auto-detection, and
// ignored otherwise. Ports holding a device implement io.Closer.
func Open(source, device string) (Port, error) {
	switch source {
	case SourceReader:
		return NewReaderPort(rand.Reader), nil
	case SourceTPM:
		return openTPM(device)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, source)
	}
}
