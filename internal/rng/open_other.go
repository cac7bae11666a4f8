//go:build !linux

package rng

import "fmt"

func openTPM(device string) (Port, error) {
	return nil, fmt.Errorf("%w: tpm requires a linux tpm character device", ErrUnknownSource)
}
