package blockmode

import (
	"fmt"
	"strings"
)

// Mode identifies a block cipher mode of operation.
type Mode uint8

const (
	// ModeECB is the electronic codebook mode.
	ModeECB Mode = 0

	// ModeCBC is the cipher block chaining mode.
	ModeCBC Mode = 1
)

// String returns a human readable name for the mode.
func (m Mode) String() string {
	switch m {
	case ModeECB:
		return "ecb"
	case ModeCBC:
		return "cbc"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(m))
	}
}

// IsKnown returns true if the mode has a driver behind it.
func (m Mode) IsKnown() bool {
	return m == ModeECB || m == ModeCBC
}

// NeedsIV returns true if the mode is seeded with an initialization vector.
func (m Mode) NeedsIV() bool {
	return m == ModeCBC
}

// ParseMode maps a mode name, as returned by String, to its Mode.
func ParseMode(name string) (Mode, error) {
	switch strings.ToLower(name) {
	case "ecb":
		return ModeECB, nil
	case "cbc":
		return ModeCBC, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMode, name)
	}
}

// Encrypt dispatches plaintext to the driver for mode. The iv is ignored by
// modes that do not chain.
func Encrypt(mode Mode, p Permuter, iv Block, plaintext []byte) ([]byte,
	error) {

	switch mode {
	case ModeECB:
		return ECB(p, plaintext), nil
	case ModeCBC:
		return CBC(p, iv, plaintext), nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownMode, mode)
	}
}
