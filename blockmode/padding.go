package blockmode

import "fmt"

// Pad returns a copy of buf extended with PKCS#7 padding up to the next
// multiple of BlockSize. Between 1 and BlockSize bytes are always appended,
// each holding the pad length, so an already aligned buffer gains a full
// block. The caller's buffer is never modified.
func Pad(buf []byte) []byte {
	padLen := BlockSize - len(buf)%BlockSize

	padded := make([]byte, len(buf), len(buf)+padLen)
	copy(padded, buf)
	for i := 0; i < padLen; i++ {
		padded = append(padded, byte(padLen))
	}

	return padded
}

// Unpad strips the PKCS#7 padding added by Pad. The buffer must be a non-empty
// multiple of BlockSize whose last p bytes all hold the value p, with p in
// [1, BlockSize]. Any other input is rejected with ErrInvalidPadding. The
// returned slice aliases buf.
func Unpad(buf []byte) ([]byte, error) {
	switch {
	case len(buf) == 0:
		return nil, fmt.Errorf("%w: empty buffer", ErrInvalidPadding)

	case len(buf)%BlockSize != 0:
		return nil, fmt.Errorf("%w: %d bytes is not block aligned",
			ErrInvalidPadding, len(buf))
	}

	padLen := int(buf[len(buf)-1])
	if padLen == 0 || padLen > BlockSize {
		return nil, fmt.Errorf("%w: pad length %d out of range",
			ErrInvalidPadding, padLen)
	}

	for _, b := range buf[len(buf)-padLen:] {
		if int(b) != padLen {
			return nil, fmt.Errorf("%w: inconsistent pad bytes",
				ErrInvalidPadding)
		}
	}

	return buf[:len(buf)-padLen], nil
}
