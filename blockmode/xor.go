package blockmode

import "fmt"

// XOR returns the byte-wise exclusive or of a and b in a newly allocated
// slice. Both inputs must have the same length, otherwise ErrLengthMismatch is
// returned.
func XOR(a, b []byte) ([]byte, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("%w: %d != %d", ErrLengthMismatch,
			len(a), len(b))
	}

	c := make([]byte, len(a))
	for i := range a {
		c[i] = a[i] ^ b[i]
	}

	return c, nil
}

// XORBlock returns the exclusive or of two blocks.
func XORBlock(a, b Block) Block {
	var c Block
	for i := range c {
		c[i] = a[i] ^ b[i]
	}

	return c
}
