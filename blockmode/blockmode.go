// Package blockmode implements the Electronic Codebook and Cipher Block
// Chaining confidentiality modes over a 16-byte block permutation, together
// with the PKCS#7 padding both modes rely on.
//
// Only the encryption direction of each mode is provided. The permutation
// itself is abstracted behind the Permuter interface so the mode drivers can
// be exercised against any primitive with a 16-byte block.
package blockmode

import "fmt"

const (
	// BlockSize is the size in bytes of a single cipher block.
	BlockSize = 16

	// KeySize is the size in bytes of the key accepted by the permutation
	// primitives.
	KeySize = 16
)

// Block is a single cipher block, the unit the permutation operates on.
type Block [BlockSize]byte

// BlockFromSlice copies b into a Block. It fails with ErrInvalidIVLength if b
// is not exactly BlockSize bytes, since the only caller supplied blocks are
// initialization vectors.
func BlockFromSlice(b []byte) (Block, error) {
	var block Block
	if len(b) != BlockSize {
		return block, fmt.Errorf("%w: got %d bytes, want %d",
			ErrInvalidIVLength, len(b), BlockSize)
	}
	copy(block[:], b)

	return block, nil
}

// Permuter is a keyed permutation over a single block. The key is bound when
// the permuter is created. Implementations must be deterministic and free of
// side effects, so a single Permuter may be shared by concurrent callers.
type Permuter interface {
	// EncryptBlock returns the image of b under the keyed permutation.
	EncryptBlock(b Block) Block
}

// splitBlocks splits a block aligned buffer into its blocks. Callers must
// only pass padded buffers, anything else is a programming error.
func splitBlocks(buf []byte) []Block {
	if len(buf)%BlockSize != 0 {
		panic(fmt.Sprintf("blockmode: buffer of %d bytes is not block "+
			"aligned", len(buf)))
	}

	blocks := make([]Block, len(buf)/BlockSize)
	for i := range blocks {
		copy(blocks[i][:], buf[i*BlockSize:])
	}

	return blocks
}
