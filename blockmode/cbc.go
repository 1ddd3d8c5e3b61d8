package blockmode

import "github.com/lightningnetwork/bmpcrypt/build"

// ChainState is the state CBC threads from one block to the next.
type ChainState struct {
	// Prev is the previous ciphertext block, or the IV before the first
	// block has been processed.
	Prev Block

	// Index is the number of blocks processed so far.
	Index int
}

// NewChainState returns the chain state seeded with iv.
func NewChainState(iv Block) ChainState {
	return ChainState{Prev: iv}
}

// Step encrypts a single plaintext block, returning its ciphertext and the
// state for the following block. The receiver is left untouched.
func (s ChainState) Step(p Permuter, plaintext Block) (Block, ChainState) {
	c := p.EncryptBlock(XORBlock(plaintext, s.Prev))

	return c, ChainState{
		Prev:  c,
		Index: s.Index + 1,
	}
}

// CBC pads plaintext and encrypts it in cipher block chaining mode with p,
// seeding the chain with iv. Each block depends on the ciphertext of the one
// before it, so blocks are processed strictly in order. The IV is not
// prepended to the output, which is exactly as long as the padded plaintext.
func CBC(p Permuter, iv Block, plaintext []byte) []byte {
	padded := Pad(plaintext)

	var (
		ciphertext = make([]byte, 0, len(padded))
		state      = NewChainState(iv)
		c          Block
	)
	for _, block := range splitBlocks(padded) {
		c, state = state.Step(p, block)
		ciphertext = append(ciphertext, c[:]...)
	}

	log.Tracef("CBC encrypted %d blocks, final state: %v", state.Index,
		build.SpewLogClosure(state))

	return ciphertext
}

// EncryptCBC encrypts plaintext in CBC mode under AES-128 with the given
// 16-byte key and 16-byte IV. The key is checked before the IV.
func EncryptCBC(plaintext, key, iv []byte) ([]byte, error) {
	p, err := NewAES(key)
	if err != nil {
		return nil, err
	}

	ivBlock, err := BlockFromSlice(iv)
	if err != nil {
		return nil, err
	}

	return CBC(p, ivBlock, plaintext), nil
}
