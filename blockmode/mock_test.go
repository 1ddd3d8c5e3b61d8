package blockmode

import "sync/atomic"

// incPermuter is a trivial Permuter that adds one to every byte of the block.
// It lets the mode drivers be checked without a real cipher.
type incPermuter struct {
	calls atomic.Int64
}

func (p *incPermuter) EncryptBlock(b Block) Block {
	p.calls.Add(1)

	var out Block
	for i := range b {
		out[i] = b[i] + 1
	}

	return out
}

// fill returns a block with every byte set to v.
func fill(v byte) Block {
	var b Block
	for i := range b {
		b[i] = v
	}

	return b
}

// blockAt returns the i-th block of buf.
func blockAt(buf []byte, i int) []byte {
	return buf[i*BlockSize : (i+1)*BlockSize]
}
