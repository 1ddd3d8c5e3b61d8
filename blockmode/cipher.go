package blockmode

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
	"strings"

	"golang.org/x/crypto/twofish"
)

// CipherType identifies a 16-byte block permutation primitive.
type CipherType uint8

const (
	// CipherAES128 is AES with a 128-bit key.
	CipherAES128 CipherType = 0

	// CipherTwofish128 is Twofish with a 128-bit key.
	CipherTwofish128 CipherType = 1
)

// String returns a human readable name for the cipher.
func (c CipherType) String() string {
	switch c {
	case CipherAES128:
		return "aes"
	case CipherTwofish128:
		return "twofish"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// IsKnown returns true if the cipher has a permutation primitive behind it.
func (c CipherType) IsKnown() bool {
	switch c {
	case CipherAES128, CipherTwofish128:
		return true
	default:
		return false
	}
}

// ParseCipherType maps a cipher name, as returned by String, to its type.
func ParseCipherType(name string) (CipherType, error) {
	switch strings.ToLower(name) {
	case "aes", "aes128", "aes-128":
		return CipherAES128, nil
	case "twofish", "twofish128", "twofish-128":
		return CipherTwofish128, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownCipher, name)
	}
}

// NewPermuter keys the cipher's permutation primitive.
func (c CipherType) NewPermuter(key []byte) (*CipherPermuter, error) {
	switch c {
	case CipherAES128:
		return NewAES(key)
	case CipherTwofish128:
		return NewTwofish(key)
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownCipher, c)
	}
}

// CipherPermuter adapts a keyed cipher.Block with a 16-byte block size to the
// Permuter interface.
type CipherPermuter struct {
	cipherType CipherType
	block      cipher.Block
}

// A compile-time check to ensure CipherPermuter implements Permuter.
var _ Permuter = (*CipherPermuter)(nil)

// NewAES returns an AES-128 permuter keyed with key.
func NewAES(key []byte) (*CipherPermuter, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	return &CipherPermuter{cipherType: CipherAES128, block: block}, nil
}

// NewTwofish returns a Twofish-128 permuter keyed with key.
func NewTwofish(key []byte) (*CipherPermuter, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}

	block, err := twofish.NewCipher(key)
	if err != nil {
		return nil, err
	}

	return &CipherPermuter{cipherType: CipherTwofish128, block: block}, nil
}

// Cipher returns the primitive behind the permuter.
func (c *CipherPermuter) Cipher() CipherType {
	return c.cipherType
}

// EncryptBlock returns the image of b under the keyed cipher.
//
// NOTE: This is part of the Permuter interface.
func (c *CipherPermuter) EncryptBlock(b Block) Block {
	var out Block
	c.block.Encrypt(out[:], b[:])

	return out
}

// checkKey makes sure key is a 128-bit key. Both AES and Twofish also accept
// longer keys, which are not used here.
func checkKey(key []byte) error {
	if len(key) != KeySize {
		return fmt.Errorf("%w: got %d bytes, want %d",
			ErrInvalidKeyLength, len(key), KeySize)
	}

	return nil
}
