// Package keysource produces the keys and initialization vectors consumed by
// the block modes: random draws, operator supplied hex and passphrase
// stretching.
package keysource

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/lightningnetwork/bmpcrypt/blockmode"
	"golang.org/x/crypto/scrypt"
)

const (
	// The scrypt parameters used to stretch a passphrase into a key.
	scryptN = 32768
	scryptR = 8
	scryptP = 1
)

var (
	// DefaultSalt is the salt used for passphrase derived keys when the
	// caller does not supply one.
	DefaultSalt = []byte("bmpcrypt-key-v0")

	// ErrEmptyPassphrase is returned when a key is requested for an empty
	// passphrase.
	ErrEmptyPassphrase = errors.New("passphrase must not be empty")

	// ErrInvalidHexLength is returned when a hex string decodes to the
	// wrong number of bytes.
	ErrInvalidHexLength = errors.New("invalid hex length")
)

// NewIV draws a fresh initialization vector from rand. Production callers
// pass crypto/rand.Reader.
func NewIV(rand io.Reader) (blockmode.Block, error) {
	var iv blockmode.Block
	if _, err := io.ReadFull(rand, iv[:]); err != nil {
		return iv, fmt.Errorf("unable to generate iv: %w", err)
	}

	log.Tracef("Generated iv %x", iv[:])

	return iv, nil
}

// NewKey draws a fresh 16-byte key from rand.
func NewKey(rand io.Reader) ([]byte, error) {
	key := make([]byte, blockmode.KeySize)
	if _, err := io.ReadFull(rand, key); err != nil {
		return nil, fmt.Errorf("unable to generate key: %w", err)
	}

	return key, nil
}

// ParseHex decodes a hex string of exactly size bytes. An optional 0x prefix
// and surrounding whitespace are accepted.
func ParseHex(s string, size int) ([]byte, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")

	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("unable to decode hex: %w", err)
	}
	if len(b) != size {
		return nil, fmt.Errorf("%w: got %d bytes, want %d",
			ErrInvalidHexLength, len(b), size)
	}

	return b, nil
}

// DeriveKey stretches passphrase into a 16-byte key with scrypt. A nil salt
// selects DefaultSalt.
func DeriveKey(passphrase, salt []byte) ([]byte, error) {
	if len(passphrase) == 0 {
		return nil, ErrEmptyPassphrase
	}
	if salt == nil {
		salt = DefaultSalt
	}

	key, err := scrypt.Key(
		passphrase, salt, scryptN, scryptR, scryptP,
		blockmode.KeySize,
	)
	if err != nil {
		return nil, fmt.Errorf("unable to derive key: %w", err)
	}

	log.Debugf("Derived %d byte key from passphrase", len(key))

	return key, nil
}
