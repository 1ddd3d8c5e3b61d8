package blockmode

import "errors"

var (
	// ErrInvalidKeyLength is returned when a key is not exactly KeySize
	// bytes long.
	ErrInvalidKeyLength = errors.New("invalid key length")

	// ErrInvalidIVLength is returned when a CBC initialization vector is
	// not exactly BlockSize bytes long.
	ErrInvalidIVLength = errors.New("invalid iv length")

	// ErrInvalidPadding is returned when a buffer does not end in a well
	// formed PKCS#7 pad.
	ErrInvalidPadding = errors.New("invalid padding")

	// ErrLengthMismatch is returned when two buffers that must be xor'd
	// together differ in length.
	ErrLengthMismatch = errors.New("buffer length mismatch")

	// ErrUnknownCipher is returned for a cipher identifier that has no
	// permutation primitive behind it.
	ErrUnknownCipher = errors.New("unknown cipher")

	// ErrUnknownMode is returned for a mode identifier that has no driver
	// behind it.
	ErrUnknownMode = errors.New("unknown mode")
)
