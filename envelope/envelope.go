// Package envelope defines the TLV container that carries a complete block
// mode ciphertext next to the bitmap it was rendered into. The bitmap can only
// show as many bytes as the image has pixel channels, so the padding block and
// the CBC IV would otherwise be lost.
package envelope

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"math/bits"
	"os"

	"github.com/lightningnetwork/bmpcrypt/blockmode"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/lightningnetwork/lnd/tlv"
)

// Version is the envelope encoding version written by Encode.
const Version uint8 = 0

// MaxRecordSize bounds the length a variable sized record may declare when
// decoding.
const MaxRecordSize = 1 << 30

const (
	typeVersion    tlv.Type = 0
	typeMode       tlv.Type = 1
	typeCipher     tlv.Type = 2
	typeWidth      tlv.Type = 3
	typeHeight     tlv.Type = 4
	typeIV         tlv.Type = 5
	typeCiphertext tlv.Type = 6
)

var (
	// ErrUnknownVersion is returned when decoding an envelope written by a
	// newer encoder.
	ErrUnknownVersion = errors.New("unknown envelope version")

	// ErrUnknownMode is returned for an envelope whose mode has no driver.
	ErrUnknownMode = errors.New("unknown envelope mode")

	// ErrUnknownCipher is returned for an envelope whose cipher has no
	// primitive.
	ErrUnknownCipher = errors.New("unknown envelope cipher")

	// ErrBadIV is returned when the presence of the IV does not match the
	// mode, or the IV has the wrong size.
	ErrBadIV = errors.New("bad envelope iv")

	// ErrBadCiphertext is returned when the ciphertext length does not
	// match the padded size of the image.
	ErrBadCiphertext = errors.New("bad envelope ciphertext")

	// ErrRecordTooLarge is returned when a record declares more bytes
	// than the decoder accepts.
	ErrRecordTooLarge = errors.New("envelope record too large")
)

// Envelope is a complete ciphertext together with everything needed to
// interpret it.
type Envelope struct {
	// Mode is the block mode the ciphertext was produced with.
	Mode blockmode.Mode

	// Cipher is the permutation primitive used.
	Cipher blockmode.CipherType

	// IV is the chaining seed. It is only set for modes that need one.
	IV fn.Option[blockmode.Block]

	// Width and Height are the dimensions of the source image.
	Width  uint32
	Height uint32

	// Ciphertext is the complete, padded ciphertext.
	Ciphertext []byte
}

// PlaintextSize returns the number of pixel bytes the envelope's image holds.
func (e *Envelope) PlaintextSize() int {
	return 3 * int(e.Width) * int(e.Height)
}

// paddedSize returns the ciphertext length for the envelope's image. It
// reports false if the length does not fit in a uint64.
func (e *Envelope) paddedSize() (uint64, bool) {
	hi, n := bits.Mul64(3*uint64(e.Width), uint64(e.Height))
	if hi != 0 || n > math.MaxUint64-blockmode.BlockSize {
		return 0, false
	}

	return n + blockmode.BlockSize - n%blockmode.BlockSize, true
}

// Validate checks the internal consistency of the envelope.
func (e *Envelope) Validate() error {
	if !e.Mode.IsKnown() {
		return fmt.Errorf("%w: %v", ErrUnknownMode, e.Mode)
	}
	if !e.Cipher.IsKnown() {
		return fmt.Errorf("%w: %v", ErrUnknownCipher, e.Cipher)
	}
	if e.Mode.NeedsIV() != e.IV.IsSome() {
		return fmt.Errorf("%w: mode %v with iv present=%v", ErrBadIV,
			e.Mode, e.IV.IsSome())
	}

	want, ok := e.paddedSize()
	if !ok || uint64(len(e.Ciphertext)) != want {
		return fmt.Errorf("%w: %d bytes for a %dx%d image, want %d",
			ErrBadCiphertext, len(e.Ciphertext), e.Width, e.Height,
			want)
	}

	return nil
}

// Encode validates the envelope and writes it to w as a TLV stream.
func (e *Envelope) Encode(w io.Writer) error {
	if err := e.Validate(); err != nil {
		return err
	}

	var (
		version    = Version
		mode       = uint8(e.Mode)
		cipherType = uint8(e.Cipher)
		width      = e.Width
		height     = e.Height
		ciphertext = e.Ciphertext
	)
	records := []tlv.Record{
		tlv.MakePrimitiveRecord(typeVersion, &version),
		tlv.MakePrimitiveRecord(typeMode, &mode),
		tlv.MakePrimitiveRecord(typeCipher, &cipherType),
		tlv.MakePrimitiveRecord(typeWidth, &width),
		tlv.MakePrimitiveRecord(typeHeight, &height),
	}

	e.IV.WhenSome(func(iv blockmode.Block) {
		ivBytes := iv[:]
		records = append(
			records, tlv.MakePrimitiveRecord(typeIV, &ivBytes),
		)
	})

	records = append(
		records, tlv.MakePrimitiveRecord(typeCiphertext, &ciphertext),
	)

	stream, err := tlv.NewStream(records...)
	if err != nil {
		return err
	}

	return stream.Encode(w)
}

// Decode reads an envelope from r and validates it. Variable sized records
// may declare at most MaxRecordSize bytes.
func Decode(r io.Reader) (*Envelope, error) {
	return decode(r, MaxRecordSize)
}

// boundedBytesRecord returns a var bytes record whose decoder rejects
// lengths above limit before allocating. If seen is non-nil it is set once
// the record has been decoded.
func boundedBytesRecord(typ tlv.Type, b *[]byte, limit uint64,
	seen *bool) tlv.Record {

	decoder := func(r io.Reader, val interface{}, buf *[8]byte,
		l uint64) error {

		if l > limit {
			return fmt.Errorf("%w: type %d declares %d bytes, "+
				"limit is %d", ErrRecordTooLarge, typ, l, limit)
		}
		if err := tlv.DVarBytes(r, val, buf, l); err != nil {
			return err
		}
		if seen != nil {
			*seen = true
		}

		return nil
	}

	return tlv.MakeDynamicRecord(
		typ, b, tlv.SizeVarBytes(b), tlv.EVarBytes, decoder,
	)
}

func decode(r io.Reader, limit uint64) (*Envelope, error) {
	var (
		version    uint8
		mode       uint8
		cipherType uint8
		width      uint32
		height     uint32
		iv         []byte
		ciphertext []byte

		haveIV bool
	)

	stream, err := tlv.NewStream(
		tlv.MakePrimitiveRecord(typeVersion, &version),
		tlv.MakePrimitiveRecord(typeMode, &mode),
		tlv.MakePrimitiveRecord(typeCipher, &cipherType),
		tlv.MakePrimitiveRecord(typeWidth, &width),
		tlv.MakePrimitiveRecord(typeHeight, &height),
		boundedBytesRecord(typeIV, &iv, limit, &haveIV),
		boundedBytesRecord(typeCiphertext, &ciphertext, limit, nil),
	)
	if err != nil {
		return nil, err
	}

	// Unknown odd records are skipped without being buffered.
	if err := stream.Decode(r); err != nil {
		return nil, fmt.Errorf("unable to decode envelope: %w", err)
	}

	if version != Version {
		return nil, fmt.Errorf("%w: %d", ErrUnknownVersion, version)
	}

	e := &Envelope{
		Mode:       blockmode.Mode(mode),
		Cipher:     blockmode.CipherType(cipherType),
		IV:         fn.None[blockmode.Block](),
		Width:      width,
		Height:     height,
		Ciphertext: ciphertext,
	}

	if haveIV {
		ivBlock, err := blockmode.BlockFromSlice(iv)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBadIV, err)
		}
		e.IV = fn.Some(ivBlock)
	}

	if err := e.Validate(); err != nil {
		return nil, err
	}

	return e, nil
}

// WriteFile encodes the envelope into the file at path. A partially written
// file is removed.
func (e *Envelope) WriteFile(path string) error {
	var buf bytes.Buffer
	if err := e.Encode(&buf); err != nil {
		return err
	}

	if err := fn.WriteFileRemove(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("unable to write envelope %v: %w", path, err)
	}

	log.Debugf("Wrote %v envelope (%d bytes) to %v", e.Mode, buf.Len(),
		path)

	return nil
}

// ReadFile decodes the envelope stored at path. No record may declare more
// bytes than the file holds.
func ReadFile(path string) (*Envelope, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	limit := uint64(MaxRecordSize)
	if size := uint64(info.Size()); size < limit {
		limit = size
	}

	return decode(f, limit)
}
