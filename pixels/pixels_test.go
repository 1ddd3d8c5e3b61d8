package pixels

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// testImage returns a 3x2 image whose pixel at (x, y) is (x, y, x+y).
func testImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x), G: uint8(y), B: uint8(x + y),
				A: 0xff,
			})
		}
	}

	return img
}

// TestDecodeOrder checks that pixels are flattened row by row.
func TestDecodeOrder(t *testing.T) {
	t.Parallel()

	buf := Decode(testImage())
	require.Equal(t, []byte{
		0, 0, 0, 1, 0, 1, 2, 0, 2,
		0, 1, 1, 1, 1, 2, 2, 1, 3,
	}, buf)
	require.Len(t, buf, BufferSize(testImage()))
}

// TestDecodeOffsetBounds checks images whose bounds do not start at the
// origin.
func TestDecodeOffsetBounds(t *testing.T) {
	t.Parallel()

	img := image.NewNRGBA(image.Rect(5, 5, 7, 6))
	img.SetNRGBA(5, 5, color.NRGBA{R: 9, G: 8, B: 7, A: 0xff})
	img.SetNRGBA(6, 5, color.NRGBA{R: 1, G: 2, B: 3, A: 0xff})

	require.Equal(t, []byte{9, 8, 7, 1, 2, 3}, Decode(img))

	out, err := Encode(img, Decode(img))
	require.NoError(t, err)
	require.Equal(t, img.Bounds(), out.Bounds())
	require.Equal(t, img.Pix, out.Pix)
}

// TestEncodeRoundTrip checks that Encode inverts Decode and drops surplus
// bytes.
func TestEncodeRoundTrip(t *testing.T) {
	t.Parallel()

	img := testImage()
	buf := Decode(img)

	out, err := Encode(img, buf)
	require.NoError(t, err)
	require.Equal(t, img.Pix, out.Pix)

	// Trailing bytes, such as block padding, are ignored.
	padded := append(append([]byte{}, buf...), 0xde, 0xad, 0xbe, 0xef)
	out, err = Encode(img, padded)
	require.NoError(t, err)
	require.Equal(t, img.Pix, out.Pix)

	_, err = Encode(img, buf[:len(buf)-1])
	require.ErrorIs(t, err, ErrShortPixelData)
}

// TestBMPRoundTrip writes an image to disk and reads it back.
func TestBMPRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "plain.bmp")
	img := testImage()
	require.NoError(t, WriteBMP(path, img))

	read, err := ReadBMP(path)
	require.NoError(t, err)
	require.Equal(t, img.Bounds(), read.Bounds())
	require.Equal(t, Decode(img), Decode(read))

	_, err = ReadBMP(filepath.Join(t.TempDir(), "missing.bmp"))
	require.Error(t, err)

	err = WriteBMP(filepath.Join(t.TempDir(), "no", "dir.bmp"), img)
	require.Error(t, err)
}
