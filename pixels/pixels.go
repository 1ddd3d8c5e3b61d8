// Package pixels converts between images and the flat byte buffers the block
// modes operate on, and reads and writes the BMP container.
package pixels

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"

	"github.com/lightningnetwork/lnd/fn/v2"
	"golang.org/x/image/bmp"
)

// BytesPerPixel is the number of bytes each pixel contributes to a buffer.
const BytesPerPixel = 3

// ErrShortPixelData is returned when a buffer holds fewer bytes than the
// image it is poured into has pixel channels.
var ErrShortPixelData = errors.New("pixel data shorter than image")

// BufferSize returns the number of bytes Decode produces for img.
func BufferSize(img image.Image) int {
	b := img.Bounds()

	return BytesPerPixel * b.Dx() * b.Dy()
}

// Decode flattens the pixels of img into R, G, B triples in row-major order,
// top row first and left to right within a row. Alpha is dropped.
func Decode(img image.Image) []byte {
	bounds := img.Bounds()

	buf := make([]byte, 0, BufferSize(img))
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			buf = append(buf, c.R, c.G, c.B)
		}
	}

	return buf
}

// Encode pours data back into an opaque image with the bounds of tmpl,
// consuming R, G, B triples in the order Decode produces them. Bytes beyond
// what the image can hold, such as the padding a block mode appends, are
// dropped.
func Encode(tmpl image.Image, data []byte) (*image.NRGBA, error) {
	bounds := tmpl.Bounds()
	if need := BufferSize(tmpl); len(data) < need {
		return nil, fmt.Errorf("%w: need %d bytes, have %d",
			ErrShortPixelData, need, len(data))
	}

	img := image.NewNRGBA(bounds)
	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: data[i],
				G: data[i+1],
				B: data[i+2],
				A: 0xff,
			})
			i += BytesPerPixel
		}
	}

	if extra := len(data) - i; extra > 0 {
		log.Debugf("Dropped %d trailing bytes that do not fit a "+
			"%dx%d image", extra, bounds.Dx(), bounds.Dy())
	}

	return img, nil
}

// ReadBMP decodes the BMP file at path.
func ReadBMP(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := bmp.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("unable to decode %v: %w", path, err)
	}

	log.Debugf("Read %dx%d bitmap from %v", img.Bounds().Dx(),
		img.Bounds().Dy(), path)

	return img, nil
}

// EncodeBMP serializes img as a BMP file.
func EncodeBMP(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := bmp.Encode(&buf, img); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// WriteBMP writes img to path as a BMP file, syncing it to disk before
// returning. A partially written file is removed.
func WriteBMP(path string, img image.Image) error {
	data, err := EncodeBMP(img)
	if err != nil {
		return fmt.Errorf("unable to encode %v: %w", path, err)
	}

	if err := fn.WriteFileRemove(path, data, 0644); err != nil {
		return fmt.Errorf("unable to write %v: %w", path, err)
	}

	log.Debugf("Wrote %d byte bitmap to %v", len(data), path)

	return nil
}
