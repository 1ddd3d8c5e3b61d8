// Package bmpcrypt encrypts the pixels of a bitmap under the ECB and CBC block
// modes and writes the results back out as bitmaps, so the difference between
// the modes can be seen.
package bmpcrypt

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"image"
	"io"
	"path/filepath"
	"time"

	"github.com/lightningnetwork/bmpcrypt/blockmode"
	"github.com/lightningnetwork/bmpcrypt/build"
	"github.com/lightningnetwork/bmpcrypt/envelope"
	"github.com/lightningnetwork/bmpcrypt/keysource"
	"github.com/lightningnetwork/bmpcrypt/pixels"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/lightningnetwork/lnd/healthcheck"
	"golang.org/x/sync/errgroup"
)

const (
	// bmpHeaderSize is the size of the file and info headers the bitmap
	// encoder writes.
	bmpHeaderSize = 14 + 40

	// envelopeOverhead bounds the TLV framing around an envelope's
	// ciphertext.
	envelopeOverhead = 64
)

// ErrInsufficientDiskSpace is returned when the output directory cannot hold
// the files a run would write.
var ErrInsufficientDiskSpace = errors.New("insufficient disk space")

// Result is the outcome of encrypting one image under one mode.
type Result struct {
	// Mode is the block mode the ciphertext was produced with.
	Mode blockmode.Mode

	// Ciphertext is the complete, padded ciphertext.
	Ciphertext []byte

	// Image holds as much of the ciphertext as the source image has pixel
	// channels.
	Image *image.NRGBA

	// Stats summarizes the repeated blocks of the ciphertext.
	Stats blockmode.RepeatStats

	// Elapsed is the time spent in the mode driver.
	Elapsed time.Duration
}

// Envelope returns the envelope carrying the result's full ciphertext.
func (r *Result) Envelope(cipherType blockmode.CipherType,
	iv blockmode.Block, bounds image.Rectangle) *envelope.Envelope {

	ivOpt := fn.None[blockmode.Block]()
	if r.Mode.NeedsIV() {
		ivOpt = fn.Some(iv)
	}

	return &envelope.Envelope{
		Mode:       r.Mode,
		Cipher:     cipherType,
		IV:         ivOpt,
		Width:      uint32(bounds.Dx()),
		Height:     uint32(bounds.Dy()),
		Ciphertext: r.Ciphertext,
	}
}

// BitmapName returns the file name the encrypted bitmap of mode is written
// to.
func BitmapName(mode blockmode.Mode) string {
	return fmt.Sprintf("%v_crypto.bmp", mode)
}

// EnvelopeName returns the file name the envelope of mode is written to.
func EnvelopeName(mode blockmode.Mode) string {
	return fmt.Sprintf("%v_crypto.tlv", mode)
}

// EncryptImage encrypts the pixels of img under every mode, one goroutine per
// mode. The context only gates modes that have not started yet, a running
// driver always completes. Results are returned in the order of modes.
func EncryptImage(ctx context.Context, clk clock.Clock, p blockmode.Permuter,
	iv blockmode.Block, img image.Image,
	modes []blockmode.Mode) ([]*Result, error) {

	plaintext := pixels.Decode(img)

	results := make([]*Result, len(modes))
	g, ctx := errgroup.WithContext(ctx)
	for i, mode := range modes {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			start := clk.Now()
			ciphertext, err := blockmode.Encrypt(
				mode, p, iv, plaintext,
			)
			if err != nil {
				return err
			}
			elapsed := clk.Now().Sub(start)

			out, err := pixels.Encode(img, ciphertext)
			if err != nil {
				return fmt.Errorf("unable to encode %v pixels: %w",
					mode, err)
			}

			results[i] = &Result{
				Mode:       mode,
				Ciphertext: ciphertext,
				Image:      out,
				Stats:      blockmode.AnalyzeRepeats(ciphertext),
				Elapsed:    elapsed,
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

// OutputSize returns an upper bound on the number of bytes a run over img
// writes to disk.
func OutputSize(img image.Image, modes []blockmode.Mode,
	withEnvelope bool) uint64 {

	bounds := img.Bounds()

	// The encoder never uses more than four bytes per pixel.
	perMode := uint64(bmpHeaderSize + 4*bounds.Dx()*bounds.Dy())
	if withEnvelope {
		plaintext := make([]byte, pixels.BufferSize(img))
		padded := len(blockmode.Pad(plaintext))
		perMode += uint64(padded + envelopeOverhead)
	}

	return perMode * uint64(len(modes))
}

// environment bundles the outside facilities a run depends on.
type environment struct {
	clock     clock.Clock
	diskSpace func(path string) (uint64, error)
	rand      io.Reader
}

// Main is the true entry point for bmpcrypt. It reads the input bitmap,
// encrypts it under every configured mode and writes the results to the
// output directory.
func Main(ctx context.Context, cfg *Config) error {
	env := &environment{
		clock:     clock.NewDefaultClock(),
		diskSpace: healthcheck.AvailableDiskSpace,
		rand:      rand.Reader,
	}

	return run(ctx, cfg, env)
}

func run(ctx context.Context, cfg *Config, env *environment) error {
	bmpcLog.Infof("Version: %s commit=%s, build=%s, logging=%s, "+
		"debuglevel=%s", build.Version(), build.Commit,
		build.Deployment, build.LoggingType, cfg.DebugLevel)

	img, err := pixels.ReadBMP(cfg.Input)
	if err != nil {
		return err
	}

	p, err := cfg.CipherType.NewPermuter(cfg.EncryptionKey)
	if err != nil {
		return err
	}

	iv, err := cfg.InitVector.UnwrapOrFuncErr(
		func() (blockmode.Block, error) {
			bmpcLog.Debugf("No iv configured, drawing a random one")
			return keysource.NewIV(env.rand)
		},
	)
	if err != nil {
		return err
	}

	need := OutputSize(img, cfg.ActiveModes, !cfg.NoEnvelope)
	avail, err := env.diskSpace(cfg.OutDir)
	if err != nil {
		return fmt.Errorf("unable to check disk space of %v: %w",
			cfg.OutDir, err)
	}
	if avail < need {
		return fmt.Errorf("%w: %v needs %d bytes, %d available",
			ErrInsufficientDiskSpace, cfg.OutDir, need, avail)
	}

	bmpcLog.Infof("Encrypting %dx%d bitmap %v with %v under %v",
		img.Bounds().Dx(), img.Bounds().Dy(), cfg.Input, p.Cipher(),
		cfg.ActiveModes)

	results, err := EncryptImage(
		ctx, env.clock, p, iv, img, cfg.ActiveModes,
	)
	if err != nil {
		return err
	}

	for _, res := range results {
		path := filepath.Join(cfg.OutDir, BitmapName(res.Mode))
		if err := pixels.WriteBMP(path, res.Image); err != nil {
			return err
		}

		if !cfg.NoEnvelope {
			envl := res.Envelope(p.Cipher(), iv, img.Bounds())
			path := filepath.Join(cfg.OutDir, EnvelopeName(res.Mode))
			if err := envl.WriteFile(path); err != nil {
				return err
			}
		}

		bmpcLog.Infof("%v: %d blocks, %d distinct, %d repeated "+
			"(%.2f%%) in %v, written to %v", res.Mode,
			res.Stats.Blocks, res.Stats.Distinct, res.Stats.Repeated,
			100*res.Stats.Ratio(), res.Elapsed, path)
	}

	return nil
}
