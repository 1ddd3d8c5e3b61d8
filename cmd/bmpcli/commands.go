package main

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/lightningnetwork/bmpcrypt/blockmode"
	"github.com/lightningnetwork/bmpcrypt/build"
	"github.com/lightningnetwork/bmpcrypt/envelope"
	"github.com/lightningnetwork/bmpcrypt/keysource"
	"github.com/urfave/cli"
)

// randReader is the randomness source for generated keys and IVs.
var randReader io.Reader = rand.Reader

func printJSON(w io.Writer, resp interface{}) error {
	b, err := json.Marshal(resp)
	if err != nil {
		return err
	}

	var out bytes.Buffer
	if err := json.Indent(&out, b, "", "    "); err != nil {
		return err
	}
	out.WriteString("\n")
	_, err = out.WriteTo(w)

	return err
}

// hexArg decodes the single positional hex argument of a command.
func hexArg(ctx *cli.Context, cmdName string) ([]byte, error) {
	if ctx.NArg() != 1 {
		_ = cli.ShowCommandHelp(ctx, cmdName)
		return nil, fmt.Errorf("%s expects exactly one hex argument",
			cmdName)
	}

	b, err := hex.DecodeString(ctx.Args().First())
	if err != nil {
		return nil, fmt.Errorf("unable to decode hex argument: %w", err)
	}

	return b, nil
}

var padCommand = cli.Command{
	Name:      "pad",
	Category:  "Blocks",
	Usage:     "Apply PKCS#7 padding to a hex encoded buffer.",
	ArgsUsage: "hex",
	Description: `
	Pads the buffer to a multiple of the 16 byte block size. At least one
	byte is always added, so an already aligned buffer gains a full block.
	`,
	Action: pad,
}

func pad(ctx *cli.Context) error {
	buf, err := hexArg(ctx, "pad")
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(ctx.App.Writer, hex.EncodeToString(
		blockmode.Pad(buf),
	))

	return err
}

var unpadCommand = cli.Command{
	Name:      "unpad",
	Category:  "Blocks",
	Usage:     "Strip and verify PKCS#7 padding from a hex encoded buffer.",
	ArgsUsage: "hex",
	Action:    unpad,
}

func unpad(ctx *cli.Context) error {
	buf, err := hexArg(ctx, "unpad")
	if err != nil {
		return err
	}

	out, err := blockmode.Unpad(buf)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(ctx.App.Writer, hex.EncodeToString(out))

	return err
}

var encryptCommand = cli.Command{
	Name:      "encrypt",
	Category:  "Blocks",
	Usage:     "Encrypt a hex encoded buffer under a block mode.",
	ArgsUsage: "[--mode=] [--key=] [--iv=] [--cipher=] hex",
	Description: `
	Pads and encrypts the buffer under ECB or CBC and prints the
	ciphertext as JSON. For CBC a random IV is drawn unless one is given,
	and it is printed alongside the ciphertext.
	`,
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  "mode",
			Usage: "the block mode, ecb or cbc",
			Value: blockmode.ModeECB.String(),
		},
		cli.StringFlag{
			Name:  "key",
			Usage: "the 16 byte key, hex encoded",
		},
		cli.StringFlag{
			Name: "iv",
			Usage: "the 16 byte CBC initialization vector, hex " +
				"encoded",
		},
		cli.StringFlag{
			Name:  "cipher",
			Usage: "the permutation primitive, aes or twofish",
			Value: blockmode.CipherAES128.String(),
		},
	},
	Action: encrypt,
}

type encryptResponse struct {
	Mode       string `json:"mode"`
	Cipher     string `json:"cipher"`
	IV         string `json:"iv,omitempty"`
	Ciphertext string `json:"ciphertext"`
}

func encrypt(ctx *cli.Context) error {
	plaintext, err := hexArg(ctx, "encrypt")
	if err != nil {
		return err
	}

	mode, err := blockmode.ParseMode(ctx.String("mode"))
	if err != nil {
		return err
	}
	cipherType, err := blockmode.ParseCipherType(ctx.String("cipher"))
	if err != nil {
		return err
	}

	if !ctx.IsSet("key") {
		return fmt.Errorf("--key is required")
	}
	key, err := keysource.ParseHex(ctx.String("key"), blockmode.KeySize)
	if err != nil {
		return fmt.Errorf("invalid key: %w", err)
	}

	p, err := cipherType.NewPermuter(key)
	if err != nil {
		return err
	}

	resp := &encryptResponse{
		Mode:   mode.String(),
		Cipher: cipherType.String(),
	}

	var iv blockmode.Block
	switch {
	case !mode.NeedsIV() && ctx.IsSet("iv"):
		return fmt.Errorf("%v does not take an iv", mode)

	case !mode.NeedsIV():

	case ctx.IsSet("iv"):
		ivBytes, err := keysource.ParseHex(
			ctx.String("iv"), blockmode.BlockSize,
		)
		if err != nil {
			return fmt.Errorf("invalid iv: %w", err)
		}
		copy(iv[:], ivBytes)
		resp.IV = hex.EncodeToString(iv[:])

	default:
		iv, err = keysource.NewIV(randReader)
		if err != nil {
			return err
		}
		resp.IV = hex.EncodeToString(iv[:])
	}

	ciphertext, err := blockmode.Encrypt(mode, p, iv, plaintext)
	if err != nil {
		return err
	}
	resp.Ciphertext = hex.EncodeToString(ciphertext)

	return printJSON(ctx.App.Writer, resp)
}

var genKeyCommand = cli.Command{
	Name:     "genkey",
	Category: "Keys",
	Usage:    "Generate a random 16 byte key.",
	Action:   genKey,
}

func genKey(ctx *cli.Context) error {
	key, err := keysource.NewKey(randReader)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(ctx.App.Writer, hex.EncodeToString(key))

	return err
}

var genIVCommand = cli.Command{
	Name:     "geniv",
	Category: "Keys",
	Usage:    "Generate a random 16 byte initialization vector.",
	Action:   genIV,
}

func genIV(ctx *cli.Context) error {
	iv, err := keysource.NewIV(randReader)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(ctx.App.Writer, hex.EncodeToString(iv[:]))

	return err
}

var deriveKeyCommand = cli.Command{
	Name:      "derivekey",
	Category:  "Keys",
	Usage:     "Derive a 16 byte key from a passphrase.",
	ArgsUsage: "[--salt=]",
	Description: `
	Prompts for a passphrase and stretches it into a key with scrypt. The
	same passphrase and salt always give the same key, which can be passed
	to bmpcrypt --key or bmpcli encrypt --key.
	`,
	Flags: []cli.Flag{
		cli.StringFlag{
			Name: "salt",
			Usage: "hex encoded salt, the fixed bmpcrypt salt is " +
				"used if unset",
		},
	},
	Action: deriveKey,
}

func deriveKey(ctx *cli.Context) error {
	var salt []byte
	if ctx.IsSet("salt") {
		var err error
		salt, err = hex.DecodeString(ctx.String("salt"))
		if err != nil {
			return fmt.Errorf("unable to decode salt: %w", err)
		}
	}

	passphrase, err := readPassword("Input passphrase: ")
	if err != nil {
		return err
	}

	key, err := keysource.DeriveKey(passphrase, salt)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(ctx.App.Writer, hex.EncodeToString(key))

	return err
}

var inspectCommand = cli.Command{
	Name:      "inspect",
	Category:  "Envelopes",
	Usage:     "Show the blocks of a ciphertext envelope.",
	ArgsUsage: "file.tlv",
	Description: `
	Decodes an envelope written by bmpcrypt and prints every ciphertext
	block. Blocks that repeat an earlier block are marked with the index
	of their first occurrence, which is how ECB leaks the structure of
	the image.
	`,
	Flags: []cli.Flag{
		cli.IntFlag{
			Name:  "max_rows",
			Usage: "the maximum number of blocks to list, 0 for all",
			Value: 64,
		},
	},
	Action: inspect,
}

func inspect(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		_ = cli.ShowCommandHelp(ctx, "inspect")
		return fmt.Errorf("inspect expects an envelope file")
	}

	env, err := envelope.ReadFile(ctx.Args().First())
	if err != nil {
		return err
	}

	w := ctx.App.Writer
	iv := "none"
	env.IV.WhenSome(func(b blockmode.Block) {
		iv = hex.EncodeToString(b[:])
	})
	fmt.Fprintf(w, "mode=%v cipher=%v size=%dx%d iv=%s\n", env.Mode,
		env.Cipher, env.Width, env.Height, iv)

	repeats := blockmode.RepeatedIndices(env.Ciphertext)
	numBlocks := len(env.Ciphertext) / blockmode.BlockSize
	maxRows := ctx.Int("max_rows")
	if maxRows <= 0 || maxRows > numBlocks {
		maxRows = numBlocks
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.Style().Format.Footer = text.FormatDefault
	t.AppendHeader(table.Row{"#", "Block", "Repeats"})
	for i := 0; i < maxRows; i++ {
		block := env.Ciphertext[i*blockmode.BlockSize : (i+1)*
			blockmode.BlockSize]

		repeat := ""
		if first, ok := repeats[i]; ok {
			repeat = fmt.Sprintf("#%d", first)
		}

		t.AppendRow(table.Row{i, hex.EncodeToString(block), repeat})
	}
	if maxRows < numBlocks {
		t.AppendFooter(table.Row{
			"", fmt.Sprintf("%d more blocks", numBlocks-maxRows),
			"",
		})
	}
	t.Render()

	stats := blockmode.AnalyzeRepeats(env.Ciphertext)
	_, err = fmt.Fprintf(w, "blocks=%d distinct=%d repeated=%d "+
		"ratio=%.4f\n", stats.Blocks, stats.Distinct, stats.Repeated,
		stats.Ratio())

	return err
}

var versionCommand = cli.Command{
	Name:   "version",
	Usage:  "Display bmpcli version info.",
	Action: version,
}

func version(ctx *cli.Context) error {
	_, err := fmt.Fprintf(ctx.App.Writer, "bmpcli version %s commit=%s\n",
		build.Version(), build.Commit)

	return err
}
