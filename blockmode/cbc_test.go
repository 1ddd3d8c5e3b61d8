package blockmode

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestChainStateStep checks the intermediate chain states against the byte
// increment stub.
func TestChainStateStep(t *testing.T) {
	t.Parallel()

	p := &incPermuter{}
	iv := fill(0x0f)
	state := NewChainState(iv)
	require.Equal(t, ChainState{Prev: iv}, state)

	// First block: (0x00 ^ 0x0f) + 1.
	c0, next := state.Step(p, fill(0x00))
	require.Equal(t, fill(0x10), c0)
	require.Equal(t, ChainState{Prev: fill(0x10), Index: 1}, next)

	// The original state is a value and is left untouched.
	require.Equal(t, ChainState{Prev: iv}, state)

	// Second block: (0x10 ^ 0x10) + 1.
	c1, last := next.Step(p, fill(0x10))
	require.Equal(t, fill(0x01), c1)
	require.Equal(t, ChainState{Prev: fill(0x01), Index: 2}, last)
}

// TestCBCStub checks the full driver against the stub.
func TestCBCStub(t *testing.T) {
	t.Parallel()

	p := &incPermuter{}
	ciphertext := CBC(p, fill(0x0f), make([]byte, BlockSize))
	require.Len(t, ciphertext, 2*BlockSize)
	require.EqualValues(t, 2, p.calls.Load())

	// Block 0 is (0x00 ^ 0x0f) + 1 = 0x10, block 1 is the pad block
	// (0x10 ^ 0x10) + 1 = 0x01.
	first, second := fill(0x10), fill(0x01)
	require.Equal(t, first[:], blockAt(ciphertext, 0))
	require.Equal(t, second[:], blockAt(ciphertext, 1))
}

// TestCBCMatchesStdlib cross checks CBC against the standard library's CBC
// encrypter run over the padded plaintext.
func TestCBCMatchesStdlib(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		key := rapid.SliceOfN(rapid.Byte(), KeySize, KeySize).Draw(
			t, "key",
		)
		iv := rapid.SliceOfN(rapid.Byte(), BlockSize, BlockSize).Draw(
			t, "iv",
		)
		plaintext := rapid.SliceOfN(rapid.Byte(), 0, 200).Draw(
			t, "plaintext",
		)

		block, err := aes.NewCipher(key)
		require.NoError(t, err)

		padded := Pad(plaintext)
		want := make([]byte, len(padded))
		cipher.NewCBCEncrypter(block, iv).CryptBlocks(want, padded)

		got, err := EncryptCBC(plaintext, key, iv)
		require.NoError(t, err)
		require.Equal(t, want, got)
	})
}

// TestCBCDiffusion checks that changing a byte of plaintext block i changes
// every ciphertext block from i onwards and none before it.
func TestCBCDiffusion(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		key := rapid.SliceOfN(rapid.Byte(), KeySize, KeySize).Draw(
			t, "key",
		)
		iv := rapid.SliceOfN(rapid.Byte(), BlockSize, BlockSize).Draw(
			t, "iv",
		)
		plaintext := rapid.SliceOfN(rapid.Byte(), 1, 160).Draw(
			t, "plaintext",
		)
		pos := rapid.IntRange(0, len(plaintext)-1).Draw(t, "pos")
		flip := rapid.ByteRange(1, 0xff).Draw(t, "flip")

		mutated := bytes.Clone(plaintext)
		mutated[pos] ^= flip

		before, err := EncryptCBC(plaintext, key, iv)
		require.NoError(t, err)
		after, err := EncryptCBC(mutated, key, iv)
		require.NoError(t, err)
		require.Equal(t, len(before), len(after))

		changed := pos / BlockSize
		for i := 0; i < len(before)/BlockSize; i++ {
			if i < changed {
				require.Equal(
					t, blockAt(before, i), blockAt(after, i),
				)
				continue
			}
			require.NotEqual(
				t, blockAt(before, i), blockAt(after, i),
			)
		}
	})
}

// TestCBCHidesRepeats checks that equal plaintext blocks, which ECB maps to
// equal ciphertext blocks, come out different under CBC.
func TestCBCHidesRepeats(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		key := rapid.SliceOfN(rapid.Byte(), KeySize, KeySize).Draw(
			t, "key",
		)
		iv := rapid.SliceOfN(rapid.Byte(), BlockSize, BlockSize).Draw(
			t, "iv",
		)
		repeated := rapid.SliceOfN(
			rapid.Byte(), BlockSize, BlockSize,
		).Draw(t, "repeated")
		plaintext := append(bytes.Clone(repeated), repeated...)

		ecbOut, err := EncryptECB(plaintext, key)
		require.NoError(t, err)
		require.Equal(t, blockAt(ecbOut, 0), blockAt(ecbOut, 1))

		cbcOut, err := EncryptCBC(plaintext, key, iv)
		require.NoError(t, err)
		require.NotEqual(t, blockAt(cbcOut, 0), blockAt(cbcOut, 1))
	})
}

// TestCBCIVSensitivity checks that different IVs give different ciphertexts.
func TestCBCIVSensitivity(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		key := rapid.SliceOfN(rapid.Byte(), KeySize, KeySize).Draw(
			t, "key",
		)
		iv1 := rapid.SliceOfN(rapid.Byte(), BlockSize, BlockSize).Draw(
			t, "iv1",
		)
		iv2 := rapid.SliceOfN(rapid.Byte(), BlockSize, BlockSize).Filter(
			func(iv []byte) bool {
				return !bytes.Equal(iv, iv1)
			},
		).Draw(t, "iv2")
		plaintext := rapid.SliceOfN(rapid.Byte(), 1, 100).Draw(
			t, "plaintext",
		)

		out1, err := EncryptCBC(plaintext, key, iv1)
		require.NoError(t, err)
		out2, err := EncryptCBC(plaintext, key, iv2)
		require.NoError(t, err)

		require.NotEqual(t, out1, out2)
		require.Len(t, out1, len(Pad(plaintext)))
	})
}

// TestCBCEndToEnd checks the all-zero plaintext and IV scenario under the
// 0x01 key and the all-zero key against known AES-128 outputs.
func TestCBCEndToEnd(t *testing.T) {
	t.Parallel()

	key := bytes.Repeat([]byte{0x01}, KeySize)
	plaintext := make([]byte, BlockSize)
	iv := make([]byte, BlockSize)

	ciphertext, err := EncryptCBC(plaintext, key, iv)
	require.NoError(t, err)
	require.Len(t, ciphertext, 2*BlockSize)

	block, err := aes.NewCipher(key)
	require.NoError(t, err)

	// With a zero IV the first block is the plain permutation of the zero
	// block.
	first := make([]byte, BlockSize)
	block.Encrypt(first, plaintext)
	require.Equal(t, first, blockAt(ciphertext, 0))
	require.Equal(
		t, "b6aeaffa752dc08b51639731761aed00",
		hex.EncodeToString(first),
	)

	// The second block is the full pad block chained onto the first.
	chained, err := XOR(bytes.Repeat([]byte{0x10}, BlockSize), first)
	require.NoError(t, err)
	second := make([]byte, BlockSize)
	block.Encrypt(second, chained)
	require.Equal(t, second, blockAt(ciphertext, 1))

	// ECB agrees on the first block since the IV is zero.
	ecbOut, err := EncryptECB(plaintext, key)
	require.NoError(t, err)
	require.Equal(t, first, blockAt(ecbOut, 0))

	zeroKey := make([]byte, KeySize)
	ciphertext, err = EncryptCBC(plaintext, zeroKey, iv)
	require.NoError(t, err)
	require.Equal(
		t, "66e94bd4ef8a2c3b884cfa59ca342b2e",
		hex.EncodeToString(blockAt(ciphertext, 0)),
	)
}

// TestEncryptCBCPreconditions checks the key and IV length checks.
func TestEncryptCBCPreconditions(t *testing.T) {
	t.Parallel()

	key := make([]byte, KeySize)
	iv := make([]byte, BlockSize)

	_, err := EncryptCBC(nil, key[:15], iv)
	require.ErrorIs(t, err, ErrInvalidKeyLength)

	_, err = EncryptCBC(nil, key, iv[:8])
	require.ErrorIs(t, err, ErrInvalidIVLength)

	_, err = EncryptCBC(nil, key, append(iv, 0x00))
	require.ErrorIs(t, err, ErrInvalidIVLength)

	// The key is checked first when both are wrong.
	_, err = EncryptCBC(nil, nil, nil)
	require.ErrorIs(t, err, ErrInvalidKeyLength)

	out, err := EncryptCBC(nil, key, iv)
	require.NoError(t, err)
	require.Len(t, out, BlockSize)
}
