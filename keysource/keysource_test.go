package keysource

import (
	"bytes"
	"crypto/rand"
	"testing"
	"testing/iotest"

	"github.com/lightningnetwork/bmpcrypt/blockmode"
	"github.com/stretchr/testify/require"
)

// TestNewIV checks that IVs are read from the supplied source.
func TestNewIV(t *testing.T) {
	t.Parallel()

	src := bytes.NewReader(bytes.Repeat([]byte{0x07}, 32))
	iv, err := NewIV(src)
	require.NoError(t, err)
	require.Equal(t, blockmode.Block{
		7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7,
	}, iv)

	// Two draws from a real source differ.
	iv1, err := NewIV(rand.Reader)
	require.NoError(t, err)
	iv2, err := NewIV(rand.Reader)
	require.NoError(t, err)
	require.NotEqual(t, iv1, iv2)

	// A short source is an error rather than a weak IV.
	_, err = NewIV(bytes.NewReader([]byte{1, 2, 3}))
	require.Error(t, err)

	_, err = NewIV(iotest.ErrReader(iotest.ErrTimeout))
	require.ErrorIs(t, err, iotest.ErrTimeout)
}

// TestNewKey checks key generation.
func TestNewKey(t *testing.T) {
	t.Parallel()

	key, err := NewKey(rand.Reader)
	require.NoError(t, err)
	require.Len(t, key, blockmode.KeySize)

	_, err = NewKey(bytes.NewReader(nil))
	require.Error(t, err)
}

// TestParseHex checks hex parsing and its length guard.
func TestParseHex(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		input  string
		size   int
		expOut []byte
		expErr error
	}{
		{
			name:   "plain",
			input:  "6162636465666768696a6b6c6d6e6f70",
			size:   16,
			expOut: []byte("abcdefghijklmnop"),
		},
		{
			name:   "prefixed and padded",
			input:  "  0x00ff\n",
			size:   2,
			expOut: []byte{0x00, 0xff},
		},
		{
			name:   "wrong length",
			input:  "00ff",
			size:   16,
			expErr: ErrInvalidHexLength,
		},
		{
			name:  "not hex",
			input: "zz",
			size:  1,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			out, err := ParseHex(tc.input, tc.size)
			switch {
			case tc.expErr != nil:
				require.ErrorIs(t, err, tc.expErr)

			case tc.expOut == nil:
				require.Error(t, err)

			default:
				require.NoError(t, err)
				require.Equal(t, tc.expOut, out)
			}
		})
	}
}

// TestDeriveKey checks that passphrase stretching is deterministic and salt
// dependent.
func TestDeriveKey(t *testing.T) {
	t.Parallel()

	pass := []byte("correct horse battery staple")

	key1, err := DeriveKey(pass, nil)
	require.NoError(t, err)
	require.Len(t, key1, blockmode.KeySize)

	key2, err := DeriveKey(pass, DefaultSalt)
	require.NoError(t, err)
	require.Equal(t, key1, key2)

	key3, err := DeriveKey(pass, []byte("other salt"))
	require.NoError(t, err)
	require.NotEqual(t, key1, key3)

	key4, err := DeriveKey([]byte("another passphrase"), nil)
	require.NoError(t, err)
	require.NotEqual(t, key1, key4)

	_, err = DeriveKey(nil, nil)
	require.ErrorIs(t, err, ErrEmptyPassphrase)

	// The derived key is usable by the block modes.
	_, err = blockmode.EncryptECB([]byte("data"), key1)
	require.NoError(t, err)
}
