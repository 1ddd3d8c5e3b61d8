package blockmode

import "github.com/lightningnetwork/bmpcrypt/build"

// ECB pads plaintext and encrypts every block independently with p. Equal
// plaintext blocks always yield equal ciphertext blocks, which is the leak
// this mode is kept around to demonstrate. The output is exactly as long as
// the padded plaintext.
func ECB(p Permuter, plaintext []byte) []byte {
	padded := Pad(plaintext)

	ciphertext := make([]byte, 0, len(padded))
	for _, block := range splitBlocks(padded) {
		c := p.EncryptBlock(block)
		ciphertext = append(ciphertext, c[:]...)
	}

	log.Tracef("ECB encrypted %d blocks, head=%v",
		len(padded)/BlockSize, build.HexLogClosure(ciphertext, 32))

	return ciphertext
}

// EncryptECB encrypts plaintext in ECB mode under AES-128 with the given
// 16-byte key.
func EncryptECB(plaintext, key []byte) ([]byte, error) {
	p, err := NewAES(key)
	if err != nil {
		return nil, err
	}

	return ECB(p, plaintext), nil
}
