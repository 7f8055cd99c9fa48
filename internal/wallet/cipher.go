package wallet

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"

	"tipbot-go/internal/store"
)

// Cipher encrypts custody key material with AES-256-GCM. The primary key
// is the only one that encrypts; previous keys are tried on decrypt so the
// primary can be rotated without re-encrypting stored blobs.
type Cipher struct {
	primary  cipher.AEAD
	previous []cipher.AEAD
}

func NewCipher(primaryHex string, previousHex []string) (*Cipher, error) {
	primary, err := newAead(primaryHex)
	if err != nil {
		return nil, fmt.Errorf("primary encryption key: %w", err)
	}

	var previous []cipher.AEAD
	for i, keyHex := range previousHex {
		aead, err := newAead(keyHex)
		if err != nil {
			return nil, fmt.Errorf("previous encryption key %d: %w", i, err)
		}
		previous = append(previous, aead)
	}

	return &Cipher{primary: primary, previous: previous}, nil
}

func newAead(keyHex string) (cipher.AEAD, error) {
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("key is not valid hex: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("key must be 32 bytes, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Encrypt seals the plaintext under the primary key. The nonce is
// prepended to the ciphertext inside one base64 blob.
func (c *Cipher) Encrypt(plaintext []byte) (string, error) {
	nonce := make([]byte, c.primary.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("unable to generate nonce: %w", err)
	}
	sealed := c.primary.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens the blob with the primary key, falling back to previous
// keys. Failure with every key is ErrDecryption and is fatal to the
// caller's attempt.
func (c *Cipher) Decrypt(ciphertext string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: ciphertext is not valid base64", store.ErrDecryption)
	}

	for _, aead := range append([]cipher.AEAD{c.primary}, c.previous...) {
		if len(raw) <= aead.NonceSize() {
			continue
		}
		plaintext, err := aead.Open(nil, raw[:aead.NonceSize()], raw[aead.NonceSize():], nil)
		if err == nil {
			return plaintext, nil
		}
	}
	return nil, store.ErrDecryption
}
