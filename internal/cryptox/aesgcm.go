package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"github.com/gpgcloud/gpgcloud/internal/common"
)

const aesgcmNonceSize = 12

// AESGCM is the symmetric cipher adapter. Keys are named, mirroring a
// keyring: the recipient argument selects which key encrypts, and the key
// name is carried in the ciphertext so Decrypt can find it again.
//
// Ciphertext layout: [nameLen:1][name][nonce:12][sealed bytes].
type AESGCM struct {
	keys map[string][]byte
}

// NewAESGCM builds an adapter over the given named keys. Every key must be
// a valid AES key length (16, 24, or 32 bytes).
func NewAESGCM(keys map[string][]byte) (*AESGCM, error) {
	for name, key := range keys {
		switch len(key) {
		case 16, 24, 32:
		default:
			return nil, fmt.Errorf("%w: key %q has invalid length %d",
				common.ErrKeyUnavailable, name, len(key))
		}
		if len(name) == 0 || len(name) > 255 {
			return nil, fmt.Errorf("%w: key name %q must be 1-255 bytes",
				common.ErrKeyUnavailable, name)
		}
	}
	return &AESGCM{keys: keys}, nil
}

func (a *AESGCM) aead(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func (a *AESGCM) Encrypt(plaintext []byte, recipient string) ([]byte, error) {
	key, ok := a.keys[recipient]
	if !ok {
		return nil, fmt.Errorf("%w: no key named %q", common.ErrKeyUnavailable, recipient)
	}

	aead, err := a.aead(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrEncryptionFailed, err)
	}

	nonce := make([]byte, aesgcmNonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrEncryptionFailed, err)
	}

	out := make([]byte, 0, 1+len(recipient)+aesgcmNonceSize+len(plaintext)+aead.Overhead())
	out = append(out, byte(len(recipient)))
	out = append(out, recipient...)
	out = append(out, nonce...)
	out = aead.Seal(out, nonce, plaintext, nil)
	return out, nil
}

func (a *AESGCM) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < 1 {
		return nil, fmt.Errorf("%w: empty ciphertext", common.ErrDecryptionFailed)
	}

	nameLen := int(ciphertext[0])
	if len(ciphertext) < 1+nameLen+aesgcmNonceSize {
		return nil, fmt.Errorf("%w: ciphertext shorter than header", common.ErrDecryptionFailed)
	}

	name := string(ciphertext[1 : 1+nameLen])
	key, ok := a.keys[name]
	if !ok {
		return nil, fmt.Errorf("%w: no key named %q", common.ErrDecryptionFailed, name)
	}

	aead, err := a.aead(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDecryptionFailed, err)
	}

	nonce := ciphertext[1+nameLen : 1+nameLen+aesgcmNonceSize]
	sealed := ciphertext[1+nameLen+aesgcmNonceSize:]

	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		// GCM reports tampering and wrong keys the same way.
		return nil, fmt.Errorf("%w: %v", common.ErrIntegrityViolation, err)
	}
	return plaintext, nil
}
