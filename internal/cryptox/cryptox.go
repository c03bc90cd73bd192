// Package cryptox wraps encryption, decryption and key lookup behind a small
// capability interface. Implementations are stateless per call and never
// write key material.
package cryptox

// Encrypter produces ciphertext for the named recipient.
type Encrypter interface {
	// Encrypt encrypts plaintext for recipient. It fails with
	// common.ErrKeyUnavailable when the recipient's key is not in the
	// keyring and common.ErrEncryptionFailed for any underlying error.
	Encrypt(plaintext []byte, recipient string) ([]byte, error)
}

// Decrypter recovers plaintext from ciphertext.
type Decrypter interface {
	// Decrypt decrypts ciphertext. It fails with common.ErrDecryptionFailed
	// when no usable private key is present or the ciphertext is malformed,
	// and with common.ErrIntegrityViolation when an embedded authentication
	// check fails.
	Decrypt(ciphertext []byte) ([]byte, error)
}

// Cipher combines both directions; every adapter in this package
// implements it.
type Cipher interface {
	Encrypter
	Decrypter
}
