// Package shared provides small utilities for handling sensitive byte
// buffers.
package shared

// WipeByteArray overwrites the contents of the provided byte slice with zeros.
// This is useful for removing sensitive data such as passphrases or
// cryptographic keys from memory after use.
//
// If the slice is nil, the function does nothing.
func WipeByteArray(b []byte) {
	if b == nil {
		return
	}
	for i := range b {
		b[i] = 0
	}
}
