// Package envelope implements the framing persisted remotely for every
// encrypted object: a fixed-format header followed by opaque ciphertext.
//
// Wire layout, all integers big-endian:
//
//	[version:1][algorithm:1][content_checksum:32][plaintext_length:8][ciphertext...]
//
// The codec never interprets plaintext; it only frames ciphertext with
// enough metadata to detect corruption and evolve the format.
package envelope

import (
	"encoding/binary"
	"fmt"

	"github.com/gpgcloud/gpgcloud/internal/common"
)

// FormatVersion is the only version this codec produces and accepts.
// Unknown versions fail closed, they are never guess-decoded.
const FormatVersion = 1

// HeaderSize is the fixed byte length of an encoded header.
const HeaderSize = 1 + 1 + 32 + 8

// Cipher suite identifiers carried in the algorithm byte.
const (
	AlgoOpenPGP uint8 = 1
	AlgoAESGCM  uint8 = 2

	// AlgoCompressed flags that the plaintext was zstd-compressed before
	// encryption. The low bits still identify the cipher suite.
	AlgoCompressed uint8 = 0x80
)

// Header describes the encrypted payload that follows it.
type Header struct {
	Version         uint8
	Algorithm       uint8
	ContentChecksum [32]byte
	PlaintextLength uint64
}

// Suite returns the cipher suite identifier without the compression flag.
func (h Header) Suite() uint8 { return h.Algorithm &^ AlgoCompressed }

// Compressed reports whether the plaintext was compressed before encryption.
func (h Header) Compressed() bool { return h.Algorithm&AlgoCompressed != 0 }

// Encode frames ciphertext with the header. It is a pure, deterministic
// transform.
func Encode(h Header, ciphertext []byte) []byte {
	buf := make([]byte, HeaderSize+len(ciphertext))
	buf[0] = h.Version
	buf[1] = h.Algorithm
	copy(buf[2:34], h.ContentChecksum[:])
	binary.BigEndian.PutUint64(buf[34:42], h.PlaintextLength)
	copy(buf[HeaderSize:], ciphertext)
	return buf
}

// Decode splits an envelope into header and ciphertext. It fails with
// common.ErrMalformedEnvelope when the header is truncated, the version is
// unrecognized, or the declared plaintext length is inconsistent with the
// trailing ciphertext.
func Decode(b []byte) (Header, []byte, error) {
	var h Header

	if len(b) < HeaderSize {
		return h, nil, fmt.Errorf("%w: truncated header (%d bytes)", common.ErrMalformedEnvelope, len(b))
	}

	h.Version = b[0]
	if h.Version != FormatVersion {
		return h, nil, fmt.Errorf("%w: unsupported format version %d", common.ErrMalformedEnvelope, h.Version)
	}

	h.Algorithm = b[1]
	copy(h.ContentChecksum[:], b[2:34])
	h.PlaintextLength = binary.BigEndian.Uint64(b[34:42])

	ciphertext := b[HeaderSize:]
	if h.PlaintextLength > 0 && len(ciphertext) == 0 {
		return h, nil, fmt.Errorf("%w: declared plaintext length %d with empty ciphertext",
			common.ErrMalformedEnvelope, h.PlaintextLength)
	}

	return h, ciphertext, nil
}
