package envelope

import (
	"crypto/sha256"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gpgcloud/gpgcloud/internal/common"
)

func testHeader(plaintext []byte) Header {
	return Header{
		Version:         FormatVersion,
		Algorithm:       AlgoAESGCM,
		ContentChecksum: sha256.Sum256(plaintext),
		PlaintextLength: uint64(len(plaintext)),
	}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	plaintext := []byte("some plaintext content")
	ciphertext := []byte("opaque-ciphertext-bytes")
	h := testHeader(plaintext)

	env := Encode(h, ciphertext)
	require.Len(t, env, HeaderSize+len(ciphertext))

	got, ct, err := Decode(env)
	require.NoError(t, err)
	assert.Equal(t, h, got)
	assert.Equal(t, ciphertext, ct)
}

func TestEncode_Deterministic(t *testing.T) {
	h := testHeader([]byte("p"))
	ct := []byte("c")
	assert.Equal(t, Encode(h, ct), Encode(h, ct))
}

func TestDecode_TruncatedHeader(t *testing.T) {
	env := Encode(testHeader([]byte("p")), []byte("ciphertext"))

	for _, n := range []int{0, 1, HeaderSize - 1} {
		_, _, err := Decode(env[:n])
		require.Error(t, err)
		assert.True(t, errors.Is(err, common.ErrMalformedEnvelope), "len=%d", n)
	}
}

func TestDecode_UnknownVersionFailsClosed(t *testing.T) {
	env := Encode(testHeader([]byte("p")), []byte("ciphertext"))
	env[0] = FormatVersion + 1

	_, _, err := Decode(env)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrMalformedEnvelope))
}

func TestDecode_MissingCiphertext(t *testing.T) {
	env := Encode(testHeader([]byte("non-empty")), nil)

	_, _, err := Decode(env)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrMalformedEnvelope))
}

func TestHeader_AlgorithmFlags(t *testing.T) {
	h := Header{Algorithm: AlgoOpenPGP | AlgoCompressed}
	assert.Equal(t, AlgoOpenPGP, h.Suite())
	assert.True(t, h.Compressed())

	h = Header{Algorithm: AlgoAESGCM}
	assert.Equal(t, AlgoAESGCM, h.Suite())
	assert.False(t, h.Compressed())
}
