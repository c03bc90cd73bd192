package shared

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWipeByteArray(t *testing.T) {
	b := []byte("passphrase")
	WipeByteArray(b)
	assert.Equal(t, bytes.Repeat([]byte{0}, len(b)), b)
}

func TestWipeByteArray_Nil(t *testing.T) {
	assert.NotPanics(t, func() { WipeByteArray(nil) })
}
