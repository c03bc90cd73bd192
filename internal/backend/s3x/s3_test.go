package s3x

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gpgcloud/gpgcloud/internal/common"
)

func TestKeyMapping(t *testing.T) {
	b := &Backend{prefix: "backups/"}
	assert.Equal(t, "backups/objects/a", b.fullKey("objects/a"))
	assert.Equal(t, "objects/a", b.relKey("backups/objects/a"))

	b = &Backend{}
	assert.Equal(t, "objects/a", b.fullKey("objects/a"))
	assert.Equal(t, "objects/a", b.relKey("objects/a"))
}

func TestMapPutError(t *testing.T) {
	err := mapPutError(errors.New("api error QuotaExceeded: storage limit reached"))
	assert.True(t, errors.Is(err, common.ErrQuotaExceeded))

	err = mapPutError(errors.New("connection reset by peer"))
	assert.True(t, errors.Is(err, common.ErrTransport))
}
