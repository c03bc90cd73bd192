package backend

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gpgcloud/gpgcloud/internal/common"
)

func TestMemory_FailGetCountdown(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.Put(ctx, "objects/a", []byte("x")))

	m.FailGet = 2
	for i := 0; i < 2; i++ {
		_, err := m.Get(ctx, "objects/a")
		require.Error(t, err)
		assert.True(t, errors.Is(err, common.ErrTransport))
	}

	got, err := m.Get(ctx, "objects/a")
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), got)
}

// Concurrent readers share the injected-failure counters; run under the
// race detector this fails if Get mutates them without exclusive access.
func TestMemory_ConcurrentGets(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.Put(ctx, "objects/a", []byte("x")))
	m.FailGet = 5

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = m.Get(ctx, "objects/a")
		}()
	}
	wg.Wait()

	_, err := m.Get(ctx, "objects/a")
	require.NoError(t, err)
}
