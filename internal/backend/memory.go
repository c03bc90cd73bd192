package backend

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/gpgcloud/gpgcloud/internal/common"
)

// Memory is an in-process Backend used in tests and as a scratch target.
// Failure injection hooks let tests exercise the engine's retry and
// verification paths without a network.
type Memory struct {
	mu      sync.RWMutex
	objects map[string][]byte

	// FailPut, FailGet inject errors for the next N calls when > 0.
	FailPut int
	FailGet int
	// PutErr overrides the injected error (default common.ErrTransport).
	PutErr error

	// Corrupt flips a byte of stored content on Put, simulating silent
	// transport corruption.
	Corrupt bool

	puts int
}

func NewMemory() *Memory {
	return &Memory{objects: make(map[string][]byte)}
}

// Puts returns how many successful uploads the backend has accepted.
func (m *Memory) Puts() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.puts
}

func (m *Memory) Put(ctx context.Context, path string, data []byte) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailPut > 0 {
		m.FailPut--
		if m.PutErr != nil {
			return m.PutErr
		}
		return fmt.Errorf("%w: injected put failure", common.ErrTransport)
	}

	stored := make([]byte, len(data))
	copy(stored, data)
	if m.Corrupt && len(stored) > 0 {
		stored[len(stored)-1] ^= 0xFF
	}
	m.objects[path] = stored
	m.puts++
	return nil
}

func (m *Memory) Get(ctx context.Context, path string) ([]byte, error) {
	// Write lock: the FailGet countdown mutates under concurrent readers.
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailGet > 0 {
		m.FailGet--
		return nil, fmt.Errorf("%w: injected get failure", common.ErrTransport)
	}

	data, ok := m.objects[path]
	if !ok {
		return nil, fmt.Errorf("object %q: %w", path, common.ErrNotFound)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (m *Memory) Exists(ctx context.Context, path string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[path]
	return ok, nil
}

func (m *Memory) Delete(ctx context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, path)
	return nil
}

func (m *Memory) List(ctx context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var paths []string
	for p := range m.objects {
		if prefix == "" || strings.HasPrefix(p, prefix) {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// Remove drops an object out-of-band, bypassing the engine. Used by
// reconciliation tests to simulate remote loss.
func (m *Memory) Remove(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, path)
}
