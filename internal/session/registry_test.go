package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zaploop/zaploop/internal/common/cnst"
	"go.uber.org/zap"
)

func TestRegistryRegisterLookupRemove(t *testing.T) {
	r := NewRegistry(zap.NewNop())

	s := New("tenant-a", nil)
	got, err := r.Register(s)
	require.NoError(t, err)
	assert.Same(t, s, got)

	// duplicate registration returns the existing block
	dup := New("tenant-a", nil)
	got, err = r.Register(dup)
	assert.ErrorIs(t, err, cnst.ErrSessionExists)
	assert.Same(t, s, got)

	found, ok := r.Lookup("tenant-a")
	assert.True(t, ok)
	assert.Same(t, s, found)

	assert.True(t, r.Remove("tenant-a", nil))
	assert.False(t, r.Remove("tenant-a", nil))
	_, ok = r.Lookup("tenant-a")
	assert.False(t, ok)
}

func TestRegistryRemoveExpectGuardsNewerSession(t *testing.T) {
	r := NewRegistry(zap.NewNop())

	old := New("tenant-a", nil)
	_, err := r.Register(old)
	require.NoError(t, err)
	require.True(t, r.Remove("tenant-a", old))

	// a newer session takes the id; a stale cleanup for the old block must
	// not evict it
	fresh := New("tenant-a", nil)
	_, err = r.Register(fresh)
	require.NoError(t, err)

	assert.False(t, r.Remove("tenant-a", old))
	got, ok := r.Lookup("tenant-a")
	assert.True(t, ok)
	assert.Same(t, fresh, got)
}

func TestRegistryConcurrentRegisterSingleWinner(t *testing.T) {
	r := NewRegistry(zap.NewNop())

	const goroutines = 32
	var wg sync.WaitGroup
	winners := make(chan *Session, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := New("tenant-a", nil)
			if _, err := r.Register(s); err == nil {
				winners <- s
			}
		}()
	}
	wg.Wait()
	close(winners)

	var count int
	for range winners {
		count++
	}
	assert.Equal(t, 1, count, "exactly one concurrent start may win")
	assert.Equal(t, 1, r.Len())
}

func TestRegistrySnapshots(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	for _, id := range []string{"aaa", "bbb", "ccc"} {
		_, err := r.Register(New(id, nil))
		require.NoError(t, err)
	}

	ids := r.IDs()
	assert.ElementsMatch(t, []string{"aaa", "bbb", "ccc"}, ids)

	// the snapshot does not track later mutations
	r.Remove("aaa", nil)
	assert.Len(t, ids, 3)
	assert.Len(t, r.IDs(), 2)
	assert.Len(t, r.All(), 2)
}
