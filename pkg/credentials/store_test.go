package credentials

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewStoreIsEmpty(t *testing.T) {
	store := NewStore()

	assert.True(t, store.Current().IsZero())
}

func TestStore_SetAccessAndRefresh(t *testing.T) {
	store := NewStore()

	store.SetAccess("access-1")
	assert.Equal(t, Pair{AccessToken: "access-1"}, store.Current())

	store.SetRefresh("refresh-1")
	assert.Equal(t, Pair{AccessToken: "access-1", RefreshToken: "refresh-1"}, store.Current())

	// No validation of contents
	store.SetAccess("")
	assert.Equal(t, Pair{RefreshToken: "refresh-1"}, store.Current())
}

func TestStore_SetAndClear(t *testing.T) {
	store := NewStore()
	store.Set(Pair{AccessToken: "a", RefreshToken: "r"})

	assert.Equal(t, "a", store.Current().AccessToken)
	assert.Equal(t, "r", store.Current().RefreshToken)

	store.Clear()
	assert.True(t, store.Current().IsZero())
}

func TestStore_ConcurrentAccess(t *testing.T) {
	store := NewStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			store.Set(Pair{AccessToken: "a", RefreshToken: "r"})
		}()
		go func() {
			defer wg.Done()
			pair := store.Current()
			// Writers always set both fields together
			if pair.AccessToken != "" {
				assert.Equal(t, "r", pair.RefreshToken)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, Pair{AccessToken: "a", RefreshToken: "r"}, store.Current())
}
