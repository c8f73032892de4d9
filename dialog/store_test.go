package dialog

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemoryStoreDefaultsToIdle(t *testing.T) {
	s := NewMemoryStore()
	sess := s.Get(7)
	assert.Equal(t, StageIdle, sess.Stage)
	assert.Nil(t, sess.Coords)
	assert.Empty(t, sess.Results)
	assert.Zero(t, sess.Page)
}

func TestMemoryStoreUpdateIsVisible(t *testing.T) {
	s := NewMemoryStore()
	s.Update(7, func(sess *Session) {
		sess.Stage = StageAwaitingType
		sess.Coords = &Coords{Lat: 1, Lng: 2}
	})

	got := s.Get(7)
	assert.Equal(t, StageAwaitingType, got.Stage)
	assert.Equal(t, &Coords{Lat: 1, Lng: 2}, got.Coords)

	// Other users are untouched.
	assert.Equal(t, StageIdle, s.Get(8).Stage)
}

func TestMemoryStoreGetReturnsCopy(t *testing.T) {
	s := NewMemoryStore()
	sess := s.Get(7)
	sess.Stage = StageTerminated
	assert.Equal(t, StageIdle, s.Get(7).Stage)
}

func TestMemoryStoreNilMutator(t *testing.T) {
	s := NewMemoryStore()
	s.Update(7, nil)
	assert.Equal(t, StageIdle, s.Get(7).Stage)
}

func TestMemoryStoreConcurrentUpdates(t *testing.T) {
	s := NewMemoryStore()
	const (
		users   = 8
		updates = 100
	)

	var wg sync.WaitGroup
	for u := int64(0); u < users; u++ {
		for i := 0; i < updates; i++ {
			wg.Add(1)
			go func(userID int64) {
				defer wg.Done()
				s.Update(userID, func(sess *Session) {
					sess.Page++
				})
			}(u)
		}
	}
	wg.Wait()

	for u := int64(0); u < users; u++ {
		assert.Equal(t, updates, s.Get(u).Page, "user %d", u)
	}
}
