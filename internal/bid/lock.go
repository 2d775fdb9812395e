package bid

import (
	"sync"
)

// gameLocks serializes placements per game. The read-decide-write span of a
// placement is not covered by a store transaction, so two concurrent requests
// against the same game must not interleave between the budget/roster reads
// and the bid writes.
type gameLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newGameLocks() *gameLocks {
	return &gameLocks{locks: make(map[string]*sync.Mutex)}
}

func (gl *gameLocks) Lock(gameId string) {
	gl.mu.Lock()
	lock, ok := gl.locks[gameId]
	if !ok {
		lock = &sync.Mutex{}
		gl.locks[gameId] = lock
	}
	gl.mu.Unlock()

	lock.Lock()
}

func (gl *gameLocks) Unlock(gameId string) {
	gl.mu.Lock()
	lock := gl.locks[gameId]
	gl.mu.Unlock()

	if lock != nil {
		lock.Unlock()
	}
}
