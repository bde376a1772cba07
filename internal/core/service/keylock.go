// Package service implements the ClubMesh manager.
package service

import (
	"hash/maphash"
	"sync"
)

const lockStripes = 64

// keyLock serializes mutations per key with a fixed set of striped
// mutexes. Two keys hashing to the same stripe contend; correctness
// only requires that the same key always maps to the same stripe.
type keyLock struct {
	seed    maphash.Seed
	stripes [lockStripes]sync.Mutex
}

func newKeyLock() *keyLock {
	return &keyLock{seed: maphash.MakeSeed()}
}

// Lock acquires the stripe for key and returns its unlock function.
func (l *keyLock) Lock(key string) func() {
	stripe := &l.stripes[maphash.String(l.seed, key)%lockStripes]
	stripe.Lock()
	return stripe.Unlock
}

// pairKey builds the lock key for an ordered principal pair.
func pairKey(follower, following string) string {
	return follower + "\x00" + following
}
