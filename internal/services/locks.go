package services

import "sync"

// keyedMutex serializes operations per entity key (a cart ID, an account
// ID) so that mutations of the same entity cannot interleave while
// mutations of different entities never block each other. This is the
// single-node equivalent of a row-level lock; locks are never held across
// calls.
type keyedMutex struct {
	locks sync.Map // key -> *sync.Mutex
}

// lock acquires the mutex for key and returns its unlock function.
func (k *keyedMutex) lock(key string) func() {
	v, _ := k.locks.LoadOrStore(key, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
