// Package sync implements locking for code that runs before the Go scheduler
// is up. Nothing in this package may park a goroutine or allocate.
package sync

import "sync/atomic"

const (
	unlocked uint32 = iota
	locked
)

// Spinlock is a test-and-test-and-set lock. Waiters spin on a plain load and
// only attempt the atomic exchange once the lock looks free, which keeps the
// cache line shared while the holder is busy.
//
// The zero value is an unlocked Spinlock. Spinlocks are not reentrant.
type Spinlock struct {
	state uint32
}

// Acquire spins until the lock is taken by the caller.
func (l *Spinlock) Acquire() {
	for {
		if atomic.LoadUint32(&l.state) == unlocked && l.TryToAcquire() {
			return
		}
	}
}

// TryToAcquire takes the lock if it is free and reports whether it did.
func (l *Spinlock) TryToAcquire() bool {
	return atomic.CompareAndSwapUint32(&l.state, unlocked, locked)
}

// Release frees the lock. Releasing a free lock is a no-op.
func (l *Spinlock) Release() {
	atomic.StoreUint32(&l.state, unlocked)
}
