package allocator

import (
	"gopheros/kernel"
	"gopheros/kernel/mm"
	"gopheros/kernel/sync"
)

// SyncAllocator serializes access to a frame allocator with a spinlock. The
// boot allocator itself assumes a single thread of control; callers that may
// run concurrently (other CPUs, interrupt handlers) must go through a
// SyncAllocator instead.
type SyncAllocator struct {
	lock  sync.Spinlock
	alloc mm.FrameAllocator
}

// Init sets the allocator that requests are forwarded to.
func (s *SyncAllocator) Init(alloc mm.FrameAllocator) {
	s.lock.Acquire()
	s.alloc = alloc
	s.lock.Release()
}

// AllocFrame reserves a frame from the wrapped allocator while holding the
// lock. It returns ErrOutOfMemory if no allocator has been attached.
func (s *SyncAllocator) AllocFrame() (mm.Frame, *kernel.Error) {
	s.lock.Acquire()
	defer s.lock.Release()

	if s.alloc == nil {
		return mm.InvalidFrame, ErrOutOfMemory
	}

	return s.alloc.AllocFrame()
}
