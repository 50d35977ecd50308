package allocator

import (
	"gopheros/kernel/bootinfo"
	"gopheros/kernel/mm"
	"sync"
	"testing"
)

func TestSyncAllocator(t *testing.T) {
	t.Run("no allocator attached", func(t *testing.T) {
		var s SyncAllocator
		if frame, err := s.AllocFrame(); err != ErrOutOfMemory || frame.Valid() {
			t.Fatalf("expected (InvalidFrame, ErrOutOfMemory); got (%d, %v)", frame, err)
		}
	})

	t.Run("forwards errors", func(t *testing.T) {
		var s SyncAllocator
		s.Init(emptyAllocator{})
		if _, err := s.AllocFrame(); err != ErrOutOfMemory {
			t.Fatalf("expected ErrOutOfMemory; got %v", err)
		}
	})

	t.Run("concurrent allocations", func(t *testing.T) {
		var (
			boot       BootMemAllocator
			s          SyncAllocator
			wg         sync.WaitGroup
			numWorkers = 8
			perWorker  = 64
		)

		boot.init([]bootinfo.MemoryRegion{
			{Start: 0x100000, End: 0x100000 + mm.PhysAddr(numWorkers*perWorker)*mm.PhysAddr(mm.PageSize), Type: bootinfo.RegionUsable},
		})
		s.Init(&boot)

		results := make([][]mm.Frame, numWorkers)
		wg.Add(numWorkers)
		for i := 0; i < numWorkers; i++ {
			go func(worker int) {
				defer wg.Done()
				for j := 0; j < perWorker; j++ {
					frame, err := s.AllocFrame()
					if err != nil {
						t.Errorf("[worker %d] unexpected allocator error: %v", worker, err)
						return
					}
					results[worker] = append(results[worker], frame)
				}
			}(i)
		}
		wg.Wait()

		seen := make(map[mm.Frame]struct{})
		for _, frames := range results {
			for _, frame := range frames {
				if _, dup := seen[frame]; dup {
					t.Fatalf("frame %d was allocated twice", frame)
				}
				seen[frame] = struct{}{}
			}
		}

		if exp := numWorkers * perWorker; len(seen) != exp {
			t.Fatalf("expected %d distinct frames; got %d", exp, len(seen))
		}

		if _, err := s.AllocFrame(); err != ErrOutOfMemory {
			t.Fatalf("expected allocator to be exhausted; got %v", err)
		}
	})
}
