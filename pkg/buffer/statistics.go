package buffer

import "sync/atomic"

// Statistics tracks buffer activity using atomic counters so readers never
// contend with the write path.
type Statistics struct {
	writes  atomic.Int64
	reads   atomic.Int64
	drops   atomic.Int64
	maxSize atomic.Int64
}

// Writes returns the total number of successful writes.
func (s *Statistics) Writes() int64 { return s.writes.Load() }

// Reads returns the total number of items read.
func (s *Statistics) Reads() int64 { return s.reads.Load() }

// Drops returns the total number of items dropped to overflow.
func (s *Statistics) Drops() int64 { return s.drops.Load() }

// MaxSize returns the high-water mark of buffered items.
func (s *Statistics) MaxSize() int64 { return s.maxSize.Load() }

func (s *Statistics) recordWrite(size int) {
	s.writes.Add(1)
	for {
		cur := s.maxSize.Load()
		if int64(size) <= cur || s.maxSize.CompareAndSwap(cur, int64(size)) {
			return
		}
	}
}

func (s *Statistics) recordRead(n int) {
	s.reads.Add(int64(n))
}

func (s *Statistics) recordDrop() {
	s.drops.Add(1)
}
