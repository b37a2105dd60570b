package ring

import "sync/atomic"

// paddedCounter is a single u64 atomic padded out to a full cacheline so
// that producer and consumer writes to adjacent counters never share a
// cache line (spec §3 "State").
type paddedCounter struct {
	v   atomic.Uint64
	_   [CachelineBytes - 8]byte
}

// State is the payload of the index/state shared segment: three
// cacheline-aligned atomic counters, in this exact order so that a fresh
// segment's zero-value bytes already represent {0, 0, 0}.
type State struct {
	readIdx  paddedCounter
	writeIdx paddedCounter
	seqNum   paddedCounter
}

func (s *State) loadRead() uint64  { return s.readIdx.v.Load() }
func (s *State) loadWrite() uint64 { return s.writeIdx.v.Load() }
func (s *State) loadSeq() uint64   { return s.seqNum.v.Load() }

func (s *State) storeRead(v uint64)  { s.readIdx.v.Store(v) }
func (s *State) storeWrite(v uint64) { s.writeIdx.v.Store(v) }
func (s *State) storeSeq(v uint64)   { s.seqNum.v.Store(v) }
