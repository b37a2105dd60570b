// Package ring implements a single-producer/single-consumer, lock-free,
// length-prefixed framed ring buffer living in two named OS shared-memory
// segments, enabling zero-copy message transport between unrelated
// processes on one host.
package ring

import (
	"github.com/c2h5oh/datasize"

	"github.com/shmring/shmring/internal/shm"
)

const (
	// HeaderBytes is the frame header width: a little-endian uint32 holding
	// the payload length. Wide enough for MaxMessageSize with headroom, and
	// the same width the teacher's own packet-dump ring
	// (ring_msg_hdr.total_len) uses — see SPEC_FULL.md's Open Question
	// decision on header width.
	HeaderBytes = 4

	// MaxMessageSize bounds a single frame's payload (spec §6.4).
	MaxMessageSize = 65535

	// CachelineBytes is the padding unit separating the three State
	// counters to avoid false sharing between producer and consumer cores.
	CachelineBytes = shm.CachelineBytes

	// MaxSegmentBytes bounds a single shared-memory segment's payload.
	MaxSegmentBytes = shm.MaxSegmentBytes

	// MinCapacity is the smallest data-segment capacity that guarantees at
	// least two maximum-size frames can coexist without wrap tearing.
	MinCapacity = 2 * (HeaderBytes + MaxMessageSize)
)

// Spec is the input configuration for a Writer or Reader. Source (file,
// environment, flags) is external to this package — loading one from disk
// is explicitly out of scope (spec §1 Non-goals).
type Spec struct {
	// IndexName is the host-unique name of the state shared segment. Must
	// have a leading '/' and length in [1, NAME_MAX].
	IndexName string
	// DataName is the host-unique name of the data shared segment. Must
	// have a leading '/' and length in [1, NAME_MAX].
	DataName string
	// Capacity is the requested size of the data segment in bytes. Must be
	// >= MinCapacity.
	Capacity datasize.ByteSize
}

// WriterSemaphoreName derives the name of the named semaphore that
// serializes Writer construction for a given data segment name, per
// spec §4.1/§6.1. Exposed so callers and diagnostics can attach to the same
// semaphore out-of-band, mirroring the original implementation's
// Writer::MakeSemName.
func WriterSemaphoreName(dataName string) string {
	return dataName + "-writer"
}
