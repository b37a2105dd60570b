package ring

import (
	"fmt"
	"sync/atomic"

	"github.com/shmring/shmring/internal/shm"
)

// Reader is an independent, process-local consumer of a ring. Any number of
// Readers may exist for the same ring; each tracks its own cursor and may
// independently become Overwritten (spec §3 Lifecycle & ownership).
type Reader struct {
	spec     Spec
	capacity uint64

	stateSeg *shm.Segment
	dataSeg  *shm.Segment
	state    *State
	data     []byte

	log DiagSink

	localIdx uint64
	localSeq uint64

	// terminal holds the sticky error (ErrOverwritten or ErrCorrupt) once
	// the Reader has entered a terminal state (spec §4.3.4).
	terminal error

	closed atomic.Bool
}

// ReaderOption configures a Reader constructed via NewReader.
type ReaderOption func(*Reader)

// WithReaderDiagSink attaches a diagnostic sink to the Reader.
func WithReaderDiagSink(sink DiagSink) ReaderOption {
	return func(r *Reader) { r.log = sink }
}

// NewReader attaches a Reader to spec, joining at the ring's current tail:
// if read_idx is already non-zero (the producer started earlier), the
// Reader's cursor starts there rather than at 0, avoiding an immediate,
// uninformative ErrOverwritten on the first read. See SPEC_FULL.md's Open
// Question decision on reader join semantics.
func NewReader(spec Spec, opts ...ReaderOption) (*Reader, error) {
	return newReader(spec, false, opts...)
}

// NewReaderAtZero attaches a Reader whose cursor starts at {0, 0}
// regardless of the ring's current state — the literal from-genesis
// behavior spec §8's end-to-end scenarios assume, and the only correct
// choice for a Reader constructed at or before the ring's first write.
func NewReaderAtZero(spec Spec, opts ...ReaderOption) (*Reader, error) {
	r, err := newReader(spec, false, opts...)
	if err != nil {
		return nil, err
	}
	r.localIdx = 0
	r.localSeq = 0
	return r, nil
}

// NewReaderReadOnly attaches a Reader that maps both segments read-only, so
// it can never corrupt a live ring even under a programming error. Used by
// the ringinfo diagnostic tool (SPEC_FULL.md "read-only attach" supplement).
func NewReaderReadOnly(spec Spec, opts ...ReaderOption) (*Reader, error) {
	return newReader(spec, true, opts...)
}

func newReader(spec Spec, readOnly bool, opts ...ReaderOption) (*Reader, error) {
	capacity := uint64(spec.Capacity)
	if capacity < MinCapacity || capacity > MaxSegmentBytes {
		return nil, fmt.Errorf("%w: capacity %s, want %s..%s", ErrInvalidSize, spec.Capacity, dataSize(MinCapacity), dataSize(MaxSegmentBytes))
	}

	r := &Reader{spec: spec, capacity: capacity, log: defaultDiagSink}
	for _, opt := range opts {
		opt(r)
	}

	openSeg := shm.Open
	if readOnly {
		openSeg = shm.OpenReadOnly
	}

	stateSeg, err := openSeg(spec.IndexName, stateSegmentSize)
	if err != nil {
		return nil, mapSegmentErr(err)
	}
	r.stateSeg = stateSeg

	dataSeg, err := openSeg(spec.DataName, int(capacity))
	if err != nil {
		stateSeg.Close()
		return nil, mapSegmentErr(err)
	}
	r.dataSeg = dataSeg

	state := shm.As[State](stateSeg)
	if state == nil {
		dataSeg.Close()
		stateSeg.Close()
		return nil, fmt.Errorf("%w: state segment %q payload size mismatch", ErrSystem, spec.IndexName)
	}
	r.state = state
	r.data = dataSeg.Bytes()

	r.localIdx = state.loadRead()
	r.localSeq = state.loadSeq()

	return r, nil
}

// Read copies the next available frame's payload into dest, implementing
// spec §4.3.2. Returns (0, ErrEmpty) if nothing is available, (0,
// ErrBufferTooSmall) if dest is smaller than the frame (the cursor is not
// advanced), or (0, ErrOverwritten)/(0, ErrCorrupt) if the Reader has been
// lapped or finds a corrupt header — both terminal: every subsequent call
// returns the same error.
func (r *Reader) Read(dest []byte) (int, error) {
	if r.closed.Load() {
		return 0, ErrClosed
	}
	if r.terminal != nil {
		return 0, r.terminal
	}

	committed := r.state.loadRead()
	if committed == r.localIdx {
		return 0, ErrEmpty
	}

	// Pre-check: has the writer lapped us before we even start copying?
	if lag := r.state.loadSeq() - r.localSeq; lag > r.capacity {
		r.terminal = ErrOverwritten
		return 0, ErrOverwritten
	}

	spaceToEnd := r.capacity - r.localIdx
	readAt := r.localIdx
	if spaceToEnd < HeaderBytes {
		// The writer must have taken Case C; the header lives at B[0].
		readAt = 0
		r.localIdx = 0
		spaceToEnd = r.capacity
	}

	header := getHeader(r.data[readAt:])
	if header == 0 || header > MaxMessageSize {
		r.terminal = ErrCorrupt
		return 0, ErrCorrupt
	}
	if int(header) > len(dest) {
		return 0, ErrBufferTooSmall
	}

	total := uint64(HeaderBytes) + uint64(header)
	if total <= spaceToEnd {
		copy(dest[:header], r.data[readAt+HeaderBytes:readAt+HeaderBytes+uint64(header)])
		r.localIdx = readAt + total
	} else {
		firstPart := spaceToEnd - HeaderBytes
		copy(dest[:firstPart], r.data[readAt+HeaderBytes:])
		copy(dest[firstPart:header], r.data[:uint64(header)-firstPart])
		r.localIdx = total - spaceToEnd
	}

	r.localSeq += total

	// Post-check: did the writer lap us while we were copying?
	if lag := r.state.loadSeq() - r.localSeq; lag > r.capacity {
		r.terminal = ErrOverwritten
		return 0, ErrOverwritten
	}

	return int(header), nil
}

// ReadBytes is a pointer+length-shaped convenience overload, kept for
// parity with the original implementation's Read(DataT*, size_t).
func (r *Reader) ReadBytes(dest []byte) (int, error) {
	return r.Read(dest)
}

// Overwritten reports whether this Reader has been permanently lapped.
func (r *Reader) Overwritten() bool {
	return r.terminal == ErrOverwritten
}

// Describe renders the ring's current shared state for diagnostics (the
// ringinfo command). It reports the published state, not this Reader's own
// cursor, so it reflects the writer's view regardless of how far behind this
// particular attachment has fallen.
func (r *Reader) Describe() string {
	return fmt.Sprintf(
		"index=%s data=%s capacity=%d read_idx=%d write_idx=%d seq_num=%d state_refs=%d data_refs=%d",
		r.spec.IndexName, r.spec.DataName, r.capacity,
		r.state.loadRead(), r.state.loadWrite(), r.state.loadSeq(),
		r.stateSeg.ReferenceCount(), r.dataSeg.ReferenceCount(),
	)
}

// Close detaches from both shared segments.
func (r *Reader) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := r.dataSeg.Close(); err != nil {
		r.log.Warnw("failed to detach data segment", "name", r.spec.DataName, "error", err)
	}
	if err := r.stateSeg.Close(); err != nil {
		r.log.Warnw("failed to detach state segment", "name", r.spec.IndexName, "error", err)
	}
	return nil
}
