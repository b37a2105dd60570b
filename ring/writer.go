package ring

import (
	"fmt"
	"sync/atomic"

	"github.com/shmring/shmring/internal/sema"
	"github.com/shmring/shmring/internal/shm"
)

// Writer is the logical owner of a ring's state: construction publishes a
// fresh {0,0,0} state and exclusivity is enforced host-wide by a named
// semaphore derived from the data segment's name (spec §3 Lifecycle &
// ownership, §4.1).
type Writer struct {
	spec     Spec
	capacity uint64

	stateSeg *shm.Segment
	dataSeg  *shm.Segment
	state    *State
	data     []byte

	writerSem *sema.Named
	log       DiagSink

	localIdx uint64
	localSeq uint64

	closed atomic.Bool
}

// WriterOption configures a Writer constructed via NewWriter.
type WriterOption func(*Writer)

// WithWriterDiagSink attaches a diagnostic sink to the Writer.
func WithWriterDiagSink(sink DiagSink) WriterOption {
	return func(w *Writer) { w.log = sink }
}

// NewWriter constructs the Writer for spec, acquiring the host-wide
// writer-exclusion semaphore non-blockingly. A second Writer for the same
// DataName fails with ErrSingletonViolation (spec §4.1, §8 scenario 6).
func NewWriter(spec Spec, opts ...WriterOption) (*Writer, error) {
	capacity := uint64(spec.Capacity)
	if capacity < MinCapacity || capacity > MaxSegmentBytes {
		return nil, fmt.Errorf("%w: capacity %s, want %s..%s", ErrInvalidSize, spec.Capacity, dataSize(MinCapacity), dataSize(MaxSegmentBytes))
	}

	w := &Writer{spec: spec, capacity: capacity, log: defaultDiagSink}
	for _, opt := range opts {
		opt(w)
	}

	sem, err := sema.Open(WriterSemaphoreName(spec.DataName))
	if err != nil {
		return nil, mapSemaErr(err)
	}
	if !sem.TryAcquire() {
		sem.Close()
		return nil, fmt.Errorf("%w: %q", ErrSingletonViolation, spec.DataName)
	}
	w.writerSem = sem

	stateSeg, err := shm.Open(spec.IndexName, stateSegmentSize)
	if err != nil {
		w.releaseWriterSem()
		return nil, mapSegmentErr(err)
	}
	w.stateSeg = stateSeg

	dataSeg, err := shm.Open(spec.DataName, int(capacity))
	if err != nil {
		stateSeg.Close()
		w.releaseWriterSem()
		return nil, mapSegmentErr(err)
	}
	w.dataSeg = dataSeg

	state := shm.As[State](stateSeg)
	if state == nil {
		dataSeg.Close()
		stateSeg.Close()
		w.releaseWriterSem()
		return nil, fmt.Errorf("%w: state segment %q payload size mismatch", ErrSystem, spec.IndexName)
	}
	w.state = state
	w.data = dataSeg.Bytes()

	// The Writer is the logical owner of the ring state: publish a fresh
	// {0,0,0} on construction (spec §3 Lifecycle & ownership).
	state.storeRead(0)
	state.storeWrite(0)
	state.storeSeq(0)

	return w, nil
}

const stateSegmentSize = int(unsafeSizeofState)

func (w *Writer) releaseWriterSem() {
	if err := w.writerSem.Close(); err != nil {
		w.log.Warnw("failed to release writer semaphore", "data_name", w.spec.DataName, "error", err)
	}
}

// Write appends payload as a length-prefixed frame, implementing the three
// cases of spec §4.3.1. Returns ErrMessageTooLarge without publishing if
// payload is empty or exceeds MaxMessageSize.
func (w *Writer) Write(payload []byte) error {
	if w.closed.Load() {
		return ErrClosed
	}
	if len(payload) == 0 || len(payload) > MaxMessageSize {
		return fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, len(payload))
	}

	total := uint64(HeaderBytes + len(payload))
	spaceToEnd := w.capacity - w.localIdx

	var writeAt uint64
	switch {
	case total <= spaceToEnd:
		// Case A: fits without wrap, the common path.
		writeAt = w.localIdx
		w.localIdx += total
		w.state.storeWrite(w.localIdx)
		putHeader(w.data[writeAt:], uint32(len(payload)))
		copy(w.data[writeAt+HeaderBytes:], payload)

	case spaceToEnd >= HeaderBytes:
		// Case B: wrap, but the header fits at the tail.
		writeAt = w.localIdx
		w.localIdx = (w.localIdx + total) % w.capacity
		w.state.storeWrite(w.localIdx)
		firstPart := spaceToEnd - HeaderBytes
		putHeader(w.data[writeAt:], uint32(len(payload)))
		copy(w.data[writeAt+HeaderBytes:], payload[:firstPart])
		copy(w.data[0:], payload[firstPart:])

	default:
		// Case C: the header itself cannot fit at the tail. The reader,
		// observing the same space_to_end < HeaderBytes condition, must
		// also wrap.
		writeAt = 0
		w.localIdx = total
		w.state.storeWrite(w.localIdx)
		putHeader(w.data[0:], uint32(len(payload)))
		copy(w.data[HeaderBytes:], payload)
	}

	w.localSeq += total
	w.state.storeSeq(w.localSeq)

	// Commit point: a consumer may now see the frame.
	w.state.storeRead(w.localIdx)

	return nil
}

// WriteBytes is a convenience pointer+length-shaped overload kept for
// parity with the original implementation's Write(DataT*, size_t); in Go a
// []byte already is the pointer+length pair, so this simply forwards to
// Write.
func (w *Writer) WriteBytes(p []byte) error {
	return w.Write(p)
}

// Close releases the writer-exclusion semaphore and detaches from both
// shared segments. Safe to call once; a second call is a no-op.
func (w *Writer) Close() error {
	if !w.closed.CompareAndSwap(false, true) {
		return nil
	}

	if err := w.dataSeg.Close(); err != nil {
		w.log.Warnw("failed to detach data segment", "name", w.spec.DataName, "error", err)
	}
	if err := w.stateSeg.Close(); err != nil {
		w.log.Warnw("failed to detach state segment", "name", w.spec.IndexName, "error", err)
	}
	w.releaseWriterSem()
	return nil
}
