package ring

import (
	"errors"
	"fmt"

	"github.com/shmring/shmring/internal/sema"
	"github.com/shmring/shmring/internal/shm"
)

// Canonical error kinds surfaced by this package, per spec §7. Internal
// layers (internal/shm, internal/sema) raise their own local sentinels;
// these are mapped onto the canonical taxonomy at this public boundary so
// callers can errors.Is against one stable set regardless of which layer
// raised the underlying failure.
var (
	// ErrInvalidName is returned for an empty or over-long segment/semaphore name.
	ErrInvalidName = errors.New("ring: invalid name")
	// ErrInvalidSize is returned for a capacity of 0, > MaxSegmentBytes, or < MinCapacity.
	ErrInvalidSize = errors.New("ring: invalid size")
	// ErrSizeMismatch is returned when an existing segment's size does not match the request.
	ErrSizeMismatch = errors.New("ring: existing segment size mismatch")
	// ErrSystem wraps a failed host call (open/truncate/map/unlink/sem op).
	ErrSystem = errors.New("ring: system error")
	// ErrSingletonViolation is returned when another Writer already holds the writer semaphore.
	ErrSingletonViolation = errors.New("ring: another writer holds the writer semaphore")
	// ErrMessageTooLarge is returned when a payload is empty or exceeds MaxMessageSize.
	ErrMessageTooLarge = errors.New("ring: message size out of bounds")
	// ErrBufferTooSmall is returned when the caller's destination is smaller than the frame's payload. Non-fatal.
	ErrBufferTooSmall = errors.New("ring: destination buffer too small")
	// ErrCorrupt is returned when a frame header is out of range. Terminal for the Reader.
	ErrCorrupt = errors.New("ring: corrupt frame header")
	// ErrOverwritten is returned when the Reader was lapped by the Writer. Terminal for the Reader.
	ErrOverwritten = errors.New("ring: reader overwritten by writer")
	// ErrEmpty is returned when there is nothing to read. Status, not a fault.
	ErrEmpty = errors.New("ring: empty")
	// ErrClosed is returned by operations on a Writer or Reader that has already been closed.
	ErrClosed = errors.New("ring: already closed")
)

// mapSegmentErr translates an internal/shm error into the canonical
// taxonomy, preserving the original error in the chain so both the
// canonical sentinel and the underlying cause satisfy errors.Is/As.
func mapSegmentErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, shm.ErrInvalidName):
		return fmt.Errorf("%w: %w", ErrInvalidName, err)
	case errors.Is(err, shm.ErrInvalidSize):
		return fmt.Errorf("%w: %w", ErrInvalidSize, err)
	case errors.Is(err, shm.ErrSizeMismatch):
		return fmt.Errorf("%w: %w", ErrSizeMismatch, err)
	default:
		return fmt.Errorf("%w: %w", ErrSystem, err)
	}
}

// mapSemaErr translates an internal/sema error into the canonical taxonomy.
func mapSemaErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sema.ErrInvalidName):
		return fmt.Errorf("%w: %w", ErrInvalidName, err)
	default:
		return fmt.Errorf("%w: %w", ErrSystem, err)
	}
}
