// Package shm implements a named, fixed-size POSIX shared-memory segment
// with an in-header atomic reference counter, following the create-or-attach
// idiom of spec §4.2. Segment names are opened as regular files under
// /dev/shm, the same approach glibc's shm_open takes on Linux (confirmed by
// the other_examples shm_ring.go reference in this corpus) — this keeps the
// implementation in pure Go, no cgo required for this layer.
package shm

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/shmring/shmring/internal/sema"
)

const (
	// CachelineBytes is the padding/alignment unit used throughout the
	// ring's shared layouts to keep producer and consumer fields off the
	// same cache line (spec §3, §6.2).
	CachelineBytes = 64

	// MaxSegmentBytes bounds a single segment's payload size (spec §6.4).
	MaxSegmentBytes = 500 << 20

	refCounterSize = int(unsafe.Sizeof(int32(0)))

	shmDir = "/dev/shm"
)

var (
	// ErrInvalidName is returned for an empty name or one exceeding the host's NAME_MAX.
	ErrInvalidName = errors.New("shm: invalid segment name")
	// ErrInvalidSize is returned for a requested size outside [1, MaxSegmentBytes].
	ErrInvalidSize = errors.New("shm: invalid segment size")
	// ErrSizeMismatch is returned when an existing segment's size does not match the request.
	ErrSizeMismatch = errors.New("shm: existing segment size mismatch")
	// ErrSystem wraps a failed host call (open/truncate/map/unlink).
	ErrSystem = errors.New("shm: system error")
)

// Segment is a named, memory-mapped byte region with a reference-counted
// lifetime: the region is unlinked from the host namespace only once the
// last attached handle releases it.
type Segment struct {
	name        string
	fd          int
	mapping     []byte
	payload     []byte
	refCounter  *int32
	readOnly    bool
	creationSem *sema.Named
}

// Open creates the named segment if it does not exist, or attaches to it if
// it does, per spec §4.2. requestedSize is the payload size, excluding the
// CachelineBytes-sized header that holds the reference counter.
func Open(name string, requestedSize int) (*Segment, error) {
	return open(name, requestedSize, false)
}

// OpenReadOnly attaches to an existing segment without ever writing to its
// payload. Used by diagnostic attachments that must not risk corrupting a
// live ring (spec §9 "read-only attach" supplement).
func OpenReadOnly(name string, requestedSize int) (*Segment, error) {
	return open(name, requestedSize, true)
}

func open(name string, requestedSize int, readOnly bool) (*Segment, error) {
	if len(name) == 0 || len(name) > unix.NAME_MAX {
		return nil, fmt.Errorf("%w: %q has length %d, want 1..%d", ErrInvalidName, name, len(name), unix.NAME_MAX)
	}
	if requestedSize < 1 || requestedSize > MaxSegmentBytes {
		return nil, fmt.Errorf("%w: %d bytes, want 1..%d", ErrInvalidSize, requestedSize, MaxSegmentBytes)
	}

	totalSize := CachelineBytes + requestedSize
	path := shmDir + name

	creationSem, err := sema.Open(name + "-shmctl")
	if err != nil {
		return nil, fmt.Errorf("%w: creation semaphore for %q: %v", ErrSystem, name, err)
	}

	seg := &Segment{name: name, readOnly: readOnly, creationSem: creationSem, fd: -1}

	fd, err := seg.openOrCreate(path, totalSize)
	if err != nil {
		creationSem.Close()
		return nil, err
	}
	seg.fd = fd

	prot := unix.PROT_READ
	if !readOnly {
		prot |= unix.PROT_WRITE
	}
	mapping, err := unix.Mmap(fd, 0, totalSize, prot, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		creationSem.Close()
		return nil, fmt.Errorf("%w: mmap %q: %v", ErrSystem, name, err)
	}

	seg.mapping = mapping
	seg.refCounter = (*int32)(unsafe.Pointer(&mapping[0]))
	seg.payload = mapping[CachelineBytes:totalSize]

	atomic.AddInt32(seg.refCounter, 1)

	return seg, nil
}

// openOrCreate implements spec §4.2 steps 2-3: attempt an open, and if the
// segment does not exist, serialize creation behind the creation semaphore
// before retrying the open.
func (s *Segment) openOrCreate(path string, totalSize int) (int, error) {
	flags := unix.O_RDWR
	if s.readOnly {
		flags = unix.O_RDONLY
	}

	fd, err := unix.Open(path, flags, 0o600)
	if err == nil {
		if sizeErr := checkSize(fd, totalSize, s.name); sizeErr != nil {
			unix.Close(fd)
			return -1, sizeErr
		}
		return fd, nil
	}
	if !errors.Is(err, unix.ENOENT) || s.readOnly {
		return -1, fmt.Errorf("%w: open %q: %v", ErrSystem, s.name, err)
	}

	if err := s.createLocked(path, totalSize); err != nil {
		return -1, err
	}

	fd, err = unix.Open(path, flags, 0o600)
	if err != nil {
		return -1, fmt.Errorf("%w: re-open %q after create: %v", ErrSystem, s.name, err)
	}
	if sizeErr := checkSize(fd, totalSize, s.name); sizeErr != nil {
		unix.Close(fd)
		return -1, sizeErr
	}
	return fd, nil
}

func checkSize(fd int, wantTotal int, name string) error {
	var stat unix.Stat_t
	if err := unix.Fstat(fd, &stat); err != nil {
		return fmt.Errorf("%w: fstat %q: %v", ErrSystem, name, err)
	}
	if int(stat.Size) != wantTotal {
		return fmt.Errorf("%w: %q has size %d, requested total %d", ErrSizeMismatch, name, stat.Size, wantTotal)
	}
	return nil
}

// createLocked serializes segment creation across concurrent creators via
// the creation semaphore. sem_trywait is the only primitive spec §4.1
// exposes, so mutual exclusion across processes is achieved with a short,
// bounded retry loop rather than a true blocking wait.
func (s *Segment) createLocked(path string, totalSize int) error {
	if !acquireWithRetry(s.creationSem) {
		return fmt.Errorf("%w: could not acquire creation semaphore for %q", ErrSystem, s.name)
	}
	defer s.creationSem.Release()

	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CREAT|unix.O_EXCL, 0o600)
	if err != nil {
		if errors.Is(err, unix.EEXIST) {
			// Another creator beat us to it between our failed open and
			// acquiring the semaphore; nothing left to do.
			return nil
		}
		return fmt.Errorf("%w: create %q: %v", ErrSystem, s.name, err)
	}
	defer unix.Close(fd)

	if err := unix.Ftruncate(fd, int64(totalSize)); err != nil {
		return fmt.Errorf("%w: truncate %q to %d bytes: %v", ErrSystem, s.name, totalSize, err)
	}
	return nil
}

const (
	acquireRetryInterval = time.Millisecond
	acquireRetryBudget   = 2 * time.Second
)

func acquireWithRetry(sem *sema.Named) bool {
	deadline := time.Now().Add(acquireRetryBudget)
	for {
		if sem.TryAcquire() {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(acquireRetryInterval)
	}
}

// Name returns the segment's host-visible name.
func (s *Segment) Name() string {
	return s.name
}

// Size returns the payload size in bytes (excluding the header).
func (s *Segment) Size() int {
	return len(s.payload)
}

// ReadOnly reports whether this handle was attached read-only.
func (s *Segment) ReadOnly() bool {
	return s.readOnly
}

// ReferenceCount returns the live attachment count, or -1 once this handle
// has released its mapping.
func (s *Segment) ReferenceCount() int32 {
	if s.refCounter == nil {
		return -1
	}
	return atomic.LoadInt32(s.refCounter)
}

// Bytes returns the payload as a contiguous byte slice, or nil if the
// mapping is not live.
func (s *Segment) Bytes() []byte {
	if s.mapping == nil {
		return nil
	}
	return s.payload
}

// As reinterprets the payload as *T, provided sizeof(T) exactly matches the
// payload size. Returns nil if the mapping is not live or the size does not
// match.
func As[T any](s *Segment) *T {
	var zero T
	if s.mapping == nil || uintptr(len(s.payload)) != unsafe.Sizeof(zero) {
		return nil
	}
	return (*T)(unsafe.Pointer(&s.payload[0]))
}

// Close decrements the reference counter, unmaps the region, and — if this
// handle held the last reference — unlinks the segment name from the host.
// Host-level cleanup failures are returned rather than panicking; callers
// that want spec §7's "log and swallow" propagation policy should log the
// returned error through their diagnostic sink and discard it.
func (s *Segment) Close() error {
	if s.refCounter == nil {
		return nil
	}

	prevCount := atomic.AddInt32(s.refCounter, -1) + 1
	s.refCounter = nil

	var errs []error
	if err := unix.Munmap(s.mapping); err != nil {
		errs = append(errs, fmt.Errorf("%w: munmap %q: %v", ErrSystem, s.name, err))
	}
	s.mapping = nil
	s.payload = nil

	if prevCount == 1 {
		if acquireWithRetry(s.creationSem) {
			if err := unix.Unlink(shmDir + s.name); err != nil && !errors.Is(err, unix.ENOENT) {
				errs = append(errs, fmt.Errorf("%w: unlink %q: %v", ErrSystem, s.name, err))
			}
			s.creationSem.Release()
		} else {
			errs = append(errs, fmt.Errorf("%w: could not acquire creation semaphore to unlink %q", ErrSystem, s.name))
		}
	}

	if err := unix.Close(s.fd); err != nil {
		errs = append(errs, fmt.Errorf("%w: close fd for %q: %v", ErrSystem, s.name, err))
	}
	s.fd = -1

	if err := s.creationSem.Close(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
