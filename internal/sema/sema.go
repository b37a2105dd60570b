// Package sema provides a named, host-wide POSIX semaphore used to
// serialize shared-memory segment creation/unlinking and to enforce a
// single live ring Writer per data segment.
package sema

/*
#include <semaphore.h>
#include <fcntl.h>
#include <errno.h>
#include <stdlib.h>

// sem_open is variadic in its C prototype (the mode/value arguments only
// apply when O_CREAT is set), which cgo cannot call directly. These two
// thin wrappers pin down the two call shapes this package actually needs.
static sem_t *shmring_sem_create(const char *name, unsigned int value, int *err) {
	sem_t *s = sem_open(name, O_CREAT | O_EXCL, 0600, value);
	if (s == SEM_FAILED) {
		*err = errno;
		return NULL;
	}
	return s;
}

static sem_t *shmring_sem_attach(const char *name, int *err) {
	sem_t *s = sem_open(name, 0);
	if (s == SEM_FAILED) {
		*err = errno;
		return NULL;
	}
	return s;
}
*/
import "C"

import (
	"errors"
	"fmt"
	"sync/atomic"
	"unsafe"
)

// MaxNameLen is NAME_MAX - 4, the headroom the host reserves for named
// semaphores (see spec §6.1 and linux/limits.h NAME_MAX).
const MaxNameLen = 255 - 4

var (
	// ErrInvalidName is returned for an empty or over-long semaphore name.
	ErrInvalidName = errors.New("sema: invalid name")
	// ErrSystem wraps a failed host semaphore call.
	ErrSystem = errors.New("sema: system error")
)

// Named is a handle to a host-wide named semaphore. Its ownership flag
// reflects whether *this handle* currently holds the semaphore, not the
// global semaphore count (spec §4.1).
type Named struct {
	name  string
	sem   *C.sem_t
	owned atomic.Bool
}

// Open creates the semaphore with initial value 1 if it does not already
// exist on the host, or attaches to it otherwise.
func Open(name string) (*Named, error) {
	if len(name) == 0 || len(name) > MaxNameLen {
		return nil, fmt.Errorf("%w: name %q has length %d, want 1..%d", ErrInvalidName, name, len(name), MaxNameLen)
	}

	cName := C.CString(name)
	defer C.free(unsafe.Pointer(cName))

	var errno C.int
	sem := C.shmring_sem_create(cName, 1, &errno)
	if sem == nil {
		if errno == C.EEXIST {
			sem = C.shmring_sem_attach(cName, &errno)
		}
		if sem == nil {
			return nil, fmt.Errorf("%w: open semaphore %q: errno %d", ErrSystem, name, errno)
		}
	}

	return &Named{name: name, sem: sem}, nil
}

// Name returns the semaphore's host-visible name.
func (n *Named) Name() string {
	return n.name
}

// TryAcquire performs a non-blocking down. On success it records that this
// handle owns the semaphore.
func (n *Named) TryAcquire() bool {
	ok := C.sem_trywait(n.sem) == 0
	if ok {
		n.owned.Store(true)
	}
	return ok
}

// Release performs an up and clears this handle's ownership flag.
func (n *Named) Release() bool {
	ok := C.sem_post(n.sem) == 0
	if ok {
		n.owned.Store(false)
	}
	return ok
}

// Owned reports whether this handle currently believes it holds the
// semaphore.
func (n *Named) Owned() bool {
	return n.owned.Load()
}

// Close releases the semaphore if this handle owns it, then closes the
// handle. The semaphore name is intentionally left linked on the host —
// named semaphores persist until explicitly unlinked or the host reboots,
// and doing so here would race other attachees.
func (n *Named) Close() error {
	var releaseErr error
	if n.owned.Load() {
		if !n.Release() {
			releaseErr = fmt.Errorf("%w: release semaphore %q on close", ErrSystem, n.name)
		}
	}

	if C.sem_close(n.sem) != 0 {
		return errors.Join(releaseErr, fmt.Errorf("%w: close semaphore %q", ErrSystem, n.name))
	}
	return releaseErr
}
