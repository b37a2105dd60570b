package ring

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shmring/shmring/internal/sema"
	"github.com/shmring/shmring/internal/shm"
)

func TestMapSegmentErrPreservesChain(t *testing.T) {
	mapped := mapSegmentErr(shm.ErrInvalidName)
	assert.ErrorIs(t, mapped, ErrInvalidName)
	assert.ErrorIs(t, mapped, shm.ErrInvalidName)

	mapped = mapSegmentErr(shm.ErrInvalidSize)
	assert.ErrorIs(t, mapped, ErrInvalidSize)
	assert.ErrorIs(t, mapped, shm.ErrInvalidSize)

	mapped = mapSegmentErr(shm.ErrSizeMismatch)
	assert.ErrorIs(t, mapped, ErrSizeMismatch)
	assert.ErrorIs(t, mapped, shm.ErrSizeMismatch)

	mapped = mapSegmentErr(shm.ErrSystem)
	assert.ErrorIs(t, mapped, ErrSystem)
	assert.ErrorIs(t, mapped, shm.ErrSystem)

	assert.Nil(t, mapSegmentErr(nil))
}

func TestMapSemaErrPreservesChain(t *testing.T) {
	mapped := mapSemaErr(sema.ErrInvalidName)
	assert.ErrorIs(t, mapped, ErrInvalidName)
	assert.ErrorIs(t, mapped, sema.ErrInvalidName)

	mapped = mapSemaErr(sema.ErrSystem)
	assert.ErrorIs(t, mapped, ErrSystem)
	assert.ErrorIs(t, mapped, sema.ErrSystem)

	assert.Nil(t, mapSemaErr(nil))
}

func TestMapSegmentErrPreservesUnderlyingCause(t *testing.T) {
	// When an underlying error wraps its cause with %w behind shm.ErrSystem,
	// the mapping at this boundary must keep that cause reachable too, not
	// just its own sentinel and shm.ErrSystem. (internal/shm's own errors
	// format the system call error with %v, so that text is not in the chain.)
	cause := errors.New("no such file or directory")
	underlying := fmt.Errorf("%w: open %q: %w", shm.ErrSystem, "/example", cause)

	mapped := mapSegmentErr(underlying)
	assert.ErrorIs(t, mapped, ErrSystem)
	assert.ErrorIs(t, mapped, shm.ErrSystem)
	assert.ErrorIs(t, mapped, cause)
}
