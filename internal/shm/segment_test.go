package shm

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSize = 64 * 1024

func exists(name string) bool {
	_, err := os.Stat(shmDir + name)
	return err == nil
}

func cleanup(t *testing.T, name string) {
	t.Helper()
	os.Remove(shmDir + name)
	os.Remove(shmDir + name + "-shmctl")
}

func TestOpenCreatesAndUnlinks(t *testing.T) {
	name := "/shmring-test-segment-create"
	cleanup(t, name)
	defer cleanup(t, name)

	seg, err := Open(name, testSize)
	require.NoError(t, err)

	assert.Equal(t, name, seg.Name())
	assert.Equal(t, testSize, seg.Size())
	assert.EqualValues(t, 1, seg.ReferenceCount())
	assert.False(t, seg.ReadOnly())
	assert.True(t, exists(name))

	require.NoError(t, seg.Close())
	assert.False(t, exists(name))
	assert.EqualValues(t, -1, seg.ReferenceCount())
}

func TestOpenInvalidArgs(t *testing.T) {
	_, err := Open("", testSize)
	assert.ErrorIs(t, err, ErrInvalidName)

	_, err = Open(strings.Repeat("a", 300), testSize)
	assert.ErrorIs(t, err, ErrInvalidName)

	name := "/shmring-test-segment-badsize"
	cleanup(t, name)
	defer cleanup(t, name)
	_, err = Open(name, 0)
	assert.ErrorIs(t, err, ErrInvalidSize)

	_, err = Open(name, MaxSegmentBytes+1)
	assert.ErrorIs(t, err, ErrInvalidSize)
}

func TestOpenMultipleRefCounts(t *testing.T) {
	name := "/shmring-test-segment-refcount"
	cleanup(t, name)
	defer cleanup(t, name)

	seg1, err := Open(name, testSize)
	require.NoError(t, err)
	assert.EqualValues(t, 1, seg1.ReferenceCount())

	seg2, err := Open(name, testSize)
	require.NoError(t, err)
	assert.EqualValues(t, 2, seg1.ReferenceCount())

	seg3, err := Open(name, testSize)
	require.NoError(t, err)
	assert.EqualValues(t, 3, seg1.ReferenceCount())

	require.NoError(t, seg3.Close())
	assert.EqualValues(t, 2, seg1.ReferenceCount())

	require.NoError(t, seg2.Close())
	assert.EqualValues(t, 1, seg1.ReferenceCount())

	require.NoError(t, seg1.Close())
	assert.False(t, exists(name))
}

func TestSizeMismatch(t *testing.T) {
	name := "/shmring-test-segment-mismatch"
	cleanup(t, name)
	defer cleanup(t, name)

	seg1, err := Open(name, testSize)
	require.NoError(t, err)
	defer seg1.Close()

	_, err = Open(name, testSize*2)
	assert.ErrorIs(t, err, ErrSizeMismatch)
}

func TestBytesAndAs(t *testing.T) {
	name := "/shmring-test-segment-bytes"
	cleanup(t, name)
	defer cleanup(t, name)

	seg, err := Open(name, testSize)
	require.NoError(t, err)
	defer seg.Close()

	b := seg.Bytes()
	require.Len(t, b, testSize)
	b[0] = 0xAB

	type smallStruct struct {
		X, Y uint64
	}
	// Wrong size: should return nil.
	assert.Nil(t, As[smallStruct](seg))
}

func TestReadOnlyAttach(t *testing.T) {
	name := "/shmring-test-segment-readonly"
	cleanup(t, name)
	defer cleanup(t, name)

	writer, err := Open(name, testSize)
	require.NoError(t, err)
	defer writer.Close()

	reader, err := OpenReadOnly(name, testSize)
	require.NoError(t, err)
	defer reader.Close()

	assert.True(t, reader.ReadOnly())
	assert.EqualValues(t, 2, writer.ReferenceCount())
}
