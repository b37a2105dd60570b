package ring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These mirror the end-to-end scenarios a reference implementation's own
// test suite would exercise: exact counter values after specific write
// sequences, not just pass/fail behavior.

func TestScenarioEmptyRingReadsEmpty(t *testing.T) {
	spec := testSpec("scenario-empty", MinCapacity)
	cleanupSpec(t, spec)
	defer cleanupSpec(t, spec)

	w, err := NewWriter(spec)
	require.NoError(t, err)
	defer w.Close()

	r, err := NewReaderAtZero(spec)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Read(make([]byte, MaxMessageSize))
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestScenarioSingle128ByteWrite(t *testing.T) {
	spec := testSpec("scenario-single", MinCapacity)
	cleanupSpec(t, spec)
	defer cleanupSpec(t, spec)

	w, err := NewWriter(spec)
	require.NoError(t, err)
	defer w.Close()

	payload := make([]byte, 128)
	for i := range payload {
		payload[i] = 0x01
	}
	require.NoError(t, w.Write(payload))

	assert.EqualValues(t, 132, w.state.loadWrite())
	assert.EqualValues(t, 132, w.state.loadRead())
	assert.EqualValues(t, 132, w.state.loadSeq())

	r, err := NewReaderAtZero(spec)
	require.NoError(t, err)
	defer r.Close()

	buf := make([]byte, MaxMessageSize)
	n, err := r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 128, n)
	assert.Equal(t, payload, buf[:128])
}

func TestScenarioForcedWrapCaseB(t *testing.T) {
	const capacity = 1 << 20 // 1 MiB, per the reference wrap scenario
	spec := testSpec("scenario-wrap", capacity)
	cleanupSpec(t, spec)
	defer cleanupSpec(t, spec)

	w, err := NewWriter(spec)
	require.NoError(t, err)
	defer w.Close()

	payload := make([]byte, MaxMessageSize)
	const writes = 16
	for i := 0; i < writes; i++ {
		require.NoError(t, w.Write(payload))
	}

	const bytesPerWrite = HeaderBytes + MaxMessageSize
	const wantSeq = uint64(writes * bytesPerWrite)
	const wantIdx = wantSeq % capacity

	assert.EqualValues(t, wantSeq, w.state.loadSeq())
	assert.EqualValues(t, wantIdx, w.state.loadWrite())
	assert.EqualValues(t, wantIdx, w.state.loadRead())
	assert.EqualValues(t, 1048624, wantSeq)
	assert.EqualValues(t, 48, wantIdx)
}

func TestScenarioBufferTooSmallDoesNotConsumeFrame(t *testing.T) {
	spec := testSpec("scenario-toosmall", MinCapacity)
	cleanupSpec(t, spec)
	defer cleanupSpec(t, spec)

	w, err := NewWriter(spec)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Write(make([]byte, 256)))

	r, err := NewReaderAtZero(spec)
	require.NoError(t, err)
	defer r.Close()

	tooSmall := make([]byte, 8)
	_, err = r.Read(tooSmall)
	assert.ErrorIs(t, err, ErrBufferTooSmall)

	bigEnough := make([]byte, 256)
	n, err := r.Read(bigEnough)
	require.NoError(t, err)
	assert.Equal(t, 256, n)
}

func TestScenarioOverwriteDetectionAtMinCapacity(t *testing.T) {
	spec := testSpec("scenario-overwrite", MinCapacity)
	cleanupSpec(t, spec)
	defer cleanupSpec(t, spec)

	w, err := NewWriter(spec)
	require.NoError(t, err)
	defer w.Close()

	r, err := NewReaderAtZero(spec)
	require.NoError(t, err)
	defer r.Close()

	for i := 0; i < 3; i++ {
		require.NoError(t, w.Write(make([]byte, MaxMessageSize)))
	}

	_, err = r.Read(make([]byte, MaxMessageSize))
	assert.ErrorIs(t, err, ErrOverwritten)

	_, err = r.Read(make([]byte, MaxMessageSize))
	assert.ErrorIs(t, err, ErrOverwritten)
}

func TestScenarioSingletonWriterEnforcement(t *testing.T) {
	spec := testSpec("scenario-singleton", MinCapacity)
	cleanupSpec(t, spec)
	defer cleanupSpec(t, spec)

	w1, err := NewWriter(spec)
	require.NoError(t, err)
	defer w1.Close()

	_, err = NewWriter(spec)
	assert.ErrorIs(t, err, ErrSingletonViolation)
}
