package ring

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// These construct Writer/Reader with a real zaptest-backed DiagSink rather
// than the silent default, so any Warnw that Close() emits for a failed
// detach goes to the test log (see modules/pdump/controlplane's own
// ring_test.go, which always wires zaptest.NewLogger(t) into the component
// under test instead of leaving it on a no-op logger).
func TestWriterWithZapDiagSink(t *testing.T) {
	spec := testSpec("diag-writer", MinCapacity)
	cleanupSpec(t, spec)
	defer cleanupSpec(t, spec)

	log := NewZapDiagSink(zaptest.NewLogger(t).Sugar())

	w, err := NewWriter(spec, WithWriterDiagSink(log))
	require.NoError(t, err)

	require.NoError(t, w.Write([]byte("logged")))
	require.NoError(t, w.Close())
}

func TestReaderWithZapDiagSink(t *testing.T) {
	spec := testSpec("diag-reader", MinCapacity)
	cleanupSpec(t, spec)
	defer cleanupSpec(t, spec)

	w, err := NewWriter(spec)
	require.NoError(t, err)
	defer w.Close()

	log := NewZapDiagSink(zaptest.NewLogger(t).Sugar())

	r, err := NewReaderAtZero(spec, WithReaderDiagSink(log))
	require.NoError(t, err)

	require.NoError(t, r.Close())
}
