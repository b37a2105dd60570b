package ring

import (
	"unsafe"

	"github.com/c2h5oh/datasize"
)

// unsafeSizeofState is the exact payload size the state segment must have:
// three cacheline-padded u64 counters.
const unsafeSizeofState = uintptr(3 * CachelineBytes)

func init() {
	// Guard against State's layout ever drifting from the three-cacheline
	// contract the shared-memory segment size depends on.
	if unsafe.Sizeof(State{}) != unsafeSizeofState {
		panic("ring: State layout does not match expected cacheline padding")
	}
}

func dataSize(n uint64) datasize.ByteSize {
	return datasize.ByteSize(n)
}
