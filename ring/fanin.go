package ring

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Frame is one payload delivered by FanInReaders, tagged with which Reader
// produced it.
type Frame struct {
	Index   int
	Payload []byte
}

// FanInReaders drives one goroutine per Reader, each polling via
// ReadBlocking with its own buffer of size MaxMessageSize, and merges their
// output onto a single channel. This does not create a shared consumer
// stream — every Reader still tracks its own independent cursor and can be
// independently overwritten (spec §3); FanInReaders only multiplexes
// already-independent streams the way runReaders multiplexes independent
// worker goroutines in the teacher's own ring implementation.
//
// The reading goroutines stop once ctx is done or any Reader's ReadBlocking
// returns a terminal error other than context cancellation. The returned wait
// function blocks until they have all stopped, then closes the channel and
// returns the first such error; the channel is not closed until wait is called.
func FanInReaders(ctx context.Context, readers []*Reader) (<-chan Frame, func() error) {
	out := make(chan Frame)
	g, ctx := errgroup.WithContext(ctx)

	for i, r := range readers {
		i, r := i, r
		g.Go(func() error {
			for {
				buf := make([]byte, MaxMessageSize)
				n, err := r.ReadBlocking(ctx, buf)
				if err != nil {
					if ctx.Err() != nil {
						return nil
					}
					return err
				}
				select {
				case out <- Frame{Index: i, Payload: buf[:n]}:
				case <-ctx.Done():
					return nil
				}
			}
		})
	}

	wait := func() error {
		defer close(out)
		return g.Wait()
	}
	return out, wait
}
