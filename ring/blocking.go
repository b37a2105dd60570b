package ring

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// ReadBlocking polls Read with an exponential backoff until a frame is
// available, dest is too small, the Reader is overwritten/corrupt, or ctx is
// done. The core Read stays non-blocking per spec §5 ("callers implement
// polling or yield policies themselves"); this is one such policy, built the
// same way modules/route/bird-adapter/service.go drives its reconnect loop.
func (r *Reader) ReadBlocking(ctx context.Context, dest []byte) (int, error) {
	n, err := r.Read(dest)
	if !errors.Is(err, ErrEmpty) {
		return n, err
	}

	bo := &backoff.ExponentialBackOff{
		InitialInterval:     time.Microsecond * 50,
		RandomizationFactor: backoff.DefaultRandomizationFactor,
		Multiplier:          backoff.DefaultMultiplier,
		MaxInterval:         10 * time.Millisecond,
	}
	ticker := backoff.NewTicker(bo)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-ticker.C:
			n, err := r.Read(dest)
			if !errors.Is(err, ErrEmpty) {
				return n, err
			}
		}
	}
}
