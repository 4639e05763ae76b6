package internal

import (
	"context"
	"time"
)

const defaultOpTimeout = 5 * time.Second

// WithTimeout bounds a blocking operation. A non-positive duration falls back
// to the package default rather than producing an already-expired context.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = defaultOpTimeout
	}
	return context.WithTimeout(ctx, duration)
}
