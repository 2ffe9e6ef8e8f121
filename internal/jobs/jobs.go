// Package jobs holds the three batch sync jobs. Each job runs its pages strictly in
// sequence and talks to its collaborators through the narrow interfaces declared here.
package jobs

import (
	"context"
	"errors"
	"time"

	"shopsync/internal/httpx"
)

// pause waits between page fetches to stay under the source API rate limit.
func pause(ctx context.Context, d time.Duration) error {
	return httpx.Sleep(ctx, d)
}

// isCancellation reports whether err comes from the caller's context rather than the source.
func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func derefOr[T any](p *T, fallback T) T {
	if p == nil {
		return fallback
	}
	return *p
}

// nonEmpty maps nil and "" to nil.
func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
