// Package pipeline runs named, typed stages in order and tags failures with the stage name.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

type Stage[I, O any] struct {
	Name string
	Run  func(ctx context.Context, in I) (O, error)
}

// StageError wraps the error of the stage that stopped the pipeline.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Execute runs a single stage with start/finish logging.
func (s Stage[I, O]) Execute(ctx context.Context, in I) (O, error) {
	start := time.Now()
	log.Printf("▶ Stage %s started", s.Name)

	out, err := s.Run(ctx, in)
	if err != nil {
		var zero O
		var stageErr *StageError
		if errors.As(err, &stageErr) {
			return zero, err
		}
		log.Printf("✗ Stage %s failed after %s: %v", s.Name, time.Since(start).Round(time.Millisecond), err)
		return zero, &StageError{Stage: s.Name, Err: err}
	}

	log.Printf("✓ Stage %s finished in %s", s.Name, time.Since(start).Round(time.Millisecond))
	return out, nil
}

// Then composes two stages; second only runs when first succeeds.
func Then[A, B, C any](first Stage[A, B], second Stage[B, C]) Stage[A, C] {
	return Stage[A, C]{
		Name: first.Name + " → " + second.Name,
		Run: func(ctx context.Context, in A) (C, error) {
			mid, err := first.Execute(ctx, in)
			if err != nil {
				var zero C
				return zero, err
			}
			return second.Execute(ctx, mid)
		},
	}
}
