package nodes

import (
	"context"
	"fmt"
	"time"

	"github.com/aretw0/slotflow/pkg/domain"
)

type extractResult struct {
	ex  domain.Extraction
	err error
}

// boundedExtract runs fn under a hard deadline. The caller gets control back
// when the deadline fires even if fn ignores its context.
func boundedExtract(ctx context.Context, timeout time.Duration, fn func(context.Context) (domain.Extraction, error)) (domain.Extraction, error) {
	if timeout <= 0 {
		timeout = DefaultExtractionTimeout
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan extractResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- extractResult{err: fmt.Errorf("extractor panicked: %v", r)}
			}
		}()
		ex, err := fn(attemptCtx)
		done <- extractResult{ex: ex, err: err}
	}()

	select {
	case res := <-done:
		return res.ex, res.err
	case <-attemptCtx.Done():
		return domain.Extraction{}, attemptCtx.Err()
	}
}
