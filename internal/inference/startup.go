package inference

import (
	"context"
	"io"
)

// Preparer is implemented by backends that must be made ready before serving.
type Preparer interface {
	Prepare(ctx context.Context, w io.Writer) error
}

// EnsureReady prepares c when it needs it, writing progress to w.
func EnsureReady(ctx context.Context, c Classifier, w io.Writer) error {
	if p, ok := c.(Preparer); ok {
		return p.Prepare(ctx, w)
	}
	return nil
}
