package signals

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/starford/licaudit/internal/models"
)

// ErrStale is returned when another resource was requested while a
// computation was running; its result is discarded.
var ErrStale = errors.New("signals: result superseded by a newer request")

// Worker runs Compute off the calling goroutine. Concurrent requests for the
// same resource and generation share one computation.
type Worker struct {
	group singleflight.Group

	mu     sync.Mutex
	latest string
}

// NewWorker returns a ready Worker.
func NewWorker() *Worker {
	return &Worker{}
}

// Compute records in.ResourceID as the latest selection and computes its
// signals. It returns ErrStale when a different resource was selected before
// the computation finished, and ctx.Err() when ctx is done first.
func (w *Worker) Compute(ctx context.Context, in Input) ([]models.AutocompleteSignal, error) {
	w.mu.Lock()
	w.latest = in.ResourceID
	w.mu.Unlock()

	key := fmt.Sprintf("%d\x00%s", in.Generation, in.ResourceID)
	ch := w.group.DoChan(key, func() (any, error) {
		return Compute(in), nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		w.mu.Lock()
		stale := w.latest != in.ResourceID
		w.mu.Unlock()
		if stale {
			return nil, ErrStale
		}
		shared := res.Val.([]models.AutocompleteSignal)
		out := make([]models.AutocompleteSignal, len(shared))
		copy(out, shared)
		return out, nil
	}
}

// Latest returns the most recently requested resource id.
func (w *Worker) Latest() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.latest
}
