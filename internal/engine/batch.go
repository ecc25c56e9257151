package engine

import (
	"context"
	"sync"
)

// BatchItem hands a request to the batch runner. Load is called on a
// worker goroutine so reading sources is bounded by the same limit.
type BatchItem struct {
	Name string
	Load func() (Request, error)
}

// BatchResult reports one item. Failures are isolated per item.
type BatchResult struct {
	Name   string
	Result *Result
	Err    error
}

// RenderBatch renders items with at most concurrency renders in flight.
// Results are returned in input order.
func (r *Renderer) RenderBatch(ctx context.Context, items []BatchItem, concurrency int) []BatchResult {
	if concurrency < 1 {
		concurrency = 1
	}

	out := make([]BatchResult, len(items))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, item := range items {
		i, item := i, item
		out[i].Name = item.Name

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			out[i].Err = ctx.Err()
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			req, err := item.Load()
			if err != nil {
				out[i].Err = err
				return
			}
			out[i].Result, out[i].Err = r.Render(ctx, req)
		}()
	}

	wg.Wait()
	return out
}
