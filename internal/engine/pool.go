package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/UnendingLoop/ExifFrame/internal/imageproc"
	"github.com/UnendingLoop/ExifFrame/internal/model"
	"github.com/UnendingLoop/ExifFrame/internal/scene"
	"github.com/wb-go/wbf/zlog"
)

var ErrPoolClosed = errors.New("encoder pool is closed")

type encodeResult struct {
	enc *imageproc.Encoded
	err error
}

type encodeJob struct {
	scene *scene.Scene
	opts  imageproc.ExportOptions
	done  chan encodeResult
}

// EncoderPool runs exports on a fixed set of goroutines so interactive
// callers can hand off the expensive encode and wait with a deadline.
type EncoderPool struct {
	exporter Exporter
	jobs     chan encodeJob
	quit     chan struct{}
	once     sync.Once
	wg       sync.WaitGroup
}

// NewEncoderPool starts workers goroutines; values below one start one.
func NewEncoderPool(exp Exporter, workers int) *EncoderPool {
	if workers < 1 {
		workers = 1
	}
	p := &EncoderPool{
		exporter: exp,
		jobs:     make(chan encodeJob),
		quit:     make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.run(i)
	}
	return p
}

func (p *EncoderPool) run(id int) {
	defer p.wg.Done()
	for {
		select {
		case <-p.quit:
			return
		case j := <-p.jobs:
			enc, err := p.exporter.Export(j.scene, j.opts)
			if err != nil {
				zlog.Logger.Debug().Err(err).Int("encoder", id).Msg("Export failed")
			}
			j.done <- encodeResult{enc: enc, err: err}
		}
	}
}

// Pending is a submitted export. The scene it was built from stays
// available so a timed-out caller can submit it again.
type Pending struct {
	Scene   *scene.Scene
	Options imageproc.ExportOptions
	done    chan encodeResult
}

// Submit queues an export of a private copy of sc. It blocks until a
// worker accepts the job or ctx ends.
func (p *EncoderPool) Submit(ctx context.Context, sc *scene.Scene, opts imageproc.ExportOptions) (*Pending, error) {
	j := encodeJob{scene: sc.Clone(), opts: opts, done: make(chan encodeResult, 1)}

	select {
	case <-p.quit:
		return nil, ErrPoolClosed
	default:
	}

	select {
	case p.jobs <- j:
		return &Pending{Scene: sc, Options: opts, done: j.done}, nil
	case <-p.quit:
		return nil, ErrPoolClosed
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", model.ErrEncodeTimeout, ctx.Err())
	}
}

// Await waits for the export. When ctx ends first the job keeps running
// and its result is dropped.
func (pd *Pending) Await(ctx context.Context) (*imageproc.Encoded, error) {
	select {
	case r := <-pd.done:
		return r.enc, r.err
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", model.ErrEncodeTimeout, ctx.Err())
	}
}

// Export submits and awaits in one call.
func (p *EncoderPool) Export(ctx context.Context, sc *scene.Scene, opts imageproc.ExportOptions) (*imageproc.Encoded, error) {
	pd, err := p.Submit(ctx, sc, opts)
	if err != nil {
		return nil, err
	}
	return pd.Await(ctx)
}

// Close stops the workers after their current job.
func (p *EncoderPool) Close() {
	p.once.Do(func() { close(p.quit) })
	p.wg.Wait()
}
