// Package worker consumes queued render jobs and runs the render engine for them
package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/UnendingLoop/ExifFrame/internal/engine"
	"github.com/UnendingLoop/ExifFrame/internal/imageproc"
	"github.com/UnendingLoop/ExifFrame/internal/model"
	"github.com/UnendingLoop/ExifFrame/internal/mwlogger"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/wb-go/wbf/zlog"
)

// errRetryLater marks failures after which the message stays uncommitted.
var errRetryLater = errors.New("job left for a later retry")

type RenderWorkerService interface {
	Get(ctx context.Context, id string) (*model.RenderJob, error)
	UpdateStatus(ctx context.Context, id string, newStat model.Status, errMsg model.StringSlice) error
	SaveResult(ctx context.Context, id string, enc *imageproc.Encoded) error
	LoadSource(ctx context.Context, job *model.RenderJob) ([]byte, error)
}

type Renderer interface {
	Render(ctx context.Context, req engine.Request) (*engine.Result, error)
}

// Committer acknowledges processed messages; *wbfkafka.Consumer implements it.
type Committer interface {
	Commit(ctx context.Context, msg kafkago.Message) error
}

type Worker struct {
	service  RenderWorkerService
	renderer Renderer
	queue    <-chan kafkago.Message
	consumer Committer
}

func NewWorkerInstance(svc RenderWorkerService, r Renderer, q <-chan kafkago.Message, cons Committer) *Worker {
	return &Worker{service: svc, renderer: r, queue: q, consumer: cons}
}

func (w *Worker) StartWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-w.queue:
			if !ok {
				zlog.Logger.Info().Msg("Queue channel closed, stopping worker...")
				return
			}
			w.handle(ctx, msg)
		}
	}
}

func (w *Worker) handle(ctx context.Context, msg kafkago.Message) {
	id := string(msg.Key)
	logger := zlog.Logger.With().Str("render", id).Logger()
	jobCtx := mwlogger.WithLogger(ctx, logger)

	if err := w.initProcessor(jobCtx, id); err != nil {
		if errors.Is(err, errRetryLater) {
			logger.Warn().Err(err).Msg("Render postponed")
			return
		}
		logger.Error().Err(err).Msg("Render failed")
	}

	if err := w.consumer.Commit(ctx, msg); err != nil {
		logger.Error().Err(err).Msg("Failed to commit queue-message")
	}
}

func (w *Worker) initProcessor(ctx context.Context, id string) error {
	job, err := w.service.Get(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrRenderNotFound) || errors.Is(err, model.ErrIncorrectID) {
			return fmt.Errorf("render %q dropped: %w", id, err)
		}
		return fmt.Errorf("%w: failed to fetch render %q: %v", errRetryLater, id, err)
	}

	switch job.Status {
	case model.StatusDone, model.StatusFailed:
		return nil
	case model.StatusInProgress:
		return fmt.Errorf("%w: render %q already in progress", errRetryLater, id)
	}

	if err := w.service.UpdateStatus(ctx, id, model.StatusInProgress, nil); err != nil {
		return fmt.Errorf("%w: failed to mark render %q in progress: %v", errRetryLater, id, err)
	}

	if pErr := w.processTask(ctx, job); pErr != nil {
		if uErr := w.service.UpdateStatus(ctx, id, model.StatusFailed, model.StringSlice{pErr.Error()}); uErr != nil {
			return fmt.Errorf("%w: failed to mark render %q failed: %v (after: %v)", errRetryLater, id, uErr, pErr)
		}
		return fmt.Errorf("failed to process render %q: %w", id, pErr)
	}

	return nil
}

func (w *Worker) processTask(ctx context.Context, job *model.RenderJob) error {
	src, err := w.service.LoadSource(ctx, job)
	if err != nil {
		return err
	}

	req := engine.Request{
		ImageKey: job.SourceKey,
		Image:    src,
		Metadata: job.Metadata,
		Variant:  job.Variant,
	}
	if job.Multiplier != nil {
		req.Multiplier = *job.Multiplier
	}

	res, err := w.renderer.Render(ctx, req)
	if err != nil {
		return fmt.Errorf("render engine: %w", err)
	}

	logger := mwlogger.LoggerFromContext(ctx)
	logger.Info().
		Int("width", res.Encoded.Width).
		Int("height", res.Encoded.Height).
		Str("logo", string(res.LogoKey)).
		Msg("Render finished")

	return w.service.SaveResult(ctx, job.UID.String(), res.Encoded)
}
