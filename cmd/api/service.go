package main

import (
	"context"
	"io"
	"time"

	"github.com/UnendingLoop/ExifFrame/internal/engine"
	"github.com/UnendingLoop/ExifFrame/internal/imageproc"
	"github.com/UnendingLoop/ExifFrame/internal/model"
)

type RenderAPIService interface {
	Create(ctx context.Context, data *model.RenderCreateData) (*model.RenderJob, error)
	Get(ctx context.Context, id string) (*model.RenderJob, error)
	LoadResult(ctx context.Context, id string) (io.ReadCloser, string, error)
	GetList(ctx context.Context, req *model.ListRequest) ([]model.RenderJob, error)
	Delete(ctx context.Context, id string) error
	Preview(ctx context.Context, data *model.PreviewData) (*imageproc.Encoded, error)
	Logos(ctx context.Context) []model.LogoInfo
	GetDefaults(ctx context.Context, profile string) (*model.MetadataRecord, error)
	SaveDefaults(ctx context.Context, profile string, rec model.MetadataRecord) error
	ReviveOrphans(ctx context.Context, limit int)
}

// timedPreviewer bounds every interactive render by timeout.
type timedPreviewer struct {
	sessions *engine.SlotSet
	timeout  time.Duration
}

func (p timedPreviewer) Render(ctx context.Context, session string, req engine.Request) (*engine.Result, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	return p.sessions.Render(ctx, session, req)
}
