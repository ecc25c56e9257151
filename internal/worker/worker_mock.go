package worker

import (
	"context"

	"github.com/UnendingLoop/ExifFrame/internal/engine"
	"github.com/UnendingLoop/ExifFrame/internal/imageproc"
	"github.com/UnendingLoop/ExifFrame/internal/model"
	kafkago "github.com/segmentio/kafka-go"
)

type mockWorkerService struct {
	getFn        func(ctx context.Context, id string) (*model.RenderJob, error)
	updateFn     func(ctx context.Context, id string, st model.Status, errMsg model.StringSlice) error
	saveResultFn func(ctx context.Context, id string, enc *imageproc.Encoded) error
	loadSourceFn func(ctx context.Context, job *model.RenderJob) ([]byte, error)
}

func (m *mockWorkerService) Get(ctx context.Context, id string) (*model.RenderJob, error) {
	return m.getFn(ctx, id)
}

func (m *mockWorkerService) UpdateStatus(ctx context.Context, id string, st model.Status, errMsg model.StringSlice) error {
	return m.updateFn(ctx, id, st, errMsg)
}

func (m *mockWorkerService) SaveResult(ctx context.Context, id string, enc *imageproc.Encoded) error {
	return m.saveResultFn(ctx, id, enc)
}

func (m *mockWorkerService) LoadSource(ctx context.Context, job *model.RenderJob) ([]byte, error) {
	return m.loadSourceFn(ctx, job)
}

//----------------------------------

type mockRenderer struct {
	renderFn func(ctx context.Context, req engine.Request) (*engine.Result, error)
}

func (m *mockRenderer) Render(ctx context.Context, req engine.Request) (*engine.Result, error) {
	return m.renderFn(ctx, req)
}

type mockCommitter struct {
	committed []string
}

func (m *mockCommitter) Commit(_ context.Context, msg kafkago.Message) error {
	m.committed = append(m.committed, string(msg.Key))
	return nil
}
