package transport

import (
	"context"
	"io"

	"github.com/UnendingLoop/ExifFrame/internal/imageproc"
	"github.com/UnendingLoop/ExifFrame/internal/model"
	"github.com/gin-gonic/gin"
)

type mockRenderService struct {
	createFn       func(ctx context.Context, d *model.RenderCreateData) (*model.RenderJob, error)
	getFn          func(ctx context.Context, id string) (*model.RenderJob, error)
	deleteFn       func(ctx context.Context, id string) error
	loadResultFn   func(ctx context.Context, id string) (io.ReadCloser, string, error)
	getListFn      func(ctx context.Context, req *model.ListRequest) ([]model.RenderJob, error)
	previewFn      func(ctx context.Context, d *model.PreviewData) (*imageproc.Encoded, error)
	logosFn        func(ctx context.Context) []model.LogoInfo
	getDefaultsFn  func(ctx context.Context, profile string) (*model.MetadataRecord, error)
	saveDefaultsFn func(ctx context.Context, profile string, rec model.MetadataRecord) error
}

func (m *mockRenderService) Create(ctx context.Context, d *model.RenderCreateData) (*model.RenderJob, error) {
	return m.createFn(ctx, d)
}

func (m *mockRenderService) Get(ctx context.Context, id string) (*model.RenderJob, error) {
	return m.getFn(ctx, id)
}

func (m *mockRenderService) Delete(ctx context.Context, id string) error {
	return m.deleteFn(ctx, id)
}

func (m *mockRenderService) LoadResult(ctx context.Context, id string) (io.ReadCloser, string, error) {
	return m.loadResultFn(ctx, id)
}

func (m *mockRenderService) GetList(ctx context.Context, req *model.ListRequest) ([]model.RenderJob, error) {
	return m.getListFn(ctx, req)
}

func (m *mockRenderService) Preview(ctx context.Context, d *model.PreviewData) (*imageproc.Encoded, error) {
	return m.previewFn(ctx, d)
}

func (m *mockRenderService) Logos(ctx context.Context) []model.LogoInfo {
	return m.logosFn(ctx)
}

func (m *mockRenderService) GetDefaults(ctx context.Context, profile string) (*model.MetadataRecord, error) {
	return m.getDefaultsFn(ctx, profile)
}

func (m *mockRenderService) SaveDefaults(ctx context.Context, profile string, rec model.MetadataRecord) error {
	return m.saveDefaultsFn(ctx, profile, rec)
}

func init() {
	gin.SetMode(gin.TestMode)
}
