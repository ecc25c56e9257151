// Package transport provides methods for processing requests from endpoints
package transport

import (
	"context"
	"io"
	"net/http"

	"github.com/UnendingLoop/ExifFrame/internal/imageproc"
	"github.com/UnendingLoop/ExifFrame/internal/model"
	"github.com/UnendingLoop/ExifFrame/internal/mwlogger"
	"github.com/wb-go/wbf/ginext"
)

type RenderHandler struct {
	service RenderService
}

type RenderService interface {
	Create(ctx context.Context, data *model.RenderCreateData) (*model.RenderJob, error)
	Get(ctx context.Context, id string) (*model.RenderJob, error)
	Delete(ctx context.Context, id string) error                                    // удалить как в базе, так и в minio
	LoadResult(ctx context.Context, id string) (io.ReadCloser, string, error)       // прям скачать результат
	GetList(ctx context.Context, req *model.ListRequest) ([]model.RenderJob, error) // получить список
	Preview(ctx context.Context, data *model.PreviewData) (*imageproc.Encoded, error)
	Logos(ctx context.Context) []model.LogoInfo
	GetDefaults(ctx context.Context, profile string) (*model.MetadataRecord, error)
	SaveDefaults(ctx context.Context, profile string, rec model.MetadataRecord) error
}

func NewRenderHandler(svc RenderService) *RenderHandler {
	return &RenderHandler{
		service: svc,
	}
}

func (h RenderHandler) SimplePinger(ctx *ginext.Context) {
	ctx.JSON(http.StatusOK, map[string]string{"message": "pong"})
}

func (h RenderHandler) Create(ctx *ginext.Context) {
	meta, err := parseMetadataForm(ctx)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}
	mult, err := parseMultiplier(ctx.PostForm("multiplier"))
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	imageFile, imageHeader, err := ctx.Request.FormFile("image")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, map[string]string{"error": "image is required"})
		return
	}
	defer closeFileFlow(ctx.Request.Context(), imageFile)

	raw := model.RenderCreateData{
		Variant:         ctx.PostForm("variant"),
		Multiplier:      mult,
		Profile:         ctx.PostForm("profile"),
		Metadata:        meta,
		OrigImg:         imageFile,
		OrigContentType: imageHeader.Header.Get("Content-Type"),
		OrigImgSize:     imageHeader.Size,
	}
	if raw.OrigContentType == "application/octet-stream" {
		raw.OrigContentType = ""
	}

	res, err := h.service.Create(ctx.Request.Context(), &raw)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusCreated, res)
}

func (h RenderHandler) GetRender(ctx *ginext.Context) {
	res, err := h.service.Get(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, res)
}

func (h RenderHandler) GetAllRenders(ctx *ginext.Context) {
	var req model.ListRequest

	if err := ctx.ShouldBindQuery(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, map[string]string{"error": "failed to parse query-params"})
		return
	}

	res, err := h.service.GetList(ctx.Request.Context(), &req)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, res)
}

func (h RenderHandler) LoadResult(ctx *ginext.Context) {
	id := ctx.Param("id")

	res, cType, err := h.service.LoadResult(ctx.Request.Context(), id)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}
	defer closeFileFlow(ctx.Request.Context(), res)

	ctx.Writer.Header().Set("Content-Type", cType)
	ctx.Writer.WriteHeader(http.StatusOK)
	if n, err := io.Copy(ctx.Writer, res); err != nil {
		logger := mwlogger.LoggerFromContext(ctx.Request.Context())
		logger.Error().Err(err).
			Int64("written", n).Str("render", id).Msg("Failed to write result")
	}
}

func (h RenderHandler) Delete(ctx *ginext.Context) {
	if err := h.service.Delete(ctx.Request.Context(), ctx.Param("id")); err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.Status(http.StatusNoContent)
}

func (h RenderHandler) Preview(ctx *ginext.Context) {
	meta, err := parseMetadataForm(ctx)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	imageFile, _, err := ctx.Request.FormFile("image")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, map[string]string{"error": "image is required"})
		return
	}
	defer closeFileFlow(ctx.Request.Context(), imageFile)

	data, err := readLimited(imageFile)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	enc, err := h.service.Preview(ctx.Request.Context(), &model.PreviewData{
		Session:  ctx.PostForm("session"),
		Variant:  ctx.PostForm("variant"),
		Profile:  ctx.PostForm("profile"),
		Metadata: meta,
		Image:    data,
	})
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.Data(http.StatusOK, enc.ContentType, enc.Data)
}

func (h RenderHandler) Logos(ctx *ginext.Context) {
	ctx.JSON(http.StatusOK, h.service.Logos(ctx.Request.Context()))
}

func (h RenderHandler) GetDefaults(ctx *ginext.Context) {
	rec, err := h.service.GetDefaults(ctx.Request.Context(), ctx.Query("profile"))
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, rec)
}

func (h RenderHandler) SaveDefaults(ctx *ginext.Context) {
	var rec model.MetadataRecord
	if err := ctx.ShouldBindJSON(&rec); err != nil {
		ctx.JSON(http.StatusBadRequest, map[string]string{"error": "failed to parse parameters"})
		return
	}

	if err := h.service.SaveDefaults(ctx.Request.Context(), ctx.Query("profile"), rec); err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}
	ctx.Status(http.StatusNoContent)
}
