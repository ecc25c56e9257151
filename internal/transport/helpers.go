package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/UnendingLoop/ExifFrame/internal/engine"
	"github.com/UnendingLoop/ExifFrame/internal/imageproc"
	"github.com/UnendingLoop/ExifFrame/internal/model"
	"github.com/UnendingLoop/ExifFrame/internal/mwlogger"
	"github.com/UnendingLoop/ExifFrame/internal/service"
	"github.com/wb-go/wbf/ginext"
)

func errorCodeDefiner(err error) int {
	switch {
	case errors.Is(err, model.ErrCommon500),
		errors.Is(err, model.ErrEncoding):
		return 500
	case errors.Is(err, model.ErrRenderNotFound),
		errors.Is(err, model.ErrResultNotReady),
		errors.Is(err, model.ErrDefaultsNotFound):
		return 404
	case errors.Is(err, engine.ErrSuperseded):
		return 409
	case errors.Is(err, model.ErrImageLoad):
		return 422
	case errors.Is(err, model.ErrEncodeTimeout):
		return 503
	case errors.Is(err, model.ErrIncorrectQuery),
		errors.Is(err, model.ErrIncorrectID),
		errors.Is(err, model.ErrIncorrectVariant),
		errors.Is(err, model.ErrEmptySource),
		errors.Is(err, model.ErrIncorrectMult),
		errors.Is(err, imageproc.ErrInvalidMultiplier),
		errors.Is(err, model.ErrIncorrectProfile),
		errors.Is(err, model.ErrIncorrectMeta),
		errors.Is(err, model.ErrUnsupportedFormat):
		return 400
	default:
		return 500
	}
}

// parseMetadataForm reads the optional watermark fields of a multipart form.
func parseMetadataForm(ctx *ginext.Context) (model.MetadataRecord, error) {
	meta := model.MetadataRecord{
		Make:         strings.TrimSpace(ctx.PostForm("make")),
		Model:        strings.TrimSpace(ctx.PostForm("model")),
		LensModel:    strings.TrimSpace(ctx.PostForm("lens_model")),
		FocalLength:  strings.TrimSpace(ctx.PostForm("focal_length")),
		FNumber:      strings.TrimSpace(ctx.PostForm("f_number")),
		ExposureTime: strings.TrimSpace(ctx.PostForm("exposure_time")),
		ISO:          strings.TrimSpace(ctx.PostForm("iso")),
		FontFamily:   strings.TrimSpace(ctx.PostForm("font_family")),
	}

	flags := []struct {
		field string
		dst   *bool
	}{
		{"hidden_left", &meta.HiddenLeftInfo},
		{"hidden_right", &meta.HiddenRightInfo},
		{"hidden_bottom", &meta.HiddenBottomInfo},
	}
	for _, f := range flags {
		v := ctx.PostForm(f.field)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return meta, fmt.Errorf("%w: %s", model.ErrIncorrectMeta, f.field)
		}
		*f.dst = b
	}

	strengths := []struct {
		field string
		dst   *float64
	}{
		{"background_blur", &meta.BackgroundBlurStrength},
		{"shadow_blur", &meta.ShadowBlurStrength},
	}
	for _, s := range strengths {
		v := ctx.PostForm(s.field)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return meta, fmt.Errorf("%w: %s", model.ErrIncorrectMeta, s.field)
		}
		*s.dst = f
	}

	return meta, nil
}

func parseMultiplier(v string) (*float64, error) {
	if v == "" {
		return nil, nil
	}
	m, err := strconv.ParseFloat(v, 64)
	if err != nil || m <= 0 || math.IsNaN(m) || math.IsInf(m, 0) {
		return nil, model.ErrIncorrectMult
	}
	return &m, nil
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, service.MaxSourceSize+1))
	if err != nil || len(data) == 0 || len(data) > service.MaxSourceSize {
		return nil, model.ErrEmptySource
	}
	return data, nil
}

func closeFileFlow(ctx context.Context, res io.ReadCloser) {
	if res == nil {
		return
	}
	if err := res.Close(); err != nil {
		logger := mwlogger.LoggerFromContext(ctx)
		logger.Warn().Err(err).Msg("Handler failed to close fileflow")
	}
}
