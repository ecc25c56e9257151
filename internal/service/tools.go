package service

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/UnendingLoop/ExifFrame/internal/engine"
	"github.com/UnendingLoop/ExifFrame/internal/model"
)

const maxProfileLen = 64

func validateQueryParams(req *model.ListRequest) {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 30
	}

	sort := strings.ToLower(strings.TrimSpace(req.Sort))
	switch {
	case strings.Contains(sort, model.ByUUID):
		req.Sort = model.ByUUID
	default:
		req.Sort = model.ByCreated // по дефолту сортировка по времени создания
	}

	order := strings.ToLower(strings.TrimSpace(req.Order))
	switch {
	case strings.Contains(order, model.OrderASC):
		req.Order = model.OrderASC
	default:
		req.Order = model.OrderDESC // по дефолту "новое-выше"
	}
}

func validateCreateData(raw *model.RenderCreateData) (*model.RenderJob, error) {
	if raw.OrigImg == nil || raw.OrigImgSize <= 0 {
		return nil, model.ErrEmptySource
	}
	if raw.OrigContentType != "" && !model.InImageTypeMap[raw.OrigContentType] {
		return nil, model.ErrUnsupportedFormat
	}

	variant, err := engine.ParseVariant(raw.Variant)
	if err != nil {
		return nil, err
	}

	if m := raw.Multiplier; m != nil && (*m <= 0 || math.IsNaN(*m) || math.IsInf(*m, 0)) {
		return nil, model.ErrIncorrectMult
	}
	if err := validateProfile(raw.Profile); err != nil {
		return nil, err
	}
	if err := validateMetadata(raw.Metadata); err != nil {
		return nil, err
	}

	return &model.RenderJob{Variant: variant, Multiplier: raw.Multiplier}, nil
}

// validateProfile accepts blank (the default profile) or a short name of
// letters, digits, '-' and '_'.
func validateProfile(p string) error {
	if len(p) > maxProfileLen {
		return model.ErrIncorrectProfile
	}
	for _, r := range p {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_' {
			return model.ErrIncorrectProfile
		}
	}
	return nil
}

func normalizeProfile(p string) string {
	if p == "" {
		return DefaultProfile
	}
	return p
}

// validateMetadata rejects negative or non-numeric camera values and blur
// strengths outside [0, 100]. Blank values are allowed.
func validateMetadata(m model.MetadataRecord) error {
	for _, v := range []string{m.FocalLength, m.FNumber, m.ExposureTime, m.ISO} {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
			return model.ErrIncorrectMeta
		}
	}
	for _, s := range []float64{m.BackgroundBlurStrength, m.ShadowBlurStrength} {
		if s < 0 || s > 100 || math.IsNaN(s) {
			return model.ErrIncorrectMeta
		}
	}
	return nil
}
