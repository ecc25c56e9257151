package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// MetadataRecord is the flat set of camera and rendering parameters a
// watermark is built from. Numeric camera values are kept as the strings
// the user or the EXIF reader produced; ExposureTime is the denominator
// of a 1/N second shutter speed.
type MetadataRecord struct {
	Make         string `json:"make,omitempty"`
	Model        string `json:"model,omitempty"`
	LensModel    string `json:"lens_model,omitempty"`
	FocalLength  string `json:"focal_length,omitempty"`
	FNumber      string `json:"f_number,omitempty"`
	ExposureTime string `json:"exposure_time,omitempty"`
	ISO          string `json:"iso,omitempty"`
	FontFamily   string `json:"font_family,omitempty"`

	HiddenLeftInfo   bool `json:"hidden_left_info,omitempty"`
	HiddenRightInfo  bool `json:"hidden_right_info,omitempty"`
	HiddenBottomInfo bool `json:"hidden_bottom_info,omitempty"`

	BackgroundBlurStrength float64 `json:"background_blur_strength,omitempty"`
	ShadowBlurStrength     float64 `json:"shadow_blur_strength,omitempty"`
}

// IsAbsent reports whether a metadata value should be treated as missing:
// blank, or a number equal to zero.
func IsAbsent(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return true
	}
	f, err := strconv.ParseFloat(v, 64)
	return err == nil && f == 0
}

// ApplyDefaults fills every blank camera field of m from def. Flags and
// blur strengths are only taken from def when m carries none of them.
func (m MetadataRecord) ApplyDefaults(def MetadataRecord) MetadataRecord {
	fill := func(dst *string, src string) {
		if strings.TrimSpace(*dst) == "" {
			*dst = src
		}
	}
	fill(&m.Make, def.Make)
	fill(&m.Model, def.Model)
	fill(&m.LensModel, def.LensModel)
	fill(&m.FocalLength, def.FocalLength)
	fill(&m.FNumber, def.FNumber)
	fill(&m.ExposureTime, def.ExposureTime)
	fill(&m.ISO, def.ISO)
	fill(&m.FontFamily, def.FontFamily)

	if !m.HiddenLeftInfo && !m.HiddenRightInfo && !m.HiddenBottomInfo {
		m.HiddenLeftInfo = def.HiddenLeftInfo
		m.HiddenRightInfo = def.HiddenRightInfo
		m.HiddenBottomInfo = def.HiddenBottomInfo
	}
	if m.BackgroundBlurStrength == 0 {
		m.BackgroundBlurStrength = def.BackgroundBlurStrength
	}
	if m.ShadowBlurStrength == 0 {
		m.ShadowBlurStrength = def.ShadowBlurStrength
	}
	return m
}

func (m *MetadataRecord) Scan(value any) error {
	if value == nil {
		*m = MetadataRecord{}
		return nil
	}

	b, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("invalid type for MetadataRecord")
	}

	if err := json.Unmarshal(b, m); err != nil {
		return fmt.Errorf("failed to unmarshal JSONB to MetadataRecord: %w", err)
	}
	return nil
}

func (m MetadataRecord) Value() (driver.Value, error) {
	res, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal MetadataRecord to JSONB: %w", err)
	}
	return res, nil
}
