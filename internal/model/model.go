// Package model provides data-structs for internal app-usage
package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

type (
	Status  string
	Variant string
)

const (
	StatusCreated    Status = "created"
	StatusInProgress Status = "in_progress"
	StatusFailed     Status = "failed"
	StatusDone       Status = "done"
)

var StatusMap = map[Status]bool{
	StatusCreated:    true,
	StatusInProgress: true,
	StatusFailed:     true,
	StatusDone:       true,
}

const (
	VariantStrip   Variant = "strip"
	VariantOverlay Variant = "overlay"
)

var VariantsMap = map[Variant]bool{
	VariantStrip:   true,
	VariantOverlay: true,
}

//---------------------

// RenderJob is one queued render of an uploaded photo.
type RenderJob struct {
	UID        uuid.UUID      `json:"uid"`
	SourceKey  string         `json:"-"`
	ResultKey  string         `json:"-"`
	Variant    Variant        `json:"variant"`
	Metadata   MetadataRecord `json:"metadata"`
	Multiplier *float64       `json:"multiplier,omitempty"`
	Status     Status         `json:"status,omitempty"`
	ErrMsg     StringSlice    `json:"error,omitempty"`
	CreatedAt  *time.Time     `json:"created_at,omitempty"`
	UpdatedAt  *time.Time     `json:"updated_at,omitempty"`
}

//-------------------

type ListRequest struct {
	Page  int    `form:"page"`
	Limit int    `form:"limit"`
	Sort  string `form:"sort"`
	Order string `form:"order"`
}

const (
	ByUUID    = "uid"
	ByCreated = "created"
	OrderASC  = "ascend"
	OrderDESC = "descend"
)

// RenderCreateData carries a raw upload from the transport layer.
// Metadata holds only the fields the client typed in; empty ones are
// filled from EXIF and then from the saved defaults.
type RenderCreateData struct {
	Variant         string
	Multiplier      *float64
	Profile         string
	Metadata        MetadataRecord
	OrigImg         multipart.File
	OrigContentType string
	OrigImgSize     int64
}

// PreviewData is a synchronous render request. Requests sharing a Session
// replace each other: only the latest one returns an image.
type PreviewData struct {
	Session  string
	Variant  string
	Profile  string
	Metadata MetadataRecord
	Image    []byte
}

// LogoInfo describes one watermark-capable manufacturer.
type LogoInfo struct {
	Key         string `json:"key"`
	DisplayName string `json:"display_name"`
}

//--------------------

const (
	JPEG = "image/jpeg"
	PNG  = "image/png"
	GIF  = "image/gif"
	TIFF = "image/tiff"
)

var GetImageFileExt = map[string]string{
	JPEG: ".jpg",
	PNG:  ".png",
	GIF:  ".gif",
	TIFF: ".tif",
}

var InImageTypeMap = map[string]bool{
	JPEG: true,
	PNG:  true,
	GIF:  true,
	TIFF: true,
}

var GetCType = map[imaging.Format]string{
	imaging.JPEG: JPEG,
	imaging.GIF:  GIF,
	imaging.PNG:  PNG,
	imaging.TIFF: TIFF,
}

//--------------------

type StringSlice []string

func (s *StringSlice) Scan(value any) error {
	if value == nil {
		*s = []string{}
		return nil
	}

	b, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("invalid type for StringSlice")
	}

	if err := json.Unmarshal(b, s); err != nil {
		return fmt.Errorf("failed to unmarshal JSONB to StringSlice: %w", err)
	}
	return nil
}

func (s StringSlice) Value() (driver.Value, error) {
	if len(s) == 0 {
		return []byte(`[]`), nil
	}
	res, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal StringSlice to JSONB: %w", err)
	}

	return res, nil
}
