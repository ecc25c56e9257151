// Package service provides business-logic for the app
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/UnendingLoop/ExifFrame/internal/engine"
	"github.com/UnendingLoop/ExifFrame/internal/exifmeta"
	"github.com/UnendingLoop/ExifFrame/internal/imageproc"
	"github.com/UnendingLoop/ExifFrame/internal/logo"
	"github.com/UnendingLoop/ExifFrame/internal/model"
	"github.com/UnendingLoop/ExifFrame/internal/mwlogger"
	"github.com/UnendingLoop/ExifFrame/internal/repository"
	"github.com/google/uuid"
	"github.com/wb-go/wbf/retry"
)

// MaxSourceSize bounds the bytes read from one upload.
const MaxSourceSize = 64 << 20

const DefaultProfile = "default"

type RenderService struct {
	repo            repository.RenderRepo
	publisher       TaskPublisher
	storage         RenderStorage
	previewer       Previewer
	srcKeyPrefix    string
	resultKeyPrefix string
}

// Options carries the storage key prefixes.
type Options struct {
	SourcePrefix string
	ResultPrefix string
}

func NewRenderService(repo repository.RenderRepo, pub TaskPublisher, strg RenderStorage, prev Previewer, opts Options) *RenderService {
	return &RenderService{
		repo:            repo,
		publisher:       pub,
		storage:         strg,
		previewer:       prev,
		srcKeyPrefix:    opts.SourcePrefix,
		resultKeyPrefix: opts.ResultPrefix,
	}
}

// TaskPublisher - контракт для работы с очередью
type TaskPublisher interface {
	SendWithRetry(ctx context.Context, strategy retry.Strategy, key []byte, v []byte) error
}

// RenderStorage - контракт для работы с хранилищем
type RenderStorage interface {
	Delete(ctx context.Context, key string) error
	Get(ctx context.Context, key string) (output io.ReadCloser, ctype string, err error)
	Put(ctx context.Context, key string, size int64, contentType string, r io.Reader) error
}

// Previewer renders interactively; *engine.SlotSet implements it.
type Previewer interface {
	Render(ctx context.Context, session string, req engine.Request) (*engine.Result, error)
}

var retryStrategy = retry.Strategy{
	Attempts: 5,
	Delay:    3 * time.Second,
	Backoff:  1.5,
}

func (c RenderService) Create(ctx context.Context, data *model.RenderCreateData) (*model.RenderJob, error) {
	logger := mwlogger.LoggerFromContext(ctx)

	job, err := validateCreateData(data)
	if err != nil {
		return nil, err
	}

	src, err := io.ReadAll(io.LimitReader(data.OrigImg, MaxSourceSize+1))
	if err != nil {
		logger.Error().Err(err).Msg("Failed to read uploaded image")
		return nil, model.ErrEmptySource
	}
	if len(src) == 0 || len(src) > MaxSourceSize {
		return nil, model.ErrEmptySource
	}

	cType, err := imageproc.DetectFormat(src)
	if err != nil || !model.InImageTypeMap[cType] {
		return nil, model.ErrUnsupportedFormat
	}

	job.Metadata = c.resolveMetadata(ctx, src, data.Metadata, data.Profile)
	job.UID = uuid.New()
	job.SourceKey = c.srcKeyPrefix + job.UID.String() + model.GetImageFileExt[cType]

	if err := c.storage.Put(ctx, job.SourceKey, int64(len(src)), cType, bytes.NewReader(src)); err != nil {
		logger.Error().Err(err).Msg("Failed to save src-image in Storage")
		return nil, model.ErrCommon500
	}

	job.Status = model.StatusCreated
	now := time.Now().UTC()
	job.CreatedAt = &now

	if err := c.repo.Create(ctx, job); err != nil {
		logger.Error().Err(err).Msg("Failed to create render in DB")
		return nil, model.ErrCommon500
	}

	if err := c.publisher.SendWithRetry(ctx, retryStrategy, []byte(job.UID.String()), nil); err != nil {
		logger.Error().Err(err).Str("render", job.UID.String()).Msg("Failed to publish render to task-queue")
		return nil, model.ErrCommon500
	}
	return job, nil
}

// resolveMetadata layers form values over EXIF, then fills a record that
// still has no camera make from the saved defaults of profile.
func (c RenderService) resolveMetadata(ctx context.Context, src []byte, form model.MetadataRecord, profile string) model.MetadataRecord {
	logger := mwlogger.LoggerFromContext(ctx)

	meta := form
	exif, err := exifmeta.Extract(bytes.NewReader(src))
	switch {
	case err == nil:
		meta = meta.ApplyDefaults(exif)
	case errors.Is(err, model.ErrNoMetadata):
		logger.Debug().Msg("Source carries no EXIF")
	default:
		logger.Warn().Err(err).Msg("Failed to read EXIF")
	}

	if !model.IsAbsent(meta.Make) {
		return meta
	}

	def, err := c.repo.GetDefaults(ctx, normalizeProfile(profile))
	switch {
	case err == nil:
		return meta.ApplyDefaults(*def)
	case errors.Is(err, model.ErrDefaultsNotFound):
	default:
		logger.Error().Err(err).Msg("Failed to load default parameters")
	}
	return meta
}

func (c RenderService) GetList(ctx context.Context, req *model.ListRequest) ([]model.RenderJob, error) {
	logger := mwlogger.LoggerFromContext(ctx)
	validateQueryParams(req)

	res, err := c.repo.GetList(ctx, req)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to fetch renders list from DB")
		return nil, model.ErrCommon500
	}

	return res, nil
}

func (c RenderService) Get(ctx context.Context, id string) (*model.RenderJob, error) {
	if err := uuid.Validate(id); err != nil {
		return nil, model.ErrIncorrectID
	}
	return c.fetch(ctx, id)
}

func (c RenderService) fetch(ctx context.Context, id string) (*model.RenderJob, error) {
	res, err := c.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrRenderNotFound) {
			return nil, model.ErrRenderNotFound
		}
		logger := mwlogger.LoggerFromContext(ctx)
		logger.Error().Err(err).Str("render", id).Msg("Failed to fetch render from DB")
		return nil, model.ErrCommon500
	}
	return res, nil
}

func (c RenderService) LoadResult(ctx context.Context, id string) (io.ReadCloser, string, error) {
	logger := mwlogger.LoggerFromContext(ctx)
	if err := uuid.Validate(id); err != nil {
		return nil, "", model.ErrIncorrectID
	}

	res, err := c.fetch(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if res.Status != model.StatusDone {
		return nil, "", model.ErrResultNotReady
	}

	data, cType, err := c.storage.Get(ctx, res.ResultKey)
	if err != nil {
		logger.Error().Err(err).Str("render", id).Msg("Failed to fetch result-image from Storage")
		return nil, "", model.ErrCommon500
	}
	return data, cType, nil
}

func (c RenderService) Delete(ctx context.Context, id string) error {
	logger := mwlogger.LoggerFromContext(ctx)
	if err := uuid.Validate(id); err != nil {
		return model.ErrIncorrectID
	}

	res, err := c.fetch(ctx, id)
	if err != nil {
		return err
	}

	if err := c.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, model.ErrRenderNotFound) {
			return model.ErrRenderNotFound
		}
		logger.Error().Err(err).Msg("Failed to delete render from DB")
		return model.ErrCommon500
	}

	if err := c.storage.Delete(ctx, res.SourceKey); err != nil {
		logger.Error().Err(err).Msg("Failed to delete src-image from Storage")
		return model.ErrCommon500
	}
	if res.ResultKey != "" {
		if err := c.storage.Delete(ctx, res.ResultKey); err != nil {
			logger.Error().Err(err).Msg("Failed to delete result-image from Storage")
			return model.ErrCommon500
		}
	}

	return nil
}

func (c RenderService) UpdateStatus(ctx context.Context, id string, newStat model.Status, errMsg model.StringSlice) error {
	if err := uuid.Validate(id); err != nil {
		return model.ErrIncorrectID
	}
	if !model.StatusMap[newStat] {
		return fmt.Errorf("unknown status %q", newStat)
	}

	if err := c.repo.UpdateStatus(ctx, id, newStat, errMsg); err != nil {
		if errors.Is(err, model.ErrRenderNotFound) {
			return model.ErrRenderNotFound
		}
		logger := mwlogger.LoggerFromContext(ctx)
		logger.Error().Err(err).Msg("Failed to update render status in DB")
		return model.ErrCommon500
	}

	return nil
}

// SaveResult stores the encoded render and marks the job done.
func (c RenderService) SaveResult(ctx context.Context, id string, enc *imageproc.Encoded) error {
	logger := mwlogger.LoggerFromContext(ctx)
	if enc == nil || len(enc.Data) == 0 {
		return &model.EncodingError{Err: errors.New("empty result")}
	}

	resKey := c.resultKeyPrefix + id + model.GetImageFileExt[enc.ContentType]
	if err := c.storage.Put(ctx, resKey, int64(len(enc.Data)), enc.ContentType, bytes.NewReader(enc.Data)); err != nil {
		logger.Error().Err(err).Msg("Failed to put result image to Storage")
		return model.ErrCommon500
	}

	if err := c.repo.SaveResult(ctx, id, model.StatusDone, resKey); err != nil {
		if errors.Is(err, model.ErrRenderNotFound) {
			return model.ErrRenderNotFound
		}
		logger.Error().Err(err).Msg("Failed to save result in DB")
		return model.ErrCommon500
	}

	return nil
}

// LoadSource returns the uploaded bytes of a job.
func (c RenderService) LoadSource(ctx context.Context, job *model.RenderJob) ([]byte, error) {
	r, _, err := c.storage.Get(ctx, job.SourceKey)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch source from storage: %w", err)
	}
	defer func() {
		if err := r.Close(); err != nil {
			logger := mwlogger.LoggerFromContext(ctx)
			logger.Warn().Err(err).Msg("Failed to close source stream")
		}
	}()

	data, err := io.ReadAll(io.LimitReader(r, MaxSourceSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read source: %w", err)
	}
	return data, nil
}

func (c RenderService) ReviveOrphans(ctx context.Context, limit int) {
	logger := mwlogger.LoggerFromContext(ctx)

	orphans, err := c.repo.FetchOrphans(ctx, limit)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load orphans from DB")
		return
	}

	for _, v := range orphans {
		if err := c.publisher.SendWithRetry(ctx, retryStrategy, []byte(v), nil); err != nil {
			logger.Error().Err(err).Str("render", v).Msg("Failed to publish orphan to queue")
		}
	}
}

// Preview renders synchronously at multiplier 1. Previews sharing a session
// supersede each other.
func (c RenderService) Preview(ctx context.Context, data *model.PreviewData) (*imageproc.Encoded, error) {
	if len(data.Image) == 0 {
		return nil, model.ErrEmptySource
	}
	variant, err := engine.ParseVariant(data.Variant)
	if err != nil {
		return nil, err
	}
	if err := validateProfile(data.Profile); err != nil {
		return nil, err
	}

	// blank session: a one-off render that no other preview can supersede
	res, err := c.previewer.Render(ctx, data.Session, engine.Request{
		ImageKey:   uuid.NewSHA1(uuid.NameSpaceOID, data.Image).String(),
		Image:      data.Image,
		Metadata:   c.resolveMetadata(ctx, data.Image, data.Metadata, data.Profile),
		Variant:    variant,
		Multiplier: 1,
	})
	if err != nil {
		return nil, err
	}
	return res.Encoded, nil
}

// Logos lists manufacturers a watermark can be built for.
func (c RenderService) Logos(context.Context) []model.LogoInfo {
	known := logo.Known()
	out := make([]model.LogoInfo, 0, len(known))
	for _, m := range known {
		out = append(out, model.LogoInfo{Key: string(m.Key), DisplayName: m.DisplayName})
	}
	return out
}

func (c RenderService) GetDefaults(ctx context.Context, profile string) (*model.MetadataRecord, error) {
	if err := validateProfile(profile); err != nil {
		return nil, err
	}

	rec, err := c.repo.GetDefaults(ctx, normalizeProfile(profile))
	if err != nil {
		if errors.Is(err, model.ErrDefaultsNotFound) {
			return nil, model.ErrDefaultsNotFound
		}
		logger := mwlogger.LoggerFromContext(ctx)
		logger.Error().Err(err).Msg("Failed to load default parameters from DB")
		return nil, model.ErrCommon500
	}
	return rec, nil
}

func (c RenderService) SaveDefaults(ctx context.Context, profile string, rec model.MetadataRecord) error {
	if err := validateProfile(profile); err != nil {
		return err
	}
	if err := validateMetadata(rec); err != nil {
		return err
	}

	if err := c.repo.SaveDefaults(ctx, normalizeProfile(profile), rec); err != nil {
		logger := mwlogger.LoggerFromContext(ctx)
		logger.Error().Err(err).Msg("Failed to save default parameters to DB")
		return model.ErrCommon500
	}
	return nil
}
