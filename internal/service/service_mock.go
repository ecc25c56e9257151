package service

import (
	"bytes"
	"context"
	"io"

	"github.com/UnendingLoop/ExifFrame/internal/engine"
	"github.com/UnendingLoop/ExifFrame/internal/model"
	"github.com/wb-go/wbf/retry"
)

// MOCK REPOSITORY

type mockRepo struct {
	createFn       func(ctx context.Context, job *model.RenderJob) error
	getFn          func(ctx context.Context, id string) (*model.RenderJob, error)
	getListFn      func(ctx context.Context, req *model.ListRequest) ([]model.RenderJob, error)
	deleteFn       func(ctx context.Context, id string) error
	updateStatusFn func(ctx context.Context, id string, st model.Status, errMsg model.StringSlice) error
	saveResultFn   func(ctx context.Context, id string, st model.Status, resKey string) error
	fetchOrphansFn func(ctx context.Context, limit int) ([]string, error)
	getDefaultsFn  func(ctx context.Context, profile string) (*model.MetadataRecord, error)
	saveDefaultsFn func(ctx context.Context, profile string, rec model.MetadataRecord) error
}

func (m *mockRepo) Create(ctx context.Context, job *model.RenderJob) error {
	return m.createFn(ctx, job)
}

func (m *mockRepo) Get(ctx context.Context, id string) (*model.RenderJob, error) {
	return m.getFn(ctx, id)
}

func (m *mockRepo) GetList(ctx context.Context, req *model.ListRequest) ([]model.RenderJob, error) {
	return m.getListFn(ctx, req)
}

func (m *mockRepo) Delete(ctx context.Context, id string) error {
	return m.deleteFn(ctx, id)
}

func (m *mockRepo) UpdateStatus(ctx context.Context, id string, st model.Status, errMsg model.StringSlice) error {
	return m.updateStatusFn(ctx, id, st, errMsg)
}

func (m *mockRepo) SaveResult(ctx context.Context, id string, st model.Status, resKey string) error {
	return m.saveResultFn(ctx, id, st, resKey)
}

func (m *mockRepo) FetchOrphans(ctx context.Context, limit int) ([]string, error) {
	return m.fetchOrphansFn(ctx, limit)
}

func (m *mockRepo) GetDefaults(ctx context.Context, profile string) (*model.MetadataRecord, error) {
	if m.getDefaultsFn == nil {
		return nil, model.ErrDefaultsNotFound
	}
	return m.getDefaultsFn(ctx, profile)
}

func (m *mockRepo) SaveDefaults(ctx context.Context, profile string, rec model.MetadataRecord) error {
	return m.saveDefaultsFn(ctx, profile, rec)
}

// MOCK STORAGE

type mockStorage struct {
	putFn    func(ctx context.Context, key string, size int64, ct string, r io.Reader) error
	getFn    func(ctx context.Context, key string) (io.ReadCloser, string, error)
	deleteFn func(ctx context.Context, key string) error
}

func (m *mockStorage) Put(ctx context.Context, key string, size int64, ct string, r io.Reader) error {
	return m.putFn(ctx, key, size, ct, r)
}

func (m *mockStorage) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	return m.getFn(ctx, key)
}

func (m *mockStorage) Delete(ctx context.Context, key string) error {
	return m.deleteFn(ctx, key)
}

// MOCK PUBLISHER

type mockPublisher struct {
	sendFn func(ctx context.Context, s retry.Strategy, key []byte, v []byte) error
}

func (m *mockPublisher) SendWithRetry(ctx context.Context, s retry.Strategy, key []byte, v []byte) error {
	return m.sendFn(ctx, s, key, v)
}

// MOCK PREVIEWER

type mockPreviewer struct {
	renderFn func(ctx context.Context, session string, req engine.Request) (*engine.Result, error)
}

func (m *mockPreviewer) Render(ctx context.Context, session string, req engine.Request) (*engine.Result, error) {
	return m.renderFn(ctx, session, req)
}

// MOCK для multipart.File
type fakeMultipartFile struct {
	*bytes.Reader
}

func (f *fakeMultipartFile) Close() error {
	return nil
}
