package renderpg

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/UnendingLoop/ExifFrame/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/dbpg"
)

func newRepoWithMock(t *testing.T) (PostgresRepo, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return PostgresRepo{DB: &dbpg.DB{Master: db}}, mock
}

// CREATE - SUCCESS
func TestPostgresRepo_Create_OK(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	ctime := time.Now()
	mult := 1.5
	job := &model.RenderJob{
		UID:        uuid.New(),
		SourceKey:  "sources/a.jpg",
		Variant:    model.VariantOverlay,
		Metadata:   model.MetadataRecord{Make: "SONY", ISO: "200"},
		Multiplier: &mult,
		Status:     model.StatusCreated,
		CreatedAt:  &ctime,
	}

	mock.ExpectExec(`INSERT INTO renders`).
		WithArgs(job.UID, job.SourceKey, job.ResultKey, job.Variant, job.Metadata, job.Multiplier,
			job.Status, job.ErrMsg, job.CreatedAt, job.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), job))
	require.NoError(t, mock.ExpectationsWereMet())
}

// GET - SUCCESS
func TestPostgresRepo_Get_OK(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	id := uuid.New().String()
	rows := sqlmock.NewRows([]string{
		"render_uid", "source_key", "result_key", "variant", "metadata", "multiplier",
		"status", "err_msg", "created_at", "updated_at",
	}).AddRow(
		id, "sources/x.jpg", nil, model.VariantStrip, []byte(`{"make":"Canon","iso":"100"}`), 2.0,
		model.StatusCreated, []byte(`[]`), time.Now(), time.Now(),
	)

	mock.ExpectQuery(`SELECT render_uid`).
		WithArgs(id).
		WillReturnRows(rows)

	job, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, id, job.UID.String())
	require.Empty(t, job.ResultKey)
	require.Equal(t, "Canon", job.Metadata.Make)
	require.NotNil(t, job.Multiplier)
	require.Equal(t, 2.0, *job.Multiplier)
}

// GET - NOT FOUND
func TestPostgresRepo_Get_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT render_uid`).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), uuid.New().String())
	require.ErrorIs(t, err, model.ErrRenderNotFound)
}

// GETLIST - SUCCESS
func TestPostgresRepo_GetList_OK(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	req := &model.ListRequest{Page: 2, Limit: 2, Sort: model.ByCreated, Order: model.OrderDESC}

	rows := sqlmock.NewRows([]string{
		"render_uid", "variant", "metadata", "multiplier", "status", "err_msg", "created_at", "updated_at",
	}).
		AddRow(uuid.New(), model.VariantStrip, []byte(`{}`), nil, model.StatusDone, nil, time.Now(), time.Now()).
		AddRow(uuid.New(), model.VariantOverlay, []byte(`{"make":"Nikon"}`), 3.0, model.StatusCreated, nil, time.Now(), time.Now())

	mock.ExpectQuery(`ORDER BY created_at DESC`).
		WithArgs(2, 2).
		WillReturnRows(rows)

	res, err := repo.GetList(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, res, 2)
	require.Nil(t, res[0].Multiplier)
	require.Equal(t, 3.0, *res[1].Multiplier)
	require.Equal(t, "Nikon", res[1].Metadata.Make)
}

// GETLIST - UNKNOWN SORT
func TestPostgresRepo_GetList_BadSort(t *testing.T) {
	repo, _ := newRepoWithMock(t)

	_, err := repo.GetList(context.Background(), &model.ListRequest{Page: 1, Limit: 1, Sort: "name; DROP", Order: model.OrderASC})
	require.ErrorIs(t, err, model.ErrIncorrectQuery)

	_, err = repo.GetList(context.Background(), &model.ListRequest{Page: 1, Limit: 1, Sort: model.ByUUID, Order: "sideways"})
	require.ErrorIs(t, err, model.ErrIncorrectQuery)
}

func TestPostgresRepo_SingleRowUpdates(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		call    func(PostgresRepo) error
	}{
		{
			name:    "delete",
			pattern: `DELETE FROM renders`,
			call:    func(r PostgresRepo) error { return r.Delete(context.Background(), "id") },
		},
		{
			name:    "update status",
			pattern: `UPDATE renders SET status = \$1, err_msg`,
			call: func(r PostgresRepo) error {
				return r.UpdateStatus(context.Background(), "id", model.StatusFailed, model.StringSlice{"boom"})
			},
		},
		{
			name:    "save result",
			pattern: `UPDATE renders SET status = \$1, result_key`,
			call: func(r PostgresRepo) error {
				return r.SaveResult(context.Background(), "id", model.StatusDone, "results/id.png")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name+" ok", func(t *testing.T) {
			repo, mock := newRepoWithMock(t)
			mock.ExpectExec(tt.pattern).WillReturnResult(sqlmock.NewResult(0, 1))
			require.NoError(t, tt.call(repo))
			require.NoError(t, mock.ExpectationsWereMet())
		})
		t.Run(tt.name+" not found", func(t *testing.T) {
			repo, mock := newRepoWithMock(t)
			mock.ExpectExec(tt.pattern).WillReturnResult(sqlmock.NewResult(0, 0))
			require.ErrorIs(t, tt.call(repo), model.ErrRenderNotFound)
		})
		t.Run(tt.name+" db error", func(t *testing.T) {
			repo, mock := newRepoWithMock(t)
			dbErr := errors.New("db down")
			mock.ExpectExec(tt.pattern).WillReturnError(dbErr)
			require.ErrorIs(t, tt.call(repo), dbErr)
		})
	}
}

// FETCH ORPHANS
func TestPostgresRepo_FetchOrphans(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	rows := sqlmock.NewRows([]string{"render_uid"}).AddRow("a").AddRow("b")
	mock.ExpectQuery(`SELECT render_uid`).
		WithArgs(model.StatusCreated, model.StatusInProgress, 20).
		WillReturnRows(rows)

	res, err := repo.FetchOrphans(context.Background(), 20)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, res)
}

// DEFAULTS
func TestPostgresRepo_Defaults(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	rec := model.MetadataRecord{Make: "FUJIFILM", FontFamily: "Courier", HiddenRightInfo: true}
	mock.ExpectExec(`INSERT INTO render_defaults`).
		WithArgs("studio", rec).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.SaveDefaults(context.Background(), "studio", rec))

	raw, err := rec.Value()
	require.NoError(t, err)
	mock.ExpectQuery(`SELECT params FROM render_defaults`).
		WithArgs("studio").
		WillReturnRows(sqlmock.NewRows([]string{"params"}).AddRow(raw))

	got, err := repo.GetDefaults(context.Background(), "studio")
	require.NoError(t, err)
	require.Equal(t, rec, *got)

	mock.ExpectQuery(`SELECT params FROM render_defaults`).
		WithArgs("nobody").
		WillReturnError(sql.ErrNoRows)
	_, err = repo.GetDefaults(context.Background(), "nobody")
	require.ErrorIs(t, err, model.ErrDefaultsNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}
