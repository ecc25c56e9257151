// Package renderpg keeps render jobs and saved default parameters in Postgres
package renderpg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/UnendingLoop/ExifFrame/internal/model"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/zlog"
)

type PostgresRepo struct {
	DB *dbpg.DB
}

var sortColumns = map[string]string{
	model.ByUUID:    "render_uid",
	model.ByCreated: "created_at",
}

var orderKeywords = map[string]string{
	model.OrderASC:  "ASC",
	model.OrderDESC: "DESC",
}

func (p PostgresRepo) Create(ctx context.Context, r *model.RenderJob) error {
	query := `INSERT INTO renders (render_uid, source_key, result_key, variant, metadata, multiplier, status, err_msg, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := p.DB.Master.ExecContext(ctx, query, r.UID, r.SourceKey, r.ResultKey, r.Variant, r.Metadata, r.Multiplier, r.Status, r.ErrMsg, r.CreatedAt, r.CreatedAt)
	return err
}

func (p PostgresRepo) Get(ctx context.Context, id string) (*model.RenderJob, error) {
	query := `SELECT render_uid, source_key, result_key, variant, metadata, multiplier, status, err_msg, created_at, updated_at
	FROM renders
	WHERE render_uid = $1`
	var job model.RenderJob
	var resultKey sql.NullString
	var mult sql.NullFloat64

	err := p.DB.QueryRowContext(ctx, query, id).Scan(&job.UID,
		&job.SourceKey,
		&resultKey,
		&job.Variant,
		&job.Metadata,
		&mult,
		&job.Status,
		&job.ErrMsg,
		&job.CreatedAt,
		&job.UpdatedAt)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, model.ErrRenderNotFound
		default:
			return nil, err // 500
		}
	}
	job.ResultKey = resultKey.String
	if mult.Valid {
		job.Multiplier = &mult.Float64
	}
	return &job, nil
}

func (p PostgresRepo) GetList(ctx context.Context, req *model.ListRequest) ([]model.RenderJob, error) {
	column, ok := sortColumns[req.Sort]
	if !ok {
		return nil, fmt.Errorf("%w: sort %q", model.ErrIncorrectQuery, req.Sort)
	}
	order, ok := orderKeywords[req.Order]
	if !ok {
		return nil, fmt.Errorf("%w: order %q", model.ErrIncorrectQuery, req.Order)
	}

	query := fmt.Sprintf(`SELECT render_uid, variant, metadata, multiplier, status, err_msg, created_at, updated_at
	FROM renders
	ORDER BY %s %s
	LIMIT $1
	OFFSET $2`, column, order)

	offset := (req.Page - 1) * req.Limit

	rows, err := p.DB.QueryContext(ctx, query, req.Limit, offset)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err := rows.Close(); err != nil {
			zlog.Logger.Error().Err(err).Msg("Error while closing *sql.Rows after scanning")
		}
	}()

	jobs := make([]model.RenderJob, 0, req.Limit)
	for rows.Next() {
		var job model.RenderJob
		var mult sql.NullFloat64
		if err := rows.Scan(&job.UID,
			&job.Variant,
			&job.Metadata,
			&mult,
			&job.Status,
			&job.ErrMsg,
			&job.CreatedAt,
			&job.UpdatedAt); err != nil {
			return nil, err
		}
		if mult.Valid {
			v := mult.Float64
			job.Multiplier = &v
		}
		jobs = append(jobs, job)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return jobs, nil
}

func (p PostgresRepo) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM renders
	WHERE render_uid = $1`
	return p.execOne(ctx, query, id)
}

func (p PostgresRepo) UpdateStatus(ctx context.Context, id string, newStat model.Status, errMsg model.StringSlice) error {
	query := `UPDATE renders SET status = $1, err_msg = $2, updated_at = now() WHERE render_uid = $3`
	return p.execOne(ctx, query, newStat, errMsg, id)
}

func (p PostgresRepo) SaveResult(ctx context.Context, id string, status model.Status, resKey string) error {
	query := `UPDATE renders SET status = $1, result_key = $2, updated_at = now() WHERE render_uid = $3`
	return p.execOne(ctx, query, status, resKey, id)
}

func (p PostgresRepo) execOne(ctx context.Context, query string, args ...any) error {
	res, err := p.DB.Master.ExecContext(ctx, query, args...)
	if err != nil {
		return err // 500
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrRenderNotFound // 404
	}
	return nil
}

func (p PostgresRepo) FetchOrphans(ctx context.Context, limit int) ([]string, error) {
	query := `SELECT render_uid
	FROM renders
	WHERE status IN ($1, $2)
	AND updated_at < now() - interval '10 minutes'
	LIMIT $3`

	rows, err := p.DB.QueryContext(ctx, query, model.StatusCreated, model.StatusInProgress, limit)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err := rows.Close(); err != nil {
			zlog.Logger.Error().Err(err).Msg("Error while closing *sql.Rows after scanning")
		}
	}()

	orphans := make([]string, 0, limit)
	for rows.Next() {
		uid := ""
		if err := rows.Scan(&uid); err != nil {
			return nil, err
		}
		orphans = append(orphans, uid)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return orphans, nil
}

func (p PostgresRepo) GetDefaults(ctx context.Context, profile string) (*model.MetadataRecord, error) {
	query := `SELECT params FROM render_defaults WHERE profile = $1`
	var rec model.MetadataRecord

	if err := p.DB.QueryRowContext(ctx, query, profile).Scan(&rec); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, model.ErrDefaultsNotFound
		default:
			return nil, err
		}
	}
	return &rec, nil
}

func (p PostgresRepo) SaveDefaults(ctx context.Context, profile string, rec model.MetadataRecord) error {
	query := `INSERT INTO render_defaults (profile, params, updated_at)
	VALUES ($1, $2, now())
	ON CONFLICT (profile) DO UPDATE SET params = EXCLUDED.params, updated_at = now()`
	_, err := p.DB.Master.ExecContext(ctx, query, profile, rec)
	return err
}
