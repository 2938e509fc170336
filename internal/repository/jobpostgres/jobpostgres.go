// Package jobpostgres keeps job records in the PostgreSQL "jobs" table
package jobpostgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/UnendingLoop/DocMint/internal/model"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/zlog"
)

type PostgresRepo struct {
	DB *dbpg.DB
}

func (p PostgresRepo) Create(ctx context.Context, j *model.Job) error {
	query := `INSERT INTO jobs (job_uid, tool, params, source_keys, source_names, result_key, result_name, status, notes, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := p.DB.ExecContext(ctx, query, j.UID, j.Tool, j.Params, j.SourceKeys, j.SourceNames, j.ResultKey, j.ResultName, j.Status, j.Notes, j.CreatedAt, j.CreatedAt)
	return err
}

func (p PostgresRepo) Get(ctx context.Context, id string) (*model.Job, error) {
	query := `SELECT job_uid, tool, params, source_keys, source_names, result_key, result_name, status, notes, created_at, updated_at
	FROM jobs
	WHERE job_uid = $1`
	var job model.Job

	err := p.DB.QueryRowContext(ctx, query, id).Scan(&job.UID,
		&job.Tool,
		&job.Params,
		&job.SourceKeys,
		&job.SourceNames,
		&job.ResultKey,
		&job.ResultName,
		&job.Status,
		&job.Notes,
		&job.CreatedAt,
		&job.UpdatedAt)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, model.ErrJobNotFound
		default:
			return nil, err // 500
		}
	}
	return &job, nil
}

// GetList expects req already normalized: Sort and Order are interpolated into the query.
func (p PostgresRepo) GetList(ctx context.Context, req *model.ListRequest) ([]model.Job, error) {
	query := fmt.Sprintf(`SELECT job_uid, tool, params, source_names, result_name, status, notes, created_at, updated_at
	FROM jobs
	ORDER BY %s %s
	LIMIT $1
	OFFSET $2`, req.Sort, req.Order)

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

	jobs := make([]model.Job, 0, req.Limit)
	for rows.Next() {
		var job model.Job
		if err := rows.Scan(&job.UID,
			&job.Tool,
			&job.Params,
			&job.SourceNames,
			&job.ResultName,
			&job.Status,
			&job.Notes,
			&job.CreatedAt,
			&job.UpdatedAt); err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return jobs, nil
}

func (p PostgresRepo) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM jobs
	WHERE job_uid = $1`

	res, err := p.DB.ExecContext(ctx, query, id)
	if err != nil {
		return err // 500
	}
	return expectOneRow(res)
}

func (p PostgresRepo) UpdateStatus(ctx context.Context, id string, newStat model.Status) error {
	query := `UPDATE jobs SET status = $1, updated_at = now() WHERE job_uid = $2`

	res, err := p.DB.ExecContext(ctx, query, newStat, id)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

// SaveResult stores the final state of a job: status, result location and notes.
func (p PostgresRepo) SaveResult(ctx context.Context, j *model.Job) error {
	query := `UPDATE jobs SET status = $1, updated_at = $2, result_key = $3, result_name = $4, notes = $5 WHERE job_uid = $6`

	res, err := p.DB.ExecContext(ctx, query, j.Status, j.UpdatedAt, j.ResultKey, j.ResultName, j.Notes, j.UID)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

// FetchOrphans returns jobs stuck in created/in_progress for longer than 10 minutes.
func (p PostgresRepo) FetchOrphans(ctx context.Context, limit int) ([]string, error) {
	query := `SELECT job_uid
	FROM jobs
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

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrJobNotFound // 404
	}
	return nil
}
