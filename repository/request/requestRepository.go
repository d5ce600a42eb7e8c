package requestrepo

import (
	"context"
	"database/sql"

	"shareit/model"
)

type Repo interface {
	Insert(ctx context.Context, req *model.ItemRequest) error
	ByID(ctx context.Context, id int64) (*model.ItemRequest, error)
	ListByRequester(ctx context.Context, requesterID int64) ([]model.ItemRequest, error)
	// ListOthers returns other users' requests, newest first, paginated.
	ListOthers(ctx context.Context, requesterID int64, from, size int) ([]model.ItemRequest, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db: db} }

func (r *repo) Insert(ctx context.Context, req *model.ItemRequest) error {
	const q = `
		INSERT INTO item_requests (requester_id, description)
		VALUES ($1, $2)
		RETURNING id, created_at`
	return r.db.QueryRowContext(ctx, q, req.RequesterID, req.Description).
		Scan(&req.ID, &req.Created)
}

func (r *repo) ByID(ctx context.Context, id int64) (*model.ItemRequest, error) {
	const q = `
		SELECT id, requester_id, description, created_at
		FROM item_requests
		WHERE id = $1`
	var req model.ItemRequest
	err := r.db.QueryRowContext(ctx, q, id).
		Scan(&req.ID, &req.RequesterID, &req.Description, &req.Created)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *repo) ListByRequester(ctx context.Context, requesterID int64) ([]model.ItemRequest, error) {
	const q = `
		SELECT id, requester_id, description, created_at
		FROM item_requests
		WHERE requester_id = $1
		ORDER BY created_at DESC`
	return r.list(ctx, q, requesterID)
}

func (r *repo) ListOthers(ctx context.Context, requesterID int64, from, size int) ([]model.ItemRequest, error) {
	const q = `
		SELECT id, requester_id, description, created_at
		FROM item_requests
		WHERE requester_id <> $1
		ORDER BY created_at DESC
		OFFSET $2 LIMIT $3`
	return r.list(ctx, q, requesterID, from, size)
}

func (r *repo) list(ctx context.Context, q string, args ...any) ([]model.ItemRequest, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ItemRequest
	for rows.Next() {
		var req model.ItemRequest
		if err := rows.Scan(&req.ID, &req.RequesterID, &req.Description, &req.Created); err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}
