package itemrepo

import (
	"context"
	"database/sql"

	"shareit/model"
)

type Repo interface {
	Insert(ctx context.Context, it *model.Item) (int64, error)
	Update(ctx context.Context, it *model.Item) error
	ByID(ctx context.Context, id int64) (*model.Item, error)
	ListByOwner(ctx context.Context, ownerID int64, from, size int) ([]model.Item, error)
	Search(ctx context.Context, text string, from, size int) ([]model.Item, error)
	ListByRequests(ctx context.Context, requestIDs []int64) ([]model.Item, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db: db} }

const itemColumns = `id, owner_id, name, description, available, request_id`

func (r *repo) Insert(ctx context.Context, it *model.Item) (int64, error) {
	const q = `
		INSERT INTO items (owner_id, name, description, available, request_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	var id int64
	err := r.db.QueryRowContext(ctx, q, it.OwnerID, it.Name, it.Description, it.Available, it.RequestID).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repo) Update(ctx context.Context, it *model.Item) error {
	const q = `
		UPDATE items
		SET name = $2,
			description = $3,
			available = $4
		WHERE id = $1`
	_, err := r.db.ExecContext(ctx, q, it.ID, it.Name, it.Description, it.Available)
	return err
}

func (r *repo) ByID(ctx context.Context, id int64) (*model.Item, error) {
	const q = `SELECT ` + itemColumns + ` FROM items WHERE id = $1`
	var it model.Item
	err := r.db.QueryRowContext(ctx, q, id).
		Scan(&it.ID, &it.OwnerID, &it.Name, &it.Description, &it.Available, &it.RequestID)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func (r *repo) ListByOwner(ctx context.Context, ownerID int64, from, size int) ([]model.Item, error) {
	const q = `
		SELECT ` + itemColumns + `
		FROM items
		WHERE owner_id = $1
		ORDER BY id
		OFFSET $2 LIMIT $3`
	return r.list(ctx, q, ownerID, from, size)
}

func (r *repo) Search(ctx context.Context, text string, from, size int) ([]model.Item, error) {
	// Search only covers bookable items, matching name or description.
	const q = `
		SELECT ` + itemColumns + `
		FROM items
		WHERE available
		AND (name ILIKE '%' || $1 || '%' OR description ILIKE '%' || $1 || '%')
		ORDER BY id
		OFFSET $2 LIMIT $3`
	return r.list(ctx, q, text, from, size)
}

func (r *repo) ListByRequests(ctx context.Context, requestIDs []int64) ([]model.Item, error) {
	const q = `
		SELECT ` + itemColumns + `
		FROM items
		WHERE request_id = ANY($1)
		ORDER BY id`
	return r.list(ctx, q, requestIDs)
}

func (r *repo) list(ctx context.Context, q string, args ...any) ([]model.Item, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Item
	for rows.Next() {
		var it model.Item
		if err := rows.Scan(&it.ID, &it.OwnerID, &it.Name, &it.Description, &it.Available, &it.RequestID); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
