package commentrepo

import (
	"context"
	"database/sql"

	"shareit/model"
)

type Repo interface {
	Insert(ctx context.Context, c *model.Comment) error
	ListByItem(ctx context.Context, itemID int64) ([]model.Comment, error)
	ListByItems(ctx context.Context, itemIDs []int64) ([]model.Comment, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db: db} }

func (r *repo) Insert(ctx context.Context, c *model.Comment) error {
	const q = `
		INSERT INTO comments (item_id, author_id, text)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`
	return r.db.QueryRowContext(ctx, q, c.ItemID, c.AuthorID, c.Text).
		Scan(&c.ID, &c.Created)
}

const commentQuery = `
		SELECT c.id, c.item_id, c.author_id, u.name, c.text, c.created_at
		FROM comments c
		JOIN users u ON u.id = c.author_id`

func (r *repo) ListByItem(ctx context.Context, itemID int64) ([]model.Comment, error) {
	return r.list(ctx, commentQuery+`
		WHERE c.item_id = $1
		ORDER BY c.created_at`, itemID)
}

func (r *repo) ListByItems(ctx context.Context, itemIDs []int64) ([]model.Comment, error) {
	return r.list(ctx, commentQuery+`
		WHERE c.item_id = ANY($1)
		ORDER BY c.created_at`, itemIDs)
}

func (r *repo) list(ctx context.Context, q string, arg any) ([]model.Comment, error) {
	rows, err := r.db.QueryContext(ctx, q, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Comment
	for rows.Next() {
		var c model.Comment
		if err := rows.Scan(&c.ID, &c.ItemID, &c.AuthorID, &c.AuthorName, &c.Text, &c.Created); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
