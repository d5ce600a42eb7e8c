package bookingrepo

import (
	"context"
	"database/sql"

	"shareit/model"
)

// Tx is the transaction handle the service drives the Decide read-modify-write
// through. *sql.Tx satisfies it; tests substitute a stub.
type Tx interface {
	Commit() error
	Rollback() error
}

type Repo interface {
	Insert(ctx context.Context, b *model.Booking) (int64, error)
	GetView(ctx context.Context, id int64) (*model.BookingView, error)

	Begin(ctx context.Context) (Tx, error)
	// GetViewForUpdate locks the booking row until tx ends, so two concurrent
	// decisions cannot both pass the already-decided check.
	GetViewForUpdate(ctx context.Context, tx Tx, id int64) (*model.BookingView, error)
	SetStatus(ctx context.Context, tx Tx, id int64, status model.BookingStatus) error

	ListByBooker(ctx context.Context, bookerID int64) ([]model.BookingView, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]model.BookingView, error)
	ListApprovedByItems(ctx context.Context, itemIDs []int64) ([]model.Booking, error)
	ListApprovedByBookerAndItem(ctx context.Context, bookerID, itemID int64) ([]model.Booking, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db: db} }

func (r *repo) Insert(ctx context.Context, b *model.Booking) (int64, error) {
	const q = `
		INSERT INTO bookings (item_id, booker_id, start_ts, end_ts, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	var id int64
	if err := r.db.QueryRowContext(ctx, q, b.ItemID, b.BookerID, b.Start, b.End, b.Status).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

const viewColumns = `
		b.id, b.item_id, b.booker_id, b.start_ts, b.end_ts, b.status,
		i.name, i.owner_id`

func scanView(row interface{ Scan(...any) error }) (*model.BookingView, error) {
	var v model.BookingView
	err := row.Scan(&v.ID, &v.ItemID, &v.BookerID, &v.Start, &v.End, &v.Status,
		&v.ItemName, &v.ItemOwnerID)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *repo) GetView(ctx context.Context, id int64) (*model.BookingView, error) {
	const q = `
		SELECT` + viewColumns + `
		FROM bookings b
		JOIN items i ON i.id = b.item_id
		WHERE b.id = $1`
	return scanView(r.db.QueryRowContext(ctx, q, id))
}

func (r *repo) Begin(ctx context.Context) (Tx, error) {
	return r.db.BeginTx(ctx, nil)
}

func (r *repo) GetViewForUpdate(ctx context.Context, tx Tx, id int64) (*model.BookingView, error) {
	const q = `
		SELECT` + viewColumns + `
		FROM bookings b
		JOIN items i ON i.id = b.item_id
		WHERE b.id = $1
		FOR UPDATE OF b`
	return scanView(tx.(*sql.Tx).QueryRowContext(ctx, q, id))
}

func (r *repo) SetStatus(ctx context.Context, tx Tx, id int64, status model.BookingStatus) error {
	const q = `
		UPDATE bookings
		SET status = $2
		WHERE id = $1`
	_, err := tx.(*sql.Tx).ExecContext(ctx, q, id, status)
	return err
}

func (r *repo) ListByBooker(ctx context.Context, bookerID int64) ([]model.BookingView, error) {
	const q = `
		SELECT` + viewColumns + `
		FROM bookings b
		JOIN items i ON i.id = b.item_id
		WHERE b.booker_id = $1
		ORDER BY b.start_ts DESC, b.id DESC`
	return r.listViews(ctx, q, bookerID)
}

func (r *repo) ListByOwner(ctx context.Context, ownerID int64) ([]model.BookingView, error) {
	const q = `
		SELECT` + viewColumns + `
		FROM bookings b
		JOIN items i ON i.id = b.item_id
		WHERE i.owner_id = $1
		ORDER BY b.start_ts DESC, b.id DESC`
	return r.listViews(ctx, q, ownerID)
}

func (r *repo) listViews(ctx context.Context, q string, arg any) ([]model.BookingView, error) {
	rows, err := r.db.QueryContext(ctx, q, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.BookingView
	for rows.Next() {
		v, err := scanView(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

func (r *repo) ListApprovedByItems(ctx context.Context, itemIDs []int64) ([]model.Booking, error) {
	const q = `
		SELECT id, item_id, booker_id, start_ts, end_ts, status
		FROM bookings
		WHERE item_id = ANY($1)
		AND status = 'APPROVED'`
	return r.listBookings(ctx, q, itemIDs)
}

func (r *repo) ListApprovedByBookerAndItem(ctx context.Context, bookerID, itemID int64) ([]model.Booking, error) {
	const q = `
		SELECT id, item_id, booker_id, start_ts, end_ts, status
		FROM bookings
		WHERE booker_id = $1
		AND item_id = $2
		AND status = 'APPROVED'`
	return r.listBookings(ctx, q, bookerID, itemID)
}

func (r *repo) listBookings(ctx context.Context, q string, args ...any) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Booking
	for rows.Next() {
		var b model.Booking
		if err := rows.Scan(&b.ID, &b.ItemID, &b.BookerID, &b.Start, &b.End, &b.Status); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
