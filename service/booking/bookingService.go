package bookingsvc

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"shareit/model"
	bookingrepo "shareit/repository/booking"
	eventsrepo "shareit/repository/events"
	"shareit/util/clock"
)

// errors used by controllers

type ErrCode string

const (
	ErrNotFound         ErrCode = "NOT_FOUND"
	ErrForbidden        ErrCode = "FORBIDDEN"
	ErrInvalidRange     ErrCode = "INVALID_RANGE"
	ErrUnavailable      ErrCode = "UNAVAILABLE"
	ErrSelfBooking      ErrCode = "SELF_BOOKING"
	ErrAlreadyDecided   ErrCode = "ALREADY_DECIDED"
	ErrUnsupportedState ErrCode = "UNSUPPORTED_STATE"
)

type codedError struct{ code ErrCode }

func (e codedError) Error() string { return string(e.code) }
func (e codedError) Code() ErrCode { return e.code }
func makeErr(c ErrCode) error      { return codedError{code: c} }

// Code extracts error code
func Code(err error) ErrCode {
	var ce interface{ Code() ErrCode }
	if errors.As(err, &ce) {
		return ce.Code()
	}
	return ""
}

// Role selects whose bookings a query covers: the requesting user as booker,
// or the requesting user as owner of the booked items.
type Role string

const (
	RoleBooker Role = "booker"
	RoleOwner  Role = "owner"
)

// State is a booking filter value. Exactly six values are recognized,
// case-sensitive; anything else is ErrUnsupportedState.
type State string

const (
	StateAll      State = "ALL"
	StateCurrent  State = "CURRENT"
	StatePast     State = "PAST"
	StateFuture   State = "FUTURE"
	StateWaiting  State = "WAITING"
	StateRejected State = "REJECTED"
)

type Page struct {
	From int
	Size int
}

// Aggregate carries one item's last ended and next upcoming approved booking.
type Aggregate struct {
	Last *model.BookingRef
	Next *model.BookingRef
}

// collaborator lookups

type UserRepo interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

type ItemRepo interface {
	ByID(ctx context.Context, id int64) (*model.Item, error)
}

type Service interface {
	// Create validates and persists a new booking in WAITING.
	Create(ctx context.Context, userID int64, req model.CreateBookingReq) (*model.BookingView, error)

	// Decide applies the owner's approval or rejection. A WAITING booking may
	// move to either terminal state, and the two terminal states remain
	// mutually reachable; only re-asserting the current terminal state fails.
	Decide(ctx context.Context, userID, bookingID int64, approve bool) (*model.BookingView, error)

	// FindByID returns a booking to its booker or the item's owner; anyone
	// else gets ErrNotFound so existence is not leaked.
	FindByID(ctx context.Context, userID, bookingID int64) (*model.BookingView, error)

	// Query returns the user's bookings in the given state, start descending,
	// paginated. "now" is captured once and used for every predicate.
	Query(ctx context.Context, userID int64, role Role, state State, page Page) ([]model.BookingView, error)

	LastBooking(ctx context.Context, itemID int64) (*model.BookingRef, error)
	NextBooking(ctx context.Context, itemID int64) (*model.BookingRef, error)
	BatchAggregate(ctx context.Context, itemIDs []int64) (map[int64]Aggregate, error)

	// CanComment reports whether the user has a completed approved stay on the
	// item, the sole gate on leaving feedback.
	CanComment(ctx context.Context, userID, itemID int64) (bool, error)
}

type service struct {
	r     bookingrepo.Repo
	users UserRepo
	items ItemRepo
	clk   clock.Clock
	pub   eventsrepo.Publisher
}

func New(r bookingrepo.Repo, users UserRepo, items ItemRepo, clk clock.Clock, pub eventsrepo.Publisher) Service {
	return &service{r: r, users: users, items: items, clk: clk, pub: pub}
}

func (s *service) Create(ctx context.Context, userID int64, req model.CreateBookingReq) (*model.BookingView, error) {
	item, err := s.items.ByID(ctx, req.ItemID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrNotFound)
		}
		return nil, err
	}
	if !item.Available {
		return nil, makeErr(ErrUnavailable)
	}

	ok, err := s.users.Exists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, makeErr(ErrNotFound)
	}
	if userID == item.OwnerID {
		return nil, makeErr(ErrSelfBooking)
	}
	if !req.End.After(req.Start) {
		return nil, makeErr(ErrInvalidRange)
	}

	b := model.Booking{
		ItemID:   item.ID,
		BookerID: userID,
		Start:    req.Start,
		End:      req.End,
		Status:   model.StatusWaiting,
	}
	id, err := s.r.Insert(ctx, &b)
	if err != nil {
		return nil, err
	}
	b.ID = id
	s.pub.BookingCreated(ctx, b)

	return &model.BookingView{
		Booking:     b,
		ItemName:    item.Name,
		ItemOwnerID: item.OwnerID,
	}, nil
}

func (s *service) Decide(ctx context.Context, userID, bookingID int64, approve bool) (_ *model.BookingView, err error) {
	ok, err := s.users.Exists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, makeErr(ErrNotFound)
	}

	tx, err := s.r.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	v, err := s.r.GetViewForUpdate(ctx, tx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrNotFound)
		}
		return nil, err
	}
	if userID != v.ItemOwnerID {
		return nil, makeErr(ErrForbidden)
	}

	next := model.StatusRejected
	if approve {
		next = model.StatusApproved
	}
	if v.Status == next {
		return nil, makeErr(ErrAlreadyDecided)
	}

	if err = s.r.SetStatus(ctx, tx, bookingID, next); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}

	v.Status = next
	s.pub.BookingDecided(ctx, v.Booking)
	return v, nil
}

func (s *service) FindByID(ctx context.Context, userID, bookingID int64) (*model.BookingView, error) {
	ok, err := s.users.Exists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, makeErr(ErrNotFound)
	}

	v, err := s.r.GetView(ctx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrNotFound)
		}
		return nil, err
	}
	if userID != v.BookerID && userID != v.ItemOwnerID {
		return nil, makeErr(ErrNotFound)
	}
	return v, nil
}

func (s *service) Query(ctx context.Context, userID int64, role Role, state State, page Page) ([]model.BookingView, error) {
	ok, err := s.users.Exists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, makeErr(ErrNotFound)
	}

	if !state.valid() {
		return nil, makeErr(ErrUnsupportedState)
	}

	var rows []model.BookingView
	switch role {
	case RoleOwner:
		rows, err = s.r.ListByOwner(ctx, userID)
	default:
		rows, err = s.r.ListByBooker(ctx, userID)
	}
	if err != nil {
		return nil, err
	}

	now := s.clk.Now()
	matched := make([]model.BookingView, 0, len(rows))
	for _, b := range rows {
		if matchesState(b.Booking, state, now) {
			matched = append(matched, b)
		}
	}
	return paginate(matched, page), nil
}

func (st State) valid() bool {
	switch st {
	case StateAll, StateCurrent, StatePast, StateFuture, StateWaiting, StateRejected:
		return true
	}
	return false
}

// matchesState classifies one booking against a filter value at instant now.
// With start strictly before end, CURRENT, PAST and FUTURE partition every
// booking: exactly one of them holds.
func matchesState(b model.Booking, state State, now time.Time) bool {
	switch state {
	case StateCurrent:
		return !b.Start.After(now) && !b.End.Before(now)
	case StatePast:
		return b.End.Before(now)
	case StateFuture:
		return b.Start.After(now)
	case StateWaiting:
		return b.Status == model.StatusWaiting
	case StateRejected:
		return b.Status == model.StatusRejected
	default:
		// StateAll
		return true
	}
}

func paginate(rows []model.BookingView, page Page) []model.BookingView {
	from, size := page.From, page.Size
	if from < 0 {
		from = 0
	}
	if size <= 0 {
		size = 10
	}
	if from >= len(rows) {
		return []model.BookingView{}
	}
	end := from + size
	if end > len(rows) {
		end = len(rows)
	}
	return rows[from:end]
}

func (s *service) LastBooking(ctx context.Context, itemID int64) (*model.BookingRef, error) {
	agg, err := s.BatchAggregate(ctx, []int64{itemID})
	if err != nil {
		return nil, err
	}
	return agg[itemID].Last, nil
}

func (s *service) NextBooking(ctx context.Context, itemID int64) (*model.BookingRef, error) {
	agg, err := s.BatchAggregate(ctx, []int64{itemID})
	if err != nil {
		return nil, err
	}
	return agg[itemID].Next, nil
}

// BatchAggregate fetches the approved bookings of every item in one query and
// selects last/next per item. The single-item methods run through the same
// selection, so batching never changes the answer.
func (s *service) BatchAggregate(ctx context.Context, itemIDs []int64) (map[int64]Aggregate, error) {
	out := make(map[int64]Aggregate, len(itemIDs))
	if len(itemIDs) == 0 {
		return out, nil
	}
	rows, err := s.r.ListApprovedByItems(ctx, itemIDs)
	if err != nil {
		return nil, err
	}

	now := s.clk.Now()
	for _, b := range rows {
		agg := out[b.ItemID]
		switch {
		case b.Start.Before(now):
			// last = started booking with the latest end
			if agg.Last == nil || b.End.After(agg.Last.End) {
				agg.Last = ref(b)
			}
		case b.Start.After(now):
			// next = upcoming booking with the earliest start
			if agg.Next == nil || b.Start.Before(agg.Next.Start) {
				agg.Next = ref(b)
			}
		}
		out[b.ItemID] = agg
	}
	return out, nil
}

func (s *service) CanComment(ctx context.Context, userID, itemID int64) (bool, error) {
	rows, err := s.r.ListApprovedByBookerAndItem(ctx, userID, itemID)
	if err != nil {
		return false, err
	}
	now := s.clk.Now()
	for _, b := range rows {
		if b.End.Before(now) {
			return true, nil
		}
	}
	return false, nil
}

func ref(b model.Booking) *model.BookingRef {
	return &model.BookingRef{ID: b.ID, BookerID: b.BookerID, Start: b.Start, End: b.End}
}
