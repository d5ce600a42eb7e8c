package bookingsvc_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"shareit/model"
	bookingrepo "shareit/repository/booking"
	bookingsvc "shareit/service/booking"
	"shareit/util/clock"
)

// T is the fixed "now" every test classifies against.
var T = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func at(h int) time.Time { return T.Add(time.Duration(h) * time.Hour) }

type stubTx struct{}

func (stubTx) Commit() error   { return nil }
func (stubTx) Rollback() error { return nil }

type repoMock struct {
	insertFn           func(ctx context.Context, b *model.Booking) (int64, error)
	getViewFn          func(ctx context.Context, id int64) (*model.BookingView, error)
	getViewForUpdateFn func(ctx context.Context, tx bookingrepo.Tx, id int64) (*model.BookingView, error)
	setStatusFn        func(ctx context.Context, tx bookingrepo.Tx, id int64, status model.BookingStatus) error
	byBooker           []model.BookingView
	byOwner            []model.BookingView
	approvedByItems    []model.Booking
	approvedByBooker   []model.Booking
}

var _ bookingrepo.Repo = (*repoMock)(nil)

func (m *repoMock) Insert(ctx context.Context, b *model.Booking) (int64, error) {
	if m.insertFn == nil {
		return 1, nil
	}
	return m.insertFn(ctx, b)
}

func (m *repoMock) GetView(ctx context.Context, id int64) (*model.BookingView, error) {
	if m.getViewFn == nil {
		return nil, sql.ErrNoRows
	}
	return m.getViewFn(ctx, id)
}

func (m *repoMock) Begin(context.Context) (bookingrepo.Tx, error) { return stubTx{}, nil }

func (m *repoMock) GetViewForUpdate(ctx context.Context, tx bookingrepo.Tx, id int64) (*model.BookingView, error) {
	if m.getViewForUpdateFn == nil {
		return nil, sql.ErrNoRows
	}
	return m.getViewForUpdateFn(ctx, tx, id)
}

func (m *repoMock) SetStatus(ctx context.Context, tx bookingrepo.Tx, id int64, status model.BookingStatus) error {
	if m.setStatusFn == nil {
		return nil
	}
	return m.setStatusFn(ctx, tx, id, status)
}

func (m *repoMock) ListByBooker(context.Context, int64) ([]model.BookingView, error) {
	return m.byBooker, nil
}

func (m *repoMock) ListByOwner(context.Context, int64) ([]model.BookingView, error) {
	return m.byOwner, nil
}

func (m *repoMock) ListApprovedByItems(_ context.Context, itemIDs []int64) ([]model.Booking, error) {
	wanted := make(map[int64]bool, len(itemIDs))
	for _, id := range itemIDs {
		wanted[id] = true
	}
	var out []model.Booking
	for _, b := range m.approvedByItems {
		if wanted[b.ItemID] {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *repoMock) ListApprovedByBookerAndItem(context.Context, int64, int64) ([]model.Booking, error) {
	return m.approvedByBooker, nil
}

type usersMock map[int64]bool

func (m usersMock) Exists(_ context.Context, id int64) (bool, error) { return m[id], nil }

type itemsMock map[int64]*model.Item

func (m itemsMock) ByID(_ context.Context, id int64) (*model.Item, error) {
	if it, ok := m[id]; ok {
		return it, nil
	}
	return nil, sql.ErrNoRows
}

type pubRecorder struct {
	created []model.Booking
	decided []model.Booking
}

func (p *pubRecorder) BookingCreated(_ context.Context, b model.Booking) {
	p.created = append(p.created, b)
}

func (p *pubRecorder) BookingDecided(_ context.Context, b model.Booking) {
	p.decided = append(p.decided, b)
}

const (
	ownerID  = int64(1)
	bookerID = int64(2)
	itemID   = int64(10)
)

func newService(r *repoMock, pub *pubRecorder) bookingsvc.Service {
	users := usersMock{ownerID: true, bookerID: true}
	items := itemsMock{itemID: {ID: itemID, OwnerID: ownerID, Name: "drill", Available: true}}
	return bookingsvc.New(r, users, items, clock.Fixed(T), pub)
}

func TestCreate_Failures(t *testing.T) {
	ctx := context.Background()
	inserted := false
	r := &repoMock{insertFn: func(context.Context, *model.Booking) (int64, error) {
		inserted = true
		return 1, nil
	}}
	users := usersMock{ownerID: true, bookerID: true}
	items := itemsMock{
		itemID: {ID: itemID, OwnerID: ownerID, Name: "drill", Available: true},
		11:     {ID: 11, OwnerID: ownerID, Name: "saw", Available: false},
	}
	s := bookingsvc.New(r, users, items, clock.Fixed(T), &pubRecorder{})

	cases := []struct {
		name   string
		userID int64
		req    model.CreateBookingReq
		want   bookingsvc.ErrCode
	}{
		{"unknown item", bookerID, model.CreateBookingReq{ItemID: 99, Start: at(1), End: at(2)}, bookingsvc.ErrNotFound},
		{"unavailable item", bookerID, model.CreateBookingReq{ItemID: 11, Start: at(1), End: at(2)}, bookingsvc.ErrUnavailable},
		{"unknown user", 99, model.CreateBookingReq{ItemID: itemID, Start: at(1), End: at(2)}, bookingsvc.ErrNotFound},
		{"owner books own item", ownerID, model.CreateBookingReq{ItemID: itemID, Start: at(1), End: at(2)}, bookingsvc.ErrSelfBooking},
		{"end before start", bookerID, model.CreateBookingReq{ItemID: itemID, Start: at(2), End: at(1)}, bookingsvc.ErrInvalidRange},
		{"end equals start", bookerID, model.CreateBookingReq{ItemID: itemID, Start: at(1), End: at(1)}, bookingsvc.ErrInvalidRange},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Create(ctx, tc.userID, tc.req)
			require.Equal(t, tc.want, bookingsvc.Code(err))
		})
	}
	require.False(t, inserted, "no failed create may persist a row")
}

func TestCreate_Success(t *testing.T) {
	ctx := context.Background()
	r := &repoMock{insertFn: func(_ context.Context, b *model.Booking) (int64, error) {
		require.Equal(t, model.StatusWaiting, b.Status)
		return 42, nil
	}}
	pub := &pubRecorder{}
	s := newService(r, pub)

	out, err := s.Create(ctx, bookerID, model.CreateBookingReq{ItemID: itemID, Start: at(1), End: at(2)})
	require.NoError(t, err)
	require.Equal(t, int64(42), out.ID)
	require.Equal(t, model.StatusWaiting, out.Status)
	require.Equal(t, "drill", out.ItemName)
	require.Equal(t, ownerID, out.ItemOwnerID)
	require.Len(t, pub.created, 1)
}

func decideMock(status model.BookingStatus) *repoMock {
	return &repoMock{
		getViewForUpdateFn: func(_ context.Context, _ bookingrepo.Tx, id int64) (*model.BookingView, error) {
			if id != 42 {
				return nil, sql.ErrNoRows
			}
			return &model.BookingView{
				Booking:     model.Booking{ID: 42, ItemID: itemID, BookerID: bookerID, Start: at(1), End: at(2), Status: status},
				ItemName:    "drill",
				ItemOwnerID: ownerID,
			}, nil
		},
	}
}

func TestDecide_Transitions(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name    string
		current model.BookingStatus
		approve bool
		want    model.BookingStatus
		wantErr bookingsvc.ErrCode
	}{
		{"waiting approved", model.StatusWaiting, true, model.StatusApproved, ""},
		{"waiting rejected", model.StatusWaiting, false, model.StatusRejected, ""},
		{"approved can still be rejected", model.StatusApproved, false, model.StatusRejected, ""},
		{"rejected can still be approved", model.StatusRejected, true, model.StatusApproved, ""},
		{"approve twice", model.StatusApproved, true, "", bookingsvc.ErrAlreadyDecided},
		{"reject twice", model.StatusRejected, false, "", bookingsvc.ErrAlreadyDecided},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := decideMock(tc.current)
			var stored model.BookingStatus
			r.setStatusFn = func(_ context.Context, _ bookingrepo.Tx, _ int64, st model.BookingStatus) error {
				stored = st
				return nil
			}
			pub := &pubRecorder{}
			s := newService(r, pub)

			out, err := s.Decide(ctx, ownerID, 42, tc.approve)
			if tc.wantErr != "" {
				require.Equal(t, tc.wantErr, bookingsvc.Code(err))
				require.Empty(t, pub.decided)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, out.Status)
			require.Equal(t, tc.want, stored)
			require.Len(t, pub.decided, 1)
		})
	}
}

func TestDecide_Authorization(t *testing.T) {
	ctx := context.Background()
	s := newService(decideMock(model.StatusWaiting), &pubRecorder{})

	_, err := s.Decide(ctx, bookerID, 42, true)
	require.Equal(t, bookingsvc.ErrForbidden, bookingsvc.Code(err))

	_, err = s.Decide(ctx, ownerID, 77, true)
	require.Equal(t, bookingsvc.ErrNotFound, bookingsvc.Code(err))

	_, err = s.Decide(ctx, 99, 42, true)
	require.Equal(t, bookingsvc.ErrNotFound, bookingsvc.Code(err))
}

func TestFindByID_Visibility(t *testing.T) {
	ctx := context.Background()
	r := &repoMock{getViewFn: func(_ context.Context, id int64) (*model.BookingView, error) {
		if id != 42 {
			return nil, sql.ErrNoRows
		}
		return &model.BookingView{
			Booking:     model.Booking{ID: 42, ItemID: itemID, BookerID: bookerID, Status: model.StatusWaiting},
			ItemOwnerID: ownerID,
		}, nil
	}}
	users := usersMock{ownerID: true, bookerID: true, 3: true}
	s := bookingsvc.New(r, users, itemsMock{}, clock.Fixed(T), &pubRecorder{})

	for _, uid := range []int64{bookerID, ownerID} {
		out, err := s.FindByID(ctx, uid, 42)
		require.NoError(t, err)
		require.Equal(t, int64(42), out.ID)
	}

	// a third party must not learn the booking exists
	_, err := s.FindByID(ctx, 3, 42)
	require.Equal(t, bookingsvc.ErrNotFound, bookingsvc.Code(err))
}

// view builds a BookingView owned by ownerID.
func view(id int64, start, end time.Time, status model.BookingStatus) model.BookingView {
	return model.BookingView{
		Booking:     model.Booking{ID: id, ItemID: itemID, BookerID: bookerID, Start: start, End: end, Status: status},
		ItemName:    "drill",
		ItemOwnerID: ownerID,
	}
}

// queryFixture covers every temporal/status category relative to T.
func queryFixture() []model.BookingView {
	return []model.BookingView{
		view(5, at(3), at(4), model.StatusWaiting),   // future, waiting
		view(4, at(1), at(2), model.StatusRejected),  // future, rejected
		view(3, at(-1), at(1), model.StatusApproved), // current
		view(2, at(-1), at(1), model.StatusWaiting),  // current, waiting
		view(1, at(-3), at(-2), model.StatusApproved), // past
	}
}

func ids(rows []model.BookingView) []int64 {
	out := make([]int64, len(rows))
	for i, b := range rows {
		out[i] = b.ID
	}
	return out
}

func TestQuery_States(t *testing.T) {
	ctx := context.Background()
	r := &repoMock{byBooker: queryFixture(), byOwner: queryFixture()}
	s := newService(r, &pubRecorder{})
	page := bookingsvc.Page{From: 0, Size: 10}

	cases := []struct {
		state bookingsvc.State
		want  []int64
	}{
		{bookingsvc.StateAll, []int64{5, 4, 3, 2, 1}},
		{bookingsvc.StateCurrent, []int64{3, 2}},
		{bookingsvc.StatePast, []int64{1}},
		{bookingsvc.StateFuture, []int64{5, 4}},
		{bookingsvc.StateWaiting, []int64{5, 2}},
		{bookingsvc.StateRejected, []int64{4}},
	}
	for _, role := range []bookingsvc.Role{bookingsvc.RoleBooker, bookingsvc.RoleOwner} {
		uid := bookerID
		if role == bookingsvc.RoleOwner {
			uid = ownerID
		}
		for _, tc := range cases {
			rows, err := s.Query(ctx, uid, role, tc.state, page)
			require.NoError(t, err, "state %s", tc.state)
			require.Equal(t, tc.want, ids(rows), "role %s state %s", role, tc.state)
		}
	}
}

func TestQuery_AllIsUnionOfPartitions(t *testing.T) {
	ctx := context.Background()
	r := &repoMock{byBooker: queryFixture()}
	s := newService(r, &pubRecorder{})
	page := bookingsvc.Page{From: 0, Size: 100}

	all, err := s.Query(ctx, bookerID, bookingsvc.RoleBooker, bookingsvc.StateAll, page)
	require.NoError(t, err)

	union := make(map[int64]bool)
	timePartitions := 0
	for _, st := range []bookingsvc.State{
		bookingsvc.StateCurrent, bookingsvc.StatePast, bookingsvc.StateFuture,
		bookingsvc.StateWaiting, bookingsvc.StateRejected,
	} {
		rows, err := s.Query(ctx, bookerID, bookingsvc.RoleBooker, st, page)
		require.NoError(t, err)
		if st == bookingsvc.StateCurrent || st == bookingsvc.StatePast || st == bookingsvc.StateFuture {
			timePartitions += len(rows)
		}
		for _, id := range ids(rows) {
			union[id] = true
		}
	}

	// CURRENT/PAST/FUTURE alone partition the set: no gap, no double count.
	require.Equal(t, len(all), timePartitions)
	require.Len(t, union, len(all))
	for _, id := range ids(all) {
		require.True(t, union[id])
	}
}

func TestQuery_Pagination(t *testing.T) {
	ctx := context.Background()
	r := &repoMock{byBooker: queryFixture()}
	s := newService(r, &pubRecorder{})

	rows, err := s.Query(ctx, bookerID, bookingsvc.RoleBooker, bookingsvc.StateAll, bookingsvc.Page{From: 1, Size: 2})
	require.NoError(t, err)
	require.Equal(t, []int64{4, 3}, ids(rows))

	rows, err = s.Query(ctx, bookerID, bookingsvc.RoleBooker, bookingsvc.StateAll, bookingsvc.Page{From: 10, Size: 2})
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestQuery_Errors(t *testing.T) {
	ctx := context.Background()
	s := newService(&repoMock{}, &pubRecorder{})
	page := bookingsvc.Page{From: 0, Size: 10}

	_, err := s.Query(ctx, bookerID, bookingsvc.RoleBooker, "BOGUS", page)
	require.Equal(t, bookingsvc.ErrUnsupportedState, bookingsvc.Code(err))

	// state strings are case-sensitive
	_, err = s.Query(ctx, bookerID, bookingsvc.RoleBooker, "current", page)
	require.Equal(t, bookingsvc.ErrUnsupportedState, bookingsvc.Code(err))

	_, err = s.Query(ctx, 99, bookingsvc.RoleBooker, bookingsvc.StateAll, page)
	require.Equal(t, bookingsvc.ErrNotFound, bookingsvc.Code(err))
}

func approved(id, item int64, start, end time.Time) model.Booking {
	return model.Booking{ID: id, ItemID: item, BookerID: bookerID, Start: start, End: end, Status: model.StatusApproved}
}

func TestAggregate_LastAndNext(t *testing.T) {
	ctx := context.Background()
	r := &repoMock{approvedByItems: []model.Booking{
		approved(1, itemID, at(-5), at(-4)),
		approved(2, itemID, at(-3), at(-1)), // latest end among started
		approved(3, itemID, at(2), at(3)),   // earliest upcoming start
		approved(4, itemID, at(4), at(5)),
	}}
	s := newService(r, &pubRecorder{})

	last, err := s.LastBooking(ctx, itemID)
	require.NoError(t, err)
	require.Equal(t, int64(2), last.ID)

	next, err := s.NextBooking(ctx, itemID)
	require.NoError(t, err)
	require.Equal(t, int64(3), next.ID)

	// no booking may count as both last and next
	require.NotEqual(t, last.ID, next.ID)
}

func TestAggregate_None(t *testing.T) {
	ctx := context.Background()
	s := newService(&repoMock{}, &pubRecorder{})

	last, err := s.LastBooking(ctx, itemID)
	require.NoError(t, err)
	require.Nil(t, last)

	next, err := s.NextBooking(ctx, itemID)
	require.NoError(t, err)
	require.Nil(t, next)
}

func TestBatchAggregate_MatchesPerItem(t *testing.T) {
	ctx := context.Background()
	r := &repoMock{approvedByItems: []model.Booking{
		approved(1, 10, at(-3), at(-1)),
		approved(2, 10, at(1), at(2)),
		approved(3, 11, at(-2), at(-1)),
		approved(4, 12, at(5), at(6)),
	}}
	s := newService(r, &pubRecorder{})

	itemIDs := []int64{10, 11, 12, 13}
	batch, err := s.BatchAggregate(ctx, itemIDs)
	require.NoError(t, err)

	for _, id := range itemIDs {
		last, err := s.LastBooking(ctx, id)
		require.NoError(t, err)
		next, err := s.NextBooking(ctx, id)
		require.NoError(t, err)
		require.Equal(t, last, batch[id].Last, "item %d", id)
		require.Equal(t, next, batch[id].Next, "item %d", id)
	}
}

func TestCanComment(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name     string
		bookings []model.Booking
		want     bool
	}{
		{"no bookings", nil, false},
		{"stay not finished", []model.Booking{approved(1, itemID, at(-1), at(1))}, false},
		{"upcoming stay", []model.Booking{approved(1, itemID, at(1), at(2))}, false},
		{"completed stay", []model.Booking{approved(1, itemID, at(-2), at(-1))}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newService(&repoMock{approvedByBooker: tc.bookings}, &pubRecorder{})
			ok, err := s.CanComment(ctx, bookerID, itemID)
			require.NoError(t, err)
			require.Equal(t, tc.want, ok)
		})
	}
}

// TestLifecycle runs the whole flow: booking created, owner approves, the stay
// completes, and the aggregator and comment gate see it.
func TestLifecycle(t *testing.T) {
	ctx := context.Background()

	var store model.Booking
	r := &repoMock{
		insertFn: func(_ context.Context, b *model.Booking) (int64, error) {
			store = *b
			store.ID = 1
			return 1, nil
		},
		getViewForUpdateFn: func(context.Context, bookingrepo.Tx, int64) (*model.BookingView, error) {
			return &model.BookingView{Booking: store, ItemName: "drill", ItemOwnerID: ownerID}, nil
		},
		setStatusFn: func(_ context.Context, _ bookingrepo.Tx, _ int64, st model.BookingStatus) error {
			store.Status = st
			return nil
		},
	}
	users := usersMock{ownerID: true, bookerID: true}
	items := itemsMock{itemID: {ID: itemID, OwnerID: ownerID, Name: "drill", Available: true}}

	// booking for [T+1h, T+2h]
	s := bookingsvc.New(r, users, items, clock.Fixed(T), &pubRecorder{})
	created, err := s.Create(ctx, bookerID, model.CreateBookingReq{ItemID: itemID, Start: at(1), End: at(2)})
	require.NoError(t, err)
	require.Equal(t, model.StatusWaiting, created.Status)

	decided, err := s.Decide(ctx, ownerID, created.ID, true)
	require.NoError(t, err)
	require.Equal(t, model.StatusApproved, decided.Status)

	r.approvedByItems = []model.Booking{store}
	r.approvedByBooker = []model.Booking{store}

	// at T the approved stay has not started: it is the next booking
	next, err := s.NextBooking(ctx, itemID)
	require.NoError(t, err)
	require.Equal(t, created.ID, next.ID)

	ok, err := s.CanComment(ctx, bookerID, itemID)
	require.NoError(t, err)
	require.False(t, ok, "stay not completed yet")

	// at T+3h the stay is over: it is the last booking and commenting opens
	later := bookingsvc.New(r, users, items, clock.Fixed(at(3)), &pubRecorder{})

	last, err := later.LastBooking(ctx, itemID)
	require.NoError(t, err)
	require.Equal(t, created.ID, last.ID)

	next, err = later.NextBooking(ctx, itemID)
	require.NoError(t, err)
	require.Nil(t, next)

	ok, err = later.CanComment(ctx, bookerID, itemID)
	require.NoError(t, err)
	require.True(t, ok)
}
