package itemsvc

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"shareit/model"
	commentrepo "shareit/repository/comment"
	itemrepo "shareit/repository/item"
	bookingsvc "shareit/service/booking"
)

type ErrCode string

const (
	ErrNotFound    ErrCode = "NOT_FOUND"
	ErrForbidden   ErrCode = "FORBIDDEN"
	ErrValidation  ErrCode = "VALIDATION"
	ErrNotEligible ErrCode = "NOT_ELIGIBLE"
)

type codedError struct{ code ErrCode }

func (e codedError) Error() string { return string(e.code) }
func (e codedError) Code() ErrCode { return e.code }
func makeErr(c ErrCode) error      { return codedError{code: c} }

func Code(err error) ErrCode {
	var ce interface{ Code() ErrCode }
	if errors.As(err, &ce) {
		return ce.Code()
	}
	return ""
}

type UserRepo interface {
	ByID(ctx context.Context, id int64) (*model.User, error)
}

// BookingFacts is the read-time surface the booking engine exposes to item
// views: last/next per item and the comment eligibility gate.
type BookingFacts interface {
	BatchAggregate(ctx context.Context, itemIDs []int64) (map[int64]bookingsvc.Aggregate, error)
	CanComment(ctx context.Context, userID, itemID int64) (bool, error)
}

type Service interface {
	Add(ctx context.Context, userID int64, req model.CreateItemReq) (*model.Item, error)
	Update(ctx context.Context, userID, itemID int64, req model.UpdateItemReq) (*model.Item, error)

	// GetByID returns the item with its comments; last/next booking only when
	// the caller is the owner.
	GetByID(ctx context.Context, userID, itemID int64) (*model.ItemDetail, error)
	ListByOwner(ctx context.Context, userID int64, from, size int) ([]model.ItemDetail, error)
	Search(ctx context.Context, text string, from, size int) ([]model.Item, error)

	AddComment(ctx context.Context, userID, itemID int64, req model.CreateCommentReq) (*model.Comment, error)
}

type service struct {
	items    itemrepo.Repo
	comments commentrepo.Repo
	users    UserRepo
	bookings BookingFacts
}

func New(items itemrepo.Repo, comments commentrepo.Repo, users UserRepo, bookings BookingFacts) Service {
	return &service{items: items, comments: comments, users: users, bookings: bookings}
}

func (s *service) Add(ctx context.Context, userID int64, req model.CreateItemReq) (*model.Item, error) {
	if _, err := s.user(ctx, userID); err != nil {
		return nil, err
	}
	it := model.Item{
		OwnerID:     userID,
		Name:        req.Name,
		Description: req.Description,
		Available:   *req.Available,
		RequestID:   req.RequestID,
	}
	id, err := s.items.Insert(ctx, &it)
	if err != nil {
		return nil, err
	}
	it.ID = id
	return &it, nil
}

func (s *service) Update(ctx context.Context, userID, itemID int64, req model.UpdateItemReq) (*model.Item, error) {
	it, err := s.item(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if it.OwnerID != userID {
		return nil, makeErr(ErrForbidden)
	}
	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return nil, makeErr(ErrValidation)
		}
		it.Name = *req.Name
	}
	if req.Description != nil {
		if strings.TrimSpace(*req.Description) == "" {
			return nil, makeErr(ErrValidation)
		}
		it.Description = *req.Description
	}
	if req.Available != nil {
		it.Available = *req.Available
	}
	if err := s.items.Update(ctx, it); err != nil {
		return nil, err
	}
	return it, nil
}

func (s *service) GetByID(ctx context.Context, userID, itemID int64) (*model.ItemDetail, error) {
	it, err := s.item(ctx, itemID)
	if err != nil {
		return nil, err
	}
	detail := model.ItemDetail{Item: *it, Comments: []model.Comment{}}

	if userID == it.OwnerID {
		agg, err := s.bookings.BatchAggregate(ctx, []int64{itemID})
		if err != nil {
			return nil, err
		}
		detail.LastBooking = agg[itemID].Last
		detail.NextBooking = agg[itemID].Next
	}

	comments, err := s.comments.ListByItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if comments != nil {
		detail.Comments = comments
	}
	return &detail, nil
}

func (s *service) ListByOwner(ctx context.Context, userID int64, from, size int) ([]model.ItemDetail, error) {
	if _, err := s.user(ctx, userID); err != nil {
		return nil, err
	}
	items, err := s.items.ListByOwner(ctx, userID, from, size)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return []model.ItemDetail{}, nil
	}

	ids := make([]int64, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	agg, err := s.bookings.BatchAggregate(ctx, ids)
	if err != nil {
		return nil, err
	}
	comments, err := s.comments.ListByItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	byItem := make(map[int64][]model.Comment, len(items))
	for _, c := range comments {
		byItem[c.ItemID] = append(byItem[c.ItemID], c)
	}

	out := make([]model.ItemDetail, len(items))
	for i, it := range items {
		out[i] = model.ItemDetail{
			Item:        it,
			LastBooking: agg[it.ID].Last,
			NextBooking: agg[it.ID].Next,
			Comments:    byItem[it.ID],
		}
		if out[i].Comments == nil {
			out[i].Comments = []model.Comment{}
		}
	}
	return out, nil
}

func (s *service) Search(ctx context.Context, text string, from, size int) ([]model.Item, error) {
	if strings.TrimSpace(text) == "" {
		return []model.Item{}, nil
	}
	items, err := s.items.Search(ctx, text, from, size)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []model.Item{}
	}
	return items, nil
}

func (s *service) AddComment(ctx context.Context, userID, itemID int64, req model.CreateCommentReq) (*model.Comment, error) {
	author, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	if _, err := s.item(ctx, itemID); err != nil {
		return nil, err
	}

	ok, err := s.bookings.CanComment(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, makeErr(ErrNotEligible)
	}

	c := model.Comment{
		ItemID:     itemID,
		AuthorID:   userID,
		AuthorName: author.Name,
		Text:       req.Text,
	}
	if err := s.comments.Insert(ctx, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *service) user(ctx context.Context, id int64) (*model.User, error) {
	u, err := s.users.ByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrNotFound)
		}
		return nil, err
	}
	return u, nil
}

func (s *service) item(ctx context.Context, id int64) (*model.Item, error) {
	it, err := s.items.ByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrNotFound)
		}
		return nil, err
	}
	return it, nil
}
