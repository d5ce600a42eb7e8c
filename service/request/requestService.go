package requestsvc

import (
	"context"
	"database/sql"
	"errors"

	"shareit/model"
	itemrepo "shareit/repository/item"
	requestrepo "shareit/repository/request"
)

var ErrNotFound = errors.New("not found")

type UserRepo interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

type Service interface {
	Add(ctx context.Context, userID int64, req model.CreateRequestReq) (*model.ItemRequest, error)
	// Mine lists the user's own requests, newest first, with offered items.
	Mine(ctx context.Context, userID int64) ([]model.ItemRequestView, error)
	// All lists other users' requests, paginated, with offered items.
	All(ctx context.Context, userID int64, from, size int) ([]model.ItemRequestView, error)
	ByID(ctx context.Context, userID, requestID int64) (*model.ItemRequestView, error)
}

type service struct {
	rr    requestrepo.Repo
	items itemrepo.Repo
	users UserRepo
}

func New(rr requestrepo.Repo, items itemrepo.Repo, users UserRepo) Service {
	return &service{rr: rr, items: items, users: users}
}

func (s *service) Add(ctx context.Context, userID int64, req model.CreateRequestReq) (*model.ItemRequest, error) {
	if err := s.checkUser(ctx, userID); err != nil {
		return nil, err
	}
	r := model.ItemRequest{RequesterID: userID, Description: req.Description}
	if err := s.rr.Insert(ctx, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *service) Mine(ctx context.Context, userID int64) ([]model.ItemRequestView, error) {
	if err := s.checkUser(ctx, userID); err != nil {
		return nil, err
	}
	requests, err := s.rr.ListByRequester(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.joinOffers(ctx, requests)
}

func (s *service) All(ctx context.Context, userID int64, from, size int) ([]model.ItemRequestView, error) {
	if err := s.checkUser(ctx, userID); err != nil {
		return nil, err
	}
	requests, err := s.rr.ListOthers(ctx, userID, from, size)
	if err != nil {
		return nil, err
	}
	return s.joinOffers(ctx, requests)
}

func (s *service) ByID(ctx context.Context, userID, requestID int64) (*model.ItemRequestView, error) {
	if err := s.checkUser(ctx, userID); err != nil {
		return nil, err
	}
	r, err := s.rr.ByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	views, err := s.joinOffers(ctx, []model.ItemRequest{*r})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// joinOffers attaches items offered for each request in one batched lookup.
func (s *service) joinOffers(ctx context.Context, requests []model.ItemRequest) ([]model.ItemRequestView, error) {
	out := make([]model.ItemRequestView, len(requests))
	if len(requests) == 0 {
		return out, nil
	}

	ids := make([]int64, len(requests))
	for i, r := range requests {
		ids[i] = r.ID
	}
	items, err := s.items.ListByRequests(ctx, ids)
	if err != nil {
		return nil, err
	}
	byRequest := make(map[int64][]model.Item, len(requests))
	for _, it := range items {
		if it.RequestID == nil {
			continue
		}
		byRequest[*it.RequestID] = append(byRequest[*it.RequestID], it)
	}

	for i, r := range requests {
		out[i] = model.ItemRequestView{ItemRequest: r, Items: byRequest[r.ID]}
		if out[i].Items == nil {
			out[i].Items = []model.Item{}
		}
	}
	return out, nil
}

func (s *service) checkUser(ctx context.Context, userID int64) error {
	ok, err := s.users.Exists(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}
