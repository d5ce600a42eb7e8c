package model

import "time"

// ItemRequest is a wish for an item nobody has listed yet. Owners respond by
// listing items that reference the request.
type ItemRequest struct {
	ID          int64     `json:"id"`
	RequesterID int64     `json:"requester_id"`
	Description string    `json:"description"`
	Created     time.Time `json:"created"`
}

type ItemRequestView struct {
	ItemRequest
	Items []Item `json:"items"`
}

type CreateRequestReq struct {
	Description string `json:"description" validate:"required"`
}
