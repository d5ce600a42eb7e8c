package item

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"shareit/model"
	is "shareit/service/item"
)

type Controller struct {
	Svc is.Service
	V   *validator.Validate
	Log *slog.Logger
}

// Create lists a new item
// @Summary      Create item
// @Tags         items
// @Accept       json
// @Produce      json
// @Param        payload  body  model.CreateItemReq  true  "Item payload"
// @Success      201  {object}  model.Item
// @Router       /v1/items [post]
func (h *Controller) Create(c echo.Context) error {
	var req model.CreateItemReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"message": "validation error",
			"errors":  err.Error(),
		})
	}
	uid, _ := c.Get("user_id").(int64)

	out, err := h.Svc.Add(c.Request().Context(), uid, req)
	if err != nil {
		return h.fail(c, "item create", err)
	}
	return c.JSON(http.StatusCreated, out)
}

// PATCH /v1/items/:id
func (h *Controller) Update(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	var req model.UpdateItemReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	uid, _ := c.Get("user_id").(int64)

	out, err := h.Svc.Update(c.Request().Context(), uid, id, req)
	if err != nil {
		return h.fail(c, "item update", err)
	}
	return c.JSON(http.StatusOK, out)
}

// GET /v1/items/:id
func (h *Controller) Detail(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	uid, _ := c.Get("user_id").(int64)

	out, err := h.Svc.GetByID(c.Request().Context(), uid, id)
	if err != nil {
		return h.fail(c, "item detail", err)
	}
	return c.JSON(http.StatusOK, out)
}

// GET /v1/items?from=&size=
func (h *Controller) ListMine(c echo.Context) error {
	from, size := pageParams(c)
	uid, _ := c.Get("user_id").(int64)

	out, err := h.Svc.ListByOwner(c.Request().Context(), uid, from, size)
	if err != nil {
		return h.fail(c, "item list", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": out})
}

// GET /v1/items/search?text=&from=&size=
func (h *Controller) Search(c echo.Context) error {
	from, size := pageParams(c)

	out, err := h.Svc.Search(c.Request().Context(), c.QueryParam("text"), from, size)
	if err != nil {
		return h.fail(c, "item search", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": out})
}

// AddComment leaves feedback on an item
// @Summary      Comment on item
// @Description  Allowed only for a past renter with a completed approved stay
// @Tags         items
// @Accept       json
// @Produce      json
// @Param        id       path  int                     true  "Item ID"
// @Param        payload  body  model.CreateCommentReq  true  "Comment payload"
// @Success      201  {object}  model.Comment
// @Router       /v1/items/{id}/comments [post]
func (h *Controller) AddComment(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	var req model.CreateCommentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"message": "validation error",
			"errors":  err.Error(),
		})
	}
	uid, _ := c.Get("user_id").(int64)

	out, err := h.Svc.AddComment(c.Request().Context(), uid, id, req)
	if err != nil {
		return h.fail(c, "comment create", err)
	}
	return c.JSON(http.StatusCreated, out)
}

func pageParams(c echo.Context) (from, size int) {
	from, size = 0, 10
	if v, err := strconv.Atoi(c.QueryParam("from")); err == nil && v >= 0 {
		from = v
	}
	if v, err := strconv.Atoi(c.QueryParam("size")); err == nil && v > 0 {
		size = v
	}
	return from, size
}

func (h *Controller) fail(c echo.Context, op string, err error) error {
	switch is.Code(err) {
	case is.ErrNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"message": "not found"})
	case is.ErrForbidden:
		return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
	case is.ErrValidation:
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error"})
	case is.ErrNotEligible:
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "no completed booking for this item"})
	default:
		h.Log.Error(op, "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
}
