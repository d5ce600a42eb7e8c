package booking

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"shareit/model"
	bs "shareit/service/booking"
)

type Controller struct {
	Svc bs.Service
	V   *validator.Validate
	Log *slog.Logger
}

// Create books an item
// @Summary      Create booking
// @Description  Request to book an item for a date range; starts in WAITING
// @Tags         bookings
// @Accept       json
// @Produce      json
// @Param        payload  body  model.CreateBookingReq  true  "Booking payload"
// @Success      201  {object}  model.BookingView
// @Router       /v1/bookings [post]
func (h *Controller) Create(c echo.Context) error {
	var req model.CreateBookingReq
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

	out, err := h.Svc.Create(c.Request().Context(), uid, req)
	if err != nil {
		return h.fail(c, "booking create", err)
	}
	return c.JSON(http.StatusCreated, out)
}

// Decide approves or rejects a booking
// @Summary      Decide booking
// @Tags         bookings
// @Produce      json
// @Param        id        path   int     true  "Booking ID"
// @Param        approved  query  bool    true  "Approve or reject"
// @Success      200  {object}  model.BookingView
// @Router       /v1/bookings/{id} [patch]
func (h *Controller) Decide(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	approved, err := strconv.ParseBool(c.QueryParam("approved"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "approved must be true or false"})
	}
	uid, _ := c.Get("user_id").(int64)

	out, err := h.Svc.Decide(c.Request().Context(), uid, id, approved)
	if err != nil {
		return h.fail(c, "booking decide", err)
	}
	return c.JSON(http.StatusOK, out)
}

// GET /v1/bookings/:id
func (h *Controller) Detail(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	uid, _ := c.Get("user_id").(int64)

	out, err := h.Svc.FindByID(c.Request().Context(), uid, id)
	if err != nil {
		return h.fail(c, "booking detail", err)
	}
	return c.JSON(http.StatusOK, out)
}

// GET /v1/bookings?state=&from=&size=
func (h *Controller) ListForBooker(c echo.Context) error {
	return h.list(c, bs.RoleBooker)
}

// GET /v1/bookings/owner?state=&from=&size=
func (h *Controller) ListForOwner(c echo.Context) error {
	return h.list(c, bs.RoleOwner)
}

func (h *Controller) list(c echo.Context, role bs.Role) error {
	state := c.QueryParam("state")
	if state == "" {
		state = string(bs.StateAll)
	}
	page, err := parsePage(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": err.Error()})
	}
	uid, _ := c.Get("user_id").(int64)

	out, err := h.Svc.Query(c.Request().Context(), uid, role, bs.State(state), page)
	if err != nil {
		return h.fail(c, "booking list", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": out})
}

func parsePage(c echo.Context) (bs.Page, error) {
	page := bs.Page{From: 0, Size: 10}
	if v := c.QueryParam("from"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return page, errors.New("invalid from")
		}
		page.From = n
	}
	if v := c.QueryParam("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return page, errors.New("invalid size")
		}
		page.Size = n
	}
	return page, nil
}

func (h *Controller) fail(c echo.Context, op string, err error) error {
	switch bs.Code(err) {
	case bs.ErrNotFound, bs.ErrSelfBooking:
		// self-booking reads as 404 so a booker cannot probe ownership
		return c.JSON(http.StatusNotFound, echo.Map{"message": "not found"})
	case bs.ErrForbidden:
		return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
	case bs.ErrUnavailable:
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "item not available"})
	case bs.ErrInvalidRange:
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid booking period"})
	case bs.ErrAlreadyDecided:
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "booking already decided"})
	case bs.ErrUnsupportedState:
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Unknown state: UNSUPPORTED_STATUS"})
	default:
		h.Log.Error(op, "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
}
