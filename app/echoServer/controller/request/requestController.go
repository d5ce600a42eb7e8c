package request

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"shareit/model"
	rs "shareit/service/request"
)

type Controller struct {
	Svc rs.Service
	V   *validator.Validate
	Log *slog.Logger
}

// POST /v1/requests
func (h *Controller) Create(c echo.Context) error {
	var req model.CreateRequestReq
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
		return h.fail(c, "request create", err)
	}
	return c.JSON(http.StatusCreated, out)
}

// GET /v1/requests
func (h *Controller) Mine(c echo.Context) error {
	uid, _ := c.Get("user_id").(int64)

	out, err := h.Svc.Mine(c.Request().Context(), uid)
	if err != nil {
		return h.fail(c, "request mine", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": out})
}

// GET /v1/requests/all?from=&size=
func (h *Controller) All(c echo.Context) error {
	from, size := 0, 10
	if v, err := strconv.Atoi(c.QueryParam("from")); err == nil && v >= 0 {
		from = v
	}
	if v, err := strconv.Atoi(c.QueryParam("size")); err == nil && v > 0 {
		size = v
	}
	uid, _ := c.Get("user_id").(int64)

	out, err := h.Svc.All(c.Request().Context(), uid, from, size)
	if err != nil {
		return h.fail(c, "request all", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": out})
}

// GET /v1/requests/:id
func (h *Controller) Detail(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	uid, _ := c.Get("user_id").(int64)

	out, err := h.Svc.ByID(c.Request().Context(), uid, id)
	if err != nil {
		return h.fail(c, "request detail", err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Controller) fail(c echo.Context, op string, err error) error {
	if errors.Is(err, rs.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"message": "not found"})
	}
	h.Log.Error(op, "err", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
}
