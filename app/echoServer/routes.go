package echoServer

import (
	"net/http"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	authctrl "shareit/app/echoServer/controller/auth"
	bookingctrl "shareit/app/echoServer/controller/booking"
	itemctrl "shareit/app/echoServer/controller/item"
	requestctrl "shareit/app/echoServer/controller/request"
	userctrl "shareit/app/echoServer/controller/user"
	"shareit/app/echoServer/jwtx"
)

type C struct {
	Auth      *authctrl.Controller
	User      *userctrl.Controller
	Item      *itemctrl.Controller
	Booking   *bookingctrl.Controller
	Request   *requestctrl.Controller
	JWTSecret string
}

func Register(e *echo.Echo, c C) {
	// Public
	pub := e.Group("/v1")
	pub.POST("/users/register", c.Auth.Register)
	pub.POST("/users/login", c.Auth.Login)

	// Auth
	auth := e.Group("/v1")
	auth.Use(echojwt.WithConfig(echojwt.Config{
		SigningKey: []byte(c.JWTSecret),
	}))
	auth.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			uid, err := jwtx.UserIDFromToken(ctx)
			if err != nil {
				return ctx.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
			}
			ctx.Set("user_id", uid)
			return next(ctx)
		}
	})

	// Users
	auth.GET("/users/me", c.User.Me)
	auth.PATCH("/users/me", c.User.Update)
	auth.DELETE("/users/me", c.User.Delete)

	// Items
	auth.POST("/items", c.Item.Create)
	auth.PATCH("/items/:id", c.Item.Update)
	auth.GET("/items", c.Item.ListMine)
	auth.GET("/items/search", c.Item.Search)
	auth.GET("/items/:id", c.Item.Detail)
	auth.POST("/items/:id/comments", c.Item.AddComment)

	// Bookings
	auth.POST("/bookings", c.Booking.Create)
	auth.PATCH("/bookings/:id", c.Booking.Decide)
	auth.GET("/bookings/owner", c.Booking.ListForOwner)
	auth.GET("/bookings/:id", c.Booking.Detail)
	auth.GET("/bookings", c.Booking.ListForBooker)

	// Item requests
	auth.POST("/requests", c.Request.Create)
	auth.GET("/requests", c.Request.Mine)
	auth.GET("/requests/all", c.Request.All)
	auth.GET("/requests/:id", c.Request.Detail)
}
