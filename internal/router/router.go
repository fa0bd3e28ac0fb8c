package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/restaurant-reservation/internal/handler"    // import the handlers that implement business logic
	"github.com/iliyamo/restaurant-reservation/internal/middleware" // import middleware for JWT authentication
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Load balancers and monitoring systems use this endpoint to verify
	// that the service is up and running.
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication-related routes and applies the
// necessary middleware.  Unauthenticated operations live under /v1/auth,
// while protected endpoints live under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	// Operations that do not require an existing session: register, login
	// and the two refresh variants.
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// Refresh rotates the refresh token; refresh-access only issues a new
	// access token and keeps the session token as is.
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	// Logout does not require JWT middleware: the handler accepts either a
	// bearer token (revoke all sessions) or a refresh_token in the body
	// (revoke one session).
	g.POST("/logout", a.Logout)

	// Routes that require a valid access token.
	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)
	auth.PUT("/me", a.UpdateProfile)
	auth.POST("/auth/change-password", a.ChangePassword)

	// Alias so clients can call either /v1/auth/logout or /v1/logout.
	e.POST("/v1/logout", a.Logout)
}

// RegisterPublic registers unauthenticated catalog endpoints on the provided
// Echo instance.  The PublicHandler returns sanitized data for restaurants,
// their slot templates and live availability.  These routes apply no JWT
// middleware; extra middleware (such as the Redis response cache) can be
// passed in and is applied to every route in this group.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, mw ...echo.MiddlewareFunc) {
	g := e.Group("/v1", mw...)
	// Expose the list of all restaurants
	g.GET("/restaurants", p.ListRestaurants)
	// Restaurant details with image carousel and slot template
	g.GET("/restaurants/:id", p.GetRestaurant)
	// Remaining capacity per slot on a date (?date=YYYY-MM-DD)
	g.GET("/restaurants/:id/availability", p.GetAvailability)
	// Free-text search over name and address
	g.GET("/search/restaurants", p.SearchRestaurants)
}

// RegisterBooking registers the reservation endpoints under /v1.  Creating,
// inspecting and cancelling a booking work for both authenticated users and
// guests, so these routes use OptionalJWT: a valid bearer token binds the
// booking to the account, no token means guest contact details are required.
// The booking history is account-only and sits behind the strict JWT
// middleware.
func RegisterBooking(e *echo.Echo, h *handler.BookingHandler, jwtSecret string) {
	g := e.Group("/v1", middleware.OptionalJWT(jwtSecret))
	g.POST("/reservations", h.CreateBooking)
	g.GET("/reservations/:id", h.GetBooking)
	g.DELETE("/reservations/:id", h.CancelBooking)

	auth := e.Group("/v1", middleware.JWTAuth(jwtSecret))
	auth.GET("/my-reservations", h.ListMyBookings)
}
