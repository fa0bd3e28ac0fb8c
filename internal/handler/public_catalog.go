// Package handler exposes HTTP handlers for both authenticated and public endpoints.
// This file defines handlers for the public catalog API. These routes allow
// unauthenticated users to browse restaurants, their dining slots and live
// availability without requiring authentication. Internal fields (timestamps,
// row ids of images, etc.) are filtered from responses.

package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-reservation/internal/availability"
	"github.com/iliyamo/restaurant-reservation/internal/repository"
)

// PublicHandler aggregates the read side needed for unauthenticated browsing.
// It produces sanitized responses suitable for public consumption.
type PublicHandler struct {
	Restaurants *repository.RestaurantRepo   // provides access to the restaurant catalog
	Slots       *repository.SlotTemplateRepo // provides access to slot templates
	Avail       *availability.Index          // advisory per-date availability
}

// PublicRestaurant represents a restaurant in list responses.  It contains
// only safe fields.
type PublicRestaurant struct {
	ID      uint64 `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

// PublicSlot represents one entry of a restaurant's slot template.
type PublicSlot struct {
	Label    string `json:"slot"`
	Capacity int    `json:"capacity"`
}

// PublicRestaurantDetail is the single-restaurant response with opening
// hours, the image carousel and the full slot template.
type PublicRestaurantDetail struct {
	ID      uint64       `json:"id"`
	Name    string       `json:"name"`
	Address string       `json:"address"`
	Opening string       `json:"opening"`
	Closing string       `json:"closing"`
	Images  []string     `json:"images"`
	Slots   []PublicSlot `json:"slots"`
}

// ListRestaurants returns every restaurant in the catalog.
// Response JSON contains an "items" array of PublicRestaurant.
func (h *PublicHandler) ListRestaurants(c echo.Context) error {
	ctx := c.Request().Context()
	rests, err := h.Restaurants.ListAll(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]PublicRestaurant, 0, len(rests))
	for _, r := range rests {
		out = append(out, PublicRestaurant{ID: r.ID, Name: r.Name, Address: r.Address})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// GetRestaurant returns details of a single restaurant, joined with its
// image carousel and slot template.
func (h *PublicHandler) GetRestaurant(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	r, err := h.Restaurants.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrRestaurantNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "restaurant not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	slots, err := h.Slots.GetTemplate(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	resp := PublicRestaurantDetail{
		ID:      r.ID,
		Name:    r.Name,
		Address: r.Address,
		Opening: r.Opening,
		Closing: r.Closing,
		Images:  r.Images,
		Slots:   make([]PublicSlot, 0, len(slots)),
	}
	if resp.Images == nil {
		resp.Images = []string{}
	}
	for _, s := range slots {
		resp.Slots = append(resp.Slots, PublicSlot{Label: s.Label, Capacity: s.Capacity})
	}
	return c.JSON(http.StatusOK, resp)
}

// GetAvailability lists the remaining capacity of every slot of a
// restaurant on a date.  The date comes from the "date" query parameter
// and must fall inside the booking horizon.
func (h *PublicHandler) GetAvailability(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	date := strings.TrimSpace(c.QueryParam("date"))
	if date == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date required"})
	}
	// ensure restaurant exists
	if _, err := h.Restaurants.GetByID(ctx, id); err != nil {
		if err == repository.ErrRestaurantNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "restaurant not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	slots, err := h.Avail.ListForDate(ctx, id, date)
	if err != nil {
		if err == availability.ErrDateOutOfRange {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "date outside booking horizon"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"date": date, "items": slots})
}

// SearchRestaurants filters the catalog by a free-text term matched
// against name and address.
func (h *PublicHandler) SearchRestaurants(c echo.Context) error {
	term := strings.TrimSpace(c.QueryParam("q"))

	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	ps, _ := strconv.Atoi(c.QueryParam("page_size"))
	if ps < 1 {
		ps = 20
	}
	if ps > 100 {
		ps = 100
	}

	q := repository.RestaurantSearchQuery{
		Term:     term,
		Page:     page,
		PageSize: ps,
	}

	items, total, err := h.Restaurants.Search(c.Request().Context(), q)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error":   "database_error",
			"message": err.Error(),
		})
	}

	out := make([]PublicRestaurant, 0, len(items))
	for _, r := range items {
		out = append(out, PublicRestaurant{ID: r.ID, Name: r.Name, Address: r.Address})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"data":      out,
		"total":     total,
		"page":      page,
		"page_size": ps,
	})
}
