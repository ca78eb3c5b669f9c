package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"restaurant-directory-api/middleware"
	"restaurant-directory-api/models"
	"restaurant-directory-api/services"
)

const restaurantNotFound = "Restaurant not found"

// ListQuery filters the public listing. Latitude and longitude together sort
// by distance.
type ListQuery struct {
	Search     string   `form:"search"`
	Category   string   `form:"category"`
	PriceRange string   `form:"priceRange" binding:"omitempty,pricerange"`
	Rating     *float64 `form:"rating" binding:"omitempty,min=0,max=5"`
	Latitude   *float64 `form:"latitude" binding:"omitempty,min=-90,max=90"`
	Longitude  *float64 `form:"longitude" binding:"omitempty,min=-180,max=180"`
}

type RestaurantHandler struct {
	restaurants *services.RestaurantService
}

func NewRestaurantHandler(restaurants *services.RestaurantService) *RestaurantHandler {
	return &RestaurantHandler{restaurants: restaurants}
}

// List returns approved restaurants
func (h *RestaurantHandler) List(c *gin.Context) {
	var q ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		fail(c, bindError(err))
		return
	}
	filter := services.ListFilter{
		Search:     q.Search,
		Category:   q.Category,
		PriceRange: models.PriceRange(q.PriceRange),
		MinRating:  q.Rating,
	}
	if q.Latitude != nil && q.Longitude != nil {
		filter.Near = &models.MapLocation{Lat: *q.Latitude, Lng: *q.Longitude}
	}
	list, err := h.restaurants.List(c.Request.Context(), filter)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *RestaurantHandler) Categories(c *gin.Context) {
	categories, err := h.restaurants.Categories(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

// Owned returns the caller's restaurants in every status
func (h *RestaurantHandler) Owned(c *gin.Context) {
	list, err := h.restaurants.ListOwned(c.Request.Context(), middleware.GetActor(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Get returns one restaurant with its owner and reviews
func (h *RestaurantHandler) Get(c *gin.Context) {
	id, err := pathID(c, "id", restaurantNotFound)
	if err != nil {
		fail(c, err)
		return
	}
	detail, err := h.restaurants.Get(c.Request.Context(), middleware.GetActor(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *RestaurantHandler) Ratings(c *gin.Context) {
	id, err := pathID(c, "id", restaurantNotFound)
	if err != nil {
		fail(c, err)
		return
	}
	reviews, err := h.restaurants.Ratings(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": reviews})
}

// Create registers a restaurant in pending status
func (h *RestaurantHandler) Create(c *gin.Context) {
	var form restaurantForm
	if err := c.ShouldBind(&form); err != nil {
		fail(c, bindError(err))
		return
	}
	in, err := form.input(c)
	if err != nil {
		fail(c, err)
		return
	}
	view, err := h.restaurants.Create(c.Request.Context(), middleware.GetActor(c), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (h *RestaurantHandler) Update(c *gin.Context) {
	id, err := pathID(c, "id", restaurantNotFound)
	if err != nil {
		fail(c, err)
		return
	}
	var form restaurantForm
	if err := c.ShouldBind(&form); err != nil {
		fail(c, bindError(err))
		return
	}
	up, err := form.update(c)
	if err != nil {
		fail(c, err)
		return
	}
	view, err := h.restaurants.Update(c.Request.Context(), middleware.GetActor(c), id, up)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Restaurant updated successfully.", "restaurant": view})
}

// RequestDelete asks an admin to remove the caller's restaurant
func (h *RestaurantHandler) RequestDelete(c *gin.Context) {
	id, err := pathID(c, "id", restaurantNotFound)
	if err != nil {
		fail(c, err)
		return
	}
	if _, err := h.restaurants.RequestDelete(c.Request.Context(), middleware.GetActor(c), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Delete request submitted. Awaiting admin approval."})
}

// Delete removes a restaurant outright (admin)
func (h *RestaurantHandler) Delete(c *gin.Context) {
	id, err := pathID(c, "id", restaurantNotFound)
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.restaurants.ForceDelete(c.Request.Context(), middleware.GetActor(c), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Restaurant deleted successfully."})
}
