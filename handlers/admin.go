package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"restaurant-directory-api/middleware"
	"restaurant-directory-api/services"
)

// AdminHandler drives the moderation side of the restaurant lifecycle.
type AdminHandler struct {
	restaurants *services.RestaurantService
}

func NewAdminHandler(restaurants *services.RestaurantService) *AdminHandler {
	return &AdminHandler{restaurants: restaurants}
}

// Pending lists restaurants awaiting a decision
func (h *AdminHandler) Pending(c *gin.Context) {
	list, err := h.restaurants.Pending(c.Request.Context(), middleware.GetActor(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *AdminHandler) Approve(c *gin.Context) {
	id, err := pathID(c, "id", restaurantNotFound)
	if err != nil {
		fail(c, err)
		return
	}
	r, err := h.restaurants.Approve(c.Request.Context(), middleware.GetActor(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Restaurant approved successfully", "restaurant": r})
}

func (h *AdminHandler) Reject(c *gin.Context) {
	id, err := pathID(c, "id", restaurantNotFound)
	if err != nil {
		fail(c, err)
		return
	}
	if _, err := h.restaurants.Reject(c.Request.Context(), middleware.GetActor(c), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Restaurant rejected successfully."})
}

// ApproveDelete honours an owner's removal request
func (h *AdminHandler) ApproveDelete(c *gin.Context) {
	id, err := pathID(c, "id", restaurantNotFound)
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.restaurants.ApproveDelete(c.Request.Context(), middleware.GetActor(c), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Restaurant deletion approved and completed."})
}
