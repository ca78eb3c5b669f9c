package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"restaurant-directory-api/apperr"
	"restaurant-directory-api/middleware"
	"restaurant-directory-api/services"
)

// CreateReviewRequest leaves the rating range to the service so every caller
// gets the same message.
type CreateReviewRequest struct {
	RestaurantID string `json:"restaurantId" binding:"required"`
	Rating       int    `json:"rating"`
	Comment      string `json:"comment"`
}

type ReviewHandler struct {
	reviews *services.ReviewService
}

func NewReviewHandler(reviews *services.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

func (h *ReviewHandler) Create(c *gin.Context) {
	var req CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, bindError(err))
		return
	}
	restaurantID, err := uuid.Parse(req.RestaurantID)
	if err != nil {
		fail(c, apperr.Validation("Invalid restaurant ID"))
		return
	}
	res, err := h.reviews.Create(c.Request.Context(), middleware.GetActor(c), restaurantID, req.Rating, req.Comment)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":       "Review added successfully",
		"review":        res.Review,
		"averageRating": res.AverageRating,
	})
}

// List returns a restaurant's reviews, newest first
func (h *ReviewHandler) List(c *gin.Context) {
	id, err := uuid.Parse(c.Param("restaurantId"))
	if err != nil {
		c.JSON(http.StatusOK, []services.ReviewView{})
		return
	}
	reviews, err := h.reviews.List(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, reviews)
}

// Delete removes a review and its contribution to the average (admin)
func (h *ReviewHandler) Delete(c *gin.Context) {
	id, err := pathID(c, "id", "Review not found")
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.reviews.Delete(c.Request.Context(), middleware.GetActor(c), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Review deleted successfully"})
}
