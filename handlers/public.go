package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"restaurant-directory-api/config"
	"restaurant-directory-api/models"
	"restaurant-directory-api/statemachine"
)

// GetStateMachineInfo returns the restaurant lifecycle for informational purposes
func GetStateMachineInfo(c *gin.Context) {
	statuses := []models.RestaurantStatus{
		models.StatusPending,
		models.StatusApproved,
		models.StatusRejected,
		models.StatusDeleteRequested,
	}
	actions := make(gin.H, len(statuses))
	for _, s := range statuses {
		actions[string(s)] = statemachine.ValidActionsFrom(s)
	}
	c.JSON(http.StatusOK, gin.H{
		"state_machine":   statemachine.GetAllTransitions(),
		"actions":         actions,
		"initial_state":   models.StatusPending,
		"terminal_states": []models.RestaurantStatus{models.StatusDeleted},
		"description":     "Restaurant Listing Lifecycle State Machine",
	})
}

// Health reports whether the database answers.
func Health(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := config.Ping(db); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": "database unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "Restaurant Directory API",
		})
	}
}
