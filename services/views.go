package services

import (
	"restaurant-directory-api/models"
)

// RestaurantView is a restaurant with its derived fields.
type RestaurantView struct {
	models.Restaurant
	Address       string              `json:"address"`
	AverageRating *float64            `json:"averageRating"`
	MapLocation   *models.MapLocation `json:"mapLocation"`
}

// RestaurantDetail adds the owner, reviews and current opening state to a
// RestaurantView. IsOpen is nil when no working hours are stored.
type RestaurantDetail struct {
	RestaurantView
	Owner   *models.UserSummary `json:"owner,omitempty"`
	Reviews []ReviewView        `json:"reviews"`
	IsOpen  *bool               `json:"isOpen,omitempty"`
}

type ReviewView struct {
	models.Review
	User *models.UserSummary `json:"user,omitempty"`
}

func newRestaurantView(r models.Restaurant) RestaurantView {
	return RestaurantView{
		Restaurant:    r,
		Address:       r.Address(),
		AverageRating: r.AverageRating(),
		MapLocation:   r.MapLocation(),
	}
}

func newRestaurantViews(rs []models.Restaurant) []RestaurantView {
	views := make([]RestaurantView, len(rs))
	for i, r := range rs {
		views[i] = newRestaurantView(r)
	}
	return views
}

func newReviewView(r models.Review, withEmail bool) ReviewView {
	v := ReviewView{Review: r}
	if r.User != nil {
		v.User = &models.UserSummary{ID: r.User.ID, Name: r.User.Name}
		if withEmail {
			v.User.Email = r.User.Email
		}
	}
	return v
}

func newReviewViews(rs []models.Review) []ReviewView {
	views := make([]ReviewView, len(rs))
	for i, r := range rs {
		views[i] = newReviewView(r, false)
	}
	return views
}
