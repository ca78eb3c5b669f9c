package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"restaurant-directory-api/access"
	"restaurant-directory-api/apperr"
	"restaurant-directory-api/metrics"
	"restaurant-directory-api/models"
)

var errRatingRange = apperr.Validation(fmt.Sprintf("Rating must be between %d and %d", models.MinRating, models.MaxRating))

// RatingResult is a stored review and the restaurant average after it.
type RatingResult struct {
	Review        ReviewView `json:"review"`
	AverageRating *float64   `json:"averageRating"`
}

// ReviewService is the rating aggregator. It keeps each restaurant's
// ratingsCount and totalRatings in step with its reviews.
type ReviewService struct {
	db *gorm.DB
}

func NewReviewService(db *gorm.DB) *ReviewService {
	return &ReviewService{db: db}
}

// Create stores a review and folds its rating into the restaurant in the same
// transaction.
func (s *ReviewService) Create(ctx context.Context, actor access.Actor, restaurantID uuid.UUID, rating int, comment string) (*RatingResult, error) {
	if err := access.RequireAuthenticated(actor); err != nil {
		return nil, err
	}
	if !models.ValidRating(rating) {
		return nil, errRatingRange
	}

	review := models.Review{
		RestaurantID: restaurantID,
		UserID:       actor.UserID,
		Rating:       rating,
		Comment:      strings.TrimSpace(comment),
	}
	var avg *float64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if avg, err = recordRating(tx, restaurantID, rating); err != nil {
			return err
		}
		if err := tx.Create(&review).Error; err != nil {
			return fmt.Errorf("failed to create review: %w", err)
		}
		return tx.Preload("User").First(&review, "id = ?", review.ID).Error
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordRating()
	slog.Info("review created", "review_id", review.ID, "restaurant_id", restaurantID, "rating", rating)
	return &RatingResult{Review: newReviewView(review, true), AverageRating: avg}, nil
}

// List returns the reviews of a restaurant, newest first. A restaurant that
// does not exist has no reviews.
func (s *ReviewService) List(ctx context.Context, restaurantID uuid.UUID) ([]ReviewView, error) {
	var reviews []models.Review
	err := s.db.WithContext(ctx).
		Preload("User").
		Where("restaurant_id = ?", restaurantID).
		Order("created_at DESC").
		Find(&reviews).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	return newReviewViews(reviews), nil
}

// Delete removes a review and takes its rating back out of the restaurant's
// accumulators.
func (s *ReviewService) Delete(ctx context.Context, actor access.Actor, id uuid.UUID) error {
	if err := access.RequireAdmin(actor); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var review models.Review
		if err := tx.First(&review, "id = ?", id).Error; err != nil {
			return notFoundOr(err, "Review not found")
		}
		res := tx.Delete(&models.Review{}, "id = ?", review.ID)
		if res.Error != nil {
			return fmt.Errorf("failed to delete review: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("Review not found")
		}
		return removeRating(tx, review.RestaurantID, review.Rating)
	})
}

// recordRating atomically adds one rating to a restaurant and returns the new
// average. The increment runs in the database so concurrent ratings are not
// lost.
func recordRating(tx *gorm.DB, restaurantID uuid.UUID, rating int) (*float64, error) {
	res := tx.Model(&models.Restaurant{}).
		Where("id = ?", restaurantID).
		UpdateColumns(map[string]any{
			"ratings_count": gorm.Expr("ratings_count + ?", 1),
			"total_ratings": gorm.Expr("total_ratings + ?", rating),
		})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to record rating: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperr.NotFound("Restaurant not found")
	}
	return averageOf(tx, restaurantID)
}

func removeRating(tx *gorm.DB, restaurantID uuid.UUID, rating int) error {
	err := tx.Model(&models.Restaurant{}).
		Where("id = ? AND ratings_count > 0 AND total_ratings >= ?", restaurantID, rating).
		UpdateColumns(map[string]any{
			"ratings_count": gorm.Expr("ratings_count - ?", 1),
			"total_ratings": gorm.Expr("total_ratings - ?", rating),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to remove rating: %w", err)
	}
	return nil
}

func averageOf(tx *gorm.DB, restaurantID uuid.UUID) (*float64, error) {
	var acc struct {
		RatingsCount int64
		TotalRatings int64
	}
	err := tx.Model(&models.Restaurant{}).
		Select("ratings_count", "total_ratings").
		Where("id = ?", restaurantID).
		Take(&acc).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read ratings: %w", err)
	}
	return models.AverageRating(acc.RatingsCount, acc.TotalRatings), nil
}
