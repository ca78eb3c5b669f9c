package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	MinRating = 1
	MaxRating = 5
)

type Review struct {
	ID           uuid.UUID   `json:"id" gorm:"type:uuid;primaryKey"`
	RestaurantID uuid.UUID   `json:"restaurantId" gorm:"type:uuid;not null;index"`
	Restaurant   *Restaurant `json:"-" gorm:"foreignKey:RestaurantID;constraint:OnDelete:CASCADE"`
	UserID       uuid.UUID   `json:"userId" gorm:"type:uuid;not null;index"`
	User         *User       `json:"-" gorm:"foreignKey:UserID"`
	Rating       int         `json:"rating" gorm:"not null"`
	Comment      string      `json:"comment"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

func (r *Review) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// ValidRating reports whether v lies within [MinRating, MaxRating].
func ValidRating(v int) bool {
	return v >= MinRating && v <= MaxRating
}
