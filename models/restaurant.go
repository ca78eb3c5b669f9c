package models

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RestaurantStatus is the listing state driven by owner and admin actions.
type RestaurantStatus string

const (
	StatusPending         RestaurantStatus = "pending"
	StatusApproved        RestaurantStatus = "approved"
	StatusRejected        RestaurantStatus = "rejected"
	StatusDeleteRequested RestaurantStatus = "delete_requested"
	// StatusDeleted is never stored; it names the row-removal transition.
	StatusDeleted RestaurantStatus = "deleted"
)

type PriceRange string

const (
	PriceLow    PriceRange = "low"
	PriceMedium PriceRange = "medium"
	PriceHigh   PriceRange = "high"
)

func (p PriceRange) Valid() bool {
	switch p {
	case PriceLow, PriceMedium, PriceHigh:
		return true
	}
	return false
}

type MenuItem struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type MapLocation struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type Restaurant struct {
	ID            uuid.UUID                         `json:"id" gorm:"type:uuid;primaryKey"`
	OwnerID       uuid.UUID                         `json:"ownerId" gorm:"type:uuid;not null;index;uniqueIndex:idx_restaurant_identity"`
	Owner         *User                             `json:"-" gorm:"foreignKey:OwnerID"`
	Name          string                            `json:"name" gorm:"not null;uniqueIndex:idx_restaurant_identity"`
	Street        string                            `json:"street" gorm:"not null;uniqueIndex:idx_restaurant_identity"`
	Building      string                            `json:"building"`
	City          string                            `json:"city" gorm:"not null;uniqueIndex:idx_restaurant_identity"`
	State         string                            `json:"state" gorm:"not null;uniqueIndex:idx_restaurant_identity"`
	Pincode       string                            `json:"pincode" gorm:"not null;uniqueIndex:idx_restaurant_identity"`
	Category      string                            `json:"category" gorm:"not null;index"`
	PriceRange    PriceRange                        `json:"priceRange" gorm:"not null"`
	Status        RestaurantStatus                  `json:"status" gorm:"not null;default:'pending';index"`
	RatingsCount  int64                             `json:"ratingsCount" gorm:"not null;default:0"`
	TotalRatings  int64                             `json:"totalRatings" gorm:"not null;default:0"`
	WorkingHours  datatypes.JSONType[*WorkingHours] `json:"workingHours"`
	Latitude      *float64                          `json:"-"`
	Longitude     *float64                          `json:"-"`
	ThumbnailURL  string                            `json:"thumbnailUrl"`
	GalleryImages datatypes.JSONType[[]string]      `json:"galleryImages"`
	Notices       datatypes.JSONType[[]string]      `json:"notices"`
	Menu          datatypes.JSONType[[]MenuItem]    `json:"menu"`
	Reviews       []Review                          `json:"-" gorm:"foreignKey:RestaurantID"`
	CreatedAt     time.Time                         `json:"createdAt"`
	UpdatedAt     time.Time                         `json:"updatedAt"`
}

func (r *Restaurant) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// AverageRating is totalRatings/ratingsCount rounded half away from zero to
// one decimal place, or nil when nothing has been rated yet.
func AverageRating(ratingsCount, totalRatings int64) *float64 {
	if ratingsCount <= 0 {
		return nil
	}
	avg := math.Round(float64(totalRatings)/float64(ratingsCount)*10) / 10
	return &avg
}

func (r *Restaurant) AverageRating() *float64 {
	return AverageRating(r.RatingsCount, r.TotalRatings)
}

// Address renders the postal address on one line, skipping an empty building.
func (r *Restaurant) Address() string {
	parts := []string{r.Street}
	if r.Building != "" {
		parts = append(parts, r.Building)
	}
	parts = append(parts, r.City, r.State, r.Pincode)
	return strings.Join(parts, ", ")
}

func (r *Restaurant) MapLocation() *MapLocation {
	if r.Latitude == nil || r.Longitude == nil {
		return nil
	}
	return &MapLocation{Lat: *r.Latitude, Lng: *r.Longitude}
}

func (r *Restaurant) SetMapLocation(loc *MapLocation) {
	if loc == nil {
		r.Latitude, r.Longitude = nil, nil
		return
	}
	lat, lng := loc.Lat, loc.Lng
	r.Latitude, r.Longitude = &lat, &lng
}

// ImageURLs lists the thumbnail and gallery images held in object storage.
func (r *Restaurant) ImageURLs() []string {
	var urls []string
	if r.ThumbnailURL != "" {
		urls = append(urls, r.ThumbnailURL)
	}
	return append(urls, r.GalleryImages.Data()...)
}
