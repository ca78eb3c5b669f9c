package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"restaurant-directory-api/access"
	"restaurant-directory-api/apperr"
	"restaurant-directory-api/metrics"
	"restaurant-directory-api/models"
	"restaurant-directory-api/statemachine"
	"restaurant-directory-api/storage"
)

const nearbyLimit = 20

var errDuplicateRestaurant = apperr.Conflict("A restaurant with this name and address already exists under your ownership.")

// RestaurantInput carries the fields of a new restaurant.
type RestaurantInput struct {
	Name         string
	Street       string
	Building     string
	City         string
	State        string
	Pincode      string
	Category     string
	PriceRange   models.PriceRange
	WorkingHours *models.WorkingHours
	MapLocation  *models.MapLocation
	Notices      []string
	Menu         []models.MenuItem
	Thumbnail    *Upload
	Gallery      []Upload
}

// RestaurantUpdate carries changed fields. Empty strings and nil values keep
// the stored value.
type RestaurantUpdate struct {
	Name         string
	Street       string
	Building     string
	City         string
	State        string
	Pincode      string
	Category     string
	PriceRange   models.PriceRange
	WorkingHours *models.WorkingHours
	MapLocation  *models.MapLocation
	Notices      *[]string
	Menu         *[]models.MenuItem
	Thumbnail    *Upload
	Gallery      []Upload
	// DeleteImages lists gallery URLs to drop.
	DeleteImages []string
}

// ListFilter narrows the public restaurant listing.
type ListFilter struct {
	Search     string
	Category   string
	PriceRange models.PriceRange
	MinRating  *float64
	Near       *models.MapLocation
}

// RestaurantService is the lifecycle engine: it creates and edits restaurants
// and moves them through the status state machine.
type RestaurantService struct {
	db             *gorm.DB
	store          storage.ObjectStore
	mailer         *Mailer
	maxUploadBytes int64
	now            func() time.Time
}

func NewRestaurantService(db *gorm.DB, store storage.ObjectStore, mailer *Mailer, maxUploadBytes int64) *RestaurantService {
	return &RestaurantService{db: db, store: store, mailer: mailer, maxUploadBytes: maxUploadBytes, now: time.Now}
}

func (s *RestaurantService) Create(ctx context.Context, actor access.Actor, in RestaurantInput) (*RestaurantView, error) {
	if err := access.CanCreateRestaurant(actor); err != nil {
		return nil, err
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if err := validateUploads(in.Thumbnail, in.Gallery, s.maxUploadBytes); err != nil {
		return nil, err
	}

	var owner models.User
	if err := s.db.WithContext(ctx).First(&owner, "id = ?", actor.UserID).Error; err != nil {
		return nil, notFoundOr(err, "User not found")
	}

	r := models.Restaurant{
		OwnerID:       owner.ID,
		Name:          strings.TrimSpace(in.Name),
		Street:        strings.TrimSpace(in.Street),
		Building:      strings.TrimSpace(in.Building),
		City:          strings.TrimSpace(in.City),
		State:         strings.TrimSpace(in.State),
		Pincode:       strings.TrimSpace(in.Pincode),
		Category:      strings.TrimSpace(in.Category),
		PriceRange:    in.PriceRange,
		Status:        models.StatusPending,
		WorkingHours:  datatypes.NewJSONType(in.WorkingHours),
		GalleryImages: datatypes.NewJSONType([]string{}),
		Notices:       datatypes.NewJSONType(nonNil(in.Notices)),
		Menu:          datatypes.NewJSONType(nonNil(in.Menu)),
	}
	r.SetMapLocation(in.MapLocation)

	taken, err := s.identityTaken(ctx, s.db, &r)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, errDuplicateRestaurant
	}
	if err := s.db.WithContext(ctx).Create(&r).Error; err != nil {
		if isDuplicate(err) {
			return nil, errDuplicateRestaurant
		}
		return nil, fmt.Errorf("failed to create restaurant: %w", err)
	}
	slog.Info("restaurant created", "restaurant_id", r.ID, "owner_id", owner.ID)

	// The row exists from here on; an upload failure leaves it without images.
	if in.Thumbnail != nil {
		url, err := putUpload(ctx, s.store, thumbnailPath(r.ID, in.Thumbnail.Filename), *in.Thumbnail)
		if err != nil {
			return nil, apperr.Upstream("Failed to upload thumbnail", err)
		}
		r.ThumbnailURL = url
	}
	if len(in.Gallery) > 0 {
		urls, err := uploadGallery(ctx, s.store, in.Gallery)
		if err != nil {
			return nil, err
		}
		r.GalleryImages = datatypes.NewJSONType(urls)
	}
	if r.ThumbnailURL != "" || len(in.Gallery) > 0 {
		if err := s.db.WithContext(ctx).Model(&r).Select("ThumbnailURL", "GalleryImages").Updates(&r).Error; err != nil {
			return nil, fmt.Errorf("failed to save restaurant images: %w", err)
		}
	}

	s.mailer.BusinessRegistered(owner.Email, r.Name)
	if !owner.IsVerified {
		s.mailer.VerifyEmail(owner.ID, owner.Email)
	}

	view := newRestaurantView(r)
	return &view, nil
}

func (s *RestaurantService) Update(ctx context.Context, actor access.Actor, id uuid.UUID, in RestaurantUpdate) (*RestaurantView, error) {
	if err := access.RequireAuthenticated(actor); err != nil {
		return nil, err
	}
	r, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !access.CanView(actor, r) {
		return nil, apperr.NotFound("Restaurant not found")
	}
	if err := access.CanUpdateRestaurant(actor, r); err != nil {
		return nil, err
	}
	if in.PriceRange != "" && !in.PriceRange.Valid() {
		return nil, apperr.Validation("Price range must be low, medium or high.")
	}
	if in.WorkingHours != nil {
		if err := in.WorkingHours.Validate(); err != nil {
			return nil, apperr.Validation("Invalid working hours: " + err.Error())
		}
	}
	if in.Menu != nil {
		if err := validateMenu(*in.Menu); err != nil {
			return nil, err
		}
	}
	if err := validateUploads(in.Thumbnail, in.Gallery, s.maxUploadBytes); err != nil {
		return nil, err
	}
	if err := checkGallerySize(r.GalleryImages.Data(), in.DeleteImages, len(in.Gallery)); err != nil {
		return nil, err
	}

	identityChanged := applyUpdate(r, in)
	if identityChanged {
		taken, err := s.identityTaken(ctx, s.db.Where("id <> ?", r.ID), r)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, errDuplicateRestaurant
		}
	}

	var obsolete []string
	if in.Thumbnail != nil {
		url, err := putUpload(ctx, s.store, thumbnailPath(r.ID, in.Thumbnail.Filename), *in.Thumbnail)
		if err != nil {
			return nil, apperr.Upstream("Failed to upload thumbnail", err)
		}
		if r.ThumbnailURL != "" {
			obsolete = append(obsolete, r.ThumbnailURL)
		}
		r.ThumbnailURL = url
	}

	gallery := r.GalleryImages.Data()
	if len(in.DeleteImages) > 0 {
		kept := make([]string, 0, len(gallery))
		for _, url := range gallery {
			if slices.Contains(in.DeleteImages, url) {
				obsolete = append(obsolete, url)
				continue
			}
			kept = append(kept, url)
		}
		gallery = kept
	}
	if len(in.Gallery) > 0 {
		urls, err := uploadGallery(ctx, s.store, in.Gallery)
		if err != nil {
			return nil, err
		}
		gallery = append(gallery, urls...)
	}
	r.GalleryImages = datatypes.NewJSONType(nonNil(gallery))

	err = s.db.WithContext(ctx).Model(r).
		Select("Name", "Street", "Building", "City", "State", "Pincode", "Category", "PriceRange",
			"WorkingHours", "Latitude", "Longitude", "ThumbnailURL", "GalleryImages", "Notices", "Menu").
		Updates(r).Error
	if err != nil {
		if isDuplicate(err) {
			return nil, errDuplicateRestaurant
		}
		return nil, fmt.Errorf("failed to update restaurant: %w", err)
	}

	// The row is already saved; a failed delete only leaves stray objects.
	if paths := storage.PathsOf(s.store, obsolete); len(paths) > 0 {
		if err := s.store.Delete(ctx, paths); err != nil {
			return nil, apperr.Upstream("Failed to delete images", err)
		}
	}

	view := newRestaurantView(*r)
	return &view, nil
}

// Get returns one restaurant. Listings that are not approved are only visible
// to their owner and admins.
func (s *RestaurantService) Get(ctx context.Context, actor access.Actor, id uuid.UUID) (*RestaurantDetail, error) {
	var r models.Restaurant
	err := s.db.WithContext(ctx).
		Preload("Owner").
		Preload("Reviews", func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC") }).
		Preload("Reviews.User").
		First(&r, "id = ?", id).Error
	if err != nil {
		return nil, notFoundOr(err, "Restaurant not found")
	}
	if !access.CanView(actor, &r) {
		return nil, apperr.NotFound("Restaurant not found")
	}

	detail := &RestaurantDetail{
		RestaurantView: newRestaurantView(r),
		Reviews:        newReviewViews(r.Reviews),
	}
	if r.Owner != nil {
		detail.Owner = &models.UserSummary{ID: r.Owner.ID, Name: r.Owner.Name, Email: r.Owner.Email}
	}
	if hours := r.WorkingHours.Data(); hours != nil {
		open := hours.OpenAt(s.now())
		detail.IsOpen = &open
	}
	return detail, nil
}

// List returns approved restaurants matching f. With coordinates the nearest
// restaurants come first and at most 20 are returned.
func (s *RestaurantService) List(ctx context.Context, f ListFilter) ([]RestaurantView, error) {
	q := s.db.WithContext(ctx).Model(&models.Restaurant{}).Where("status = ?", models.StatusApproved)
	if search := strings.TrimSpace(f.Search); search != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.PriceRange != "" {
		q = q.Where("price_range = ?", f.PriceRange)
	}
	if f.MinRating != nil {
		q = q.Where("ratings_count > 0 AND total_ratings >= ? * ratings_count", *f.MinRating)
	}
	if f.Near != nil {
		q = q.Order(clause.OrderBy{Expression: clause.Expr{
			SQL: "CASE WHEN latitude IS NULL OR longitude IS NULL THEN 1 ELSE 0 END, " +
				"(latitude - ?) * (latitude - ?) + (longitude - ?) * (longitude - ?)",
			Vars:               []any{f.Near.Lat, f.Near.Lat, f.Near.Lng, f.Near.Lng},
			WithoutParentheses: true,
		}}).Limit(nearbyLimit)
	} else {
		q = q.Order("created_at DESC")
	}

	var rs []models.Restaurant
	if err := q.Find(&rs).Error; err != nil {
		return nil, fmt.Errorf("failed to list restaurants: %w", err)
	}
	return newRestaurantViews(rs), nil
}

// Categories lists the distinct categories of approved restaurants.
func (s *RestaurantService) Categories(ctx context.Context) ([]string, error) {
	categories := []string{}
	err := s.db.WithContext(ctx).Model(&models.Restaurant{}).
		Where("status = ?", models.StatusApproved).
		Distinct("category").
		Order("category ASC").
		Pluck("category", &categories).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// ListOwned returns every restaurant of the calling owner, in any status.
func (s *RestaurantService) ListOwned(ctx context.Context, actor access.Actor) ([]RestaurantView, error) {
	if err := access.CanListOwned(actor); err != nil {
		return nil, err
	}
	var rs []models.Restaurant
	if err := s.db.WithContext(ctx).Where("owner_id = ?", actor.UserID).Order("created_at DESC").Find(&rs).Error; err != nil {
		return nil, fmt.Errorf("failed to list owner restaurants: %w", err)
	}
	return newRestaurantViews(rs), nil
}

func (s *RestaurantService) Pending(ctx context.Context, actor access.Actor) ([]RestaurantView, error) {
	if err := access.RequireAdmin(actor); err != nil {
		return nil, err
	}
	var rs []models.Restaurant
	if err := s.db.WithContext(ctx).Where("status = ?", models.StatusPending).Order("created_at ASC").Find(&rs).Error; err != nil {
		return nil, fmt.Errorf("failed to list pending restaurants: %w", err)
	}
	return newRestaurantViews(rs), nil
}

// Ratings lists the reviews of an existing restaurant.
func (s *RestaurantService) Ratings(ctx context.Context, id uuid.UUID) ([]ReviewView, error) {
	if _, err := s.find(ctx, id); err != nil {
		return nil, err
	}
	var reviews []models.Review
	if err := s.db.WithContext(ctx).Preload("User").Where("restaurant_id = ?", id).Order("created_at DESC").Find(&reviews).Error; err != nil {
		return nil, fmt.Errorf("failed to list ratings: %w", err)
	}
	return newReviewViews(reviews), nil
}

func (s *RestaurantService) Approve(ctx context.Context, actor access.Actor, id uuid.UUID) (*models.Restaurant, error) {
	return s.transition(ctx, actor, id, statemachine.ActionApprove)
}

func (s *RestaurantService) Reject(ctx context.Context, actor access.Actor, id uuid.UUID) (*models.Restaurant, error) {
	return s.transition(ctx, actor, id, statemachine.ActionReject)
}

func (s *RestaurantService) RequestDelete(ctx context.Context, actor access.Actor, id uuid.UUID) (*models.Restaurant, error) {
	return s.transition(ctx, actor, id, statemachine.ActionRequestDelete)
}

func (s *RestaurantService) ApproveDelete(ctx context.Context, actor access.Actor, id uuid.UUID) error {
	_, err := s.transition(ctx, actor, id, statemachine.ActionApproveDelete)
	return err
}

func (s *RestaurantService) ForceDelete(ctx context.Context, actor access.Actor, id uuid.UUID) error {
	_, err := s.transition(ctx, actor, id, statemachine.ActionForceDelete)
	return err
}

var conflictMessages = map[statemachine.Action]string{
	statemachine.ActionReject:        "Restaurant is not pending.",
	statemachine.ActionRequestDelete: "Deletion already requested.",
	statemachine.ActionApproveDelete: "Delete not requested for this restaurant.",
}

// transition applies action inside one transaction. The status update is
// conditional on the status that was read, so a concurrent transition on the
// same row turns into a Conflict instead of being overwritten.
func (s *RestaurantService) transition(ctx context.Context, actor access.Actor, id uuid.UUID, action statemachine.Action) (*models.Restaurant, error) {
	if action != statemachine.ActionRequestDelete {
		if err := access.RequireAdmin(actor); err != nil {
			return nil, err
		}
	} else if err := access.RequireAuthenticated(actor); err != nil {
		return nil, err
	}

	var r models.Restaurant
	var to models.RestaurantStatus
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Owner").First(&r, "id = ?", id).Error; err != nil {
			return notFoundOr(err, "Restaurant not found")
		}
		if !access.CanView(actor, &r) {
			return apperr.NotFound("Restaurant not found")
		}
		role, err := access.TransitionActor(actor, action, &r)
		if err != nil {
			return err
		}
		to, err = statemachine.Next(action, r.Status, role)
		if err != nil {
			var invalid *statemachine.ErrInvalidTransition
			if msg, ok := conflictMessages[action]; ok && errors.As(err, &invalid) {
				return apperr.Conflict(msg)
			}
			return apperr.Conflict(err.Error())
		}

		if to == models.StatusDeleted {
			if err := tx.Where("restaurant_id = ?", r.ID).Delete(&models.Review{}).Error; err != nil {
				return fmt.Errorf("failed to delete reviews: %w", err)
			}
			res := tx.Where("status = ?", r.Status).Delete(&models.Restaurant{}, "id = ?", r.ID)
			if res.Error != nil {
				return fmt.Errorf("failed to delete restaurant: %w", res.Error)
			}
			if res.RowsAffected == 0 {
				return apperr.Conflict("Restaurant changed while processing the request.")
			}
			return nil
		}

		res := tx.Model(&models.Restaurant{}).
			Where("id = ? AND status = ?", r.ID, r.Status).
			Update("status", to)
		if res.Error != nil {
			return fmt.Errorf("failed to update status: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict("Restaurant changed while processing the request.")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	from := r.Status
	r.Status = to
	metrics.RecordTransition(string(action), string(to))
	slog.Info("restaurant transition", "restaurant_id", r.ID, "action", action, "from", from, "to", to, "actor_id", actor.UserID)

	if to == models.StatusDeleted {
		s.removeImages(ctx, &r)
	}
	if r.Owner != nil {
		switch action {
		case statemachine.ActionApprove, statemachine.ActionReject, statemachine.ActionApproveDelete:
			s.mailer.StatusUpdate(r.Owner.Email, r.Name, statusLabel(action, to))
		}
	}
	return &r, nil
}

// statusLabel is the status wording used in owner mail.
func statusLabel(action statemachine.Action, to models.RestaurantStatus) string {
	if action == statemachine.ActionApproveDelete {
		return "delete approved"
	}
	return string(to)
}

// removeImages deletes the stored images of a removed restaurant. Failures
// are logged only.
func (s *RestaurantService) removeImages(ctx context.Context, r *models.Restaurant) {
	paths := storage.PathsOf(s.store, r.ImageURLs())
	if len(paths) == 0 {
		return
	}
	if err := s.store.Delete(ctx, paths); err != nil {
		slog.Warn("failed to delete restaurant images", "restaurant_id", r.ID, "count", len(paths), "error", err)
	}
}

func (s *RestaurantService) find(ctx context.Context, id uuid.UUID) (*models.Restaurant, error) {
	var r models.Restaurant
	if err := s.db.WithContext(ctx).First(&r, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "Restaurant not found")
	}
	return &r, nil
}

// identityTaken reports whether another restaurant of the same owner already
// has r's name and address. q may carry extra conditions.
func (s *RestaurantService) identityTaken(ctx context.Context, q *gorm.DB, r *models.Restaurant) (bool, error) {
	var n int64
	err := q.WithContext(ctx).Model(&models.Restaurant{}).
		Where("owner_id = ? AND name = ? AND street = ? AND city = ? AND state = ? AND pincode = ?",
			r.OwnerID, r.Name, r.Street, r.City, r.State, r.Pincode).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("failed to check for duplicates: %w", err)
	}
	return n > 0, nil
}

func validateInput(in RestaurantInput) error {
	required := []string{in.Name, in.Street, in.City, in.State, in.Pincode, in.Category, string(in.PriceRange)}
	for _, v := range required {
		if strings.TrimSpace(v) == "" {
			return apperr.Validation("Missing required fields.")
		}
	}
	if !in.PriceRange.Valid() {
		return apperr.Validation("Price range must be low, medium or high.")
	}
	if in.WorkingHours != nil {
		if err := in.WorkingHours.Validate(); err != nil {
			return apperr.Validation("Invalid working hours: " + err.Error())
		}
	}
	return validateMenu(in.Menu)
}

func validateMenu(menu []models.MenuItem) error {
	for _, item := range menu {
		if strings.TrimSpace(item.Name) == "" || item.Price < 0 {
			return apperr.Validation("Menu items need a name and a non-negative price.")
		}
	}
	return nil
}

// applyUpdate copies the set fields of in onto r and reports whether the
// name or address changed.
func applyUpdate(r *models.Restaurant, in RestaurantUpdate) bool {
	changed := false
	set := func(dst *string, v string, identity bool) {
		v = strings.TrimSpace(v)
		if v == "" || v == *dst {
			return
		}
		*dst = v
		if identity {
			changed = true
		}
	}
	set(&r.Name, in.Name, true)
	set(&r.Street, in.Street, true)
	set(&r.Building, in.Building, false)
	set(&r.City, in.City, true)
	set(&r.State, in.State, true)
	set(&r.Pincode, in.Pincode, true)
	set(&r.Category, in.Category, false)
	if in.PriceRange != "" {
		r.PriceRange = in.PriceRange
	}
	if in.WorkingHours != nil {
		r.WorkingHours = datatypes.NewJSONType(in.WorkingHours)
	}
	if in.MapLocation != nil {
		r.SetMapLocation(in.MapLocation)
	}
	if in.Notices != nil {
		r.Notices = datatypes.NewJSONType(nonNil(*in.Notices))
	}
	if in.Menu != nil {
		r.Menu = datatypes.NewJSONType(nonNil(*in.Menu))
	}
	return changed
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
