package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"restaurant-directory-api/access"
	"restaurant-directory-api/apperr"
	"restaurant-directory-api/models"
	"restaurant-directory-api/notify"
	"restaurant-directory-api/storage"
)

func TestCreateRestaurant(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.user(t, "owner@example.com", models.RoleBusinessOwner)

	in := sampleInput("Joe's Cafe")
	in.Building = "Block B"
	in.MapLocation = &models.MapLocation{Lat: 18.52, Lng: 73.85}
	in.Menu = []models.MenuItem{{Name: "Filter coffee", Price: 40}}
	in.Thumbnail = ptrUpload(imageUpload("front door.png", "thumb"))
	in.Gallery = []Upload{imageUpload("a.png", "a"), imageUpload("b.png", "b")}

	r, err := env.restaurants.Create(ctx, owner, in)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, r.Status)
	assert.Equal(t, "12 Main St, Block B, Pune, MH, 411001", r.Address)
	assert.Nil(t, r.AverageRating)
	assert.Equal(t, in.MapLocation, r.MapLocation)
	assert.True(t, strings.HasPrefix(r.ThumbnailURL, "http://files.test/uploads/thumbnails/"+r.ID.String()+"/"))
	assert.True(t, strings.HasSuffix(r.ThumbnailURL, "_front_door.png"))
	require.Len(t, r.GalleryImages.Data(), 2)
	assert.Contains(t, r.GalleryImages.Data()[0], "/gallery-images/")

	stored, err := env.restaurants.Get(ctx, owner, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ThumbnailURL, stored.ThumbnailURL)
	assert.Equal(t, in.Menu, stored.Menu.Data())
	assert.Equal(t, "owner@example.com", stored.Owner.Email)

	registered := env.mailsOfKind(notify.KindBusinessRegistered)
	require.Len(t, registered, 1)
	assert.Equal(t, "Joe's Cafe", registered[0].Data["restaurant"])
	// One verification mail from registration, one more because the owner is
	// still unverified.
	assert.Len(t, env.mailsOfKind(notify.KindVerifyEmail), 2)
}

func TestCreateRestaurantValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.user(t, "owner@example.com", models.RoleBusinessOwner)
	user := env.user(t, "user@example.com", models.RoleUser)

	_, err := env.restaurants.Create(ctx, access.Anonymous(), sampleInput("R"))
	assert.True(t, apperr.Is(err, apperr.KindAuthentication))

	_, err = env.restaurants.Create(ctx, user, sampleInput("R"))
	assert.True(t, apperr.Is(err, apperr.KindAuthorization))

	missing := sampleInput("R")
	missing.Pincode = " "
	_, err = env.restaurants.Create(ctx, owner, missing)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	badPrice := sampleInput("R")
	badPrice.PriceRange = "luxury"
	_, err = env.restaurants.Create(ctx, owner, badPrice)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	notImage := sampleInput("R")
	notImage.Thumbnail = &Upload{Filename: "menu.pdf", ContentType: "application/pdf", Size: 10}
	_, err = env.restaurants.Create(ctx, owner, notImage)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	tooMany := sampleInput("R")
	for range MaxGalleryUploads + 1 {
		tooMany.Gallery = append(tooMany.Gallery, imageUpload("x.png", "x"))
	}
	_, err = env.restaurants.Create(ctx, owner, tooMany)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	var n int64
	env.db.Model(&models.Restaurant{}).Count(&n)
	assert.Zero(t, n)
}

func TestCreateRestaurantDuplicate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.user(t, "owner@example.com", models.RoleBusinessOwner)
	other := env.user(t, "other@example.com", models.RoleBusinessOwner)

	env.restaurant(t, owner, "Joe's Cafe")

	_, err := env.restaurants.Create(ctx, owner, sampleInput("Joe's Cafe"))
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	_, err = env.restaurants.Create(ctx, other, sampleInput("Joe's Cafe"))
	assert.NoError(t, err, "same address under another owner is allowed")
}

func TestCreateRestaurantUploadFailureKeepsRow(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := storage.NewMockObjectStore(ctrl)
	store.EXPECT().Store(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), "image/png").
		Return("", errors.New("AccessDenied"))

	env := newTestEnv(t, withStore(store))
	owner := env.user(t, "owner@example.com", models.RoleBusinessOwner)

	in := sampleInput("R")
	in.Thumbnail = ptrUpload(imageUpload("t.png", "t"))
	_, err := env.restaurants.Create(context.Background(), owner, in)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindUpstream))
	assert.Equal(t, "Failed to upload thumbnail", apperr.Message(err))

	var n int64
	env.db.Model(&models.Restaurant{}).Count(&n)
	assert.Equal(t, int64(1), n)
}

func TestUpdateRestaurant(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.user(t, "owner@example.com", models.RoleBusinessOwner)
	stranger := env.user(t, "stranger@example.com", models.RoleBusinessOwner)
	admin := env.user(t, "admin@example.com", models.RoleAdmin)

	in := sampleInput("R")
	in.Thumbnail = ptrUpload(imageUpload("old.png", "old"))
	in.Gallery = []Upload{imageUpload("keep.png", "k"), imageUpload("drop.png", "d")}
	r, err := env.restaurants.Create(ctx, owner, in)
	require.NoError(t, err)
	oldThumb := r.ThumbnailURL
	keep, drop := r.GalleryImages.Data()[0], r.GalleryImages.Data()[1]

	_, err = env.restaurants.Update(ctx, stranger, r.ID, RestaurantUpdate{Name: "Hijacked"})
	assert.True(t, apperr.Is(err, apperr.KindNotFound), "pending listings stay hidden from other owners")
	assert.Equal(t, "Restaurant not found", apperr.Message(err))

	notices := []string{"Closed on Diwali"}
	updated, err := env.restaurants.Update(ctx, owner, r.ID, RestaurantUpdate{
		Street:       "14 Main St",
		Notices:      &notices,
		Thumbnail:    ptrUpload(imageUpload("new.png", "new")),
		Gallery:      []Upload{imageUpload("added.png", "n")},
		DeleteImages: []string{drop, "http://files.test/uploads/gallery-images/not-ours.png"},
	})
	require.NoError(t, err)
	assert.Equal(t, "14 Main St", updated.Street)
	assert.Equal(t, "R", updated.Name)
	assert.Equal(t, notices, updated.Notices.Data())
	assert.NotEqual(t, oldThumb, updated.ThumbnailURL)

	gallery := updated.GalleryImages.Data()
	require.Len(t, gallery, 2)
	assert.Equal(t, keep, gallery[0])
	assert.NotContains(t, gallery, drop)

	local := env.store.(*storage.LocalStore)
	assertObject(t, local, oldThumb, false)
	assertObject(t, local, drop, false)
	assertObject(t, local, keep, true)
	assertObject(t, local, updated.ThumbnailURL, true)

	_, err = env.restaurants.Update(ctx, admin, r.ID, RestaurantUpdate{Category: "Bakery"})
	assert.NoError(t, err, "admins may edit any restaurant")
	assert.Equal(t, models.StatusPending, env.status(t, r.ID), "update never touches status")

	_, err = env.restaurants.Approve(ctx, admin, r.ID)
	require.NoError(t, err)
	_, err = env.restaurants.Update(ctx, stranger, r.ID, RestaurantUpdate{Name: "Hijacked"})
	assert.True(t, apperr.Is(err, apperr.KindAuthorization))
}

func TestUpdateRestaurantGalleryLimit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.user(t, "owner@example.com", models.RoleBusinessOwner)
	r := env.restaurant(t, owner, "Gallery")

	batch := func(prefix string, n int) []Upload {
		uploads := make([]Upload, n)
		for i := range uploads {
			uploads[i] = imageUpload(fmt.Sprintf("%s-%d.png", prefix, i), "x")
		}
		return uploads
	}

	var gallery []string
	for i := range MaxGalleryImages / MaxGalleryUploads {
		updated, err := env.restaurants.Update(ctx, owner, r.ID, RestaurantUpdate{Gallery: batch(fmt.Sprint(i), MaxGalleryUploads)})
		require.NoError(t, err)
		gallery = updated.GalleryImages.Data()
	}
	require.Len(t, gallery, MaxGalleryImages)

	_, err := env.restaurants.Update(ctx, owner, r.ID, RestaurantUpdate{Gallery: batch("extra", 1)})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Equal(t, fmt.Sprintf("A restaurant can have at most %d gallery images.", MaxGalleryImages), apperr.Message(err))
	assert.Len(t, env.restaurantRow(t, r.ID).GalleryImages.Data(), MaxGalleryImages)

	updated, err := env.restaurants.Update(ctx, owner, r.ID, RestaurantUpdate{
		Gallery:      batch("swap", 2),
		DeleteImages: gallery[:2],
	})
	require.NoError(t, err, "deleted images free their slots")
	assert.Len(t, updated.GalleryImages.Data(), MaxGalleryImages)
	assert.NotContains(t, updated.GalleryImages.Data(), gallery[0])
}

func TestUpdateRestaurantDuplicateIdentity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.user(t, "owner@example.com", models.RoleBusinessOwner)

	env.restaurant(t, owner, "First")
	second := env.restaurant(t, owner, "Second")

	_, err := env.restaurants.Update(ctx, owner, second.ID, RestaurantUpdate{Name: "First"})
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	_, err = env.restaurants.Update(ctx, owner, second.ID, RestaurantUpdate{Name: "Second", Category: "Bar"})
	assert.NoError(t, err, "unchanged identity is not a duplicate of itself")
}

func TestLifecycleTransitions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.user(t, "owner@example.com", models.RoleBusinessOwner)
	other := env.user(t, "other@example.com", models.RoleBusinessOwner)
	admin := env.user(t, "admin@example.com", models.RoleAdmin)

	t.Run("reject requires pending", func(t *testing.T) {
		r := env.approved(t, owner, admin, "Approved Place")
		_, err := env.restaurants.Reject(ctx, admin, r.ID)
		assert.True(t, apperr.Is(err, apperr.KindConflict))
		assert.Equal(t, models.StatusApproved, env.status(t, r.ID))
	})

	t.Run("approve is idempotent", func(t *testing.T) {
		r := env.approved(t, owner, admin, "Twice Approved")
		got, err := env.restaurants.Approve(ctx, admin, r.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusApproved, got.Status)
	})

	t.Run("reject pending", func(t *testing.T) {
		r := env.restaurant(t, owner, "Rejected Place")
		got, err := env.restaurants.Reject(ctx, admin, r.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusRejected, got.Status)
	})

	t.Run("only admins approve", func(t *testing.T) {
		r := env.restaurant(t, owner, "Self Approved")
		_, err := env.restaurants.Approve(ctx, owner, r.ID)
		assert.True(t, apperr.Is(err, apperr.KindAuthorization))
		_, err = env.restaurants.Approve(ctx, access.Anonymous(), r.ID)
		assert.True(t, apperr.Is(err, apperr.KindAuthentication))
		assert.Equal(t, models.StatusPending, env.status(t, r.ID))
	})

	t.Run("request delete by non owner", func(t *testing.T) {
		r := env.approved(t, owner, admin, "Not Yours")
		_, err := env.restaurants.RequestDelete(ctx, other, r.ID)
		assert.True(t, apperr.Is(err, apperr.KindAuthorization))
		_, err = env.restaurants.RequestDelete(ctx, admin, r.ID)
		assert.True(t, apperr.Is(err, apperr.KindAuthorization))
		assert.Equal(t, models.StatusApproved, env.status(t, r.ID))
	})

	t.Run("request delete on hidden listing", func(t *testing.T) {
		r := env.restaurant(t, owner, "Unlisted")
		_, err := env.restaurants.RequestDelete(ctx, other, r.ID)
		assert.True(t, apperr.Is(err, apperr.KindNotFound))
		_, err = env.restaurants.RequestDelete(ctx, other, uuid.New())
		assert.True(t, apperr.Is(err, apperr.KindNotFound))
		assert.Equal(t, models.StatusPending, env.status(t, r.ID))
	})

	t.Run("request delete twice", func(t *testing.T) {
		r := env.approved(t, owner, admin, "Going Away")
		_, err := env.restaurants.RequestDelete(ctx, owner, r.ID)
		require.NoError(t, err)
		_, err = env.restaurants.RequestDelete(ctx, owner, r.ID)
		assert.True(t, apperr.Is(err, apperr.KindConflict))
		assert.Equal(t, "Deletion already requested.", apperr.Message(err))
	})

	t.Run("approve delete requires request", func(t *testing.T) {
		r := env.approved(t, owner, admin, "Still Here")
		err := env.restaurants.ApproveDelete(ctx, admin, r.ID)
		assert.True(t, apperr.Is(err, apperr.KindConflict))
		assert.Equal(t, models.StatusApproved, env.status(t, r.ID))
	})

	t.Run("missing restaurant", func(t *testing.T) {
		_, err := env.restaurants.Approve(ctx, admin, uuid.New())
		assert.True(t, apperr.Is(err, apperr.KindNotFound))
		err = env.restaurants.ForceDelete(ctx, admin, uuid.New())
		assert.True(t, apperr.Is(err, apperr.KindNotFound))
	})
}

func TestConcurrentRejectsConflict(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.user(t, "owner@example.com", models.RoleBusinessOwner)
	admin := env.user(t, "admin@example.com", models.RoleAdmin)
	r := env.restaurant(t, owner, "Contested")

	const n = 8
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = env.restaurants.Reject(ctx, admin, r.ID)
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, apperr.Is(err, apperr.KindConflict), "got %v", err)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, models.StatusRejected, env.status(t, r.ID))
	assert.Len(t, env.mailsOfKind(notify.KindStatusUpdate), 1)
}

func TestTransitionLosesToCommittedChange(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.user(t, "owner@example.com", models.RoleBusinessOwner)
	admin := env.user(t, "admin@example.com", models.RoleAdmin)
	user := env.user(t, "user@example.com", models.RoleUser)

	t.Run("status update", func(t *testing.T) {
		r := env.restaurant(t, owner, "Update Race")
		_, err := env.restaurants.Reject(ctx, admin, r.ID)
		require.NoError(t, err)

		env.staleRead(t, r.ID, models.StatusPending)
		_, err = env.restaurants.Reject(ctx, admin, r.ID)
		assert.True(t, apperr.Is(err, apperr.KindConflict))
		assert.Equal(t, "Restaurant changed while processing the request.", apperr.Message(err))
		assert.Equal(t, models.StatusRejected, env.status(t, r.ID))
	})

	t.Run("delete", func(t *testing.T) {
		r := env.approved(t, owner, admin, "Delete Race")
		_, err := env.reviews.Create(ctx, user, r.ID, 4, "fine")
		require.NoError(t, err)
		_, err = env.restaurants.RequestDelete(ctx, owner, r.ID)
		require.NoError(t, err)
		_, err = env.restaurants.Approve(ctx, admin, r.ID)
		require.NoError(t, err)

		env.staleRead(t, r.ID, models.StatusDeleteRequested)
		err = env.restaurants.ApproveDelete(ctx, admin, r.ID)
		assert.True(t, apperr.Is(err, apperr.KindConflict))
		assert.Equal(t, "Restaurant changed while processing the request.", apperr.Message(err))
		assert.Equal(t, models.StatusApproved, env.status(t, r.ID))

		var reviews int64
		require.NoError(t, env.db.Model(&models.Review{}).Where("restaurant_id = ?", r.ID).Count(&reviews).Error)
		assert.Equal(t, int64(1), reviews, "review removal rolls back with the delete")
	})

	for _, m := range env.mailsOfKind(notify.KindStatusUpdate) {
		assert.NotEqual(t, "delete approved", m.Data["status"])
	}
}

func TestTransitionsNotifyOwner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.user(t, "owner@example.com", models.RoleBusinessOwner)
	admin := env.user(t, "admin@example.com", models.RoleAdmin)

	a := env.approved(t, owner, admin, "A")
	b := env.restaurant(t, owner, "B")
	_, err := env.restaurants.Reject(ctx, admin, b.ID)
	require.NoError(t, err)
	_, err = env.restaurants.RequestDelete(ctx, owner, a.ID)
	require.NoError(t, err)
	require.NoError(t, env.restaurants.ApproveDelete(ctx, admin, a.ID))

	var got []string
	for _, m := range env.mailsOfKind(notify.KindStatusUpdate) {
		assert.Equal(t, "owner@example.com", m.To)
		got = append(got, m.Data["restaurant"]+":"+m.Data["status"])
	}
	assert.ElementsMatch(t, []string{"A:approved", "B:rejected", "A:delete approved"}, got)
}

func TestForceDeleteRemovesReviewsAndImages(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.user(t, "owner@example.com", models.RoleBusinessOwner)
	admin := env.user(t, "admin@example.com", models.RoleAdmin)
	user := env.user(t, "user@example.com", models.RoleUser)

	in := sampleInput("Doomed")
	in.Thumbnail = ptrUpload(imageUpload("t.png", "t"))
	r, err := env.restaurants.Create(ctx, owner, in)
	require.NoError(t, err)
	_, err = env.reviews.Create(ctx, user, r.ID, 5, "great")
	require.NoError(t, err)

	require.NoError(t, env.restaurants.ForceDelete(ctx, admin, r.ID))

	var restaurants, reviews int64
	env.db.Model(&models.Restaurant{}).Where("id = ?", r.ID).Count(&restaurants)
	env.db.Model(&models.Review{}).Where("restaurant_id = ?", r.ID).Count(&reviews)
	assert.Zero(t, restaurants)
	assert.Zero(t, reviews)
	assertObject(t, env.store.(*storage.LocalStore), r.ThumbnailURL, false)
}

func TestForceDeleteIgnoresStorageFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := storage.NewMockObjectStore(ctrl)
	store.EXPECT().Store(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return("https://cdn.test/thumbnails/x.png", nil)
	store.EXPECT().PathOf("https://cdn.test/thumbnails/x.png").Return("thumbnails/x.png", true)
	store.EXPECT().Delete(gomock.Any(), []string{"thumbnails/x.png"}).Return(errors.New("SlowDown"))

	env := newTestEnv(t, withStore(store))
	owner := env.user(t, "owner@example.com", models.RoleBusinessOwner)
	admin := env.user(t, "admin@example.com", models.RoleAdmin)

	in := sampleInput("R")
	in.Thumbnail = ptrUpload(imageUpload("x.png", "x"))
	r, err := env.restaurants.Create(context.Background(), owner, in)
	require.NoError(t, err)

	assert.NoError(t, env.restaurants.ForceDelete(context.Background(), admin, r.ID))
}

func TestGetVisibility(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.user(t, "owner@example.com", models.RoleBusinessOwner)
	admin := env.user(t, "admin@example.com", models.RoleAdmin)
	user := env.user(t, "user@example.com", models.RoleUser)

	r := env.restaurant(t, owner, "Hidden")

	_, err := env.restaurants.Get(ctx, access.Anonymous(), r.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	_, err = env.restaurants.Get(ctx, user, r.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	_, err = env.restaurants.Get(ctx, owner, r.ID)
	assert.NoError(t, err)
	_, err = env.restaurants.Get(ctx, admin, r.ID)
	assert.NoError(t, err)

	_, err = env.restaurants.Approve(ctx, admin, r.ID)
	require.NoError(t, err)
	_, err = env.reviews.Create(ctx, user, r.ID, 4, "nice")
	require.NoError(t, err)

	detail, err := env.restaurants.Get(ctx, access.Anonymous(), r.ID)
	require.NoError(t, err)
	require.Len(t, detail.Reviews, 1)
	assert.Equal(t, "Test user", detail.Reviews[0].User.Name)
	assert.Empty(t, detail.Reviews[0].User.Email)
	require.NotNil(t, detail.AverageRating)
	assert.InDelta(t, 4.0, *detail.AverageRating, 1e-9)
}

func TestGetReportsOpenNow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.user(t, "owner@example.com", models.RoleBusinessOwner)

	in := sampleInput("Lunch Only")
	in.WorkingHours = &models.WorkingHours{
		Mode:       models.HoursUniform,
		AllDays:    &models.TimeRange{Start: "11:00", End: "15:00"},
		ClosedDays: []models.Weekday{models.Sunday},
	}
	r, err := env.restaurants.Create(ctx, owner, in)
	require.NoError(t, err)

	monday := time.Date(2026, time.October, 19, 12, 0, 0, 0, time.Local)
	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"lunch", monday, true},
		{"evening", monday.Add(6 * time.Hour), false},
		{"sunday", monday.AddDate(0, 0, -1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env.restaurants.now = func() time.Time { return tt.now }
			detail, err := env.restaurants.Get(ctx, owner, r.ID)
			require.NoError(t, err)
			require.NotNil(t, detail.IsOpen)
			assert.Equal(t, tt.want, *detail.IsOpen)
		})
	}

	plain := env.restaurant(t, owner, "No Hours")
	detail, err := env.restaurants.Get(ctx, owner, plain.ID)
	require.NoError(t, err)
	assert.Nil(t, detail.IsOpen)
}

func TestListFilters(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.user(t, "owner@example.com", models.RoleBusinessOwner)
	admin := env.user(t, "admin@example.com", models.RoleAdmin)
	user := env.user(t, "user@example.com", models.RoleUser)

	create := func(name, category string, price models.PriceRange, loc *models.MapLocation) uuid.UUID {
		in := sampleInput(name)
		in.Category, in.PriceRange, in.MapLocation = category, price, loc
		r, err := env.restaurants.Create(ctx, owner, in)
		require.NoError(t, err)
		_, err = env.restaurants.Approve(ctx, admin, r.ID)
		require.NoError(t, err)
		return r.ID
	}
	near := create("Corner Cafe", "Cafe", models.PriceLow, &models.MapLocation{Lat: 18.52, Lng: 73.85})
	far := create("Hilltop Grill", "Grill", models.PriceHigh, &models.MapLocation{Lat: 19.07, Lng: 72.87})
	create("Pop-up Cafe", "Cafe", models.PriceMedium, nil)
	env.restaurant(t, owner, "Pending Cafe")

	_, err := env.reviews.Create(ctx, user, near, 5, "")
	require.NoError(t, err)
	_, err = env.reviews.Create(ctx, user, far, 3, "")
	require.NoError(t, err)

	names := func(f ListFilter) []string {
		views, err := env.restaurants.List(ctx, f)
		require.NoError(t, err)
		out := make([]string, len(views))
		for i, v := range views {
			out[i] = v.Name
		}
		return out
	}

	assert.ElementsMatch(t, []string{"Corner Cafe", "Hilltop Grill", "Pop-up Cafe"}, names(ListFilter{}))
	assert.ElementsMatch(t, []string{"Corner Cafe", "Pop-up Cafe"}, names(ListFilter{Search: "CAFE"}))
	assert.Equal(t, []string{"Hilltop Grill"}, names(ListFilter{Category: "Grill"}))
	assert.Equal(t, []string{"Pop-up Cafe"}, names(ListFilter{PriceRange: models.PriceMedium}))

	minRating := 4.0
	assert.Equal(t, []string{"Corner Cafe"}, names(ListFilter{MinRating: &minRating}))

	byDistance := names(ListFilter{Near: &models.MapLocation{Lat: 19.0, Lng: 72.9}})
	assert.Equal(t, []string{"Hilltop Grill", "Corner Cafe", "Pop-up Cafe"}, byDistance, "unlocated restaurants sort last")
}

func TestCategoriesOwnedAndPending(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.user(t, "owner@example.com", models.RoleBusinessOwner)
	other := env.user(t, "other@example.com", models.RoleBusinessOwner)
	admin := env.user(t, "admin@example.com", models.RoleAdmin)
	user := env.user(t, "user@example.com", models.RoleUser)

	in := sampleInput("Bakehouse")
	in.Category = "Bakery"
	b, err := env.restaurants.Create(ctx, owner, in)
	require.NoError(t, err)
	_, err = env.restaurants.Approve(ctx, admin, b.ID)
	require.NoError(t, err)
	env.approved(t, other, admin, "Other Cafe")
	env.restaurant(t, owner, "Waiting")

	categories, err := env.restaurants.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Bakery", "Cafe"}, categories)

	owned, err := env.restaurants.ListOwned(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, owned, 2)

	owned, err = env.restaurants.ListOwned(ctx, env.user(t, "new@example.com", models.RoleBusinessOwner))
	require.NoError(t, err)
	assert.Empty(t, owned)

	_, err = env.restaurants.ListOwned(ctx, user)
	assert.True(t, apperr.Is(err, apperr.KindAuthorization))

	pending, err := env.restaurants.Pending(ctx, admin)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "Waiting", pending[0].Name)
	assert.Equal(t, "12 Main St, Pune, MH, 411001", pending[0].Address)

	_, err = env.restaurants.Pending(ctx, owner)
	assert.True(t, apperr.Is(err, apperr.KindAuthorization))
}

func TestRatingsRequiresRestaurant(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.restaurants.Ratings(context.Background(), uuid.New())
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestObjectName(t *testing.T) {
	name := objectName(`C:\photos\my dish (1).JPG`)
	_, err := uuid.Parse(name[:36])
	require.NoError(t, err)
	assert.Equal(t, "_my_dish_1_.JPG", name[36:])
	assert.True(t, strings.HasSuffix(objectName("../.."), "_image"))
}

func ptrUpload(u Upload) *Upload { return &u }

func assertObject(t *testing.T, s *storage.LocalStore, url string, exists bool) {
	t.Helper()
	path, ok := s.PathOf(url)
	require.True(t, ok, url)
	_, err := os.Stat(filepath.Join(s.Dir(), filepath.FromSlash(path)))
	if exists {
		assert.NoError(t, err, url)
	} else {
		assert.True(t, os.IsNotExist(err), url)
	}
}
