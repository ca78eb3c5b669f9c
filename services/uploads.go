package services

import (
	"context"
	"fmt"
	"io"
	"path"
	"regexp"
	"slices"
	"strings"

	"github.com/google/uuid"

	"restaurant-directory-api/apperr"
	"restaurant-directory-api/storage"
)

const (
	MaxGalleryUploads = 10
	// MaxGalleryImages caps the stored gallery of one restaurant.
	MaxGalleryImages = 30
)

// Upload is one image file received with a restaurant form.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// objectName keeps the base of the client's file name, made safe for a key.
func objectName(filename string) string {
	name := unsafeNameChars.ReplaceAllString(path.Base(strings.ReplaceAll(filename, "\\", "/")), "_")
	name = strings.Trim(name, "._")
	if name == "" {
		name = "image"
	}
	return uuid.NewString() + "_" + name
}

func thumbnailPath(restaurantID uuid.UUID, filename string) string {
	return fmt.Sprintf("thumbnails/%s/%s", restaurantID, objectName(filename))
}

func galleryPath(filename string) string {
	return "gallery-images/" + objectName(filename)
}

func validateUploads(thumbnail *Upload, gallery []Upload, maxBytes int64) error {
	if len(gallery) > MaxGalleryUploads {
		return apperr.Validation(fmt.Sprintf("At most %d gallery images can be uploaded at once.", MaxGalleryUploads))
	}
	check := func(u Upload) error {
		if !strings.HasPrefix(u.ContentType, "image/") {
			return apperr.Validation("Only image files are allowed.")
		}
		if maxBytes > 0 && u.Size > maxBytes {
			return apperr.Validation(fmt.Sprintf("Image %s exceeds the %d byte limit.", u.Filename, maxBytes))
		}
		return nil
	}
	if thumbnail != nil {
		if err := check(*thumbnail); err != nil {
			return err
		}
	}
	for _, u := range gallery {
		if err := check(u); err != nil {
			return err
		}
	}
	return nil
}

// checkGallerySize rejects an update that would leave more than
// MaxGalleryImages gallery images.
func checkGallerySize(current, remove []string, added int) error {
	n := added
	for _, url := range current {
		if !slices.Contains(remove, url) {
			n++
		}
	}
	if n > MaxGalleryImages {
		return apperr.Validation(fmt.Sprintf("A restaurant can have at most %d gallery images.", MaxGalleryImages))
	}
	return nil
}

func putUpload(ctx context.Context, store storage.ObjectStore, key string, u Upload) (string, error) {
	body, err := u.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", u.Filename, err)
	}
	defer body.Close()
	return store.Store(ctx, key, body, u.Size, u.ContentType)
}

// uploadGallery stores each image and returns their URLs in order. On failure
// the images already written are removed again.
func uploadGallery(ctx context.Context, store storage.ObjectStore, gallery []Upload) ([]string, error) {
	urls := make([]string, 0, len(gallery))
	var written []string
	for _, u := range gallery {
		key := galleryPath(u.Filename)
		url, err := putUpload(ctx, store, key, u)
		if err != nil {
			if len(written) > 0 {
				_ = store.Delete(ctx, written)
			}
			return nil, apperr.Upstream("Failed to upload gallery images", err)
		}
		written = append(written, key)
		urls = append(urls, url)
	}
	return urls, nil
}
