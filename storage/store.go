// Package storage keeps uploaded restaurant images in object storage.
package storage

//go:generate mockgen -source=store.go -destination=mock_store.go -package=storage

import (
	"context"
	"errors"
	"io"
	"strings"
)

var ErrInvalidPath = errors.New("invalid object path")

// ObjectStore is the object storage collaborator. Store returns the public
// URL of the written object; PathOf maps such a URL back to its path.
type ObjectStore interface {
	Store(ctx context.Context, path string, body io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, paths []string) error
	PathOf(url string) (string, bool)
}

// PathsOf resolves the store paths of urls, skipping URLs the store does not
// own (for example images hosted elsewhere before a migration).
func PathsOf(s ObjectStore, urls []string) []string {
	paths := make([]string, 0, len(urls))
	for _, u := range urls {
		if p, ok := s.PathOf(u); ok {
			paths = append(paths, p)
		}
	}
	return paths
}

func cleanPath(p string) (string, error) {
	p = strings.TrimPrefix(p, "/")
	if p == "" || strings.Contains(p, "..") || strings.Contains(p, "\\") {
		return "", ErrInvalidPath
	}
	return p, nil
}

func pathOf(baseURL, url string) (string, bool) {
	prefix := strings.TrimSuffix(baseURL, "/") + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	p, err := cleanPath(strings.TrimPrefix(url, prefix))
	if err != nil {
		return "", false
	}
	return p, true
}
