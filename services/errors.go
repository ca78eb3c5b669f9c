package services

import (
	"errors"

	"gorm.io/gorm"

	"restaurant-directory-api/apperr"
)

// notFoundOr maps a missing row to a NotFound error with msg.
func notFoundOr(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(msg)
	}
	return err
}

func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
