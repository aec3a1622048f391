package repository

import (
	"errors"

	"gorm.io/gorm"
)

// ErrDuplicateEntry indicates a write violated a uniqueness constraint.
var ErrDuplicateEntry = errors.New("duplicate entry")

func translateWriteError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateEntry
	}
	return err
}
