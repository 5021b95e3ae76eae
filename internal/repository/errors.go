package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"offender-movements/pkg/sentinel"
)

// translate maps gorm errors onto the shared sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return sentinel.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", sentinel.ErrConflict, err)
	default:
		return err
	}
}
