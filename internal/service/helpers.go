package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"offender-movements/internal/models"
	"offender-movements/internal/repository"
	"offender-movements/pkg/sentinel"
)

// dateOnly drops the time of day, keeping the location.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func requireBooking(ctx context.Context, bookings repository.BookingRepository, bookingID int64) error {
	exists, err := bookings.Exists(ctx, bookingID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("booking %d: %w", bookingID, sentinel.ErrNotFound)
	}
	return nil
}

// pairError maps the model pairing errors onto sentinels.
func pairError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, models.ErrReturnAlreadyPaired):
		return fmt.Errorf("%w: %v", sentinel.ErrConflict, err)
	case errors.Is(err, models.ErrReturnBeforeAbsence), errors.Is(err, models.ErrBookingMismatch):
		return fmt.Errorf("%w: %v", sentinel.ErrInvalidInput, err)
	default:
		return err
	}
}
