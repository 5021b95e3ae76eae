package models

import (
	"errors"
	"time"
)

var (
	ErrReturnBeforeAbsence = errors.New("scheduled return is before its absence")
	ErrReturnAlreadyPaired = errors.New("scheduled return is paired with another absence")
	ErrBookingMismatch     = errors.New("scheduled events belong to different bookings")
)

// ScheduledTemporaryAbsence is the planned outbound leg of a temporary absence.
type ScheduledTemporaryAbsence struct {
	EventID             int64      `gorm:"primaryKey;autoIncrement:false" json:"event_id"`
	BookingID           int64      `gorm:"not null;index" json:"booking_id"`
	ApplicationID       int64      `gorm:"not null;index" json:"application_id"`
	EventDate           time.Time  `gorm:"type:date;not null" json:"event_date"`
	StartTime           time.Time  `gorm:"not null" json:"start_time"`
	EventSubType        string     `gorm:"type:varchar(12);not null" json:"event_sub_type"`
	EventStatus         string     `gorm:"type:varchar(12);not null" json:"event_status"`
	EscortCode          string     `gorm:"column:escort;type:varchar(12)" json:"escort,omitempty"`
	TransportType       string     `gorm:"type:varchar(12)" json:"transport_type,omitempty"`
	FromAgencyID        string     `gorm:"type:varchar(6);not null" json:"from_agency_id"`
	ToAgencyID          *string    `gorm:"type:varchar(6)" json:"to_agency_id,omitempty"`
	ReturnDate          *time.Time `gorm:"type:date" json:"return_date,omitempty"`
	ReturnTime          *time.Time `json:"return_time,omitempty"`
	ToAddressID         *int64     `json:"to_address_id,omitempty"`
	ToAddressOwnerClass OwnerClass `gorm:"type:varchar(12)" json:"to_address_owner_class,omitempty"`
	Comment             string     `gorm:"type:varchar(240)" json:"comment,omitempty"`
	CreatedAt           time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	ScheduledReturn *ScheduledTemporaryAbsenceReturn `gorm:"foreignKey:ParentEventID;references:EventID" json:"-"`
}

func (ScheduledTemporaryAbsence) TableName() string {
	return "offender_scheduled_temporary_absences"
}

func (s *ScheduledTemporaryAbsence) ToAddress() AddressOwnerReference {
	return AddressOwnerReference{AddressID: s.ToAddressID, OwnerClass: s.ToAddressOwnerClass}
}

func (s *ScheduledTemporaryAbsence) IsCompleted() bool {
	return s.EventStatus == EventStatusCompleted
}

// ScheduledTemporaryAbsenceReturn is the planned return leg. ParentEventID is
// the only stored link of the pair; both navigation fields are derived from it.
type ScheduledTemporaryAbsenceReturn struct {
	EventID             int64      `gorm:"primaryKey;autoIncrement:false" json:"event_id"`
	BookingID           int64      `gorm:"not null;index" json:"booking_id"`
	ParentEventID       *int64     `gorm:"uniqueIndex" json:"parent_event_id,omitempty"`
	EventDate           time.Time  `gorm:"type:date;not null" json:"event_date"`
	StartTime           time.Time  `gorm:"not null" json:"start_time"`
	EventSubType        string     `gorm:"type:varchar(12);not null" json:"event_sub_type"`
	EventStatus         string     `gorm:"type:varchar(12);not null" json:"event_status"`
	EscortCode          string     `gorm:"column:escort;type:varchar(12)" json:"escort,omitempty"`
	TransportType       string     `gorm:"type:varchar(12)" json:"transport_type,omitempty"`
	FromAgencyID        *string    `gorm:"type:varchar(6)" json:"from_agency_id,omitempty"`
	ToAgencyID          string     `gorm:"type:varchar(6);not null" json:"to_agency_id"`
	ToAddressID         *int64     `json:"to_address_id,omitempty"`
	ToAddressOwnerClass OwnerClass `gorm:"type:varchar(12)" json:"to_address_owner_class,omitempty"`
	Comment             string     `gorm:"type:varchar(240)" json:"comment,omitempty"`
	CreatedAt           time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	ScheduledTemporaryAbsence *ScheduledTemporaryAbsence `gorm:"foreignKey:ParentEventID;references:EventID" json:"-"`
}

func (ScheduledTemporaryAbsenceReturn) TableName() string {
	return "offender_scheduled_temporary_absence_returns"
}

func (s *ScheduledTemporaryAbsenceReturn) ToAddress() AddressOwnerReference {
	return AddressOwnerReference{AddressID: s.ToAddressID, OwnerClass: s.ToAddressOwnerClass}
}

func (s *ScheduledTemporaryAbsenceReturn) IsCompleted() bool {
	return s.EventStatus == EventStatusCompleted
}

// PairScheduledReturn links an absence and its return on both sides. It is the
// only place the pair is set, so neither side can be observed half-linked.
func PairScheduledReturn(absence *ScheduledTemporaryAbsence, ret *ScheduledTemporaryAbsenceReturn) error {
	if absence.BookingID != ret.BookingID {
		return ErrBookingMismatch
	}
	if ret.ParentEventID != nil && *ret.ParentEventID != absence.EventID {
		return ErrReturnAlreadyPaired
	}
	if ret.EventDate.Before(absence.EventDate) {
		return ErrReturnBeforeAbsence
	}
	if absence.ScheduledReturn != nil && absence.ScheduledReturn != ret {
		UnpairScheduledReturn(absence.ScheduledReturn)
	}

	parent := absence.EventID
	ret.ParentEventID = &parent
	ret.ScheduledTemporaryAbsence = absence
	absence.ScheduledReturn = ret
	return nil
}

// UnpairScheduledReturn clears the link on the return and, when loaded, on
// its absence.
func UnpairScheduledReturn(ret *ScheduledTemporaryAbsenceReturn) {
	if ret.ScheduledTemporaryAbsence != nil && ret.ScheduledTemporaryAbsence.ScheduledReturn == ret {
		ret.ScheduledTemporaryAbsence.ScheduledReturn = nil
	}
	ret.ScheduledTemporaryAbsence = nil
	ret.ParentEventID = nil
}

// CanCompleteEvent reports whether an event in the given status may move to
// COMP. Completing twice is rejected.
func CanCompleteEvent(status string) bool {
	return status == EventStatusScheduled
}

// EventIDSequence allocates event ids shared by scheduled absences and
// scheduled returns.
type EventIDSequence struct {
	Name      string `gorm:"primaryKey;type:varchar(30)"`
	NextValue int64  `gorm:"not null"`
}

func (EventIDSequence) TableName() string {
	return "event_id_sequences"
}

const ScheduledEventSequence = "scheduled_events"
