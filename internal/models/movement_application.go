package models

import (
	"time"
)

type MovementApplication struct {
	ID                      int64      `gorm:"primaryKey" json:"id"`
	BookingID               int64      `gorm:"not null;index" json:"booking_id"`
	EventSubType            string     `gorm:"type:varchar(12);not null" json:"event_sub_type"`
	ApplicationDate         time.Time  `gorm:"type:date;not null" json:"application_date"`
	ApplicationTime         time.Time  `gorm:"not null" json:"application_time"`
	FromDate                time.Time  `gorm:"type:date;not null" json:"from_date"`
	ReleaseTime             time.Time  `gorm:"not null" json:"release_time"`
	ToDate                  time.Time  `gorm:"type:date;not null" json:"to_date"`
	ReturnTime              time.Time  `gorm:"not null" json:"return_time"`
	ApplicationType         string     `gorm:"type:varchar(12);not null" json:"application_type"`
	ApplicationStatus       string     `gorm:"type:varchar(12);not null" json:"application_status"`
	EscortCode              string     `gorm:"column:escort;type:varchar(12)" json:"escort,omitempty"`
	TransportType           string     `gorm:"type:varchar(12)" json:"transport_type,omitempty"`
	Comment                 string     `gorm:"type:varchar(240)" json:"comment,omitempty"`
	ToAgencyID              *string    `gorm:"type:varchar(6)" json:"to_agency_id,omitempty"`
	ToAddressID             *int64     `json:"to_address_id,omitempty"`
	ToAddressOwnerClass     OwnerClass `gorm:"type:varchar(12)" json:"to_address_owner_class,omitempty"`
	ContactPersonName       string     `gorm:"type:varchar(40)" json:"contact_person_name,omitempty"`
	TemporaryAbsenceType    string     `gorm:"type:varchar(12)" json:"temporary_absence_type,omitempty"`
	TemporaryAbsenceSubType string     `gorm:"type:varchar(12)" json:"temporary_absence_sub_type,omitempty"`
	CreatedAt               time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt               time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	OutsideMovements []OutsideMovement `gorm:"foreignKey:ApplicationID" json:"outside_movements"`
}

func (MovementApplication) TableName() string {
	return "offender_movement_applications"
}

// Application statuses
const (
	ApplicationStatusPending             = "PEN"
	ApplicationStatusApprovedUnscheduled = "APP-UNSCH"
	ApplicationStatusApprovedScheduled   = "APP-SCH"
	ApplicationStatusCompleted           = "COMP"
	ApplicationStatusDenied              = "DEN"
)

var applicationTransitions = map[string][]string{
	ApplicationStatusPending: {
		ApplicationStatusApprovedUnscheduled,
		ApplicationStatusApprovedScheduled,
		ApplicationStatusDenied,
	},
	ApplicationStatusApprovedUnscheduled: {
		ApplicationStatusApprovedScheduled,
		ApplicationStatusCompleted,
	},
	ApplicationStatusApprovedScheduled: {
		ApplicationStatusCompleted,
	},
}

// CanTransitionTo reports whether the status change is allowed. Setting the
// current status again is a no-op and always allowed.
func (a *MovementApplication) CanTransitionTo(status string) bool {
	if a.ApplicationStatus == status {
		return true
	}
	for _, next := range applicationTransitions[a.ApplicationStatus] {
		if next == status {
			return true
		}
	}
	return false
}

func (a *MovementApplication) ToAddress() AddressOwnerReference {
	return AddressOwnerReference{AddressID: a.ToAddressID, OwnerClass: a.ToAddressOwnerClass}
}

// IsValid checks the structural invariants of an application.
func (a *MovementApplication) IsValid() bool {
	if a.BookingID == 0 {
		return false
	}
	if a.FromDate.IsZero() || a.ToDate.IsZero() {
		return false
	}
	if a.ToDate.Before(a.FromDate) {
		return false
	}
	if a.EventSubType == "" || a.ApplicationType == "" || a.ApplicationStatus == "" {
		return false
	}
	return true
}

// Covers reports whether [from, to] lies inside the application window.
func (a *MovementApplication) Covers(from, to time.Time) bool {
	return !from.Before(a.FromDate) && !to.After(a.ToDate) && !to.Before(from)
}

// OutsideMovement is one leg of a multi-leg temporary absence itinerary.
type OutsideMovement struct {
	ID                      int64      `gorm:"primaryKey" json:"id"`
	ApplicationID           int64      `gorm:"not null;index" json:"application_id"`
	BookingID               int64      `gorm:"not null;index" json:"booking_id"`
	EventSubType            string     `gorm:"type:varchar(12);not null" json:"event_sub_type"`
	FromDate                time.Time  `gorm:"type:date;not null" json:"from_date"`
	ToDate                  time.Time  `gorm:"type:date;not null" json:"to_date"`
	ToAgencyID              *string    `gorm:"type:varchar(6)" json:"to_agency_id,omitempty"`
	ToAddressID             *int64     `json:"to_address_id,omitempty"`
	ToAddressOwnerClass     OwnerClass `gorm:"type:varchar(12)" json:"to_address_owner_class,omitempty"`
	ContactPersonName       string     `gorm:"type:varchar(40)" json:"contact_person_name,omitempty"`
	TemporaryAbsenceType    string     `gorm:"type:varchar(12)" json:"temporary_absence_type,omitempty"`
	TemporaryAbsenceSubType string     `gorm:"type:varchar(12)" json:"temporary_absence_sub_type,omitempty"`
	Comment                 string     `gorm:"type:varchar(240)" json:"comment,omitempty"`
	CreatedAt               time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (OutsideMovement) TableName() string {
	return "offender_movement_apps_outside"
}

func (o *OutsideMovement) ToAddress() AddressOwnerReference {
	return AddressOwnerReference{AddressID: o.ToAddressID, OwnerClass: o.ToAddressOwnerClass}
}
