package models

import "time"

type AgencyLocation struct {
	ID          string    `gorm:"primaryKey;type:varchar(6)" json:"id" yaml:"id"`
	Description string    `gorm:"type:varchar(40);not null" json:"description" yaml:"description"`
	Type        string    `gorm:"type:varchar(12)" json:"type" yaml:"type"`
	Active      bool      `gorm:"not null" json:"active" yaml:"active"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at" yaml:"-"`
}

func (AgencyLocation) TableName() string {
	return "agency_locations"
}

type Corporate struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(40);not null" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Corporate) TableName() string {
	return "corporates"
}

type Offender struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	NomsID    string    `gorm:"type:varchar(10);uniqueIndex;not null" json:"noms_id"`
	FirstName string    `gorm:"type:varchar(35);not null" json:"first_name"`
	LastName  string    `gorm:"type:varchar(35);not null" json:"last_name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Offender) TableName() string {
	return "offenders"
}

// Booking is one custodial episode of an offender.
type Booking struct {
	ID               int64     `gorm:"primaryKey" json:"id"`
	OffenderID       int64     `gorm:"not null;index" json:"offender_id"`
	BookingNo        string    `gorm:"type:varchar(14);not null" json:"booking_no"`
	AgencyLocationID string    `gorm:"type:varchar(6)" json:"agency_location_id"`
	Active           bool      `gorm:"not null" json:"active"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`

	Offender Offender `gorm:"foreignKey:OffenderID" json:"-"`
}

func (Booking) TableName() string {
	return "offender_bookings"
}
