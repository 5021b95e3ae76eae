package models

import (
	"time"
)

// ExternalMovement is a realized movement row. Its subtype is not stored; it
// is derived from MovementType and Direction by ClassifyMovement.
type ExternalMovement struct {
	BookingID             int64      `gorm:"primaryKey;autoIncrement:false" json:"booking_id"`
	MovementSeq           int        `gorm:"primaryKey;autoIncrement:false" json:"movement_seq"`
	MovementDate          time.Time  `gorm:"type:date;not null" json:"movement_date"`
	MovementTime          time.Time  `gorm:"not null" json:"movement_time"`
	MovementType          string     `gorm:"type:varchar(12);not null;index" json:"movement_type"`
	MovementReasonCode    string     `gorm:"type:varchar(12);not null" json:"movement_reason_code"`
	Direction             Direction  `gorm:"column:direction_code;type:varchar(12)" json:"direction"`
	EscortCode            string     `gorm:"column:escort;type:varchar(12)" json:"escort,omitempty"`
	EscortText            string     `gorm:"type:varchar(240)" json:"escort_text,omitempty"`
	ArrestAgencyID        *string    `gorm:"column:arrest_agency;type:varchar(12)" json:"arrest_agency,omitempty"`
	FromAgencyID          *string    `gorm:"type:varchar(6)" json:"from_agency_id,omitempty"`
	ToAgencyID            *string    `gorm:"type:varchar(6)" json:"to_agency_id,omitempty"`
	FromAddressID         *int64     `json:"from_address_id,omitempty"`
	FromAddressOwnerClass OwnerClass `gorm:"type:varchar(12)" json:"from_address_owner_class,omitempty"`
	ToAddressID           *int64     `json:"to_address_id,omitempty"`
	ToAddressOwnerClass   OwnerClass `gorm:"type:varchar(12)" json:"to_address_owner_class,omitempty"`
	FromCity              string     `gorm:"type:varchar(12)" json:"from_city,omitempty"`
	ToCity                string     `gorm:"type:varchar(12)" json:"to_city,omitempty"`
	Comment               string     `gorm:"type:varchar(240)" json:"comment,omitempty"`
	EventID               *int64     `gorm:"index" json:"event_id,omitempty"`
	ParentEventID         *int64     `gorm:"index" json:"parent_event_id,omitempty"`
	CreatedAt             time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (ExternalMovement) TableName() string {
	return "offender_external_movements"
}

func (m *ExternalMovement) FromAddress() AddressOwnerReference {
	return AddressOwnerReference{AddressID: m.FromAddressID, OwnerClass: m.FromAddressOwnerClass}
}

func (m *ExternalMovement) ToAddress() AddressOwnerReference {
	return AddressOwnerReference{AddressID: m.ToAddressID, OwnerClass: m.ToAddressOwnerClass}
}

// Kind classifies the row.
func (m *ExternalMovement) Kind() MovementKind {
	return ClassifyMovement(m.MovementType, m.Direction)
}

// HasDirectionAnomaly is true for TAP rows recorded without a direction.
func (m *ExternalMovement) HasDirectionAnomaly() bool {
	return m.MovementType == MovementTypeTemporaryAbsence && !m.Direction.Known()
}

// IsValid checks the fields every movement must carry.
func (m *ExternalMovement) IsValid() bool {
	if m.BookingID == 0 || m.MovementSeq <= 0 {
		return false
	}
	if m.MovementDate.IsZero() || m.MovementTime.IsZero() {
		return false
	}
	return m.MovementType != "" && m.MovementReasonCode != ""
}
