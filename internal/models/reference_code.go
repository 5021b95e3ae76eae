package models

import "time"

// ReferenceCode is one entry of a coded domain vocabulary (movement types,
// reasons, escorts and so on). The service treats codes as opaque values.
type ReferenceCode struct {
	Domain      string    `gorm:"primaryKey;type:varchar(12)" json:"domain" yaml:"domain"`
	Code        string    `gorm:"primaryKey;type:varchar(12)" json:"code" yaml:"code"`
	Description string    `gorm:"type:varchar(40);not null" json:"description" yaml:"description"`
	ActiveFlag  bool      `gorm:"not null" json:"active" yaml:"active"`
	ListSeq     int       `json:"list_seq" yaml:"list_seq"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at" yaml:"-"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at" yaml:"-"`
}

func (ReferenceCode) TableName() string {
	return "reference_codes"
}

// Reference code domains
const (
	DomainMovementType            = "MOVE_TYPE"
	DomainMovementReason          = "MOVE_RSN"
	DomainEscort                  = "ESCORT"
	DomainTransportType           = "TA_TRANSPORT"
	DomainEventStatus             = "EVENT_STS"
	DomainApplicationStatus       = "MOV_APP_STAT"
	DomainApplicationType         = "MOV_APP_TYPE"
	DomainAddressType             = "ADDR_TYPE"
	DomainTemporaryAbsenceType    = "TAP_ABS_TYPE"
	DomainTemporaryAbsenceSubType = "TAP_ABS_STYP"
)

// Movement types
const (
	MovementTypeAdmission        = "ADM"
	MovementTypeRelease          = "REL"
	MovementTypeTransfer         = "TRN"
	MovementTypeCourt            = "CRT"
	MovementTypeTemporaryAbsence = "TAP"
)

// Scheduled event statuses
const (
	EventStatusScheduled = "SCH"
	EventStatusCompleted = "COMP"
)
