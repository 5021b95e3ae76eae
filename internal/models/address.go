package models

import (
	"strings"
	"time"
)

// OwnerClass is the discriminator stored next to an address reference. Legacy
// rows sometimes hold an agency location code here instead of a class code,
// so the raw value is kept as is and Kind reports whether it is usable.
type OwnerClass string

const (
	OwnerClassOffender  OwnerClass = "OFF"
	OwnerClassCorporate OwnerClass = "CORP"
	OwnerClassAgency    OwnerClass = "AGY"
)

type OwnerKind int

const (
	OwnerKindMalformed OwnerKind = iota
	OwnerKindOffender
	OwnerKindCorporate
	OwnerKindAgency
)

func (k OwnerKind) String() string {
	switch k {
	case OwnerKindOffender:
		return "OFFENDER"
	case OwnerKindCorporate:
		return "CORPORATE"
	case OwnerKindAgency:
		return "AGENCY"
	default:
		return "MALFORMED"
	}
}

func (k OwnerKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Class returns the canonical discriminator for a well-formed kind and an
// empty string for OwnerKindMalformed.
func (k OwnerKind) Class() OwnerClass {
	switch k {
	case OwnerKindOffender:
		return OwnerClassOffender
	case OwnerKindCorporate:
		return OwnerClassCorporate
	case OwnerKindAgency:
		return OwnerClassAgency
	default:
		return ""
	}
}

func (c OwnerClass) Kind() OwnerKind {
	switch OwnerClass(strings.TrimSpace(string(c))) {
	case OwnerClassOffender:
		return OwnerKindOffender
	case OwnerClassCorporate:
		return OwnerKindCorporate
	case OwnerClassAgency:
		return OwnerKindAgency
	default:
		return OwnerKindMalformed
	}
}

func (c OwnerClass) IsMalformed() bool {
	return c.Kind() == OwnerKindMalformed
}

// AddressOwnerReference is an (address, owner class) pair as stored on
// applications, scheduled events and movements.
type AddressOwnerReference struct {
	AddressID  *int64     `json:"address_id,omitempty"`
	OwnerClass OwnerClass `json:"owner_class,omitempty"`
}

func (r AddressOwnerReference) IsEmpty() bool {
	return r.AddressID == nil
}

// Address belongs to exactly one offender, corporate body or agency location.
// OwnerClass on the address row itself is always one of the three known codes.
type Address struct {
	ID          int64      `gorm:"primaryKey" json:"id"`
	OwnerClass  OwnerClass `gorm:"type:varchar(12);not null;index:idx_address_owner" json:"owner_class"`
	OwnerID     *int64     `gorm:"index:idx_address_owner" json:"owner_id,omitempty"`
	OwnerCode   *string    `gorm:"type:varchar(12)" json:"owner_code,omitempty"`
	AddressType string     `gorm:"type:varchar(12)" json:"address_type"`
	Flat        string     `gorm:"type:varchar(30)" json:"flat,omitempty"`
	Premise     string     `gorm:"type:varchar(50)" json:"premise,omitempty"`
	Street      string     `gorm:"type:varchar(160)" json:"street,omitempty"`
	Locality    string     `gorm:"type:varchar(70)" json:"locality,omitempty"`
	CityCode    string     `gorm:"type:varchar(12)" json:"city_code,omitempty"`
	PostalCode  string     `gorm:"type:varchar(12)" json:"postal_code,omitempty"`
	CountryCode string     `gorm:"type:varchar(12)" json:"country_code,omitempty"`
	Primary     bool       `gorm:"not null" json:"primary"`
	Comment     string     `gorm:"type:varchar(240)" json:"comment,omitempty"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Address) TableName() string {
	return "addresses"
}

// OwnerKind returns the address's own type, independent of whatever
// discriminator the referencing row carried.
func (a *Address) OwnerKind() OwnerKind {
	return a.OwnerClass.Kind()
}

// IsValid checks the owner columns match the owner class.
func (a *Address) IsValid() bool {
	switch a.OwnerKind() {
	case OwnerKindOffender, OwnerKindCorporate:
		return a.OwnerID != nil
	case OwnerKindAgency:
		return a.OwnerCode != nil && *a.OwnerCode != ""
	default:
		return false
	}
}

// OneLine formats the address for reports.
func (a *Address) OneLine() string {
	var parts []string
	for _, p := range []string{a.Flat, a.Premise, a.Street, a.Locality, a.CityCode, a.PostalCode} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
