package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	"offender-movements/pkg/sentinel"
)

// Direction of an external movement. Legacy rows may have no direction at
// all; those read back as DirectionUnknown and are stored as NULL.
type Direction string

const (
	DirectionIn      Direction = "IN"
	DirectionOut     Direction = "OUT"
	DirectionUnknown Direction = ""
)

// ParseDirection maps any unrecognised value to DirectionUnknown. Only stored
// rows are read this way; writes go through Valid or UnmarshalJSON.
func ParseDirection(s string) Direction {
	switch Direction(strings.ToUpper(strings.TrimSpace(s))) {
	case DirectionIn:
		return DirectionIn
	case DirectionOut:
		return DirectionOut
	default:
		return DirectionUnknown
	}
}

func (d Direction) Known() bool {
	return d == DirectionIn || d == DirectionOut
}

// Valid reports whether d may be written: IN, OUT or no direction at all.
func (d Direction) Valid() bool {
	return d == DirectionUnknown || d.Known()
}

func (d Direction) String() string {
	if !d.Known() {
		return "UNKNOWN"
	}
	return string(d)
}

func (d *Direction) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = DirectionUnknown
	case string:
		*d = ParseDirection(v)
	case []byte:
		*d = ParseDirection(string(v))
	default:
		return fmt.Errorf("scan direction: unsupported type %T", src)
	}
	return nil
}

func (d Direction) Value() (driver.Value, error) {
	if !d.Known() {
		return nil, nil
	}
	return string(d), nil
}

func (d Direction) MarshalJSON() ([]byte, error) {
	if !d.Known() {
		return []byte("null"), nil
	}
	return json.Marshal(string(d))
}

func (d *Direction) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == nil || strings.TrimSpace(*s) == "" {
		*d = DirectionUnknown
		return nil
	}
	parsed := ParseDirection(*s)
	if !parsed.Known() {
		return fmt.Errorf("%w: unknown direction %q", sentinel.ErrInvalidInput, *s)
	}
	*d = parsed
	return nil
}
