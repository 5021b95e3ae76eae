package models

// MovementKind is the runtime subtype of an external movement.
type MovementKind int

const (
	MovementKindGeneric MovementKind = iota
	MovementKindTemporaryAbsence
	MovementKindTemporaryAbsenceReturn
)

func (k MovementKind) String() string {
	switch k {
	case MovementKindTemporaryAbsence:
		return "TEMPORARY_ABSENCE"
	case MovementKindTemporaryAbsenceReturn:
		return "TEMPORARY_ABSENCE_RETURN"
	default:
		return "EXTERNAL_MOVEMENT"
	}
}

func (k MovementKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ClassifyMovement derives the subtype from movement type and direction. A
// TAP movement without a known direction stays generic; no direction is
// guessed for it.
func ClassifyMovement(movementType string, direction Direction) MovementKind {
	if movementType != MovementTypeTemporaryAbsence {
		return MovementKindGeneric
	}
	switch direction {
	case DirectionOut:
		return MovementKindTemporaryAbsence
	case DirectionIn:
		return MovementKindTemporaryAbsenceReturn
	default:
		return MovementKindGeneric
	}
}

// ClassifiedMovement is a movement row with its subtype and, for TAP
// subtypes, the scheduled event it fulfils when one could be resolved.
type ClassifiedMovement struct {
	Kind             MovementKind
	Movement         *ExternalMovement
	ScheduledAbsence *ScheduledTemporaryAbsence
	ScheduledReturn  *ScheduledTemporaryAbsenceReturn
}

// IsScheduled reports whether the movement fulfils a scheduled event. A
// return counts as scheduled exactly when its parent event link is set,
// whatever exists on the outbound side.
func (c *ClassifiedMovement) IsScheduled() bool {
	switch c.Kind {
	case MovementKindTemporaryAbsence:
		return c.ScheduledAbsence != nil
	case MovementKindTemporaryAbsenceReturn:
		return c.Movement.ParentEventID != nil
	default:
		return false
	}
}

// HasDanglingLink is true for a return whose link is set but points at no
// known scheduled return.
func (c *ClassifiedMovement) HasDanglingLink() bool {
	return c.Kind == MovementKindTemporaryAbsenceReturn &&
		c.Movement.ParentEventID != nil &&
		c.ScheduledReturn == nil
}
