package model

import "time"

// Equipment represents a catalog entry: a fungible pool of identical units.
// Quantity is the number of units currently available for lending, not the
// total owned; units reserved out live on approved/overdue responsibilities.
type Equipment struct {
	ID                int64      `json:"id"`
	Name              string     `json:"name"`
	Category          string     `json:"category"`
	Kind              string     `json:"kind"`
	LinkedEquipmentID *int64     `json:"linked_equipment_id,omitempty"`
	Quantity          int        `json:"quantity"`
	Condition         string     `json:"condition"`
	Description       string     `json:"description,omitempty"`
	ImageMime         string     `json:"image_mime,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	DeletedAt         *time.Time `json:"deleted_at,omitempty"`
}

// Equipment kinds. A secondary item may link to a primary item; holding the
// primary unlocks auto-approval for the secondary.
const (
	KindPrimary   = "primary"
	KindSecondary = "secondary"
)

// Equipment conditions.
const (
	ConditionNew  = "new"
	ConditionGood = "good"
	ConditionFair = "fair"
	ConditionPoor = "poor"
)

// ValidKind reports whether kind is a known equipment kind.
func ValidKind(kind string) bool {
	return kind == KindPrimary || kind == KindSecondary
}

// ValidCondition reports whether condition is a known equipment condition.
func ValidCondition(condition string) bool {
	switch condition {
	case ConditionNew, ConditionGood, ConditionFair, ConditionPoor:
		return true
	}
	return false
}
