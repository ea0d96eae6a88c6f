package reconcile

import (
	"github.com/caldermed/chartsync/internal/domain/entities"
)

// Action is the outcome of reconciling one candidate fact
type Action string

const (
	// ActionCreate persists a new chart entity
	ActionCreate Action = "create"

	// ActionUpdate overwrites disputed fields of an existing entity in place
	ActionUpdate Action = "update"

	// ActionSkip rejects the candidate as a duplicate
	ActionSkip Action = "skip"
)

// FieldChange records one disputed field during an in-place correction
type FieldChange struct {
	Field string
	Prev  entities.FieldValue
	Next  entities.FieldValue
}

// Decision describes what reconciliation decided for one candidate fact.
// For ActionCreate, Fields holds the payload to persist (possibly reduced
// by partial-duplicate suppression). For ActionUpdate, Fields holds only
// the disputed fields and Changes their prior values.
type Decision struct {
	Action   Action
	EntityID string
	Fields   map[string]entities.FieldValue
	Changes  []FieldChange
	Reason   string
}

// Outcome pairs a committed decision with the entity it produced or touched
type Outcome struct {
	Decision Decision
	EntityID string
}
