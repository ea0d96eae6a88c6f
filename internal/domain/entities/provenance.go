package entities

import (
	"time"
)

// ProvenanceEntry is one immutable record in an entity's visit history ledger.
// Entries are only ever appended; every payload mutation is paired with
// exactly one entry recording what changed and from what source.
type ProvenanceEntry struct {
	ID              string     `json:"id" db:"id"`
	EntityID        string     `json:"entity_id" db:"entity_id"`
	Date            time.Time  `json:"date" db:"date"`
	SourceType      SourceType `json:"source_type" db:"source_type"`
	SourceReference *string    `json:"source_reference,omitempty" db:"source_reference"`
	Confidence      float64    `json:"confidence" db:"confidence"`
	Notes           string     `json:"notes" db:"notes"`
	FieldsChanged   []string   `json:"fields_changed" db:"fields_changed"`
}

// IsCreation reports whether the entry records a pure creation event
func (p *ProvenanceEntry) IsCreation() bool {
	return len(p.FieldsChanged) == 0
}
