package entities

import (
	"strconv"
	"time"
)

// SourceType identifies where a clinical fact originated
type SourceType string

const (
	SourceTypeManual               SourceType = "manual"
	SourceTypeEncounterNote        SourceType = "encounter-note"
	SourceTypeAttachmentExtraction SourceType = "attachment-extraction"
)

// FieldValue is one payload field of a chart entity or candidate fact.
// Numeric observations carry Number; narrative values carry Text.
type FieldValue struct {
	Number *float64 `json:"number,omitempty"`
	Text   string   `json:"text,omitempty"`
}

// NumberField builds a numeric field value
func NumberField(v float64) FieldValue {
	return FieldValue{Number: &v}
}

// TextField builds a text field value
func TextField(s string) FieldValue {
	return FieldValue{Text: s}
}

// IsNumeric reports whether the value carries a number
func (v FieldValue) IsNumeric() bool {
	return v.Number != nil
}

// Equal reports exact equality of two field values
func (v FieldValue) Equal(other FieldValue) bool {
	if v.IsNumeric() != other.IsNumeric() {
		return false
	}
	if v.IsNumeric() {
		return *v.Number == *other.Number
	}
	return v.Text == other.Text
}

// String renders the value for provenance notes
func (v FieldValue) String() string {
	if v.IsNumeric() {
		return trimFloat(*v.Number)
	}
	return v.Text
}

// ChartEntity is one persisted clinical record: a vitals snapshot, a problem,
// a surgical procedure, an imaging study. Its visitHistory is append-only and
// never empty once the entity exists.
type ChartEntity struct {
	ID               string                `json:"id" db:"id"`
	PatientID        string                `json:"patient_id" db:"patient_id"`
	Category         Category              `json:"category" db:"category"`
	EncounterID      *string               `json:"encounter_id,omitempty" db:"encounter_id"`
	Fields           map[string]FieldValue `json:"fields" db:"fields"`
	SourceType       SourceType            `json:"source_type" db:"source_type"`
	SourceConfidence float64               `json:"source_confidence" db:"source_confidence"`
	VisitHistory     []ProvenanceEntry     `json:"visit_history"`
	CreatedAt        time.Time             `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at" db:"updated_at"`
}

// Clone returns a deep copy of the entity
func (e *ChartEntity) Clone() *ChartEntity {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Fields = make(map[string]FieldValue, len(e.Fields))
	for k, v := range e.Fields {
		if v.Number != nil {
			n := *v.Number
			v.Number = &n
		}
		clone.Fields[k] = v
	}
	clone.VisitHistory = make([]ProvenanceEntry, len(e.VisitHistory))
	copy(clone.VisitHistory, e.VisitHistory)
	if e.EncounterID != nil {
		enc := *e.EncounterID
		clone.EncounterID = &enc
	}
	return &clone
}

// SameEncounter reports whether the entity belongs to the given encounter
func (e *ChartEntity) SameEncounter(encounterID *string) bool {
	if e.EncounterID == nil || encounterID == nil {
		return e.EncounterID == nil && encounterID == nil
	}
	return *e.EncounterID == *encounterID
}

func trimFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	return s
}
