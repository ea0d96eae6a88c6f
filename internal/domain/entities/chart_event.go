package entities

import (
	"time"

	"github.com/google/uuid"
)

// ChartEventType represents the type of chart change event
type ChartEventType string

const (
	ChartEventTypeEntityCreated ChartEventType = "entity_created"
	ChartEventTypeEntityUpdated ChartEventType = "entity_updated"
)

// ChartEvent is a real-time notification that a patient's chart changed.
// Published after the reconciliation engine commits a create or update,
// consumed by chart-rendering clients.
type ChartEvent struct {
	ID            string         `json:"id"`
	PatientID     string         `json:"patient_id"`
	EntityID      string         `json:"entity_id"`
	Category      Category       `json:"category"`
	EventType     ChartEventType `json:"event_type"`
	FieldsChanged []string       `json:"fields_changed,omitempty"`
	Timestamp     time.Time      `json:"timestamp"`
}

// NewChartEvent creates a new chart event
func NewChartEvent(patientID, entityID string, category Category, eventType ChartEventType, fieldsChanged []string) *ChartEvent {
	return &ChartEvent{
		ID:            uuid.New().String(),
		PatientID:     patientID,
		EntityID:      entityID,
		Category:      category,
		EventType:     eventType,
		FieldsChanged: fieldsChanged,
		Timestamp:     time.Now(),
	}
}
