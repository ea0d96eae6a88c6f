package repositories

import (
	"context"

	"github.com/caldermed/chartsync/internal/domain/entities"
)

// ChartRepository defines the interface for persisted chart state.
// UpdateEntity is the single atomic write used by reconciliation: the field
// update and the provenance append commit together or not at all.
type ChartRepository interface {
	// LoadEntities retrieves chart entities for a patient and category
	LoadEntities(ctx context.Context, patientID string, category entities.Category, filter EntityFilter) ([]*entities.ChartEntity, error)

	// GetEntity retrieves a single chart entity with its visit history
	GetEntity(ctx context.Context, entityID string) (*entities.ChartEntity, error)

	// CreateEntity persists a new chart entity together with its seed
	// provenance entry and returns the assigned id
	CreateEntity(ctx context.Context, entity *entities.ChartEntity) (string, error)

	// UpdateEntity overwrites the given fields of an existing entity and
	// appends the provenance entry in the same transaction
	UpdateEntity(ctx context.Context, entityID string, fields map[string]entities.FieldValue, entry entities.ProvenanceEntry) error

	// ListProvenance returns an entity's ledger entries in insertion order
	ListProvenance(ctx context.Context, entityID string) ([]entities.ProvenanceEntry, error)
}

// EntityFilter defines filters for loading chart entities
type EntityFilter struct {
	EncounterID *string
	Limit       int
}
