package database

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/caldermed/chartsync/internal/domain/entities"
	"github.com/caldermed/chartsync/internal/domain/repositories"
	apperrors "github.com/caldermed/chartsync/pkg/errors"
)

// MemoryChartAdapter is an in-memory ChartRepository for tests and local
// development. It honors the same contract as the postgres adapter: the
// field update and provenance append in UpdateEntity are atomic, and visit
// histories are only ever appended.
type MemoryChartAdapter struct {
	mu       sync.RWMutex
	entities map[string]*entities.ChartEntity
}

// NewMemoryChartAdapter creates a new in-memory chart repository
func NewMemoryChartAdapter() repositories.ChartRepository {
	return &MemoryChartAdapter{
		entities: make(map[string]*entities.ChartEntity),
	}
}

// LoadEntities retrieves chart entities for a patient and category
func (a *MemoryChartAdapter) LoadEntities(ctx context.Context, patientID string, category entities.Category, filter repositories.EntityFilter) ([]*entities.ChartEntity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	var result []*entities.ChartEntity
	for _, e := range a.entities {
		if e.PatientID != patientID || e.Category != category {
			continue
		}
		if filter.EncounterID != nil && !e.SameEncounter(filter.EncounterID) {
			continue
		}
		result = append(result, e.Clone())
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}

	return result, nil
}

// GetEntity retrieves a single chart entity with its visit history
func (a *MemoryChartAdapter) GetEntity(ctx context.Context, entityID string) (*entities.ChartEntity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	entity, ok := a.entities[entityID]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("chart entity %s not found", entityID))
	}
	return entity.Clone(), nil
}

// CreateEntity persists a new chart entity with its seed provenance entry
func (a *MemoryChartAdapter) CreateEntity(ctx context.Context, entity *entities.ChartEntity) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(entity.VisitHistory) == 0 {
		return "", apperrors.NewValidationError("chart entity must carry a seed provenance entry")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.entities[entity.ID]; exists {
		return "", apperrors.NewConflictError(fmt.Sprintf("chart entity %s already exists", entity.ID))
	}
	a.entities[entity.ID] = entity.Clone()
	return entity.ID, nil
}

// UpdateEntity overwrites fields and appends the provenance entry atomically
func (a *MemoryChartAdapter) UpdateEntity(ctx context.Context, entityID string, fields map[string]entities.FieldValue, entry entities.ProvenanceEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	entity, ok := a.entities[entityID]
	if !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("chart entity %s not found", entityID))
	}

	for name, value := range fields {
		entity.Fields[name] = value
	}
	entry.EntityID = entityID
	entity.VisitHistory = append(entity.VisitHistory, entry)
	entity.UpdatedAt = entry.Date

	return nil
}

// ListProvenance returns an entity's ledger entries in insertion order
func (a *MemoryChartAdapter) ListProvenance(ctx context.Context, entityID string) ([]entities.ProvenanceEntry, error) {
	entity, err := a.GetEntity(ctx, entityID)
	if err != nil {
		return nil, err
	}
	return entity.VisitHistory, nil
}
