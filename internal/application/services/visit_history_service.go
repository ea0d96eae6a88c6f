package services

import (
	"context"

	"github.com/caldermed/chartsync/internal/domain/entities"
	"github.com/caldermed/chartsync/internal/domain/repositories"
)

// VisitHistoryService is the read side of the visit history ledger
type VisitHistoryService struct {
	repo repositories.ChartRepository
}

// NewVisitHistoryService creates a new visit history service
func NewVisitHistoryService(repo repositories.ChartRepository) *VisitHistoryService {
	return &VisitHistoryService{repo: repo}
}

// List returns an entity's ledger entries in insertion order, which is the
// order the system learned each fact, not necessarily clinical event order
func (s *VisitHistoryService) List(ctx context.Context, entityID string) ([]entities.ProvenanceEntry, error) {
	return s.repo.ListProvenance(ctx, entityID)
}

// GetEntity returns a chart entity with its full visit history
func (s *VisitHistoryService) GetEntity(ctx context.Context, entityID string) (*entities.ChartEntity, error) {
	return s.repo.GetEntity(ctx, entityID)
}
