package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/caldermed/chartsync/internal/domain/entities"
	"github.com/caldermed/chartsync/internal/domain/providers"
	"github.com/caldermed/chartsync/internal/domain/repositories"
)

// CachedChartAdapter wraps a ChartRepository with read caching for the
// chart-rendering read side (GetEntity, ListProvenance). LoadEntities passes
// through uncached: reconciliation reads inside the entity lock must see
// current state, never a cached snapshot.
type CachedChartAdapter struct {
	adapter repositories.ChartRepository
	cache   providers.CacheProvider
}

// NewCachedChartAdapter creates a new cached chart adapter
func NewCachedChartAdapter(adapter repositories.ChartRepository, cache providers.CacheProvider) repositories.ChartRepository {
	return &CachedChartAdapter{
		adapter: adapter,
		cache:   cache,
	}
}

// Cache TTLs (in seconds)
const (
	entityTTL     = 120
	provenanceTTL = 120
)

func entityCacheKey(id string) string {
	return fmt.Sprintf("chart:entity:%s", id)
}

func provenanceCacheKey(id string) string {
	return fmt.Sprintf("chart:provenance:%s", id)
}

// LoadEntities passes through to the underlying repository
func (a *CachedChartAdapter) LoadEntities(ctx context.Context, patientID string, category entities.Category, filter repositories.EntityFilter) ([]*entities.ChartEntity, error) {
	return a.adapter.LoadEntities(ctx, patientID, category, filter)
}

// GetEntity retrieves a chart entity with caching
func (a *CachedChartAdapter) GetEntity(ctx context.Context, entityID string) (*entities.ChartEntity, error) {
	cacheKey := entityCacheKey(entityID)

	if cached, err := a.cache.Get(ctx, cacheKey); err == nil {
		var entity entities.ChartEntity
		if err := json.Unmarshal(cached, &entity); err == nil {
			return &entity, nil
		}
		log.Printf("Failed to unmarshal cached entity %s: %v", entityID, err)
	}

	entity, err := a.adapter.GetEntity(ctx, entityID)
	if err != nil {
		return nil, err
	}

	go func() {
		bgCtx := context.Background()
		if data, err := json.Marshal(entity); err == nil {
			if err := a.cache.Set(bgCtx, cacheKey, data, entityTTL); err != nil {
				log.Printf("Failed to cache entity %s: %v", entityID, err)
			}
		}
	}()

	return entity, nil
}

// CreateEntity passes through and invalidates patient-level caches
func (a *CachedChartAdapter) CreateEntity(ctx context.Context, entity *entities.ChartEntity) (string, error) {
	id, err := a.adapter.CreateEntity(ctx, entity)
	if err != nil {
		return "", err
	}
	a.invalidate(id)
	return id, nil
}

// UpdateEntity passes through and invalidates the entity's caches
func (a *CachedChartAdapter) UpdateEntity(ctx context.Context, entityID string, fields map[string]entities.FieldValue, entry entities.ProvenanceEntry) error {
	if err := a.adapter.UpdateEntity(ctx, entityID, fields, entry); err != nil {
		return err
	}
	a.invalidate(entityID)
	return nil
}

// ListProvenance returns ledger entries with caching
func (a *CachedChartAdapter) ListProvenance(ctx context.Context, entityID string) ([]entities.ProvenanceEntry, error) {
	cacheKey := provenanceCacheKey(entityID)

	if cached, err := a.cache.Get(ctx, cacheKey); err == nil {
		var entries []entities.ProvenanceEntry
		if err := json.Unmarshal(cached, &entries); err == nil {
			return entries, nil
		}
	}

	entries, err := a.adapter.ListProvenance(ctx, entityID)
	if err != nil {
		return nil, err
	}

	go func() {
		bgCtx := context.Background()
		if data, err := json.Marshal(entries); err == nil {
			if err := a.cache.Set(bgCtx, cacheKey, data, provenanceTTL); err != nil {
				log.Printf("Failed to cache provenance for %s: %v", entityID, err)
			}
		}
	}()

	return entries, nil
}

func (a *CachedChartAdapter) invalidate(entityID string) {
	go func() {
		bgCtx := context.Background()
		if err := a.cache.Delete(bgCtx, entityCacheKey(entityID)); err != nil {
			log.Printf("Failed to invalidate entity cache %s: %v", entityID, err)
		}
		if err := a.cache.Delete(bgCtx, provenanceCacheKey(entityID)); err != nil {
			log.Printf("Failed to invalidate provenance cache %s: %v", entityID, err)
		}
	}()
}
