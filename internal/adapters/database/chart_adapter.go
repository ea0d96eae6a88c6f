package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"

	"github.com/caldermed/chartsync/internal/domain/entities"
	"github.com/caldermed/chartsync/internal/domain/repositories"
	"github.com/caldermed/chartsync/internal/infrastructure/clients/postgres"
	apperrors "github.com/caldermed/chartsync/pkg/errors"
)

// ChartAdapter implements the ChartRepository interface on PostgreSQL.
// Entities live in chart_entities with a jsonb payload; ledger entries live
// in provenance_entries ordered by an insertion sequence. UpdateEntity runs
// the field overwrite and the provenance insert in one transaction.
type ChartAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewChartAdapter creates a new chart adapter
func NewChartAdapter(client *postgres.Client) repositories.ChartRepository {
	return &ChartAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// LoadEntities retrieves chart entities for a patient and category
func (a *ChartAdapter) LoadEntities(ctx context.Context, patientID string, category entities.Category, filter repositories.EntityFilter) ([]*entities.ChartEntity, error) {
	ds := a.db.Select(
		"id", "patient_id", "category", "encounter_id", "fields",
		"source_type", "source_confidence", "created_at", "updated_at",
	).From("chart_entities").
		Where(goqu.Ex{"patient_id": patientID, "category": category})

	if filter.EncounterID != nil {
		ds = ds.Where(goqu.Ex{"encounter_id": *filter.EncounterID})
	}

	ds = ds.Order(goqu.I("created_at").Asc())

	if filter.Limit > 0 {
		ds = ds.Limit(uint(filter.Limit))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build load query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load chart entities", err)
	}
	defer rows.Close()

	var result []*entities.ChartEntity
	for rows.Next() {
		entity, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, entity)
	}

	for _, entity := range result {
		history, err := a.ListProvenance(ctx, entity.ID)
		if err != nil {
			return nil, err
		}
		entity.VisitHistory = history
	}

	return result, nil
}

// GetEntity retrieves a single chart entity with its visit history
func (a *ChartAdapter) GetEntity(ctx context.Context, entityID string) (*entities.ChartEntity, error) {
	query, args, err := a.db.Select(
		"id", "patient_id", "category", "encounter_id", "fields",
		"source_type", "source_confidence", "created_at", "updated_at",
	).From("chart_entities").
		Where(goqu.Ex{"id": entityID}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build get query", err)
	}

	row := a.client.DB().QueryRowContext(ctx, query, args...)
	entity, err := scanEntity(row)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("chart entity %s not found", entityID))
	}
	if err != nil {
		return nil, err
	}

	history, err := a.ListProvenance(ctx, entityID)
	if err != nil {
		return nil, err
	}
	entity.VisitHistory = history

	return entity, nil
}

// CreateEntity persists a new chart entity with its seed provenance entry
func (a *ChartAdapter) CreateEntity(ctx context.Context, entity *entities.ChartEntity) (string, error) {
	if len(entity.VisitHistory) == 0 {
		return "", apperrors.NewValidationError("chart entity must carry a seed provenance entry")
	}

	fieldsJSON, err := json.Marshal(entity.Fields)
	if err != nil {
		return "", apperrors.NewInternalError("failed to encode entity fields", err)
	}

	tx, err := a.client.BeginTx(ctx)
	if err != nil {
		return "", apperrors.NewInternalError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	record := goqu.Record{
		"id":                entity.ID,
		"patient_id":        entity.PatientID,
		"category":          entity.Category,
		"encounter_id":      entity.EncounterID,
		"fields":            fieldsJSON,
		"source_type":       entity.SourceType,
		"source_confidence": entity.SourceConfidence,
		"created_at":        entity.CreatedAt,
		"updated_at":        entity.UpdatedAt,
	}

	query, args, err := a.db.Insert("chart_entities").Rows(record).ToSQL()
	if err != nil {
		return "", apperrors.NewInternalError("failed to build insert query", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return "", apperrors.NewInternalError("failed to create chart entity", err)
	}

	for _, entry := range entity.VisitHistory {
		entry.EntityID = entity.ID
		if err := a.insertProvenance(ctx, tx, entry); err != nil {
			return "", err
		}
	}

	if err := tx.Commit(); err != nil {
		return "", apperrors.NewInternalError("failed to commit entity creation", err)
	}

	return entity.ID, nil
}

// UpdateEntity overwrites fields and appends the provenance entry in one
// transaction, taking a row lock on the entity for the duration
func (a *ChartAdapter) UpdateEntity(ctx context.Context, entityID string, fields map[string]entities.FieldValue, entry entities.ProvenanceEntry) error {
	tx, err := a.client.BeginTx(ctx)
	if err != nil {
		return apperrors.NewInternalError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	var fieldsJSON []byte
	row := tx.QueryRowContext(ctx, "SELECT fields FROM chart_entities WHERE id = $1 FOR UPDATE", entityID)
	if err := row.Scan(&fieldsJSON); err == sql.ErrNoRows {
		return apperrors.NewNotFoundError(fmt.Sprintf("chart entity %s not found", entityID))
	} else if err != nil {
		return apperrors.NewInternalError("failed to lock chart entity", err)
	}

	current := make(map[string]entities.FieldValue)
	if err := json.Unmarshal(fieldsJSON, &current); err != nil {
		return apperrors.NewInternalError("failed to decode entity fields", err)
	}
	for name, value := range fields {
		current[name] = value
	}

	merged, err := json.Marshal(current)
	if err != nil {
		return apperrors.NewInternalError("failed to encode entity fields", err)
	}

	query, args, err := a.db.Update("chart_entities").
		Set(goqu.Record{
			"fields":     merged,
			"updated_at": entry.Date,
		}).
		Where(goqu.Ex{"id": entityID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to update chart entity", err)
	}

	entry.EntityID = entityID
	if err := a.insertProvenance(ctx, tx, entry); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewInternalError("failed to commit entity update", err)
	}

	return nil
}

// ListProvenance returns an entity's ledger entries in insertion order
func (a *ChartAdapter) ListProvenance(ctx context.Context, entityID string) ([]entities.ProvenanceEntry, error) {
	query, args, err := a.db.Select(
		"id", "entity_id", "date", "source_type", "source_reference",
		"confidence", "notes", "fields_changed",
	).From("provenance_entries").
		Where(goqu.Ex{"entity_id": entityID}).
		Order(goqu.I("seq").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build provenance query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list provenance entries", err)
	}
	defer rows.Close()

	var entries []entities.ProvenanceEntry
	for rows.Next() {
		var entry entities.ProvenanceEntry
		var sourceReference sql.NullString
		var fieldsChanged []byte

		err := rows.Scan(
			&entry.ID,
			&entry.EntityID,
			&entry.Date,
			&entry.SourceType,
			&sourceReference,
			&entry.Confidence,
			&entry.Notes,
			&fieldsChanged,
		)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan provenance entry", err)
		}

		if sourceReference.Valid {
			entry.SourceReference = &sourceReference.String
		}
		if len(fieldsChanged) > 0 {
			if err := json.Unmarshal(fieldsChanged, &entry.FieldsChanged); err != nil {
				return nil, apperrors.NewInternalError("failed to decode fields_changed", err)
			}
		}

		entries = append(entries, entry)
	}

	return entries, nil
}

func (a *ChartAdapter) insertProvenance(ctx context.Context, tx *sql.Tx, entry entities.ProvenanceEntry) error {
	fieldsChanged, err := json.Marshal(entry.FieldsChanged)
	if err != nil {
		return apperrors.NewInternalError("failed to encode fields_changed", err)
	}

	record := goqu.Record{
		"id":               entry.ID,
		"entity_id":        entry.EntityID,
		"date":             entry.Date,
		"source_type":      entry.SourceType,
		"source_reference": entry.SourceReference,
		"confidence":       entry.Confidence,
		"notes":            entry.Notes,
		"fields_changed":   fieldsChanged,
	}

	query, args, err := a.db.Insert("provenance_entries").Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build provenance insert", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to append provenance entry", err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntity(row rowScanner) (*entities.ChartEntity, error) {
	entity := &entities.ChartEntity{}
	var encounterID sql.NullString
	var fieldsJSON []byte

	err := row.Scan(
		&entity.ID,
		&entity.PatientID,
		&entity.Category,
		&encounterID,
		&fieldsJSON,
		&entity.SourceType,
		&entity.SourceConfidence,
		&entity.CreatedAt,
		&entity.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to scan chart entity", err)
	}

	if encounterID.Valid {
		entity.EncounterID = &encounterID.String
	}
	entity.Fields = make(map[string]entities.FieldValue)
	if len(fieldsJSON) > 0 {
		if err := json.Unmarshal(fieldsJSON, &entity.Fields); err != nil {
			return nil, apperrors.NewInternalError("failed to decode entity fields", err)
		}
	}

	return entity, nil
}
