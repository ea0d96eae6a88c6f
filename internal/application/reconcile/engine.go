package reconcile

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/caldermed/chartsync/internal/domain/entities"
	"github.com/caldermed/chartsync/internal/domain/providers"
	"github.com/caldermed/chartsync/internal/domain/repositories"
	"github.com/caldermed/chartsync/internal/infrastructure/observability"
	apperrors "github.com/caldermed/chartsync/pkg/errors"
)

// Engine reconciles candidate facts against a patient's chart. Every
// category processor shares one engine; the decide-and-write step for a
// given (patient, category, identity) runs inside a single acquired lock,
// so two concurrent submissions can never both create the same fact.
type Engine struct {
	repo    repositories.ChartRepository
	locker  providers.EntityLocker
	bus     providers.EventBus
	metrics *observability.Metrics
	configs map[entities.Category]CategoryConfig
	now     func() time.Time
}

// NewEngine creates a new reconciliation engine. The event bus, metrics and
// clock may be nil; a nil clock falls back to time.Now.
func NewEngine(
	repo repositories.ChartRepository,
	locker providers.EntityLocker,
	bus providers.EventBus,
	metrics *observability.Metrics,
	clock func() time.Time,
) *Engine {
	if clock == nil {
		clock = time.Now
	}
	return &Engine{
		repo:    repo,
		locker:  locker,
		bus:     bus,
		metrics: metrics,
		configs: DefaultConfigs(),
		now:     clock,
	}
}

// Config returns the policy configuration for a category
func (e *Engine) Config(category entities.Category) (CategoryConfig, bool) {
	cfg, ok := e.configs[category]
	return cfg, ok
}

// ProcessFact reconciles one candidate fact and commits the resulting
// decision. The read-decide-write sequence is one critical section per
// entity identity; a context already expired at commit time abandons the
// decision with no partial effect.
func (e *Engine) ProcessFact(ctx context.Context, pctx entities.ProcessingContext, fact entities.CandidateFact) (*Outcome, error) {
	cfg, ok := e.configs[fact.Category]
	if !ok {
		return nil, apperrors.NewValidationError(fmt.Sprintf("no reconciliation policy for category %s", fact.Category))
	}
	if len(fact.Fields) == 0 {
		return nil, apperrors.NewProducerError("candidate fact has no fields", nil)
	}

	lockKey := providers.LockKey(pctx.PatientID, fact.Category, identityKey(cfg, pctx, fact))
	release, err := e.locker.Acquire(ctx, lockKey)
	if err != nil {
		return nil, apperrors.NewTimeoutError(fmt.Sprintf("could not acquire reconciliation lock for %s", lockKey))
	}
	defer release()

	existing, err := e.repo.LoadEntities(ctx, pctx.PatientID, fact.Category, repositories.EntityFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to load existing entities: %w", err)
	}

	decision := e.decide(cfg, pctx, fact, existing)
	observability.RecordDecisionMetric(ctx, e.metrics, string(fact.Category), string(decision.Action))

	// A timed-out task must abandon an uncommitted decision.
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, apperrors.NewTimeoutError(fmt.Sprintf("reconciliation abandoned before commit: %v", ctxErr))
	}

	return e.apply(ctx, pctx, fact, decision)
}

// decide resolves one candidate against the existing chart state
func (e *Engine) decide(cfg CategoryConfig, pctx entities.ProcessingContext, fact entities.CandidateFact, existing []*entities.ChartEntity) Decision {
	if cfg.Policy == entities.PolicyAppendOnly {
		return e.decideAppendOnly(cfg, pctx, fact, existing)
	}
	return e.decideIdentityMerge(cfg, fact, existing)
}

// decideAppendOnly compares the candidate field by field against the most
// recent entity of the same encounter. Full match is a duplicate; a partial
// match creates a new entity carrying only the fields that add information.
func (e *Engine) decideAppendOnly(cfg CategoryConfig, pctx entities.ProcessingContext, fact entities.CandidateFact, existing []*entities.ChartEntity) Decision {
	baseline := mostRecentInEncounter(existing, pctx.EncounterID)
	if baseline == nil {
		return Decision{Action: ActionCreate, Fields: fact.Fields}
	}

	fresh := make(map[string]entities.FieldValue)
	var suppressed []string
	for name, value := range fact.Fields {
		if prior, ok := baseline.Fields[name]; ok && fieldsMatch(cfg, name, value, prior) {
			suppressed = append(suppressed, name)
			continue
		}
		fresh[name] = value
	}

	if len(fresh) == 0 {
		return Decision{
			Action:   ActionSkip,
			EntityID: baseline.ID,
			Reason:   fmt.Sprintf("all fields within tolerance of entity %s", baseline.ID),
		}
	}

	decision := Decision{Action: ActionCreate, Fields: fresh}
	if len(suppressed) > 0 {
		sort.Strings(suppressed)
		decision.Reason = fmt.Sprintf("suppressed duplicate fields: %s", strings.Join(suppressed, ", "))
	}
	return decision
}

// decideIdentityMerge matches the candidate to an existing entity by the
// category's identity heuristics and overwrites disputed fields in place,
// keeping the entity id and its full ledger.
func (e *Engine) decideIdentityMerge(cfg CategoryConfig, fact entities.CandidateFact, existing []*entities.ChartEntity) Decision {
	match, ambiguous := matchIdentity(cfg, fact, existing)
	if match == nil {
		return Decision{Action: ActionCreate, Fields: fact.Fields}
	}

	var changes []FieldChange
	disputed := make(map[string]entities.FieldValue)
	for name, value := range fact.Fields {
		prior, ok := match.Fields[name]
		if ok && prior.Equal(value) {
			continue
		}
		changes = append(changes, FieldChange{Field: name, Prev: prior, Next: value})
		disputed[name] = value
	}

	if len(changes) == 0 {
		return Decision{
			Action:   ActionSkip,
			EntityID: match.ID,
			Reason:   fmt.Sprintf("duplicate of entity %s", match.ID),
		}
	}

	sort.Slice(changes, func(i, j int) bool { return changes[i].Field < changes[j].Field })

	reason := ""
	if ambiguous {
		reason = "ambiguous match; preferred most recently updated entity"
	}
	return Decision{
		Action:   ActionUpdate,
		EntityID: match.ID,
		Fields:   disputed,
		Changes:  changes,
		Reason:   reason,
	}
}

// apply commits a decision through the repository's atomic write
func (e *Engine) apply(ctx context.Context, pctx entities.ProcessingContext, fact entities.CandidateFact, decision Decision) (*Outcome, error) {
	switch decision.Action {
	case ActionCreate:
		entity := &entities.ChartEntity{
			ID:               uuid.New().String(),
			PatientID:        pctx.PatientID,
			Category:         fact.Category,
			EncounterID:      pctx.EncounterID,
			Fields:           decision.Fields,
			SourceType:       fact.SourceType,
			SourceConfidence: fact.Confidence,
			CreatedAt:        e.now(),
			UpdatedAt:        e.now(),
			VisitHistory: []entities.ProvenanceEntry{{
				ID:              uuid.New().String(),
				Date:            e.now(),
				SourceType:      fact.SourceType,
				SourceReference: fact.SourceReference,
				Confidence:      fact.Confidence,
				Notes:           creationNotes(fact, decision),
			}},
		}
		entity.VisitHistory[0].EntityID = entity.ID

		id, err := e.repo.CreateEntity(ctx, entity)
		if err != nil {
			return nil, fmt.Errorf("failed to create entity: %w", err)
		}
		e.publish(ctx, pctx.PatientID, id, fact.Category, entities.ChartEventTypeEntityCreated, nil)
		return &Outcome{Decision: decision, EntityID: id}, nil

	case ActionUpdate:
		changed := make([]string, 0, len(decision.Changes))
		for _, c := range decision.Changes {
			changed = append(changed, c.Field)
		}
		entry := entities.ProvenanceEntry{
			ID:              uuid.New().String(),
			EntityID:        decision.EntityID,
			Date:            e.now(),
			SourceType:      fact.SourceType,
			SourceReference: fact.SourceReference,
			Confidence:      fact.Confidence,
			Notes:           correctionNotes(decision),
			FieldsChanged:   changed,
		}
		if err := e.repo.UpdateEntity(ctx, decision.EntityID, decision.Fields, entry); err != nil {
			return nil, fmt.Errorf("failed to update entity %s: %w", decision.EntityID, err)
		}
		e.publish(ctx, pctx.PatientID, decision.EntityID, fact.Category, entities.ChartEventTypeEntityUpdated, changed)
		return &Outcome{Decision: decision, EntityID: decision.EntityID}, nil

	default:
		return &Outcome{Decision: decision, EntityID: decision.EntityID}, nil
	}
}

func (e *Engine) publish(ctx context.Context, patientID, entityID string, category entities.Category, eventType entities.ChartEventType, fieldsChanged []string) {
	if e.bus == nil {
		return
	}
	event := entities.NewChartEvent(patientID, entityID, category, eventType, fieldsChanged)
	if err := e.bus.Publish(ctx, providers.GetPatientChannel(patientID), event); err != nil {
		observability.LoggerFromContext(ctx).Warn().
			Err(err).
			Str("patient_id", patientID).
			Str("entity_id", entityID).
			Msg("failed to publish chart event")
	}
}

func creationNotes(fact entities.CandidateFact, decision Decision) string {
	notes := fmt.Sprintf("created from %s", fact.SourceType)
	if decision.Reason != "" {
		notes += "; " + decision.Reason
	}
	return notes
}

func correctionNotes(decision Decision) string {
	parts := make([]string, 0, len(decision.Changes)+1)
	for _, c := range decision.Changes {
		parts = append(parts, fmt.Sprintf("%s: %s -> %s", c.Field, c.Prev.String(), c.Next.String()))
	}
	if decision.Reason != "" {
		parts = append(parts, decision.Reason)
	}
	return strings.Join(parts, "; ")
}
