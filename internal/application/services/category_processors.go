package services

import (
	"context"
	"fmt"

	"github.com/caldermed/chartsync/internal/application/reconcile"
	"github.com/caldermed/chartsync/internal/domain/entities"
	"github.com/caldermed/chartsync/internal/domain/providers"
	apperrors "github.com/caldermed/chartsync/pkg/errors"
)

// ReconcileProcessor is the shared section processor shape: extract the
// category's candidate facts from the submission, then feed each one
// through the reconciliation engine.
type ReconcileProcessor struct {
	category entities.Category
	priority int
	noun     string
	producer providers.FactProducer
	engine   *reconcile.Engine
}

// NewVitalsProcessor creates the vitals section processor
func NewVitalsProcessor(producer providers.FactProducer, engine *reconcile.Engine) *ReconcileProcessor {
	return &ReconcileProcessor{category: entities.CategoryVitals, priority: 10, noun: "vitals entries", producer: producer, engine: engine}
}

// NewLabsProcessor creates the labs section processor
func NewLabsProcessor(producer providers.FactProducer, engine *reconcile.Engine) *ReconcileProcessor {
	return &ReconcileProcessor{category: entities.CategoryLabs, priority: 20, noun: "lab results", producer: producer, engine: engine}
}

// NewMedicationsProcessor creates the medications section processor
func NewMedicationsProcessor(producer providers.FactProducer, engine *reconcile.Engine) *ReconcileProcessor {
	return &ReconcileProcessor{category: entities.CategoryMedications, priority: 30, noun: "medications", producer: producer, engine: engine}
}

// NewDiagnosesProcessor creates the diagnoses section processor
func NewDiagnosesProcessor(producer providers.FactProducer, engine *reconcile.Engine) *ReconcileProcessor {
	return &ReconcileProcessor{category: entities.CategoryDiagnoses, priority: 40, noun: "diagnoses", producer: producer, engine: engine}
}

// NewSurgicalHistoryProcessor creates the surgical history section processor
func NewSurgicalHistoryProcessor(producer providers.FactProducer, engine *reconcile.Engine) *ReconcileProcessor {
	return &ReconcileProcessor{category: entities.CategorySurgicalHistory, priority: 50, noun: "procedures", producer: producer, engine: engine}
}

// NewImagingProcessor creates the imaging section processor
func NewImagingProcessor(producer providers.FactProducer, engine *reconcile.Engine) *ReconcileProcessor {
	return &ReconcileProcessor{category: entities.CategoryImaging, priority: 60, noun: "imaging studies", producer: producer, engine: engine}
}

// NewFamilyHistoryProcessor creates the family history section processor
func NewFamilyHistoryProcessor(producer providers.FactProducer, engine *reconcile.Engine) *ReconcileProcessor {
	return &ReconcileProcessor{category: entities.CategoryFamilyHistory, priority: 70, noun: "family history entries", producer: producer, engine: engine}
}

// NewSocialHistoryProcessor creates the social history section processor
func NewSocialHistoryProcessor(producer providers.FactProducer, engine *reconcile.Engine) *ReconcileProcessor {
	return &ReconcileProcessor{category: entities.CategorySocialHistory, priority: 80, noun: "social history entries", producer: producer, engine: engine}
}

// Category returns the clinical category this processor handles
func (p *ReconcileProcessor) Category() entities.Category {
	return p.category
}

// Priority returns the processor's scheduling priority
func (p *ReconcileProcessor) Priority() int {
	return p.priority
}

// Process extracts candidate facts and reconciles them one by one
func (p *ReconcileProcessor) Process(ctx context.Context, content entities.SubmissionContent, pctx entities.ProcessingContext) (*entities.SectionResult, error) {
	facts, err := p.producer.Extract(ctx, content, pctx, p.category)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeProducer) {
			return nil, err
		}
		return nil, apperrors.NewProducerError(fmt.Sprintf("extraction failed for %s", p.category), err)
	}

	result := &entities.SectionResult{}
	for _, fact := range facts {
		outcome, err := p.engine.ProcessFact(ctx, pctx, fact)
		if err != nil {
			return nil, err
		}
		switch outcome.Decision.Action {
		case reconcile.ActionCreate:
			result.Created++
		case reconcile.ActionUpdate:
			result.Updated++
		case reconcile.ActionSkip:
			result.SkippedDuplicates++
		}
	}

	result.Summary = fmt.Sprintf("%d %s affected (%d created, %d corrected, %d duplicates skipped)",
		result.Created+result.Updated, p.noun, result.Created, result.Updated, result.SkippedDuplicates)
	return result, nil
}
