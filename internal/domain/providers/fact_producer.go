package providers

import (
	"context"

	"github.com/caldermed/chartsync/internal/domain/entities"
)

// FactProducer defines the interface for upstream fact extraction services
// (dictation transcripts, scanned-document extractors, manual-entry forms).
// Extraction may fail per category independently; a failure surfaces as a
// section processor failure, never as a coordinator failure.
type FactProducer interface {
	// Extract returns zero or more candidate facts of the given category
	// found in the submitted content
	Extract(ctx context.Context, content entities.SubmissionContent, pctx entities.ProcessingContext, category entities.Category) ([]entities.CandidateFact, error)
}
