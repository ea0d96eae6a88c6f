package extraction_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/caldermed/chartsync/internal/adapters/providers/extraction"
	"github.com/caldermed/chartsync/internal/domain/entities"
)

func extract(t *testing.T, text string, category entities.Category) []entities.CandidateFact {
	t.Helper()
	producer := extraction.NewMockProducer()
	facts, err := producer.Extract(context.Background(), entities.SubmissionContent{
		Text:       text,
		SourceType: entities.SourceTypeEncounterNote,
	}, entities.ProcessingContext{PatientID: "pat-1"}, category)
	assert.NoError(t, err)
	return facts
}

func TestMockProducer_ExtractVitals(t *testing.T) {
	facts := extract(t, "Pt stable. BP: 128/84, HR 72, Temp 36.8, RR 16, O2 Sat: 97, pain 3/10", entities.CategoryVitals)
	assert.Len(t, facts, 1)

	fields := facts[0].Fields
	assert.Equal(t, float64(128), *fields["bp_systolic"].Number)
	assert.Equal(t, float64(84), *fields["bp_diastolic"].Number)
	assert.Equal(t, float64(72), *fields["heart_rate"].Number)
	assert.Equal(t, 36.8, *fields["temperature"].Number)
	assert.Equal(t, float64(16), *fields["respiratory_rate"].Number)
	assert.Equal(t, float64(97), *fields["o2_saturation"].Number)
	assert.Equal(t, float64(3), *fields["pain_scale"].Number)
	assert.Equal(t, entities.CategoryVitals, facts[0].Category)
}

func TestMockProducer_ExtractSurgicalHistory(t *testing.T) {
	facts := extract(t, "surgery: Laparoscopic Appendectomy on 2024-01-15", entities.CategorySurgicalHistory)
	assert.Len(t, facts, 1)
	assert.Equal(t, "laparoscopic appendectomy", facts[0].Fields["procedure_name"].Text)
	assert.Equal(t, "2024-01-15", facts[0].Fields["procedure_date"].Text)
}

func TestMockProducer_ExtractImaging(t *testing.T) {
	facts := extract(t, "imaging: X-Ray chest on 2024-05-02", entities.CategoryImaging)
	assert.Len(t, facts, 1)
	assert.Equal(t, "x-ray", facts[0].Fields["modality"].Text)
	assert.Equal(t, "chest", facts[0].Fields["body_region"].Text)
	assert.Equal(t, "2024-05-02", facts[0].Fields["study_date"].Text)
}

func TestMockProducer_UnrecognizedTextYieldsNoFacts(t *testing.T) {
	facts := extract(t, "patient resting comfortably", entities.CategoryVitals)
	assert.Empty(t, facts)
}

func TestMockProducer_UnhandledCategoryYieldsNoFacts(t *testing.T) {
	facts := extract(t, "BP: 120/80", entities.CategoryMedications)
	assert.Empty(t, facts)
}
