package extraction

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/caldermed/chartsync/internal/domain/entities"
	"github.com/caldermed/chartsync/internal/domain/providers"
)

// MockProducer is a rule-based fact producer for local development and
// tests. It recognizes a handful of common patterns in free text; anything
// it does not recognize yields no candidates rather than an error.
type MockProducer struct{}

// NewMockProducer creates a new mock fact producer
func NewMockProducer() providers.FactProducer {
	return &MockProducer{}
}

var (
	bpPattern      = regexp.MustCompile(`(?i)\bBP:?\s*(\d{2,3})\s*/\s*(\d{2,3})`)
	hrPattern      = regexp.MustCompile(`(?i)\bHR:?\s*(\d{2,3})`)
	tempPattern    = regexp.MustCompile(`(?i)\btemp(?:erature)?:?\s*(\d{2,3}(?:\.\d+)?)`)
	rrPattern      = regexp.MustCompile(`(?i)\bRR:?\s*(\d{1,2})`)
	o2Pattern      = regexp.MustCompile(`(?i)\b(?:O2\s*Sat|SpO2):?\s*(\d{2,3})`)
	painPattern    = regexp.MustCompile(`(?i)\bpain:?\s*(\d{1,2})\s*/\s*10`)
	surgeryPattern = regexp.MustCompile(`(?i)\bsurgery:?\s*([a-z][a-z\s-]+?)\s+on\s+(\d{4}-\d{2}-\d{2})`)
	imagingPattern = regexp.MustCompile(`(?i)\bimaging:?\s*(x-ray|ct|mri|ultrasound)\s+([a-z][a-z\s]+?)\s+on\s+(\d{4}-\d{2}-\d{2})`)
)

// Extract parses recognizable facts of the given category out of the text
func (p *MockProducer) Extract(_ context.Context, content entities.SubmissionContent, _ entities.ProcessingContext, category entities.Category) ([]entities.CandidateFact, error) {
	switch category {
	case entities.CategoryVitals:
		return p.extractVitals(content), nil
	case entities.CategorySurgicalHistory:
		return p.extractSurgeries(content), nil
	case entities.CategoryImaging:
		return p.extractImaging(content), nil
	default:
		return nil, nil
	}
}

func (p *MockProducer) extractVitals(content entities.SubmissionContent) []entities.CandidateFact {
	fields := make(map[string]entities.FieldValue)

	if m := bpPattern.FindStringSubmatch(content.Text); m != nil {
		fields["bp_systolic"] = entities.NumberField(mustFloat(m[1]))
		fields["bp_diastolic"] = entities.NumberField(mustFloat(m[2]))
	}
	if m := hrPattern.FindStringSubmatch(content.Text); m != nil {
		fields["heart_rate"] = entities.NumberField(mustFloat(m[1]))
	}
	if m := tempPattern.FindStringSubmatch(content.Text); m != nil {
		fields["temperature"] = entities.NumberField(mustFloat(m[1]))
	}
	if m := rrPattern.FindStringSubmatch(content.Text); m != nil {
		fields["respiratory_rate"] = entities.NumberField(mustFloat(m[1]))
	}
	if m := o2Pattern.FindStringSubmatch(content.Text); m != nil {
		fields["o2_saturation"] = entities.NumberField(mustFloat(m[1]))
	}
	if m := painPattern.FindStringSubmatch(content.Text); m != nil {
		fields["pain_scale"] = entities.NumberField(mustFloat(m[1]))
	}

	if len(fields) == 0 {
		return nil
	}

	return []entities.CandidateFact{{
		Category:        entities.CategoryVitals,
		Fields:          fields,
		SourceType:      content.SourceType,
		SourceReference: content.SourceReference,
		Confidence:      0.85,
	}}
}

func (p *MockProducer) extractSurgeries(content entities.SubmissionContent) []entities.CandidateFact {
	var facts []entities.CandidateFact
	for _, m := range surgeryPattern.FindAllStringSubmatch(content.Text, -1) {
		facts = append(facts, entities.CandidateFact{
			Category: entities.CategorySurgicalHistory,
			Fields: map[string]entities.FieldValue{
				"procedure_name": entities.TextField(strings.TrimSpace(strings.ToLower(m[1]))),
				"procedure_date": entities.TextField(m[2]),
			},
			SourceType:      content.SourceType,
			SourceReference: content.SourceReference,
			Confidence:      0.75,
		})
	}
	return facts
}

func (p *MockProducer) extractImaging(content entities.SubmissionContent) []entities.CandidateFact {
	var facts []entities.CandidateFact
	for _, m := range imagingPattern.FindAllStringSubmatch(content.Text, -1) {
		facts = append(facts, entities.CandidateFact{
			Category: entities.CategoryImaging,
			Fields: map[string]entities.FieldValue{
				"modality":    entities.TextField(strings.ToLower(m[1])),
				"body_region": entities.TextField(strings.TrimSpace(strings.ToLower(m[2]))),
				"study_date":  entities.TextField(m[3]),
			},
			SourceType:      content.SourceType,
			SourceReference: content.SourceReference,
			Confidence:      0.75,
		})
	}
	return facts
}

func mustFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
