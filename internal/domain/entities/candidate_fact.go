package entities

// CandidateFact is a transient, extracted data point awaiting reconciliation.
// It is produced per processing run and never persisted directly; its effect
// survives only as a chart entity mutation plus ledger entry, or as a no-op.
type CandidateFact struct {
	Category        Category              `json:"category"`
	Fields          map[string]FieldValue `json:"fields"`
	SourceType      SourceType            `json:"source_type"`
	SourceReference *string               `json:"source_reference,omitempty"`
	Confidence      float64               `json:"confidence"`
}

// FieldNames returns the names of the fields present in the candidate
func (f *CandidateFact) FieldNames() []string {
	names := make([]string, 0, len(f.Fields))
	for name := range f.Fields {
		names = append(names, name)
	}
	return names
}
