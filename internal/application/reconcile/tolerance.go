package reconcile

import (
	"math"

	"github.com/caldermed/chartsync/internal/domain/entities"
)

// fieldsMatch reports whether two values of the named field are the same
// measurement under the category's tolerance. Numeric fields compare by
// absolute difference: equal values always match, and a difference equal to
// the configured tolerance counts as new information, so only differences
// strictly inside the band are suppressed. Everything else compares exactly.
// Inputs are assumed to share units (normalization happens upstream).
func fieldsMatch(cfg CategoryConfig, field string, a, b entities.FieldValue) bool {
	if a.IsNumeric() && b.IsNumeric() {
		diff := math.Abs(*a.Number - *b.Number)
		return diff == 0 || diff < cfg.Tolerances[field]
	}
	return a.Equal(b)
}

// mostRecentInEncounter returns the most recently created entity belonging
// to the given encounter, or nil. Append-only comparison deliberately checks
// only this one baseline entity.
func mostRecentInEncounter(existing []*entities.ChartEntity, encounterID *string) *entities.ChartEntity {
	var latest *entities.ChartEntity
	for _, e := range existing {
		if !e.SameEncounter(encounterID) {
			continue
		}
		if latest == nil || e.CreatedAt.After(latest.CreatedAt) {
			latest = e
		}
	}
	return latest
}
