package reconcile

import (
	"time"

	"github.com/caldermed/chartsync/internal/domain/entities"
)

// CategoryConfig holds the reconciliation policy for one clinical category
type CategoryConfig struct {
	Category entities.Category
	Policy   entities.ReconcilePolicy

	// Tolerances are per-field numeric thresholds for append-only
	// comparison; a field absent from the map compares exactly
	Tolerances map[string]float64

	// IdentityFields name the fields forming the identity key for
	// identity-merge matching
	IdentityFields []string

	// DateField, when set, is a date field that must fall within
	// DateWindow of an existing entity's value for an identity match
	DateField  string
	DateWindow time.Duration
}

// DefaultConfigs returns the category policy table.
// Measured/administered facts accumulate (append-only); narrative facts
// about the patient's past get corrected in place (identity-merge).
func DefaultConfigs() map[entities.Category]CategoryConfig {
	return map[entities.Category]CategoryConfig{
		entities.CategoryVitals: {
			Category: entities.CategoryVitals,
			Policy:   entities.PolicyAppendOnly,
			Tolerances: map[string]float64{
				"bp_systolic":      2,
				"bp_diastolic":     2,
				"heart_rate":       2,
				"temperature":      0.2,
				"respiratory_rate": 1,
				"o2_saturation":    1,
				"weight":           0.5,
				"pain_scale":       0,
			},
		},
		entities.CategoryLabs: {
			Category: entities.CategoryLabs,
			Policy:   entities.PolicyAppendOnly,
			Tolerances: map[string]float64{
				"glucose": 2,
			},
		},
		entities.CategoryMedications: {
			Category: entities.CategoryMedications,
			Policy:   entities.PolicyAppendOnly,
		},
		entities.CategoryDiagnoses: {
			Category: entities.CategoryDiagnoses,
			Policy:   entities.PolicyAppendOnly,
		},
		entities.CategorySurgicalHistory: {
			Category:       entities.CategorySurgicalHistory,
			Policy:         entities.PolicyIdentityMerge,
			IdentityFields: []string{"procedure_name"},
			DateField:      "procedure_date",
			DateWindow:     180 * 24 * time.Hour,
		},
		entities.CategoryImaging: {
			Category:       entities.CategoryImaging,
			Policy:         entities.PolicyIdentityMerge,
			IdentityFields: []string{"modality", "body_region"},
			DateField:      "study_date",
			DateWindow:     30 * 24 * time.Hour,
		},
		entities.CategoryFamilyHistory: {
			Category:       entities.CategoryFamilyHistory,
			Policy:         entities.PolicyIdentityMerge,
			IdentityFields: []string{"relation", "condition"},
		},
		entities.CategorySocialHistory: {
			Category:       entities.CategorySocialHistory,
			Policy:         entities.PolicyIdentityMerge,
			IdentityFields: []string{"domain"},
		},
	}
}
