package entities

// Category is a clinical data type with its own reconciliation policy
type Category string

const (
	CategoryVitals          Category = "vitals"
	CategoryLabs            Category = "labs"
	CategoryMedications     Category = "medications"
	CategoryDiagnoses       Category = "diagnoses"
	CategorySurgicalHistory Category = "surgical-history"
	CategoryImaging         Category = "imaging"
	CategoryFamilyHistory   Category = "family-history"
	CategorySocialHistory   Category = "social-history"
	CategoryProblems        Category = "problems"
	CategoryAllergies       Category = "allergies"
)

// ReconcilePolicy selects how a category reconciles incoming facts.
// Append-only categories accumulate observations and never overwrite;
// identity-merge categories correct a singular narrative fact in place.
type ReconcilePolicy string

const (
	PolicyAppendOnly    ReconcilePolicy = "append-only"
	PolicyIdentityMerge ReconcilePolicy = "identity-merge"
)
