package reconcile

import (
	"strings"
	"time"

	"github.com/caldermed/chartsync/internal/domain/entities"
)

const dateLayout = "2006-01-02"

// identityKey derives the lock/identity key for a candidate fact.
// Identity-merge categories key on their normalized identity fields;
// append-only categories key on the encounter, so concurrent submissions
// for the same encounter serialize while other encounters stay parallel.
func identityKey(cfg CategoryConfig, pctx entities.ProcessingContext, fact entities.CandidateFact) string {
	if cfg.Policy == entities.PolicyAppendOnly {
		if pctx.EncounterID != nil {
			return "enc:" + *pctx.EncounterID
		}
		return "enc:none"
	}

	parts := make([]string, 0, len(cfg.IdentityFields))
	for _, field := range cfg.IdentityFields {
		parts = append(parts, normalize(fact.Fields[field]))
	}
	return strings.Join(parts, "|")
}

// matchIdentity finds the existing entity the candidate refers to.
// When several entities are equally plausible the most recently updated one
// wins and ambiguous is set, to be recorded in the provenance notes.
func matchIdentity(cfg CategoryConfig, fact entities.CandidateFact, existing []*entities.ChartEntity) (match *entities.ChartEntity, ambiguous bool) {
	var matches []*entities.ChartEntity

	for _, e := range existing {
		if identityFieldsEqual(cfg, fact, e) && datesWithinWindow(cfg, fact, e) {
			matches = append(matches, e)
		}
	}

	if len(matches) == 0 {
		return nil, false
	}

	match = matches[0]
	for _, m := range matches[1:] {
		if m.UpdatedAt.After(match.UpdatedAt) {
			match = m
		}
	}
	return match, len(matches) > 1
}

func identityFieldsEqual(cfg CategoryConfig, fact entities.CandidateFact, e *entities.ChartEntity) bool {
	for _, field := range cfg.IdentityFields {
		cv, ok := fact.Fields[field]
		if !ok {
			return false
		}
		ev, ok := e.Fields[field]
		if !ok {
			return false
		}
		if normalize(cv) != normalize(ev) {
			return false
		}
	}
	return true
}

// datesWithinWindow treats an unparseable or absent date on either side as
// compatible; the identity fields alone then decide the match.
func datesWithinWindow(cfg CategoryConfig, fact entities.CandidateFact, e *entities.ChartEntity) bool {
	if cfg.DateField == "" {
		return true
	}

	cd, okCandidate := parseDate(fact.Fields[cfg.DateField])
	ed, okExisting := parseDate(e.Fields[cfg.DateField])
	if !okCandidate || !okExisting {
		return true
	}

	diff := cd.Sub(ed)
	if diff < 0 {
		diff = -diff
	}
	return diff <= cfg.DateWindow
}

func parseDate(v entities.FieldValue) (time.Time, bool) {
	if v.IsNumeric() || v.Text == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(dateLayout, v.Text)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func normalize(v entities.FieldValue) string {
	return strings.Join(strings.Fields(strings.ToLower(v.String())), " ")
}
