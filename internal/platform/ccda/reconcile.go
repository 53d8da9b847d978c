package ccda

import (
	"fmt"
	"strings"
	"time"
)

// ReconcileCategory names a category that takes part in reconciliation.
type ReconcileCategory string

const (
	ReconcileAllergy    ReconcileCategory = "allergy"
	ReconcileMedication ReconcileCategory = "medication"
	ReconcileProblem    ReconcileCategory = "problem"
)

// Classification is the outcome for one incoming record.
type Classification string

const (
	ClassNew      Classification = "new"
	ClassMatched  Classification = "matched"
	ClassConflict Classification = "conflict"
)

// Reconcilable is a record that can be matched on its code and compared on
// its status.
type Reconcilable interface {
	MatchCode() string
	MatchStatus() string
}

func (a Allergy) MatchCode() string      { return a.Code }
func (a Allergy) MatchStatus() string    { return a.Status }
func (m Medication) MatchCode() string   { return m.Code }
func (m Medication) MatchStatus() string { return m.Status }
func (p Problem) MatchCode() string      { return p.Code }
func (p Problem) MatchStatus() string    { return p.Status }

// ReconciliationItem is one classified incoming record.
type ReconciliationItem struct {
	Category       ReconcileCategory `json:"category"`
	Incoming       Reconcilable      `json:"incoming"`
	Existing       Reconcilable      `json:"existing,omitempty"`
	Classification Classification    `json:"classification"`
	Explanation    string            `json:"explanation,omitempty"`
}

// ReconciliationResult groups the classified items of one reconciliation.
type ReconciliationResult struct {
	PatientID    string               `json:"patient_id"`
	New          []ReconciliationItem `json:"new"`
	Matched      []ReconciliationItem `json:"matched"`
	Conflicts    []ReconciliationItem `json:"conflicts"`
	ReconciledAt time.Time            `json:"reconciled_at"`
}

// OnFile is the set of existing records incoming data is reconciled against.
type OnFile struct {
	Allergies   []Allergy
	Medications []Medication
	Problems    []Problem
}

// Reconcile classifies every incoming allergy, medication and problem against
// the records on file. Matching is exact code equality; a matched code whose
// status differs (ignoring case) is a conflict. Neither input is modified.
func Reconcile(patientID string, doc *ParsedDocument, existing OnFile, at time.Time) ReconciliationResult {
	res := ReconciliationResult{
		PatientID:    patientID,
		New:          []ReconciliationItem{},
		Matched:      []ReconciliationItem{},
		Conflicts:    []ReconciliationItem{},
		ReconciledAt: at.UTC(),
	}
	if doc == nil {
		return res
	}
	var items []ReconciliationItem
	items = append(items, classify(ReconcileAllergy, doc.Allergies, existing.Allergies)...)
	items = append(items, classify(ReconcileMedication, doc.Medications, existing.Medications)...)
	items = append(items, classify(ReconcileProblem, doc.Problems, existing.Problems)...)

	for _, it := range items {
		switch it.Classification {
		case ClassNew:
			res.New = append(res.New, it)
		case ClassMatched:
			res.Matched = append(res.Matched, it)
		case ClassConflict:
			res.Conflicts = append(res.Conflicts, it)
		}
	}
	return res
}

// classify matches each incoming record against the first existing record
// with the same code. Incoming records without a code are always new.
func classify[T Reconcilable](cat ReconcileCategory, incoming, existing []T) []ReconciliationItem {
	byCode := make(map[string]T, len(existing))
	for _, e := range existing {
		code := e.MatchCode()
		if code == "" {
			continue
		}
		if _, seen := byCode[code]; !seen {
			byCode[code] = e
		}
	}

	items := make([]ReconciliationItem, 0, len(incoming))
	for _, in := range incoming {
		item := ReconciliationItem{Category: cat, Incoming: in, Classification: ClassNew}
		match, ok := byCode[in.MatchCode()]
		if in.MatchCode() == "" || !ok {
			items = append(items, item)
			continue
		}
		item.Existing = match
		item.Classification = ClassMatched
		if !sameStatus(in.MatchStatus(), match.MatchStatus()) {
			item.Classification = ClassConflict
			item.Explanation = fmt.Sprintf("status differs: incoming %q, on file %q", in.MatchStatus(), match.MatchStatus())
		}
		items = append(items, item)
	}
	return items
}

func sameStatus(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
