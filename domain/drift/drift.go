// Package drift classifies divergence between a deployed schema document
// and the parameter repository.
package drift

import (
	"github.com/mkowalczyk/schemasync/domain/param"
	"github.com/mkowalczyk/schemasync/domain/schemadoc"
)

// Severity classifies a single field's drift.
type Severity int

const (
	// OK means the field matches its canonical definition.
	OK Severity = iota
	// Minor means same type but differing value, description, regex or
	// nested structure. Minor drift is repairable without data loss.
	Minor
	// Critical means a type mismatch. Value semantics differ by type, so
	// no further comparison is meaningful.
	Critical
)

func (s Severity) String() string {
	switch s {
	case Minor:
		return "minor"
	case Critical:
		return "critical"
	default:
		return "ok"
	}
}

// Classify compares a document's current field definition against the
// canonical shape of the repository parameter of the same name.
//
// A type mismatch is always Critical and short-circuits everything else.
// Otherwise description, regex, normalized value and the nested field
// set are compared; nested fields must match by key, and each by type,
// description, regex and normalized value. This is the full equality
// variant: a field is drifted exactly when a forced resync would
// rewrite it, so health reports and resync always agree.
func Classify(current schemadoc.FieldDef, p param.Parameter) Severity {
	expected := schemadoc.Construct(p)

	if current.Type != expected.Type {
		return Critical
	}

	if current.Description != expected.Description {
		return Minor
	}
	if current.Regex != expected.Regex {
		return Minor
	}
	if !valuesEqual(current.Value, expected.Value, expected.Type) {
		return Minor
	}
	// Compared for every type: a non-array field carrying a stray nested
	// schema is drift, and a resync would strip it.
	if !nestedEqual(current.Nested, expected.Nested) {
		return Minor
	}
	return OK
}

// valuesEqual compares two field values after sentinel normalization,
// coercing both sides to numeric form for number-typed fields so that a
// document storing "5" matches a repository storing 5.
func valuesEqual(a, b param.Value, t param.Type) bool {
	return param.Normalize(a, t).Equal(param.Normalize(b, t))
}

// nestedEqual requires the same key set on both sides (ghost keys in the
// document count as drift) and full per-key attribute equality.
func nestedEqual(current, expected map[string]param.NestedParam) bool {
	if len(current) != len(expected) {
		return false
	}
	for name, exp := range expected {
		cur, ok := current[name]
		if !ok {
			return false
		}
		if cur.Type != exp.Type || cur.Description != exp.Description || cur.Regex != exp.Regex {
			return false
		}
		if !valuesEqual(cur.Value, exp.Value, exp.Type) {
			return false
		}
	}
	return true
}

// Report is the per-document health report: parameter names bucketed by
// drift severity. A name never appears in both buckets.
type Report struct {
	Critical []string `json:"critical"`
	Minor    []string `json:"minor"`
}

// Clean reports whether no drift was found.
func (r Report) Clean() bool {
	return len(r.Critical) == 0 && len(r.Minor) == 0
}

// Total returns the number of drifted parameters.
func (r Report) Total() int {
	return len(r.Critical) + len(r.Minor)
}

// Check runs the comparator across every non-reserved field of a document
// that also exists in the repository. Fields unknown to the repository are
// event-specific and not drift candidates. The function is pure and does
// no I/O: both structures must already be in memory, which is what makes
// re-checking a cached batch of documents cheap.
func Check(doc schemadoc.Document, repo param.Repository) Report {
	var report Report
	for _, name := range doc.Fields() {
		p, ok := repo[name]
		if !ok {
			continue
		}
		switch Classify(doc[name], p) {
		case Critical:
			report.Critical = append(report.Critical, name)
		case Minor:
			report.Minor = append(report.Minor, name)
		}
	}
	return report
}
