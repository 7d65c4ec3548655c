// Package reconcile rewrites schema documents to match the parameter
// repository. All functions are pure: they take loaded structures and
// return new ones, leaving storage to the caller.
package reconcile

import (
	"github.com/mkowalczyk/schemasync/domain/param"
	"github.com/mkowalczyk/schemasync/domain/schemadoc"
)

// Options controls how a full resync treats existing document state.
type Options struct {
	// PreserveValues keeps the document's own default value over the
	// repository's when the field type still matches, recursively for
	// matching-type nested fields. With PreserveValues false every
	// shared field is forced to its canonical form.
	PreserveValues bool
}

// ResyncFull replaces the definition of every non-reserved field present
// in both the document and the repository with its canonical form. Fields
// absent from the repository are left alone, and fields absent from the
// document are not added. The returned document is a copy; changed
// reports whether any field actually differs from its previous form.
func ResyncFull(doc schemadoc.Document, repo param.Repository, opts Options) (schemadoc.Document, bool) {
	out := doc.Clone()
	changed := false

	for name, current := range doc {
		if schemadoc.IsReserved(name) {
			continue
		}
		p, ok := repo[name]
		if !ok {
			continue
		}

		next := schemadoc.Construct(p)
		if opts.PreserveValues && current.Type == next.Type {
			if !current.Value.IsAbsent() {
				next.Value = current.Value
				next.Regex = ""
			}
			for nname, nn := range next.Nested {
				cn, ok := current.Nested[nname]
				if ok && cn.Type == nn.Type && !cn.Value.IsAbsent() {
					nn.Value = cn.Value
					nn.Regex = ""
					next.Nested[nname] = nn
				}
			}
		}

		if !current.Equal(next) {
			out[name] = next
			changed = true
		}
	}
	return out, changed
}

// Revision pairs a document's deployed content with proposed content for
// operator review. Nothing is written until the caller confirms.
type Revision struct {
	Original schemadoc.Document `json:"original"`
	Proposed schemadoc.Document `json:"proposed"`
}

// Changed reports whether the proposed content differs from the original
// for the given field.
func (r Revision) Changed(field string) bool {
	return !r.Original[field].Equal(r.Proposed[field])
}

// PatchOne applies a single parameter's draft definition to each given
// document that references it, leaving every other field untouched.
// Documents that do not contain the field are skipped entirely.
func PatchOne(docs map[string]schemadoc.Document, name string, draft param.Parameter) map[string]Revision {
	next := schemadoc.Construct(draft)

	out := make(map[string]Revision)
	for docName, doc := range docs {
		if doc == nil {
			continue
		}
		if _, ok := doc[name]; !ok {
			continue
		}
		proposed := doc.Clone()
		proposed[name] = next
		out[docName] = Revision{Original: doc, Proposed: proposed}
	}
	return out
}

// FindImpacted returns the names of documents referencing the parameter,
// per the repository's reverse index. Unknown parameters impact nothing.
func FindImpacted(name string, repo param.Repository) []string {
	p, ok := repo[name]
	if !ok {
		return nil
	}
	return append([]string(nil), p.UsedIn...)
}
