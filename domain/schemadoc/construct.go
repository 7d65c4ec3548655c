package schemadoc

import (
	"github.com/mkowalczyk/schemasync/domain/param"
)

// Construct builds the canonical field definition a repository parameter
// should have inside a schema document. It is the single source of truth
// for that shape: the drift comparator and the reconciler both derive
// their "expected" side from it.
//
// Type and description are always emitted. A value is emitted only when
// it normalizes to something other than Absent. Arrays are constructed
// recursively and never carry a top-level value or regex. For non-array
// types a resolvable value wins over a regex; the regex is emitted only
// when no value survives normalization.
func Construct(p param.Parameter) FieldDef {
	def := FieldDef{
		Type:        p.Type,
		Description: p.Description,
	}

	if p.Type == param.TypeArray {
		def.Nested = make(map[string]param.NestedParam, len(p.Nested))
		for name, n := range p.Nested {
			def.Nested[name] = constructNested(n)
		}
		return def
	}

	if v := param.Normalize(p.Value, p.Type); !v.IsAbsent() {
		def.Value = v
	} else if p.Regex != "" {
		def.Regex = p.Regex
	}
	return def
}

func constructNested(n param.NestedParam) param.NestedParam {
	out := param.NestedParam{
		Type:        n.Type,
		Description: n.Description,
	}
	if v := param.Normalize(n.Value, n.Type); !v.IsAbsent() {
		out.Value = v
	} else if n.Regex != "" {
		out.Regex = n.Regex
	}
	return out
}
