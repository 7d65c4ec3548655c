// Package schemadoc provides the schema document model and the canonical
// construction of field definitions from repository parameters.
package schemadoc

import (
	"encoding/json"
	"sort"

	"github.com/mkowalczyk/schemasync/domain/param"
)

// Reserved field names present in every schema document.
const (
	FieldEventName = "event_name"
	FieldVersion   = "version"
)

// IsReserved reports whether name is one of the two reserved fields.
func IsReserved(name string) bool {
	return name == FieldEventName || name == FieldVersion
}

// FieldDef is the embedded, per-document representation of a parameter or
// event-specific field. It mirrors param.Parameter minus category and the
// usage index.
type FieldDef struct {
	Type        param.Type
	Description string
	Value       param.Value
	Regex       string
	Nested      map[string]param.NestedParam // type == array only
}

// Equal reports whether two field definitions are equivalent. Values are
// compared after type-aware normalization, so a document storing the
// string "5" for a number field equals one storing 5.
func (f FieldDef) Equal(o FieldDef) bool {
	if f.Type != o.Type || f.Description != o.Description || f.Regex != o.Regex {
		return false
	}
	if !param.Normalize(f.Value, f.Type).Equal(param.Normalize(o.Value, o.Type)) {
		return false
	}
	if len(f.Nested) != len(o.Nested) {
		return false
	}
	for name, n := range f.Nested {
		on, ok := o.Nested[name]
		if !ok {
			return false
		}
		if n.Type != on.Type || n.Description != on.Description || n.Regex != on.Regex {
			return false
		}
		if !param.Normalize(n.Value, n.Type).Equal(param.Normalize(on.Value, on.Type)) {
			return false
		}
	}
	return true
}

type fieldJSON struct {
	Type        param.Type            `json:"type"`
	Description string                `json:"description"`
	Value       any                   `json:"value,omitempty"`
	Regex       string                `json:"regex,omitempty"`
	Nested      map[string]nestedJSON `json:"nestedSchema,omitempty"`
}

type nestedJSON struct {
	Type        param.Type `json:"type"`
	Description string     `json:"description"`
	Value       any        `json:"value,omitempty"`
	Regex       string     `json:"regex,omitempty"`
}

// MarshalJSON encodes the field in the document wire format.
func (f FieldDef) MarshalJSON() ([]byte, error) {
	out := fieldJSON{
		Type:        f.Type,
		Description: f.Description,
		Value:       f.Value.Interface(),
		Regex:       f.Regex,
	}
	if f.Nested != nil {
		out.Nested = make(map[string]nestedJSON, len(f.Nested))
		for name, n := range f.Nested {
			out.Nested[name] = nestedJSON{
				Type:        n.Type,
				Description: n.Description,
				Value:       n.Value.Interface(),
				Regex:       n.Regex,
			}
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the document wire format.
func (f *FieldDef) UnmarshalJSON(data []byte) error {
	var in fieldJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*f = FieldDef{
		Type:        in.Type,
		Description: in.Description,
		Value:       param.FromAny(in.Value),
		Regex:       in.Regex,
	}
	if in.Nested != nil {
		f.Nested = make(map[string]param.NestedParam, len(in.Nested))
		for name, n := range in.Nested {
			f.Nested[name] = param.NestedParam{
				Type:        n.Type,
				Description: n.Description,
				Value:       param.FromAny(n.Value),
				Regex:       n.Regex,
			}
		}
	}
	return nil
}

// Document is a schema document: field name to definition. The reserved
// event_name and version fields are expected to be present in deployed
// documents; the engine never touches them.
type Document map[string]FieldDef

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for name, f := range d {
		cp := f
		if f.Nested != nil {
			cp.Nested = make(map[string]param.NestedParam, len(f.Nested))
			for nname, n := range f.Nested {
				cp.Nested[nname] = n
			}
		}
		out[name] = cp
	}
	return out
}

// Fields returns the sorted non-reserved field names.
func (d Document) Fields() []string {
	out := make([]string, 0, len(d))
	for name := range d {
		if !IsReserved(name) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// EventName returns the document's event_name value, if set.
func (d Document) EventName() string {
	f, ok := d[FieldEventName]
	if !ok || f.Value.Kind() != param.KindString {
		return ""
	}
	return f.Value.Str()
}
