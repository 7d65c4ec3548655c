package param

import (
	"encoding/json"
	"fmt"
	"sort"
)

// NestedParam is one entry of an array parameter's nested schema. Nested
// entries carry no category and no usage index.
type NestedParam struct {
	Type        Type
	Description string
	Value       Value
	Regex       string
}

// Parameter is the canonical, repository-owned definition of a named field.
type Parameter struct {
	Type        Type
	Category    string
	Description string
	Value       Value
	Regex       string
	Nested      map[string]NestedParam // type == array only
	UsedIn      []string               // document names referencing this parameter
}

// Validate checks the structural invariants of a parameter definition.
func (p Parameter) Validate() error {
	if !p.Type.Valid() {
		return fmt.Errorf("unknown type %q", p.Type)
	}
	if p.Type == TypeArray {
		if p.Nested == nil {
			return fmt.Errorf("array parameter requires a nested schema")
		}
		if !p.Value.IsAbsent() || p.Regex != "" {
			return fmt.Errorf("array parameter cannot carry a value or regex")
		}
		for name, n := range p.Nested {
			if n.Type == TypeArray {
				return fmt.Errorf("nested field %q: arrays cannot nest arrays", name)
			}
			if !n.Type.Valid() {
				return fmt.Errorf("nested field %q: unknown type %q", name, n.Type)
			}
			if !n.Value.IsAbsent() && n.Regex != "" {
				return fmt.Errorf("nested field %q: value and regex are mutually exclusive", name)
			}
		}
		return nil
	}
	if p.Nested != nil {
		return fmt.Errorf("%s parameter cannot carry a nested schema", p.Type)
	}
	if !p.Value.IsAbsent() && p.Regex != "" {
		return fmt.Errorf("value and regex are mutually exclusive")
	}
	return nil
}

// UsedInDocument reports whether the parameter's usage index contains name.
func (p Parameter) UsedInDocument(name string) bool {
	for _, s := range p.UsedIn {
		if s == name {
			return true
		}
	}
	return false
}

type parameterJSON struct {
	Type        Type                  `json:"type"`
	Value       any                   `json:"value,omitempty"`
	Regex       string                `json:"regex,omitempty"`
	Category    string                `json:"category,omitempty"`
	Description string                `json:"description"`
	UsedIn      []string              `json:"usedInSchemas,omitempty"`
	Nested      map[string]nestedJSON `json:"nestedSchema,omitempty"`
}

type nestedJSON struct {
	Type        Type   `json:"type"`
	Description string `json:"description"`
	Value       any    `json:"value,omitempty"`
	Regex       string `json:"regex,omitempty"`
}

// MarshalJSON encodes the parameter in the repository wire format.
func (p Parameter) MarshalJSON() ([]byte, error) {
	out := parameterJSON{
		Type:        p.Type,
		Value:       p.Value.Interface(),
		Regex:       p.Regex,
		Category:    p.Category,
		Description: p.Description,
		UsedIn:      p.UsedIn,
	}
	if p.Nested != nil {
		out.Nested = make(map[string]nestedJSON, len(p.Nested))
		for name, n := range p.Nested {
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

// UnmarshalJSON decodes the repository wire format.
func (p *Parameter) UnmarshalJSON(data []byte) error {
	var in parameterJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*p = Parameter{
		Type:        in.Type,
		Category:    in.Category,
		Description: in.Description,
		Value:       FromAny(in.Value),
		Regex:       in.Regex,
		UsedIn:      in.UsedIn,
	}
	if in.Nested != nil {
		p.Nested = make(map[string]NestedParam, len(in.Nested))
		for name, n := range in.Nested {
			p.Nested[name] = NestedParam{
				Type:        n.Type,
				Description: n.Description,
				Value:       FromAny(n.Value),
				Regex:       n.Regex,
			}
		}
	}
	return nil
}

// Repository maps parameter names to their canonical definitions.
type Repository map[string]Parameter

// Clean coerces stray string-typed numeric values into numbers, top-level
// and nested. Repositories edited by hand or by older tooling store "1.5"
// where 1.5 is meant; cleaning at load time keeps the comparison logic
// free of per-site coercion.
func (r Repository) Clean() Repository {
	for name, p := range r {
		if p.Type == TypeNumber {
			p.Value = Normalize(p.Value, TypeNumber)
		}
		for nname, n := range p.Nested {
			if n.Type == TypeNumber {
				n.Value = Normalize(n.Value, TypeNumber)
				p.Nested[nname] = n
			}
		}
		r[name] = p
	}
	return r
}

// Clone returns a deep copy of the repository. Mutating the copy, its
// nested maps or its usage lists never affects the original.
func (r Repository) Clone() Repository {
	out := make(Repository, len(r))
	for name, p := range r {
		if p.Nested != nil {
			nested := make(map[string]NestedParam, len(p.Nested))
			for nname, n := range p.Nested {
				nested[nname] = n
			}
			p.Nested = nested
		}
		if p.UsedIn != nil {
			p.UsedIn = append([]string(nil), p.UsedIn...)
		}
		out[name] = p
	}
	return out
}

// Categories returns the sorted set of non-empty category labels in use.
func (r Repository) Categories() []string {
	seen := make(map[string]bool)
	for _, p := range r {
		if p.Category != "" {
			seen[p.Category] = true
		}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Names returns the sorted parameter names.
func (r Repository) Names() []string {
	out := make([]string, 0, len(r))
	for name := range r {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
