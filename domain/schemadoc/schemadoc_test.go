package schemadoc_test

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/mkowalczyk/schemasync/domain/param"
	"github.com/mkowalczyk/schemasync/domain/schemadoc"
)

func TestConstruct_ValueWinsOverRegex(t *testing.T) {
	p := param.Parameter{
		Type:        param.TypeString,
		Description: "ISO 4217 code",
		Value:       param.String("USD"),
	}
	def := schemadoc.Construct(p)
	if def.Value.Str() != "USD" || def.Regex != "" {
		t.Errorf("Construct = %+v, want value USD and no regex", def)
	}
}

func TestConstruct_RegexWhenNoValue(t *testing.T) {
	p := param.Parameter{
		Type:        param.TypeNumber,
		Description: "total in cents",
		Regex:       `^\d+$`,
	}
	def := schemadoc.Construct(p)
	if !def.Value.IsAbsent() || def.Regex != `^\d+$` {
		t.Errorf("Construct = %+v, want regex only", def)
	}
}

func TestConstruct_SentinelValueFallsBackToRegex(t *testing.T) {
	// "Any" means no constraint; a regex alongside it still applies.
	p := param.Parameter{
		Type:  param.TypeString,
		Value: param.String("Any"),
		Regex: `^[a-z]+$`,
	}
	def := schemadoc.Construct(p)
	if !def.Value.IsAbsent() {
		t.Errorf("sentinel value leaked into field: %#v", def.Value)
	}
	if def.Regex != `^[a-z]+$` {
		t.Errorf("Regex = %q", def.Regex)
	}
}

func TestConstruct_NormalizesNumbers(t *testing.T) {
	p := param.Parameter{Type: param.TypeNumber, Value: param.String("12.5")}
	def := schemadoc.Construct(p)
	if def.Value.Kind() != param.KindNumber || def.Value.Num() != 12.5 {
		t.Errorf("Value = %#v, want 12.5", def.Value)
	}
}

func TestConstruct_Array(t *testing.T) {
	p := param.Parameter{
		Type:        param.TypeArray,
		Description: "purchased items",
		Nested: map[string]param.NestedParam{
			"sku":   {Type: param.TypeString, Description: "stock keeping unit", Regex: `^[A-Z0-9-]+$`},
			"price": {Type: param.TypeNumber, Description: "unit price", Value: param.String("3")},
		},
	}
	def := schemadoc.Construct(p)
	if !def.Value.IsAbsent() || def.Regex != "" {
		t.Errorf("array field carries top-level value or regex: %+v", def)
	}
	if got := def.Nested["price"].Value; got.Kind() != param.KindNumber || got.Num() != 3 {
		t.Errorf("nested price = %#v, want normalized 3", got)
	}
	if def.Nested["sku"].Regex != `^[A-Z0-9-]+$` {
		t.Errorf("nested sku regex lost: %+v", def.Nested["sku"])
	}
}

func TestFieldDef_EqualNormalizesValues(t *testing.T) {
	a := schemadoc.FieldDef{Type: param.TypeNumber, Description: "total", Value: param.String("5")}
	b := schemadoc.FieldDef{Type: param.TypeNumber, Description: "total", Value: param.Number(5)}
	if !a.Equal(b) {
		t.Error("string \"5\" and number 5 should compare equal for a number field")
	}

	c := schemadoc.FieldDef{Type: param.TypeNumber, Description: "total", Value: param.Number(6)}
	if a.Equal(c) {
		t.Error("5 and 6 should differ")
	}
}

func TestFieldDef_EqualChecksNested(t *testing.T) {
	base := schemadoc.FieldDef{
		Type: param.TypeArray,
		Nested: map[string]param.NestedParam{
			"sku": {Type: param.TypeString, Description: "id"},
		},
	}

	same := schemadoc.FieldDef{
		Type: param.TypeArray,
		Nested: map[string]param.NestedParam{
			"sku": {Type: param.TypeString, Description: "id"},
		},
	}
	if !base.Equal(same) {
		t.Error("identical nested schemas should be equal")
	}

	extra := schemadoc.FieldDef{
		Type: param.TypeArray,
		Nested: map[string]param.NestedParam{
			"sku":   {Type: param.TypeString, Description: "id"},
			"price": {Type: param.TypeNumber},
		},
	}
	if base.Equal(extra) {
		t.Error("extra nested field should break equality")
	}

	changed := schemadoc.FieldDef{
		Type: param.TypeArray,
		Nested: map[string]param.NestedParam{
			"sku": {Type: param.TypeString, Description: "identifier"},
		},
	}
	if base.Equal(changed) {
		t.Error("nested description change should break equality")
	}
}

func TestDocument_Fields(t *testing.T) {
	doc := schemadoc.Document{
		"event_name": {Type: param.TypeString, Value: param.String("purchase")},
		"version":    {Type: param.TypeString, Value: param.String("1")},
		"currency":   {Type: param.TypeString},
		"amount":     {Type: param.TypeNumber},
	}
	want := []string{"amount", "currency"}
	if got := doc.Fields(); !reflect.DeepEqual(got, want) {
		t.Errorf("Fields() = %v, want %v", got, want)
	}
}

func TestDocument_EventName(t *testing.T) {
	doc := schemadoc.Document{
		"event_name": {Type: param.TypeString, Value: param.String("purchase")},
	}
	if got := doc.EventName(); got != "purchase" {
		t.Errorf("EventName() = %q", got)
	}
	if got := (schemadoc.Document{}).EventName(); got != "" {
		t.Errorf("empty document EventName() = %q", got)
	}
}

func TestDocument_Clone(t *testing.T) {
	doc := schemadoc.Document{
		"items": {Type: param.TypeArray, Nested: map[string]param.NestedParam{
			"sku": {Type: param.TypeString},
		}},
	}
	cp := doc.Clone()
	f := cp["items"]
	f.Nested["price"] = param.NestedParam{Type: param.TypeNumber}
	cp["items"] = f
	cp["extra"] = schemadoc.FieldDef{Type: param.TypeString}

	if len(doc["items"].Nested) != 1 {
		t.Errorf("clone shares nested map: %v", doc["items"].Nested)
	}
	if _, ok := doc["extra"]; ok {
		t.Error("clone shares top-level map")
	}
}

func TestDocument_JSONRoundTrip(t *testing.T) {
	in := schemadoc.Document{
		"event_name": {Type: param.TypeString, Description: "event identifier", Value: param.String("purchase")},
		"amount":     {Type: param.TypeNumber, Description: "total", Value: param.Number(12.5)},
		"coupon":     {Type: param.TypeString, Description: "promo code", Regex: `^[A-Z]{4,8}$`},
		"items": {Type: param.TypeArray, Description: "purchased items", Nested: map[string]param.NestedParam{
			"sku": {Type: param.TypeString, Description: "stock keeping unit"},
		}},
	}

	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var out schemadoc.Document
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Errorf("round trip mismatch:\n in: %#v\nout: %#v", in, out)
	}
}
