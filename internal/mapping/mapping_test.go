package mapping

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/JonMunkholm/oedatamodel/internal/core"
)

const rawJSON = `{
	"description": [
		["scenario_id", "id"], ["scenario", "text"],
		["id", "id"], ["value", "num"],
		["id", "id"], ["series", "json"],
		["id", "id"], ["region", "text"]
	],
	"data": [
		["S1", "base-2030", 1, 10, null, null, 1, "east"],
		["S1", "base-2030", 2, 20, 2, [1, 2], null, null],
		["S1", "base-2030", 3, 30, null, null, 3, "west"]
	]
}`

func testRaw(t *testing.T) *core.RawResponse {
	t.Helper()
	raw, err := core.DecodeRaw(strings.NewReader(rawJSON))
	if err != nil {
		t.Fatalf("DecodeRaw() error = %v", err)
	}
	return raw
}

func testMapper() *Mapper {
	return New(NewFSLoader(fstest.MapFS{
		"regions.json": {Data: []byte(`{
			"base_mapping": "concrete",
			"mapping": {
				"scenario": "oed_scenario.scenario",
				"east": "oed_scalars[?region=='east'].value",
				"totals": {"scalars": "length(oed_scalars)", "series": "length(oed_timeseries)"}
			}
		}`)},
		"summary.json": {Data: []byte(`{
			"base_mapping": "regions",
			"mapping": {"name": "scenario", "first_east": "east[0]"}
		}`)},
		"loop_a.json":   {Data: []byte(`{"base_mapping": "loop_b", "mapping": "@"}`)},
		"loop_b.json":   {Data: []byte(`{"base_mapping": "loop_a", "mapping": "@"}`)},
		"broken.json":   {Data: []byte(`{"base_mapping": "normalized", "mapping": "oed_data[?"}`)},
		"no_base.json":  {Data: []byte(`{"mapping": "@"}`)},
		"bad_tree.json": {Data: []byte(`{"base_mapping": "normalized", "mapping": {"x": 5}}`)},
		"garbage.json":  {Data: []byte(`not json`)},
	}))
}

func encode(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	return string(b)
}

func TestApply_CustomMapping(t *testing.T) {
	got, err := testMapper().Apply(testRaw(t), "regions")
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	want := `{"scenario":"base-2030","east":[10],"totals":{"scalars":2,"series":1}}`
	if s := encode(t, got); s != want {
		t.Errorf("Apply() = %s, want %s", s, want)
	}
}

func TestApply_ChainedBaseMappings(t *testing.T) {
	got, err := testMapper().Apply(testRaw(t), "summary")
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	want := `{"name":"base-2030","first_east":10}`
	if s := encode(t, got); s != want {
		t.Errorf("Apply() = %s, want %s", s, want)
	}
}

func TestApply_DefaultMappings(t *testing.T) {
	raw := testRaw(t)
	m := testMapper()

	normalized, err := m.Apply(raw, Normalized)
	if err != nil {
		t.Fatalf("Apply(normalized) error = %v", err)
	}
	if _, ok := normalized.(*core.NormalizedModel); !ok {
		t.Errorf("Apply(normalized) = %T, want *core.NormalizedModel", normalized)
	}

	concrete, err := m.Apply(raw, Concrete)
	if err != nil {
		t.Fatalf("Apply(concrete) error = %v", err)
	}
	if _, ok := concrete.(*core.ConcreteModel); !ok {
		t.Errorf("Apply(concrete) = %T, want *core.ConcreteModel", concrete)
	}
}

func TestApply_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mapping string
		wantErr error
	}{
		{"unknown mapping", "missing", ErrMappingNotFound},
		{"path traversal", "../regions", ErrMappingNotFound},
		{"empty name", "", ErrMappingNotFound},
		{"cycle", "loop_a", ErrMappingCycle},
		{"bad expression", "broken", ErrInvalidMapping},
		{"missing base", "no_base", ErrInvalidMapping},
		{"non-expression leaf", "bad_tree", ErrInvalidMapping},
		{"undecodable file", "garbage", ErrInvalidMapping},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := testMapper().Apply(testRaw(t), tt.mapping)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Apply(%q) error = %v, want %v", tt.mapping, err, tt.wantErr)
			}
		})
	}
}

func TestApply_PropagatesCoreErrors(t *testing.T) {
	raw, err := core.DecodeRaw(strings.NewReader(`{"description": [["id","id"]], "data": [["a"]]}`))
	if err != nil {
		t.Fatalf("DecodeRaw() error = %v", err)
	}

	_, err = testMapper().Apply(raw, "regions")
	if !errors.Is(err, core.ErrMalformedSchema) {
		t.Errorf("Apply() error = %v, want %v", err, core.ErrMalformedSchema)
	}
}

func TestApplyDefinition(t *testing.T) {
	def := &Definition{
		BaseMapping: Normalized,
		Mapping:     json.RawMessage(`{"ids": "oed_data[].id", "first": "oed_data[0].value"}`),
	}

	got, err := testMapper().ApplyDefinition(testRaw(t), def)
	if err != nil {
		t.Fatalf("ApplyDefinition() error = %v", err)
	}
	want := `{"ids":[1,2,3],"first":10}`
	if s := encode(t, got); s != want {
		t.Errorf("ApplyDefinition() = %s, want %s", s, want)
	}
}

func TestFSLoader_Names(t *testing.T) {
	loader := NewFSLoader(fstest.MapFS{
		"b.json":     {Data: []byte(`{}`)},
		"a.json":     {Data: []byte(`{}`)},
		"README.md":  {Data: []byte(`docs`)},
		"sub/c.json": {Data: []byte(`{}`)},
	})

	got, err := loader.Names()
	if err != nil {
		t.Fatalf("Names() error = %v", err)
	}
	if want := []string{"a", "b"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
}

func TestIsDefault(t *testing.T) {
	if !IsDefault(Normalized) || !IsDefault(Concrete) {
		t.Error("IsDefault() = false for a default mapping")
	}
	if IsDefault("regions") {
		t.Error("IsDefault(regions) = true, want false")
	}
}

func TestApplyDefinition_Functions(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want string
	}{
		{"items", `sort_by(items(oed_scenario), &[0])`, `[["scenario","base-2030"],["scenario_id","S1"]]`},
		{"zip", `zip(oed_scalars[].id, oed_scalars[].region)`, `[[1,"east"],[3,"west"]]`},
		{"from_items", `from_items(zip(oed_scalars[].region, oed_scalars[].value))`, `{"east":10,"west":30}`},
		{"to_object", `to_object(zip(oed_scalars[].region, oed_scalars[].value))`, `{"east":10,"west":30}`},
		{"unique", `unique([oed_scalars[0].region, oed_scalars[1].region, oed_scalars[0].region])`, `["east","west"]`},
		{"exclude", `exclude(oed_scenario, ['scenario_id'])`, `{"scenario":"base-2030"}`},
		{"group_by", `group_by(oed_scalars, &region)`, `{"east":[{"id":1,"region":"east","value":10}],"west":[{"id":3,"region":"west","value":30}]}`},
		{"group_dict_by", `group_dict_by(oed_scenario, &(starts_with([0], 'scenario_') && 'ids' || 'names'))`, `{"ids":{"scenario_id":"S1"},"names":{"scenario":"base-2030"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mapping, err := json.Marshal(map[string]string{"x": tt.expr})
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			def := &Definition{BaseMapping: Concrete, Mapping: mapping}

			got, err := testMapper().ApplyDefinition(testRaw(t), def)
			if err != nil {
				t.Fatalf("ApplyDefinition(%s) error = %v", tt.expr, err)
			}
			want := `{"x":` + tt.want + `}`
			if s := encode(t, got); s != want {
				t.Errorf("ApplyDefinition(%s) = %s, want %s", tt.expr, s, want)
			}
		})
	}
}

func TestApplyDefinition_FunctionErrors(t *testing.T) {
	for _, expr := range []string{
		`to_object(oed_scalars)`,
		`to_object([[oed_scalars[0].id, 'x']])`,
	} {
		mapping, _ := json.Marshal(expr)
		def := &Definition{BaseMapping: Concrete, Mapping: mapping}
		_, err := testMapper().ApplyDefinition(testRaw(t), def)
		if !errors.Is(err, ErrInvalidMapping) {
			t.Errorf("ApplyDefinition(%s) error = %v, want %v", expr, err, ErrInvalidMapping)
		}
	}
}

func TestApply_LargeIntegersKeepDigits(t *testing.T) {
	raw, err := core.DecodeRaw(strings.NewReader(`{
		"description": [["scenario_id","id"],["id","id"],["id","id"],["id","id"],["region","text"]],
		"data": [["S1", 9007199254740993, null, 9007199254740993, "east"]]
	}`))
	if err != nil {
		t.Fatalf("DecodeRaw() error = %v", err)
	}

	def := &Definition{BaseMapping: Concrete, Mapping: json.RawMessage(`{"id": "oed_scalars[0].id", "region": "oed_scalars[0].region"}`)}
	got, err := testMapper().ApplyDefinition(raw, def)
	if err != nil {
		t.Fatalf("ApplyDefinition() error = %v", err)
	}
	want := `{"id":9007199254740993,"region":"east"}`
	if s := encode(t, got); s != want {
		t.Errorf("ApplyDefinition() = %s, want %s", s, want)
	}
}

func TestNumberValue(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"10", float64(10)},
		{"-3", float64(-3)},
		{"1.5", 1.5},
		{"2e3", float64(2000)},
		{"9007199254740992", float64(9007199254740992)},
		{"9007199254740993", json.Number("9007199254740993")},
		{"-9007199254740993", json.Number("-9007199254740993")},
		{"123456789012345678901234567890", json.Number("123456789012345678901234567890")},
	}

	for _, tt := range tests {
		if got := numberValue(json.Number(tt.in)); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("numberValue(%s) = %#v, want %#v", tt.in, got, tt.want)
		}
	}
}

func TestSampleMappingFiles(t *testing.T) {
	m := New(NewDirLoader("../../mappings"))

	got, err := m.Apply(testRaw(t), "scalars_by_region")
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	want := `{"regions":["east","west"],"by_region":{"east":[{"id":1,"region":"east","value":10}],"west":[{"id":3,"region":"west","value":30}]},"scenario":{"scenario":"base-2030"}}`
	if s := encode(t, got); s != want {
		t.Errorf("Apply() = %s, want %s", s, want)
	}

	if _, err := m.Apply(testRaw(t), "scenario_summary"); err != nil {
		t.Errorf("Apply(scenario_summary) error = %v", err)
	}
}
