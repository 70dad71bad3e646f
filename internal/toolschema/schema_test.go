package toolschema

import (
	"encoding/json"
	"testing"
)

const sampleSchema = `{
	"type": "object",
	"properties": {
		"name": {"type": "string"},
		"count": {"type": "integer", "minimum": 0}
	},
	"required": ["name"]
}`

func TestValidate_AcceptsConformingArgs(t *testing.T) {
	v := NewValidator()
	err := v.Validate("greet", json.RawMessage(sampleSchema), json.RawMessage(`{"name":"Ada","count":3}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_RejectsMissingRequired(t *testing.T) {
	v := NewValidator()
	err := v.Validate("greet", json.RawMessage(sampleSchema), json.RawMessage(`{"count":3}`))
	if err == nil {
		t.Fatal("expected validation error for missing required field")
	}
}

func TestValidate_RejectsWrongType(t *testing.T) {
	v := NewValidator()
	err := v.Validate("greet", json.RawMessage(sampleSchema), json.RawMessage(`{"name":"Ada","count":"three"}`))
	if err == nil {
		t.Fatal("expected validation error for wrong type")
	}
}

func TestValidate_CachesCompiledSchema(t *testing.T) {
	v := NewValidator()
	for i := 0; i < 3; i++ {
		if err := v.Validate("greet", json.RawMessage(sampleSchema), json.RawMessage(`{"name":"Ada"}`)); err != nil {
			t.Fatalf("unexpected error on call %d: %v", i, err)
		}
	}
	if len(v.compiled) != 1 {
		t.Errorf("expected exactly one compiled schema cached, got %d", len(v.compiled))
	}
}

func TestGenerateSchema_ProducesObjectSchema(t *testing.T) {
	type createAgentParams struct {
		Name      string `json:"name"`
		BaseModel string `json:"base_model"`
	}
	data, err := GenerateSchema(createAgentParams{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("generated schema is not valid JSON: %v", err)
	}
	if doc["type"] != "object" {
		t.Errorf("expected object schema, got %v", doc["type"])
	}
}
