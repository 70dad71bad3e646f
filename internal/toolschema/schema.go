// Package toolschema validates tool parameter payloads against the JSON
// Schema declared in a tool's manifest, and generates schemas for built-in
// tools whose parameters are native Go structs (spec.md §4.2 ToolRegistry
// "parameters must validate before dispatch").
package toolschema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Validator compiles and caches JSON Schemas by tool name, so repeated
// invocations of the same tool don't recompile its schema every call.
type Validator struct {
	mu       sync.Mutex
	compiled map[string]*jsonschema.Schema
}

// NewValidator returns an empty, ready-to-use Validator.
func NewValidator() *Validator {
	return &Validator{compiled: make(map[string]*jsonschema.Schema)}
}

// Validate checks args against the schema declared for toolName. schemaDoc
// is the tool manifest's raw `parameters` field; it is compiled once and
// cached under toolName.
func (v *Validator) Validate(toolName string, schemaDoc json.RawMessage, args json.RawMessage) error {
	v.mu.Lock()
	compiled, ok := v.compiled[toolName]
	v.mu.Unlock()

	if !ok {
		compiler := jsonschema.NewCompiler()
		resourceName := toolName + ".schema.json"
		if err := compiler.AddResource(resourceName, bytes.NewReader(schemaDoc)); err != nil {
			return fmt.Errorf("toolschema: add resource for %s: %w", toolName, err)
		}
		var err error
		compiled, err = compiler.Compile(resourceName)
		if err != nil {
			return fmt.Errorf("toolschema: compile schema for %s: %w", toolName, err)
		}
		v.mu.Lock()
		v.compiled[toolName] = compiled
		v.mu.Unlock()
	}

	var doc any
	if err := json.Unmarshal(args, &doc); err != nil {
		return fmt.Errorf("toolschema: arguments for %s are not valid JSON: %w", toolName, err)
	}
	if err := compiled.Validate(doc); err != nil {
		return fmt.Errorf("toolschema: %s: %w", toolName, err)
	}
	return nil
}

// Compile validates that schemaDoc is itself a well-formed JSON Schema,
// without checking it against any particular argument payload. Used at
// tool-creation time to catch a malformed schema before the tool is ever
// invoked.
func (v *Validator) Compile(toolName string, schemaDoc json.RawMessage) error {
	compiler := jsonschema.NewCompiler()
	resourceName := toolName + ".schema.json"
	if err := compiler.AddResource(resourceName, bytes.NewReader(schemaDoc)); err != nil {
		return fmt.Errorf("toolschema: add resource for %s: %w", toolName, err)
	}
	compiled, err := compiler.Compile(resourceName)
	if err != nil {
		return fmt.Errorf("toolschema: compile schema for %s: %w", toolName, err)
	}
	v.mu.Lock()
	v.compiled[toolName] = compiled
	v.mu.Unlock()
	return nil
}

// Forget evicts a cached schema, used when a tool is deleted.
func (v *Validator) Forget(toolName string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.compiled, toolName)
}

// GenerateSchema produces a JSON Schema document for a built-in tool's Go
// parameter struct, for tools whose parameters are declared as native types
// rather than an authored manifest (spec.md built-in tools: ToolCreator,
// AgentCreator, etc).
func GenerateSchema(paramsStruct any) (json.RawMessage, error) {
	reflector := &jsonschema.Reflector{
		ExpandedStruct:            true,
		DoNotReference:            true,
		AllowAdditionalProperties: false,
	}
	schema := reflector.ReflectFromType(reflect.TypeOf(paramsStruct))
	data, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("toolschema: generate: %w", err)
	}
	return data, nil
}
