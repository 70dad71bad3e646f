package toolregistry

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kunpai/hashiru/pkg/models"
)

// NativeFunc is an in-process tool implementation, used for HASHIRU's
// built-ins (ToolCreator, AgentCreator, AskAgent, GetBudget, ...) which need
// direct access to the registries they manage rather than a subprocess
// round trip.
type NativeFunc func(ctx context.Context, args json.RawMessage) (models.FunctionResult, error)

// RegisterNative installs a built-in tool under name with the given
// description, parameter schema, and invoke-time costs. Native tools are
// never user-authored and cannot be deleted via DeleteTool.
func (r *Registry) RegisterNative(name, description string, schema json.RawMessage, costs Costs, fn NativeFunc) error {
	if err := r.validator.Compile(name, schema); err != nil {
		return fmt.Errorf("toolregistry: register native %s: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[name] = &Descriptor{
		Manifest: Manifest{
			Name:        name,
			Description: description,
			Parameters:  schema,
			Costs:       costs,
		},
		UserAuthored: false,
	}
	if r.natives == nil {
		r.natives = make(map[string]NativeFunc)
	}
	r.natives[name] = fn
	return nil
}
