package toolregistry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"

	"github.com/kunpai/hashiru/pkg/models"
)

// invocationEnvelope is written to the tool subprocess's stdin.
type invocationEnvelope struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// runSubprocess executes a tool's Command, feeding it a JSON envelope on
// stdin and parsing its stdout as a models.FunctionResult. This is the
// sidecar-interpreter strategy from spec.md §9 design note (i): tools
// authored live by the manager model are ordinary executables speaking a
// fixed JSON protocol, never dynamically loaded Go code.
func runSubprocess(ctx context.Context, command []string, name string, args json.RawMessage) (models.FunctionResult, error) {
	if len(command) == 0 {
		return models.FunctionResult{}, fmt.Errorf("%w: tool %s has an empty command", ErrInvalidManifest, name)
	}

	envelope, err := json.Marshal(invocationEnvelope{Name: name, Arguments: args})
	if err != nil {
		return models.FunctionResult{}, fmt.Errorf("toolregistry: marshal invocation: %w", err)
	}

	cmd := exec.CommandContext(ctx, command[0], command[1:]...)
	cmd.Stdin = bytes.NewReader(envelope)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return models.FunctionResult{}, &ExecutionError{
			ToolName: name,
			Type:     classifyExecutionError(err),
			Cause:    fmt.Errorf("%w (stderr: %s)", err, stderr.String()),
		}
	}

	var result models.FunctionResult
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		return models.FunctionResult{}, &ExecutionError{
			ToolName: name,
			Type:     ErrorTypeExecution,
			Cause:    fmt.Errorf("tool produced non-conforming output: %w (stdout: %s)", err, stdout.String()),
		}
	}
	return result, nil
}
