package agentregistry

import "strings"

// BackendType names which concrete backend.Backend a base_model resolves to.
type BackendType string

const (
	BackendOllama      BackendType = "ollama"
	BackendGemini      BackendType = "gemini"
	BackendGroq        BackendType = "groq"
	BackendUnsupported BackendType = "unsupported"
)

// ollamaModels lists the exact base_model strings that resolve to the local
// Ollama backend, matching the Python original's _get_agent_type exact
// string comparisons (as opposed to the substring match used for gemini and
// groq below).
var ollamaModels = map[string]bool{
	"llama3.2":    true,
	"mistral":     true,
	"deepseek-r1": true,
}

// ResolveBackendType maps a base_model string to the backend that serves
// it, grounded on agent_manager.py's _get_agent_type: an exact match against
// a fixed local-model set, else a substring check for "gemini" or "groq",
// else unsupported.
func ResolveBackendType(baseModel string) BackendType {
	if ollamaModels[baseModel] {
		return BackendOllama
	}
	lower := strings.ToLower(baseModel)
	if strings.Contains(lower, "gemini") {
		return BackendGemini
	}
	if strings.Contains(lower, "groq") {
		return BackendGroq
	}
	return BackendUnsupported
}

// IsLocal reports whether a backend type runs without any cloud API call,
// used to gate ENABLE_LOCAL_AGENTS vs ENABLE_CLOUD_AGENTS.
func (t BackendType) IsLocal() bool { return t == BackendOllama }
