package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/kunpai/hashiru/internal/modes"
)

// includeDirective is the key a config file can set to splice another
// file's contents in at that point, grounded on the teacher's loader.go
// $include mechanism.
const includeDirective = "$include"

// Load reads path, resolves every $include directive (recursively, with
// cycle detection), expands environment variables, and unmarshals the
// result into a Config.
func Load(path string) (*Config, error) {
	raw, err := loadRawRecursive(path, make(map[string]bool))
	if err != nil {
		return nil, err
	}

	data, err := yaml.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("config: remarshal merged document: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal %s: %w", path, err)
	}
	return &cfg, nil
}

// loadRawRecursive reads path as a generic YAML document, resolving any
// top-level $include before returning. seen tracks absolute paths already
// visited in the current chain, so a cycle fails loudly instead of
// recursing forever.
func loadRawRecursive(path string, seen map[string]bool) (map[string]any, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("config: resolve path %s: %w", path, err)
	}
	if seen[abs] {
		return nil, fmt.Errorf("config: include cycle detected at %s", abs)
	}
	seen[abs] = true

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", abs, err)
	}
	expanded := os.ExpandEnv(string(data))

	var doc map[string]any
	if err := yaml.Unmarshal([]byte(expanded), &doc); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", abs, err)
	}

	if includePath, ok := doc[includeDirective]; ok {
		includeStr, ok := includePath.(string)
		if !ok {
			return nil, fmt.Errorf("config: %s in %s must be a string path", includeDirective, abs)
		}
		resolvedInclude := includeStr
		if !filepath.IsAbs(resolvedInclude) {
			resolvedInclude = filepath.Join(filepath.Dir(abs), resolvedInclude)
		}
		base, err := loadRawRecursive(resolvedInclude, seen)
		if err != nil {
			return nil, err
		}
		delete(doc, includeDirective)
		return mergeMaps(base, doc), nil
	}

	return doc, nil
}

// mergeMaps overlays override onto base, recursing into nested maps so a
// partial override doesn't wipe out unrelated sibling keys.
func mergeMaps(base, override map[string]any) map[string]any {
	merged := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range override {
		if baseVal, ok := merged[k]; ok {
			baseMap, baseIsMap := baseVal.(map[string]any)
			overrideMap, overrideIsMap := v.(map[string]any)
			if baseIsMap && overrideIsMap {
				merged[k] = mergeMaps(baseMap, overrideMap)
				continue
			}
		}
		merged[k] = v
	}
	return merged
}

// ApplyTo overlays every non-nil field in m onto base, leaving fields the
// config left unset at base's existing value.
func (m ModesConfig) ApplyTo(base modes.Snapshot) modes.Snapshot {
	if m.EnableAgentCreation != nil {
		base.EnableAgentCreation = *m.EnableAgentCreation
	}
	if m.EnableLocalAgents != nil {
		base.EnableLocalAgents = *m.EnableLocalAgents
	}
	if m.EnableCloudAgents != nil {
		base.EnableCloudAgents = *m.EnableCloudAgents
	}
	if m.EnableToolCreation != nil {
		base.EnableToolCreation = *m.EnableToolCreation
	}
	if m.EnableToolInvocation != nil {
		base.EnableToolInvocation = *m.EnableToolInvocation
	}
	if m.EnableResourceBudget != nil {
		base.EnableResourceBudget = *m.EnableResourceBudget
	}
	if m.EnableEconomyBudget != nil {
		base.EnableEconomyBudget = *m.EnableEconomyBudget
	}
	if m.EnableMemory != nil {
		base.EnableMemory = *m.EnableMemory
	}
	return base
}
