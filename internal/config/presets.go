package config

import (
	"slices"
	"strings"
)

// ModelPreset defines a backend and model pair selectable by name.
type ModelPreset struct {
	Provider string
	Name     string
}

// ModelPresets contains predefined backend configurations.
var ModelPresets = map[string]ModelPreset{
	"fast": {
		Provider: ProviderGemini,
		Name:     "gemini-2.5-flash-lite",
	},
	"balanced": {
		Provider: ProviderGemini,
		Name:     DefaultModel,
	},
	"thorough": {
		Provider: ProviderGemini,
		Name:     "gemini-2.5-pro",
	},
	"local": {
		Provider: ProviderOllama,
		Name:     DefaultOllamaModel,
	},
}

// ApplyPreset applies a preset to the configuration.
// Returns false if the preset doesn't exist.
func (c *Config) ApplyPreset(preset string) bool {
	p, ok := ModelPresets[strings.ToLower(preset)]
	if !ok {
		return false
	}

	c.API.Provider = p.Provider
	c.Model.Name = p.Name
	return true
}

// ListPresets returns all available preset names, sorted.
func ListPresets() []string {
	presets := make([]string, 0, len(ModelPresets))
	for name := range ModelPresets {
		presets = append(presets, name)
	}
	slices.Sort(presets)
	return presets
}
