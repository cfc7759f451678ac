package config

import (
	"fmt"
	"sort"
)

// Validation limits for presets
const (
	MaxPresetNameLength = 50
	MaxPromptLength     = 32 * 1024
)

// DefaultPresets returns the built-in system prompts
func DefaultPresets() map[string]string {
	return map[string]string{
		"default": "",
		"terse":   "Be terse. Answer in as few words as the question allows.",
		"coder": `You are an expert programmer. When answering:
- Prefer working code over prose
- Point out edge cases and failure modes
- Keep explanations short`,
		"writer": `You are a creative writing assistant. You should:
- Help with storytelling and content creation
- Keep tone and style consistent
- Offer alternatives when asked`,
		"tutor": `You are a patient tutor. When explaining:
- Break complex topics into simple parts
- Use analogies and examples
- Adapt to the learner's level`,
	}
}

// Preset returns the system prompt registered under name
func (c Config) Preset(name string) (string, error) {
	if prompt, ok := c.Presets[name]; ok {
		return prompt, nil
	}
	if prompt, ok := DefaultPresets()[name]; ok {
		return prompt, nil
	}
	return "", fmt.Errorf("preset '%s' not found", name)
}

// PresetNames returns the sorted names of all presets, built-in included
func (c Config) PresetNames() []string {
	merged := mergePresets(DefaultPresets(), c.Presets)
	names := make([]string, 0, len(merged))
	for name := range merged {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func mergePresets(defaults, custom map[string]string) map[string]string {
	result := make(map[string]string, len(defaults)+len(custom))
	for name, prompt := range defaults {
		result[name] = prompt
	}
	for name, prompt := range custom {
		result[name] = prompt
	}
	return result
}

// ValidatePreset checks a preset's name and prompt
func ValidatePreset(name, prompt string) error {
	fieldErrors := make(map[string]string)

	if name == "" {
		fieldErrors["name"] = "name is required"
	} else if len(name) > MaxPresetNameLength {
		fieldErrors["name"] = fmt.Sprintf("name too long (max %d characters)", MaxPresetNameLength)
	} else if !isValidPresetName(name) {
		fieldErrors["name"] = "name must contain only alphanumeric characters, underscores, and hyphens"
	}

	if len(prompt) > MaxPromptLength {
		fieldErrors["prompt"] = fmt.Sprintf("prompt too long (max %d characters)", MaxPromptLength)
	}

	if len(fieldErrors) > 0 {
		return fmt.Errorf("validation failed: %v", fieldErrors)
	}
	return nil
}

// validatePresets checks every preset loaded from a config file
func validatePresets(presets map[string]string) error {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := ValidatePreset(name, presets[name]); err != nil {
			return fmt.Errorf("preset %q: %w", name, err)
		}
	}
	return nil
}

func isValidPresetName(name string) bool {
	for _, c := range name {
		if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' || c == '-') {
			return false
		}
	}
	return true
}
