package capabilities

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ModelCapabilities describes one model a gateway can be pointed at
type ModelCapabilities struct {
	// Model identifier (set during YAML unmarshaling)
	ID string `yaml:"-" json:"id"`

	DisplayName string `yaml:"display_name" json:"display_name"`
	Description string `yaml:"description" json:"description"`

	// Default marks the model used when LLM_MODEL names nothing from this provider
	Default bool `yaml:"default" json:"default"`

	ContextWindow int `yaml:"context_window" json:"context_window"`
	MaxOutput     int `yaml:"max_output" json:"max_output"`

	// RetryableStatuses are upstream HTTP statuses treated as overload
	RetryableStatuses []int `yaml:"retryable_statuses" json:"retryable_statuses,omitempty"`
}

// ProviderCapabilities represents all models for a provider
type ProviderCapabilities struct {
	Provider string              `yaml:"provider" json:"provider"`
	Models   []ModelCapabilities `yaml:"-" json:"models"` // YAML order
}

// UnmarshalYAML keeps models in the order they appear in the file
func (p *ProviderCapabilities) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("provider capabilities must be a mapping, got %v", node.Tag)
	}

	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		switch key.Value {
		case "provider":
			p.Provider = value.Value
		case "models":
			if value.Kind != yaml.MappingNode {
				return fmt.Errorf("models must be a mapping")
			}
			// value.Content alternates: id, body, id, body...
			for j := 0; j+1 < len(value.Content); j += 2 {
				var model ModelCapabilities
				if err := value.Content[j+1].Decode(&model); err != nil {
					return fmt.Errorf("model %s: %w", value.Content[j].Value, err)
				}
				model.ID = value.Content[j].Value
				p.Models = append(p.Models, model)
			}
		}
	}

	return nil
}

// DefaultModel returns the model flagged default, else the first one listed
func (p *ProviderCapabilities) DefaultModel() (*ModelCapabilities, bool) {
	for i := range p.Models {
		if p.Models[i].Default {
			return &p.Models[i], true
		}
	}
	if len(p.Models) > 0 {
		return &p.Models[0], true
	}
	return nil, false
}
