// Package coach defines the agent personas the relay can run a response
// under: per-agent system prompts and the CTA labels attached to card kinds.
package coach

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"momentum/internal/card"
)

//go:embed personas.yaml
var defaultPersonasYAML []byte

// Persona is one agent definition.
type Persona struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	System      string            `yaml:"system"`
	CTALabels   map[string]string `yaml:"cta_labels"`
}

type personaFile struct {
	Default  string    `yaml:"default"`
	Personas []Persona `yaml:"personas"`
}

// Registry resolves requested agent types to personas. Unknown or empty
// agent types fall back to the default persona, so a stale client can never
// break the relay.
type Registry struct {
	personas    map[string]Persona
	defaultName string
}

// LoadPersonas builds a registry from a YAML file, or from the embedded
// defaults when path is empty.
func LoadPersonas(path string) (*Registry, error) {
	raw := defaultPersonasYAML
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read persona file: %w", err)
		}
		raw = b
	}

	var file personaFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse persona file: %w", err)
	}
	if len(file.Personas) == 0 {
		return nil, fmt.Errorf("persona file defines no personas")
	}

	personas := make(map[string]Persona, len(file.Personas))
	for _, p := range file.Personas {
		if p.Name == "" {
			return nil, fmt.Errorf("persona with empty name")
		}
		if p.System == "" {
			return nil, fmt.Errorf("persona %q has no system prompt", p.Name)
		}
		personas[p.Name] = p
	}

	defaultName := file.Default
	if defaultName == "" {
		defaultName = file.Personas[0].Name
	}
	if _, ok := personas[defaultName]; !ok {
		return nil, fmt.Errorf("default persona %q is not defined", defaultName)
	}

	return &Registry{personas: personas, defaultName: defaultName}, nil
}

// Resolve returns the persona for an agent type, falling back to the
// default for empty or unknown types.
func (r *Registry) Resolve(agentType string) Persona {
	if p, ok := r.personas[strings.ToLower(strings.TrimSpace(agentType))]; ok {
		return p
	}
	return r.personas[r.defaultName]
}

// CTALabel returns the call-to-action label a persona attaches to a card
// kind, if any.
func (r *Registry) CTALabel(agentType string, kind card.Kind) (string, bool) {
	p := r.Resolve(agentType)
	label, ok := p.CTALabels[string(kind)]
	return label, ok && label != ""
}
