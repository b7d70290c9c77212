package partition

import (
	"fmt"
	"os"
	"strings"

	"hatchery-backend/internal"

	"gopkg.in/yaml.v3"
)

// Catalogue is the ordered set of partition catalogue entries. The first entry
// marked simple is the deployment's default partition.
type Catalogue struct {
	Partitions []Config
}

// Get returns the catalogue entry with the given name.
func (c Catalogue) Get(name string) (Config, bool) {
	for _, cfg := range c.Partitions {
		if cfg.Name == name {
			return cfg, true
		}
	}
	return Config{}, false
}

// DefaultPartition returns the name of the first entry marked simple. A
// catalogue without one is a deployment mistake, not something to paper over
// with an arbitrary pick.
func (c Catalogue) DefaultPartition() (string, error) {
	for _, cfg := range c.Partitions {
		if cfg.Simple {
			return cfg.Name, nil
		}
	}
	return "", &internal.ConfigurationError{Reason: "no partition is marked simple"}
}

// LoadCatalogue reads and validates the partition catalogue file.
func LoadCatalogue(path string) (Catalogue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalogue{}, fmt.Errorf("read partition catalogue: %w", err)
	}
	return ParseCatalogue(data)
}

// ParseCatalogue parses and validates catalogue YAML.
func ParseCatalogue(data []byte) (Catalogue, error) {
	var file catalogueFile
	err := yaml.Unmarshal(data, &file)
	if err != nil {
		return Catalogue{}, &internal.ConfigurationError{
			Reason: fmt.Sprintf("malformed partition catalogue: %v", err),
		}
	}

	catalogue := Catalogue{Partitions: file.Partitions}
	err = validateCatalogue(catalogue)
	if err != nil {
		return Catalogue{}, err
	}
	return catalogue, nil
}

func validateCatalogue(catalogue Catalogue) error {
	if len(catalogue.Partitions) == 0 {
		return &internal.ConfigurationError{Reason: "partition catalogue declares no partitions"}
	}

	seen := make(map[string]bool, len(catalogue.Partitions))
	for _, cfg := range catalogue.Partitions {
		if seen[cfg.Name] {
			return &internal.ConfigurationError{
				Reason: fmt.Sprintf("partition %q is declared twice", cfg.Name),
			}
		}
		seen[cfg.Name] = true

		err := validateConfig(cfg)
		if err != nil {
			return err
		}
	}
	return nil
}

func validateConfig(cfg Config) error {
	if len(cfg.Environments) == 0 {
		return &internal.ConfigurationError{
			Reason: fmt.Sprintf("partition %q declares no environments", cfg.Name),
		}
	}

	seen := make(map[string]bool, len(cfg.Environments))
	for _, env := range cfg.Environments {
		if seen[env.ID] {
			return &internal.ConfigurationError{
				Reason: fmt.Sprintf("partition %q: environment %q is declared twice", cfg.Name, env.ID),
			}
		}
		seen[env.ID] = true

		if env.Description == "" {
			return &internal.ConfigurationError{
				Reason: fmt.Sprintf("partition %q: environment %q has no description", cfg.Name, env.ID),
			}
		}
		if env.Path == "" && env.Modules == "" {
			return &internal.ConfigurationError{
				Reason: fmt.Sprintf("partition %q: environment %q declares neither a path nor modules", cfg.Name, env.ID),
			}
		}
	}

	o := cfg.Overrides
	if o.GPUTemplate != nil && *o.GPUTemplate != "" && !strings.Contains(*o.GPUTemplate, "{}") {
		return &internal.ConfigurationError{
			Reason: fmt.Sprintf("partition %q: gpu template %q has no {} placeholder", cfg.Name, *o.GPUTemplate),
		}
	}
	if o.MaxGPUs != nil && *o.MaxGPUs < 0 {
		return &internal.ConfigurationError{
			Reason: fmt.Sprintf("partition %q: max_gpus must not be negative", cfg.Name),
		}
	}
	if o.MaxCoresPerNode != nil && *o.MaxCoresPerNode <= 0 {
		return &internal.ConfigurationError{
			Reason: fmt.Sprintf("partition %q: max_cores_per_node must be positive", cfg.Name),
		}
	}
	if o.MaxRuntimeSeconds != nil && *o.MaxRuntimeSeconds <= 0 {
		return &internal.ConfigurationError{
			Reason: fmt.Sprintf("partition %q: max_runtime must be positive", cfg.Name),
		}
	}
	return nil
}

type catalogueFile struct {
	Partitions configList `yaml:"partitions"`
}

// configList decodes a YAML mapping while keeping declaration order, which the
// default map decoding would lose.
type configList []Config

func (l *configList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("partitions must be a mapping of name to entry")
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode := node.Content[i]
		valueNode := node.Content[i+1]

		var raw rawConfig
		err := valueNode.Decode(&raw)
		if err != nil {
			return fmt.Errorf("partition %q: %w", keyNode.Value, err)
		}
		*l = append(*l, raw.toConfig(keyNode.Value))
	}
	return nil
}

type rawConfig struct {
	Architecture      string          `yaml:"architecture"`
	Description       string          `yaml:"description"`
	Simple            *bool           `yaml:"simple"`
	Environments      environmentList `yaml:"environments"`
	GPUTemplate       *string         `yaml:"gpu_template"`
	MaxGPUs           *int            `yaml:"max_gpus"`
	MaxCoresPerNode   *int            `yaml:"max_cores_per_node"`
	MaxRuntimeSeconds *int            `yaml:"max_runtime"`
}

func (r rawConfig) toConfig(name string) Config {
	simple := true
	if r.Simple != nil {
		simple = *r.Simple
	}
	return Config{
		Name:         name,
		Architecture: r.Architecture,
		Description:  r.Description,
		Simple:       simple,
		Environments: r.Environments,
		Overrides: Overrides{
			GPUTemplate:       r.GPUTemplate,
			MaxGPUs:           r.MaxGPUs,
			MaxCoresPerNode:   r.MaxCoresPerNode,
			MaxRuntimeSeconds: r.MaxRuntimeSeconds,
		},
	}
}

type environmentList []JupyterEnvironment

func (l *environmentList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("environments must be a mapping of id to entry")
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode := node.Content[i]
		valueNode := node.Content[i+1]

		var raw rawEnvironment
		err := valueNode.Decode(&raw)
		if err != nil {
			return fmt.Errorf("environment %q: %w", keyNode.Value, err)
		}

		addToPath := true
		if raw.AddToPath != nil {
			addToPath = *raw.AddToPath
		}
		*l = append(*l, JupyterEnvironment{
			ID:          keyNode.Value,
			Description: raw.Description,
			Path:        raw.Path,
			Modules:     raw.Modules,
			AddToPath:   addToPath,
			Prologue:    raw.Prologue,
		})
	}
	return nil
}

type rawEnvironment struct {
	Description string `yaml:"description"`
	Path        string `yaml:"path"`
	Modules     string `yaml:"modules"`
	AddToPath   *bool  `yaml:"add_to_path"`
	Prologue    string `yaml:"prologue"`
}
