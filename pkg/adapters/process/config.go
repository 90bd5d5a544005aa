package process

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config describes the agent executable.
type Config struct {
	Command     string            `yaml:"command" json:"command"`
	Args        []string          `yaml:"args" json:"args"`
	Environment map[string]string `yaml:"env" json:"env"`
	Dir         string            `yaml:"dir" json:"dir"`
}

// LoadConfig reads an agent definition from a YAML (or JSON) file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read agent config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse agent config %s: %w", path, err)
	}
	if cfg.Command == "" {
		return Config{}, fmt.Errorf("agent config %s: command is required", path)
	}
	return cfg, nil
}
