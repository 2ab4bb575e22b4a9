package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/steeltoeoss/parsemd/pkg/utils"
)

// Load reads and parses a YAML config file. Defaults are not applied; call Validate.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

// LoadComponentTitles reads a YAML mapping document of directory key -> display title.
func LoadComponentTitles(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading component titles '%s': %w", utils.ErrFilesystem, path, err)
	}

	titles := make(map[string]string)
	if err := yaml.Unmarshal(data, &titles); err != nil {
		return nil, fmt.Errorf("%w: YAML component titles '%s': %w", utils.ErrParsing, path, err)
	}
	return titles, nil
}

// ApplyComponentTitlesFile merges ComponentTitlesFile over ComponentTitles.
// Keys are lowercased the same way Validate does. No-op when no file is configured.
func (c *AppConfig) ApplyComponentTitlesFile() error {
	if c.ComponentTitlesFile == "" {
		return nil
	}
	titles, err := LoadComponentTitles(c.ComponentTitlesFile)
	if err != nil {
		return err
	}
	if c.ComponentTitles == nil {
		c.ComponentTitles = make(map[string]string, len(titles))
	}
	for key, title := range titles {
		if strings.TrimSpace(title) == "" {
			continue
		}
		c.ComponentTitles[strings.ToLower(strings.TrimSpace(key))] = title
	}
	if len(c.ComponentTitles) == 0 {
		return fmt.Errorf("%w: component titles file '%s' defines no titles", utils.ErrConfigValidation, c.ComponentTitlesFile)
	}
	return nil
}
