package config

import (
	"fmt"
	"strings"

	"github.com/steeltoeoss/parsemd/pkg/models"
	"github.com/steeltoeoss/parsemd/pkg/utils"
)

// Validate checks AppConfig fields and applies sensible defaults.
// Returns collected warnings and any fatal error.
// Modifies receiver in place to apply defaults.
func (c *AppConfig) Validate() (warnings []string, err error) {
	// DocsRoot
	if c.DocsRoot == "" {
		c.DocsRoot = "/docs"
	}
	if !strings.HasPrefix(c.DocsRoot, "/") {
		warnings = append(warnings, fmt.Sprintf("docs_root '%s' should start with '/', prefixing it", c.DocsRoot))
		c.DocsRoot = "/" + c.DocsRoot
	}
	if len(c.DocsRoot) > 1 {
		c.DocsRoot = strings.TrimSuffix(c.DocsRoot, "/")
	}

	// OverviewPage / ReservedHeading
	if c.OverviewPage == "" {
		c.OverviewPage = "overview"
	}
	if c.ReservedHeading == "" {
		c.ReservedHeading = "Overview"
	}

	// Separator
	if c.Separator == "" {
		c.Separator = "-"
	} else if len([]rune(c.Separator)) != 1 {
		return warnings, fmt.Errorf("%w: separator must be a single character, got '%s'", utils.ErrConfigValidation, c.Separator)
	}

	// HeadingMatchMode
	if c.HeadingMatchMode == "" {
		c.HeadingMatchMode = string(models.LinkMatchPrefix)
	} else {
		mode, parseErr := models.ParseLinkMatchMode(c.HeadingMatchMode)
		if parseErr != nil {
			return warnings, fmt.Errorf("%w: heading_match_mode: %v", utils.ErrConfigValidation, parseErr)
		}
		c.HeadingMatchMode = string(mode)
	}

	// ComponentTitles
	if len(c.ComponentTitles) == 0 && c.ComponentTitlesFile == "" {
		c.ComponentTitles = DefaultComponentTitles()
	}
	normalized := make(map[string]string, len(c.ComponentTitles))
	for key, title := range c.ComponentTitles {
		lower := strings.ToLower(strings.TrimSpace(key))
		if strings.TrimSpace(title) == "" {
			warnings = append(warnings, fmt.Sprintf("component_titles entry '%s' has an empty title, ignoring it", key))
			continue
		}
		normalized[lower] = title
	}
	c.ComponentTitles = normalized

	// IgnorePatterns
	if _, compileErr := utils.CompileRegexPatterns(c.IgnorePatterns); compileErr != nil {
		return warnings, compileErr
	}

	// RootPageExtension
	if c.RootPageExtension == "" {
		c.RootPageExtension = ".html"
	} else if !strings.HasPrefix(c.RootPageExtension, ".") {
		c.RootPageExtension = "." + c.RootPageExtension
	}

	// Output file names
	if c.TOCFilename == "" {
		c.TOCFilename = "toc.json"
	}
	if c.ManifestFilename == "" {
		c.ManifestFilename = "nav-menu.yaml"
	}

	// StateDir
	if c.EnableRenderCache && c.StateDir == "" {
		warnings = append(warnings, "render_cache is enabled but state_dir is empty, defaulting to './parsemd_state'")
		c.StateDir = "./parsemd_state"
	}

	if c.EnableOutputMapping && c.OutputMappingFile == "" {
		warnings = append(warnings,
			"'enable_output_mapping' is true but 'output_mapping_filename' is empty. "+
				"Defaulting to 'source_to_output_map.tsv'")
		c.OutputMappingFile = GetEffectiveOutputMappingFilename(*c)
	}

	if c.EnableMetadataYAML && c.MetadataYAMLFile == "" {
		warnings = append(warnings,
			"'enable_metadata_yaml' is true but 'metadata_yaml_filename' is empty. "+
				"Defaulting to 'build_metadata.yaml'")
		c.MetadataYAMLFile = GetEffectiveMetadataYAMLFilename(*c)
	}

	warnings = append(warnings, c.validateRedirect()...)

	return warnings, nil
}

// validateRedirect applies defaults to the redirect settings.
func (c *AppConfig) validateRedirect() (warnings []string) {
	r := &c.Redirect
	if len(r.LegacyHosts) == 0 {
		r.LegacyHosts = []string{"docs.steeltoe.io", "docs-staging.steeltoe.io"}
	}
	if len(r.StripSegments) == 0 {
		r.StripSegments = DefaultStripSegments()
	}
	if r.NewHost == "" && c.Redirect.NewPort != "" {
		warnings = append(warnings, "redirect.new_port is set but redirect.new_host is empty; redirect stays disabled")
	}
	return warnings
}
