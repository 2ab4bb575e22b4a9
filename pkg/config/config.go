package config

// AppConfig holds the publisher configuration loaded from YAML
type AppConfig struct {
	DocsRoot            string            `yaml:"docs_root"`                       // Link prefix for every generated page link
	OverviewPage        string            `yaml:"overview_page"`                   // File stem that never yields a node
	ReservedHeading     string            `yaml:"reserved_heading"`                // Heading text that never yields a node
	Separator           string            `yaml:"separator"`                       // Splits numeric prefixes and title words
	HeadingMatchMode    string            `yaml:"heading_match_mode,omitempty"`    // Exact or Prefix
	ComponentTitles     map[string]string `yaml:"component_titles,omitempty"`      // Directory key -> display title
	ComponentTitlesFile string            `yaml:"component_titles_file,omitempty"` // External mapping document, merged over ComponentTitles
	InferUnknownTitles  bool              `yaml:"infer_unknown_titles,omitempty"`  // Title-case unknown directory keys instead of failing
	IgnorePatterns      []string          `yaml:"ignore_patterns,omitempty"`       // Regex patterns for entry names to skip
	RootPageExtension   string            `yaml:"root_page_extension,omitempty"`   // Extension appended to root page links
	TOCFilename         string            `yaml:"toc_filename,omitempty"`
	ManifestFilename    string            `yaml:"manifest_filename,omitempty"`
	VerifyManifestLinks bool              `yaml:"verify_manifest_links,omitempty"`
	StateDir            string            `yaml:"state_dir,omitempty"`
	EnableRenderCache   bool              `yaml:"render_cache,omitempty"`
	EnableOutputMapping bool              `yaml:"enable_output_mapping,omitempty"`
	OutputMappingFile   string            `yaml:"output_mapping_filename,omitempty"`
	EnableMetadataYAML  bool              `yaml:"enable_metadata_yaml,omitempty"`
	MetadataYAMLFile    string            `yaml:"metadata_yaml_filename,omitempty"`
	WriteStructureFile  bool              `yaml:"write_structure_file,omitempty"`
	StructureFilename   string            `yaml:"structure_filename,omitempty"`
	Redirect            RedirectConfig    `yaml:"redirect,omitempty"`
}

// RedirectConfig holds settings for the legacy docs host redirect
type RedirectConfig struct {
	LegacyHosts   []string `yaml:"legacy_hosts,omitempty"`   // Hosts whose requests are redirected (case-insensitive)
	NewHost       string   `yaml:"new_host,omitempty"`       // Target host; empty disables the redirect
	NewPort       string   `yaml:"new_port,omitempty"`       // Optional target port
	StripSegments []string `yaml:"strip_segments,omitempty"` // Path segments dropped from /api/browser links
}

// DefaultComponentTitles is the built-in directory key -> title table
func DefaultComponentTitles() map[string]string {
	return map[string]string{
		"circuitbreaker": "Circuit Breaker",
		"configuration":  "Application Configuration",
		"connectors":     "Cloud Connectors",
		"discovery":      "Service Discovery",
		"fileshares":     "Network File Sharing",
		"introduction":   "Introduction",
		"logging":        "Dynamic Logging",
		"management":     "Cloud Management",
		"security":       "Security Providers",
	}
}

// DefaultStripSegments lists the component segments removed from /api/browser paths
func DefaultStripSegments() []string {
	return []string{
		"all", "bootstrap", "circuitbreaker", "common", "configuration", "connectors",
		"discovery", "integration", "logging", "management", "messaging", "security", "stream",
	}
}

// GetEffectiveOutputMappingFilename determines the filename for the source-to-output mapping file
func GetEffectiveOutputMappingFilename(appCfg AppConfig) string {
	if appCfg.OutputMappingFile != "" {
		return appCfg.OutputMappingFile
	}
	return "source_to_output_map.tsv"
}

// GetEffectiveMetadataYAMLFilename determines the filename for the YAML build metadata.
func GetEffectiveMetadataYAMLFilename(appCfg AppConfig) string {
	if appCfg.MetadataYAMLFile != "" {
		return appCfg.MetadataYAMLFile
	}
	return "build_metadata.yaml"
}

// GetEffectiveStructureFilename determines the filename for the published tree listing.
func GetEffectiveStructureFilename(appCfg AppConfig) string {
	if appCfg.StructureFilename != "" {
		return appCfg.StructureFilename
	}
	return "structure.txt"
}
