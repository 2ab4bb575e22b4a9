package models

import "time"

// NavigationNode is one entry of the published table of contents.
// Children is omitted from JSON when empty; absent and empty both mean "leaf".
type NavigationNode struct {
	Title         string            `json:"title"`
	Link          string            `json:"link"`
	LinkMatchMode LinkMatchMode     `json:"linkMatchMode"`
	Position      int               `json:"position"`
	Children      []*NavigationNode `json:"children,omitempty"`
	Visible       bool              `json:"visible"`
	Enabled       bool              `json:"enabled"`
}

// NewNavigationNode returns a visible, enabled node without children.
func NewNavigationNode(title, link string, mode LinkMatchMode, position int) *NavigationNode {
	return &NavigationNode{
		Title:         title,
		Link:          link,
		LinkMatchMode: mode,
		Position:      position,
		Visible:       true,
		Enabled:       true,
	}
}

// IsLeaf reports whether the node has no children.
func (n *NavigationNode) IsLeaf() bool {
	return len(n.Children) == 0
}

// RenderCacheEntry stores a rendered page in the render cache
type RenderCacheEntry struct {
	HTML       string    `json:"html"`
	SourcePath string    `json:"source_path"` // Relative to the source root, informational
	RenderedAt time.Time `json:"rendered_at"`
}

// BuildMetadata holds all metadata for a single publish run.
type BuildMetadata struct {
	BuildID        string                 `yaml:"build_id"`
	SourceDir      string                 `yaml:"source_dir"`
	PublishDir     string                 `yaml:"publish_dir"`
	BuildStartTime time.Time              `yaml:"build_start_time"`
	BuildEndTime   time.Time              `yaml:"build_end_time"`
	TotalPages     int                    `yaml:"total_pages"`
	TotalAssets    int                    `yaml:"total_assets"`
	CacheHits      int                    `yaml:"cache_hits,omitempty"`
	Configuration  map[string]interface{} `yaml:"configuration,omitempty"`
	Pages          []PageMetadata         `yaml:"pages"`
}

// PageMetadata holds metadata for a single published page.
type PageMetadata struct {
	SourcePath   string    `yaml:"source_path"` // Relative to source root
	OutputPath   string    `yaml:"output_path"` // Relative to publish root
	Link         string    `yaml:"link,omitempty"`
	Title        string    `yaml:"title,omitempty"`
	HeadingCount int       `yaml:"heading_count"`
	ContentHash  string    `yaml:"content_hash,omitempty"` // SHA256 of markdown source
	FromCache    bool      `yaml:"from_cache,omitempty"`
	ProcessedAt  time.Time `yaml:"processed_at"`
}
