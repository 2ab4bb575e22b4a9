package toc

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/steeltoeoss/parsemd/pkg/models"
	"github.com/steeltoeoss/parsemd/pkg/utils"
)

// ManifestItem is one entry of a hand-written navigation manifest.
type ManifestItem struct {
	Name    string         `yaml:"name"`
	Page    string         `yaml:"page,omitempty"`     // Markdown path, published as .html
	PageRef string         `yaml:"page_ref,omitempty"` // In-page anchor, used when Page is empty
	Items   []ManifestItem `yaml:"items,omitempty"`
}

// LoadManifest reads a YAML sequence of ManifestItem.
// A missing file is reported as ErrManifestNotFound.
func LoadManifest(path string) ([]ManifestItem, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: '%s'", utils.ErrManifestNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading manifest '%s': %w", utils.ErrFilesystem, path, err)
	}

	var items []ManifestItem
	if err := yaml.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("%w: YAML manifest '%s': %w", utils.ErrParsing, path, err)
	}
	return items, nil
}

// ConvertManifest maps manifest items to navigation nodes, keeping manifest order.
func ConvertManifest(items []ManifestItem) []*models.NavigationNode {
	if len(items) == 0 {
		return nil
	}
	nodes := make([]*models.NavigationNode, 0, len(items))
	for i, item := range items {
		link := "#" + item.PageRef
		if item.Page != "" {
			link = swapMarkdownExt(item.Page)
		}
		node := models.NewNavigationNode(item.Name, link, models.LinkMatchExact, i)
		node.Children = ConvertManifest(item.Items)
		nodes = append(nodes, node)
	}
	return nodes
}

func swapMarkdownExt(p string) string {
	if strings.HasSuffix(strings.ToLower(p), ".md") {
		return p[:len(p)-len(".md")] + ".html"
	}
	return p
}

// VerifyLinks checks that every page link in the tree resolves to a published
// HTML file under publishDir. Anchor-only and absolute links are skipped.
// All broken links are reported together, each wrapping ErrBrokenMenuLink.
func VerifyLinks(publishDir, docsRoot string, nodes []*models.NavigationNode) error {
	var errs []error
	var walk func([]*models.NavigationNode)
	walk = func(list []*models.NavigationNode) {
		for _, n := range list {
			if target, ok := linkTarget(publishDir, docsRoot, n.Link); ok {
				if info, err := os.Stat(target); err != nil || info.IsDir() {
					errs = append(errs, fmt.Errorf("%w: '%s' (%s) -> %s", utils.ErrBrokenMenuLink, n.Title, n.Link, target))
				}
			}
			walk(n.Children)
		}
	}
	walk(nodes)
	return errors.Join(errs...)
}

// linkTarget maps a menu link to the published file it should point at.
func linkTarget(publishDir, docsRoot, link string) (string, bool) {
	link, _, _ = strings.Cut(link, "#")
	if link == "" || strings.Contains(link, "://") {
		return "", false
	}
	rel := strings.TrimPrefix(link, docsRoot)
	rel = strings.TrimPrefix(rel, "/")
	if unescaped, err := url.PathUnescape(rel); err == nil {
		rel = unescaped
	}
	if !strings.HasSuffix(strings.ToLower(rel), ".html") {
		rel += ".html"
	}
	return filepath.Join(publishDir, filepath.FromSlash(rel)), true
}
