package toc

import (
	"bytes"
	"cmp"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/steeltoeoss/parsemd/pkg/models"
	"github.com/steeltoeoss/parsemd/pkg/process"
)

// SortNodes orders siblings by ascending position. Equal positions keep their input order.
func SortNodes(nodes []*models.NavigationNode) {
	slices.SortStableFunc(nodes, func(a, b *models.NavigationNode) int {
		return cmp.Compare(a.Position, b.Position)
	})
}

// SortTree sorts nodes and every descendant list.
func SortTree(nodes []*models.NavigationNode) {
	for _, n := range nodes {
		SortTree(n.Children)
	}
	SortNodes(nodes)
}

// Assemble builds the navigation tree for a walked layout. pages maps source
// paths to their publish results; markdown files absent from pages still get
// a node, without headings. Non-markdown files produce no node.
func Assemble(b *Builder, layout *Layout, pages map[string]*process.PageResult, log *logrus.Entry) ([]*models.NavigationNode, error) {
	nodes, _, err := AssembleIndexed(b, layout, pages, log)
	return nodes, err
}

// AssembleIndexed is Assemble that also returns the page nodes keyed by source path.
func AssembleIndexed(b *Builder, layout *Layout, pages map[string]*process.PageResult, log *logrus.Entry) ([]*models.NavigationNode, map[string]*models.NavigationNode, error) {
	nodes := make([]*models.NavigationNode, 0, len(layout.RootFiles)+len(layout.Components))
	index := make(map[string]*models.NavigationNode)

	for _, f := range layout.RootFiles {
		if !process.IsMarkdown(f.Name) {
			continue
		}
		if node := b.BuildPage(b.DocsRoot(), f.Name, f.Index, true, pages[f.Path]); node != nil {
			nodes = append(nodes, node)
			index[f.Path] = node
		} else {
			log.Debugf("Suppressed root page '%s'", f.Path)
		}
	}

	for _, c := range layout.Components {
		dir, err := b.BuildDirectory(c.Name, c.Index)
		if err != nil {
			return nil, nil, err
		}
		for _, f := range c.Files {
			if !process.IsMarkdown(f.Name) {
				continue
			}
			if node := b.BuildPage(dir.Link, f.Name, f.Index, false, pages[f.Path]); node != nil {
				dir.Children = append(dir.Children, node)
				index[f.Path] = node
			} else {
				log.Debugf("Suppressed page '%s'", f.Path)
			}
		}
		SortNodes(dir.Children)
		nodes = append(nodes, dir)
	}

	SortNodes(nodes)
	return nodes, index, nil
}

// Marshal serializes the tree as a single compact JSON document with a trailing newline.
// An empty tree is written as an empty array.
func Marshal(nodes []*models.NavigationNode) ([]byte, error) {
	if nodes == nil {
		nodes = []*models.NavigationNode{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(nodes); err != nil {
		return nil, fmt.Errorf("encoding navigation tree: %w", err)
	}
	return buf.Bytes(), nil
}
