package toc

import (
	"errors"
	"net/url"
	"path"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/steeltoeoss/parsemd/pkg/config"
	"github.com/steeltoeoss/parsemd/pkg/models"
	"github.com/steeltoeoss/parsemd/pkg/process"
	"github.com/steeltoeoss/parsemd/pkg/utils"
)

// Builder turns directories, files and headings into navigation nodes
type Builder struct {
	docsRoot        string
	overviewPage    string
	reservedHeading string
	separator       string
	headingMode     models.LinkMatchMode
	titles          map[string]string
	inferTitles     bool
	rootExt         string
	caser           cases.Caser
}

// NewBuilder creates a Builder from a validated config
func NewBuilder(cfg config.AppConfig) *Builder {
	mode, err := models.ParseLinkMatchMode(cfg.HeadingMatchMode)
	if err != nil {
		mode = models.LinkMatchPrefix
	}
	titles := make(map[string]string, len(cfg.ComponentTitles))
	for k, v := range cfg.ComponentTitles {
		titles[strings.ToLower(k)] = v
	}
	return &Builder{
		docsRoot:        cfg.DocsRoot,
		overviewPage:    cfg.OverviewPage,
		reservedHeading: cfg.ReservedHeading,
		separator:       cfg.Separator,
		headingMode:     mode,
		titles:          titles,
		inferTitles:     cfg.InferUnknownTitles,
		rootExt:         cfg.RootPageExtension,
		caser:           cases.Title(language.Und),
	}
}

// DocsRoot returns the link prefix of top-level nodes
func (b *Builder) DocsRoot() string {
	return b.docsRoot
}

// ParsePosition returns the numeric prefix of name, or counter when there is none.
func (b *Builder) ParsePosition(name string, counter int) int {
	first, _, _ := strings.Cut(name, b.separator)
	if n, err := strconv.Atoi(first); err == nil {
		return n
	}
	return counter
}

// stripNumericPrefix drops the leading numeric token of name, if any.
func (b *Builder) stripNumericPrefix(name string) string {
	first, rest, found := strings.Cut(name, b.separator)
	if _, err := strconv.Atoi(first); err != nil {
		return name
	}
	if !found {
		return ""
	}
	return rest
}

// BuildDirectory creates the node for a component directory.
// A directory whose key has no configured title fails with ErrUnknownComponent
// unless title inference is enabled.
func (b *Builder) BuildDirectory(name string, counter int) (*models.NavigationNode, error) {
	key := strings.ToLower(b.stripNumericPrefix(name))
	title, ok := b.titles[key]
	if !ok {
		if !b.inferTitles {
			return nil, utils.WrapErrorf(utils.ErrUnknownComponent, "directory '%s' (key '%s')", name, key)
		}
		title = b.titleCase(strings.Split(key, b.separator))
		if title == "" {
			title = name
		}
	}

	link := b.docsRoot + "/" + url.PathEscape(name)
	return models.NewNavigationNode(title, link, models.LinkMatchExact, b.ParsePosition(name, counter)), nil
}

// BuildFile creates the node for a page, or nil for the overview page.
// swapExt appends the published extension to the link, as root pages need.
func (b *Builder) BuildFile(parentLink, name string, counter int, swapExt bool) *models.NavigationNode {
	stem := strings.TrimSuffix(name, path.Ext(name))
	if strings.EqualFold(b.stripNumericPrefix(stem), b.overviewPage) {
		return nil
	}

	tokens := strings.Split(b.stripNumericPrefix(stem), b.separator)
	var words []string
	for _, tok := range tokens {
		if _, isKey := b.titles[strings.ToLower(tok)]; isKey {
			continue
		}
		words = append(words, tok)
	}
	title := b.titleCase(words)
	if title == "" {
		// Every word was a directory key, or the name is only a number
		title = b.titleCase(tokens)
	}
	if title == "" {
		title = stem
	}

	link := parentLink + "/" + url.PathEscape(stem)
	if swapExt {
		link += b.rootExt
	}
	return models.NewNavigationNode(title, link, models.LinkMatchExact, b.ParsePosition(stem, counter))
}

// BuildHeading creates the in-page node for a heading, or nil for the reserved heading.
func (b *Builder) BuildHeading(h process.Heading, counter int) *models.NavigationNode {
	text := strings.TrimSpace(h.Text)
	if strings.EqualFold(text, b.reservedHeading) {
		return nil
	}
	return models.NewNavigationNode(text, "#"+h.ID, b.headingMode, counter)
}

// BuildPage creates a page node with its heading submenu.
// Front matter title and position override the derived values. A submenu is
// only attached when more than one heading remains after the reserved heading
// is dropped.
func (b *Builder) BuildPage(parentLink, name string, counter int, swapExt bool, page *process.PageResult) *models.NavigationNode {
	node := b.BuildFile(parentLink, name, counter, swapExt)
	if node == nil || page == nil {
		return node
	}

	if page.FrontMatter.Title != "" {
		node.Title = page.FrontMatter.Title
	}
	if page.FrontMatter.Position != nil {
		node.Position = *page.FrontMatter.Position
	}

	var children []*models.NavigationNode
	for i, h := range page.Headings {
		if child := b.BuildHeading(h, i); child != nil {
			children = append(children, child)
		}
	}
	if len(children) > 1 {
		SortNodes(children)
		node.Children = children
	}
	return node
}

// CheckLayout resolves the title of every component directory in layout and
// reports all directories without one, so a run can fail before writing output.
func (b *Builder) CheckLayout(layout *Layout) error {
	var errs []error
	for _, c := range layout.Components {
		if _, err := b.BuildDirectory(c.Name, c.Index); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// titleCase capitalizes each non-empty word and joins them with single spaces.
func (b *Builder) titleCase(words []string) string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		out = append(out, b.caser.String(w))
	}
	return strings.Join(out, " ")
}
