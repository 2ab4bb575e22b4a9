package process

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"github.com/steeltoeoss/parsemd/pkg/utils"
)

// Renderer converts markdown documents to HTML.
// Raw HTML in the source is omitted from the output.
type Renderer struct {
	md goldmark.Markdown
}

// NewRenderer creates a Renderer with tables, footnotes, definition lists,
// typographic quotes, unique heading ids and bootstrap element classes.
func NewRenderer() *Renderer {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM, // tables, strikethrough, autolinks, task lists
			extension.Footnote,
			extension.DefinitionList,
			extension.Typographer,
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
			parser.WithAttribute(),
			parser.WithASTTransformers(util.Prioritized(&bootstrapClasses{}, 100)),
		),
	)
	return &Renderer{md: md}
}

// Render converts one markdown body (front matter already removed) to HTML.
// Malformed markdown still produces best-effort output.
func (r *Renderer) Render(source []byte) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert(source, &buf); err != nil {
		return "", fmt.Errorf("%w: %w", utils.ErrMarkdownRender, err)
	}
	return buf.String(), nil
}

var _ parser.ASTTransformer = &bootstrapClasses{}

// bootstrapClasses tags blockquotes, tables and images with the classes the site stylesheet expects.
type bootstrapClasses struct{}

func (b *bootstrapClasses) Transform(doc *ast.Document, _ text.Reader, _ parser.Context) {
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.Kind() {
		case ast.KindBlockquote:
			addClass(n, "blockquote")
		case extast.KindTable:
			addClass(n, "table")
		case ast.KindImage:
			addClass(n, "img-fluid")
		}
		return ast.WalkContinue, nil
	})
}

// addClass appends class to any class set through the attribute syntax.
func addClass(n ast.Node, class string) {
	if existing, ok := n.AttributeString("class"); ok {
		if b, isBytes := existing.([]byte); isBytes && len(b) > 0 {
			n.SetAttributeString("class", append(append([]byte{}, b...), []byte(" "+class)...))
			return
		}
	}
	n.SetAttributeString("class", []byte(class))
}
