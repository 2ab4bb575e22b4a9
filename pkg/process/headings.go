package process

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/steeltoeoss/parsemd/pkg/utils"
)

// Heading is an in-page anchor target found in rendered HTML.
type Heading struct {
	Level int
	ID    string
	Text  string
}

// ExtractHeadings parses rendered HTML and returns the h2 and h3 elements in document order.
// Headings without an id attribute cannot be linked to; their texts are returned in missingID.
func ExtractHeadings(html string) (headings []Heading, missingID []string, err error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: HTML document: %w", utils.ErrParsing, err)
	}

	// A single-element walk keeps h2/h3 interleaving in document order.
	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		var level int
		switch goquery.NodeName(s) {
		case "h2":
			level = 2
		case "h3":
			level = 3
		default:
			return
		}

		text := strings.Join(strings.Fields(s.Text()), " ")
		id, ok := s.Attr("id")
		id = strings.TrimSpace(id)
		if !ok || id == "" {
			missingID = append(missingID, text)
			return
		}
		headings = append(headings, Heading{Level: level, ID: id, Text: text})
	})

	return headings, missingID, nil
}
