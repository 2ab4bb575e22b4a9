package process

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/steeltoeoss/parsemd/pkg/utils"
)

// FrontMatter holds the page overrides a markdown file may declare in a leading YAML block.
type FrontMatter struct {
	Title    string `yaml:"title,omitempty"`
	Position *int   `yaml:"position,omitempty"`
}

// SplitFrontMatter separates a `---` delimited YAML block from the markdown body.
//
// Content without a leading delimiter is returned unchanged as the body.
// Both failure modes return an ErrParsing error along with a usable body, so
// callers can log and keep going: a missing closing delimiter yields the full
// content, invalid YAML yields the body with the block stripped.
func SplitFrontMatter(content []byte) (FrontMatter, []byte, error) {
	var fm FrontMatter

	nl := []byte("\n")
	if bytes.HasPrefix(content, []byte("---\r\n")) {
		nl = []byte("\r\n")
	}
	open := append([]byte("---"), nl...)
	if !bytes.HasPrefix(content, open) {
		return fm, content, nil
	}

	rest := content[len(open):]
	var raw, body []byte
	if bytes.HasPrefix(rest, open) {
		// Empty block
		body = rest[len(open):]
	} else {
		closeSeq := append(append(append([]byte{}, nl...), []byte("---")...), nl...)
		idx := bytes.Index(rest, closeSeq)
		if idx < 0 {
			if bytes.HasSuffix(rest, append(append([]byte{}, nl...), []byte("---")...)) {
				idx = len(rest) - len(nl) - 3
				raw = rest[:idx]
				body = nil
			} else {
				return fm, content, fmt.Errorf("%w: front matter has no closing delimiter", utils.ErrParsing)
			}
		} else {
			raw = rest[:idx]
			body = rest[idx+len(closeSeq):]
		}
	}

	if len(bytes.TrimSpace(raw)) > 0 {
		if err := yaml.Unmarshal(raw, &fm); err != nil {
			return FrontMatter{}, body, fmt.Errorf("%w: front matter YAML: %w", utils.ErrParsing, err)
		}
	}
	return fm, body, nil
}
