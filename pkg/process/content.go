package process

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/steeltoeoss/parsemd/pkg/models"
	"github.com/steeltoeoss/parsemd/pkg/storage"
	"github.com/steeltoeoss/parsemd/pkg/utils"
)

const (
	markdownExt  = ".md"
	publishedExt = ".html"
)

// PageResult describes one published markdown page
type PageResult struct {
	SourcePath  string // Slash path relative to the source root
	OutputPath  string // Filesystem path of the written HTML file
	Headings    []Heading
	FrontMatter FrontMatter
	ContentHash string // SHA256 of the markdown source
	FromCache   bool
}

// ContentProcessor renders markdown pages into the publish tree and extracts their headings
type ContentProcessor struct {
	renderer *Renderer
	cache    storage.RenderCache // nil disables caching
	log      *logrus.Entry
}

// NewContentProcessor creates a ContentProcessor. cache may be nil.
func NewContentProcessor(renderer *Renderer, cache storage.RenderCache, log *logrus.Entry) *ContentProcessor {
	return &ContentProcessor{
		renderer: renderer,
		cache:    cache,
		log:      log,
	}
}

// IsMarkdown reports whether name carries the markdown extension (case-insensitive)
func IsMarkdown(name string) bool {
	return strings.EqualFold(path.Ext(name), markdownExt)
}

// OutputRelPath maps a source path to its published path: markdown files get
// the .html extension, everything else keeps its name.
func OutputRelPath(srcPath string) string {
	if !IsMarkdown(srcPath) {
		return srcPath
	}
	return strings.TrimSuffix(srcPath, path.Ext(srcPath)) + publishedExt
}

// ProcessPage reads srcPath from fsys, renders it, writes the HTML under publishDir
// and returns the headings of the rendered page.
// Only filesystem failures are returned as errors; bad front matter, cache
// failures and headings without ids are logged and the page is still published.
func (cp *ContentProcessor) ProcessPage(fsys fs.FS, srcPath, publishDir string) (*PageResult, error) {
	taskLog := cp.log.WithField("file", srcPath)
	taskLog.Debug("Processing page...")

	content, err := fs.ReadFile(fsys, srcPath)
	if err != nil {
		return nil, fmt.Errorf("%w: reading page '%s': %w", utils.ErrFilesystem, srcPath, err)
	}

	result := &PageResult{
		SourcePath:  srcPath,
		OutputPath:  filepath.Join(publishDir, filepath.FromSlash(OutputRelPath(srcPath))),
		ContentHash: utils.ContentSHA256(content),
	}

	fm, body, fmErr := SplitFrontMatter(content)
	if fmErr != nil {
		taskLog.WithField("category", utils.CategorizeError(fmErr)).Warnf("Ignoring front matter: %v", fmErr)
	}
	result.FrontMatter = fm

	html, fromCache := cp.cachedHTML(result.ContentHash, taskLog)
	if !fromCache {
		html, err = cp.renderer.Render(body)
		if err != nil {
			// goldmark only fails on writer errors; keep the page with empty output
			taskLog.WithField("category", utils.CategorizeError(err)).Errorf("Render failed: %v", err)
			html = ""
		} else {
			cp.storeHTML(result.ContentHash, srcPath, html, taskLog)
		}
	}
	result.FromCache = fromCache

	if err := writeFile(result.OutputPath, []byte(html)); err != nil {
		taskLog.Error(err)
		return nil, err
	}

	headings, missingID, err := ExtractHeadings(html)
	if err != nil {
		taskLog.WithField("category", utils.CategorizeError(err)).Warnf("Heading extraction failed: %v", err)
	}
	for _, text := range missingID {
		taskLog.Warnf("Skipping heading without id: %q", text)
	}
	result.Headings = headings

	taskLog.Debugf("Published %d bytes, %d headings (cached: %v): %s", len(html), len(headings), fromCache, result.OutputPath)
	return result, nil
}

// cachedHTML returns cached HTML for hash, if any.
func (cp *ContentProcessor) cachedHTML(hash string, taskLog *logrus.Entry) (string, bool) {
	if cp.cache == nil {
		return "", false
	}
	entry, found, err := cp.cache.Get(hash)
	if err != nil {
		taskLog.WithField("category", utils.CategorizeError(err)).Warnf("Render cache lookup failed: %v", err)
		return "", false
	}
	if !found {
		return "", false
	}
	return entry.HTML, true
}

func (cp *ContentProcessor) storeHTML(hash, srcPath, html string, taskLog *logrus.Entry) {
	if cp.cache == nil {
		return
	}
	entry := &models.RenderCacheEntry{
		HTML:       html,
		SourcePath: srcPath,
		RenderedAt: time.Now(),
	}
	if err := cp.cache.Put(hash, entry); err != nil {
		taskLog.WithField("category", utils.CategorizeError(err)).Warnf("Render cache store failed: %v", err)
	}
}

// CopyAsset copies a non-markdown file from fsys into the same relative location under publishDir.
func CopyAsset(fsys fs.FS, srcPath, publishDir string) (string, error) {
	dst := filepath.Join(publishDir, filepath.FromSlash(srcPath))

	src, err := fsys.Open(srcPath)
	if err != nil {
		return "", fmt.Errorf("%w: opening asset '%s': %w", utils.ErrFilesystem, srcPath, err)
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return "", fmt.Errorf("%w: creating output directory '%s': %w", utils.ErrFilesystem, filepath.Dir(dst), err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("%w: creating asset '%s': %w", utils.ErrFilesystem, dst, err)
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return "", fmt.Errorf("%w: copying asset '%s': %w", utils.ErrFilesystem, dst, err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("%w: closing asset '%s': %w", utils.ErrFilesystem, dst, err)
	}
	return dst, nil
}

// writeFile creates parent directories and writes data to p.
func writeFile(p string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return fmt.Errorf("%w: creating output directory '%s': %w", utils.ErrFilesystem, filepath.Dir(p), err)
	}
	if err := os.WriteFile(p, data, 0644); err != nil {
		return fmt.Errorf("%w: saving html '%s': %w", utils.ErrFilesystem, p, err)
	}
	return nil
}
