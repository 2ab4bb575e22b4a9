package publish

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/steeltoeoss/parsemd/pkg/config"
	"github.com/steeltoeoss/parsemd/pkg/models"
	"github.com/steeltoeoss/parsemd/pkg/process"
	"github.com/steeltoeoss/parsemd/pkg/storage"
	"github.com/steeltoeoss/parsemd/pkg/toc"
	"github.com/steeltoeoss/parsemd/pkg/utils"
)

// Options holds optional collaborators of a Publisher
type Options struct {
	UseManifest bool                // Build the tree from the navigation manifest instead of the layout
	Cache       storage.RenderStore // nil disables the render cache
}

// Summary reports the outcome of a publish run
type Summary struct {
	BuildID   string
	Pages     int
	Assets    int
	CacheHits int
	TOCPath   string
	Duration  time.Duration
}

// Publisher renders a documentation root into a publish directory and writes its table of contents
type Publisher struct {
	log        *logrus.Entry
	appCfg     *config.AppConfig
	sourceDir  string
	publishDir string
	opts       Options
}

// NewPublisher creates a Publisher. appCfg must already be validated.
func NewPublisher(appCfg *config.AppConfig, sourceDir, publishDir string, opts Options, baseLogger *logrus.Entry) *Publisher {
	return &Publisher{
		log:        baseLogger.WithField("component", "publisher"),
		appCfg:     appCfg,
		sourceDir:  sourceDir,
		publishDir: publishDir,
		opts:       opts,
	}
}

// Run executes one publish pass. Input problems, including component
// directories without a title, are reported before the publish directory is
// touched; after that any write failure aborts the run.
func (p *Publisher) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	runLog := p.log.WithFields(logrus.Fields{"source": p.sourceDir, "publish": p.publishDir})
	runLog.Info("Publish starting...")

	// --- Validate inputs ---
	info, err := os.Stat(p.sourceDir)
	if err != nil {
		return nil, fmt.Errorf("%w: '%s': %w", utils.ErrSourceNotFound, p.sourceDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: '%s' is not a directory", utils.ErrSourceNotFound, p.sourceDir)
	}

	var manifest []toc.ManifestItem
	if p.opts.UseManifest {
		manifestPath := filepath.Join(p.sourceDir, p.appCfg.ManifestFilename)
		if manifest, err = toc.LoadManifest(manifestPath); err != nil {
			return nil, err
		}
		runLog.Infof("Loaded navigation manifest %s (%d top-level items)", manifestPath, len(manifest))
	}

	ignore, err := utils.CompileRegexPatterns(p.appCfg.IgnorePatterns)
	if err != nil {
		return nil, err
	}
	var exclude []string
	if p.opts.UseManifest {
		exclude = append(exclude, p.appCfg.ManifestFilename)
	}
	if nested := p.nestedPublishDir(); nested != "" {
		runLog.Debugf("Publish directory is inside the source root, excluding '%s'", nested)
		exclude = append(exclude, nested)
	}

	fsys := os.DirFS(p.sourceDir)
	layout, err := toc.Walk(fsys, ignore, runLog, exclude...)
	if err != nil {
		return nil, err
	}
	runLog.Infof("Found %d root files and %d component directories", len(layout.RootFiles), len(layout.Components))

	builder := toc.NewBuilder(*p.appCfg)
	if !p.opts.UseManifest {
		if err := builder.CheckLayout(layout); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		runLog.Warnf("Publish cancelled: %v", err)
		return nil, err
	}

	// --- Prepare publish directory ---
	if err := p.cleanPublishDir(); err != nil {
		return nil, err
	}

	output := NewOutputManager(runLog, p.appCfg, p.sourceDir, p.publishDir)
	if err := output.OpenFiles(); err != nil {
		return nil, err
	}
	closed := false
	defer func() {
		if !closed {
			output.closeMappingFile()
		}
	}()

	// --- Render pages and copy assets ---
	processor := process.NewContentProcessor(process.NewRenderer(), p.opts.Cache, runLog)
	pages := make(map[string]*process.PageResult, layout.FileCount())
	live := make(map[string]struct{}, layout.FileCount())
	assets := 0

	for _, e := range allFiles(layout) {
		if err := ctx.Err(); err != nil {
			runLog.Warnf("Publish cancelled: %v", err)
			return nil, err
		}
		taskLog := runLog.WithField("file", e.Path)

		if !process.IsMarkdown(e.Name) {
			dst, err := process.CopyAsset(fsys, e.Path, p.publishDir)
			if err != nil {
				return nil, err
			}
			if err := output.RecordAsset(e.Path, dst, taskLog); err != nil {
				return nil, err
			}
			assets++
			continue
		}

		page, err := processor.ProcessPage(fsys, e.Path, p.publishDir)
		if err != nil {
			return nil, err
		}
		pages[e.Path] = page
		live[page.ContentHash] = struct{}{}
		if err := output.RecordPage(page, taskLog); err != nil {
			return nil, err
		}
	}
	runLog.Infof("Rendered %d pages, copied %d assets", len(pages), assets)

	// --- Build navigation tree ---
	nodes, err := p.buildTree(builder, layout, pages, manifest, output, runLog)
	if err != nil {
		return nil, err
	}

	data, err := toc.Marshal(nodes)
	if err != nil {
		return nil, err
	}
	tocPath := filepath.Join(p.publishDir, p.appCfg.TOCFilename)
	if err := os.WriteFile(tocPath, data, 0644); err != nil {
		return nil, fmt.Errorf("%w: writing '%s': %w", utils.ErrFilesystem, tocPath, err)
	}
	runLog.Infof("Wrote %s (%d top-level entries)", tocPath, len(nodes))

	p.maintainCache(ctx, live, runLog)

	closed = true
	if err := output.Close(); err != nil {
		return nil, err
	}

	summary := &Summary{
		BuildID:   output.BuildID(),
		Pages:     len(pages),
		Assets:    assets,
		CacheHits: output.CacheHits(),
		TOCPath:   tocPath,
		Duration:  time.Since(start),
	}
	runLog.WithField("build_id", summary.BuildID).Infof("Publish finished in %v", summary.Duration)
	return summary, nil
}

// buildTree assembles the tree from the layout, or converts the manifest when one is used.
func (p *Publisher) buildTree(builder *toc.Builder, layout *toc.Layout, pages map[string]*process.PageResult, manifest []toc.ManifestItem, output *OutputManager, runLog *logrus.Entry) ([]*models.NavigationNode, error) {
	if !p.opts.UseManifest {
		nodes, index, err := toc.AssembleIndexed(builder, layout, pages, runLog)
		if err != nil {
			return nil, err
		}
		output.AttachNodes(index)
		return nodes, nil
	}

	nodes := toc.ConvertManifest(manifest)
	toc.SortTree(nodes)
	if p.appCfg.VerifyManifestLinks {
		if err := toc.VerifyLinks(p.publishDir, p.appCfg.DocsRoot, nodes); err != nil {
			return nil, err
		}
		runLog.Info("All manifest links resolve to published pages")
	}
	return nodes, nil
}

// maintainCache drops cache entries for content that no longer exists.
// Failures are logged; the published output is already complete.
func (p *Publisher) maintainCache(ctx context.Context, live map[string]struct{}, runLog *logrus.Entry) {
	if p.opts.Cache == nil {
		return
	}
	removed, err := p.opts.Cache.Prune(ctx, live)
	if err != nil {
		runLog.WithField("category", utils.CategorizeError(err)).Warnf("Render cache prune failed: %v", err)
		return
	}
	if removed > 0 {
		p.opts.Cache.RunGC()
	}
}

// cleanPublishDir deletes and recreates the publish directory.
// It refuses to delete a directory that is, or contains, the source root.
func (p *Publisher) cleanPublishDir() error {
	absSource, errSource := filepath.Abs(p.sourceDir)
	if errSource != nil {
		return fmt.Errorf("safety check failed (resolving source path '%s'): %w", p.sourceDir, errSource)
	}
	absPublish, errPublish := filepath.Abs(p.publishDir)
	if errPublish != nil {
		return fmt.Errorf("safety check failed (resolving publish path '%s'): %w", p.publishDir, errPublish)
	}

	publishWithSep := absPublish + string(filepath.Separator)
	if absPublish == filepath.Dir(absPublish) || absSource == absPublish || strings.HasPrefix(absSource, publishWithSep) {
		return fmt.Errorf("%w: refusing to delete publish dir '%s' (source '%s' would be removed)",
			utils.ErrUsage, absPublish, absSource)
	}

	p.log.Debugf("Removing existing publish directory: %s", p.publishDir)
	if err := os.RemoveAll(p.publishDir); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: removing publish dir '%s': %w", utils.ErrFilesystem, p.publishDir, err)
	}
	if err := os.MkdirAll(p.publishDir, 0755); err != nil {
		return fmt.Errorf("%w: creating publish dir '%s': %w", utils.ErrFilesystem, p.publishDir, err)
	}
	return nil
}

// nestedPublishDir returns the slash path of the publish dir relative to the
// source root when it lies inside it, or "" otherwise.
func (p *Publisher) nestedPublishDir() string {
	absSource, err1 := filepath.Abs(p.sourceDir)
	absPublish, err2 := filepath.Abs(p.publishDir)
	if err1 != nil || err2 != nil {
		return ""
	}
	rel, err := filepath.Rel(absSource, absPublish)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ""
	}
	return filepath.ToSlash(rel)
}

// allFiles lists root files first, then each component's files, in walk order.
func allFiles(layout *toc.Layout) []toc.Entry {
	files := make([]toc.Entry, 0, layout.FileCount())
	files = append(files, layout.RootFiles...)
	for _, c := range layout.Components {
		files = append(files, c.Files...)
	}
	return files
}
