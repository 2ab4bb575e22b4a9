package publish

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/steeltoeoss/parsemd/pkg/config"
	"github.com/steeltoeoss/parsemd/pkg/models"
	"github.com/steeltoeoss/parsemd/pkg/storage"
	"github.com/steeltoeoss/parsemd/pkg/utils"
)

func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

func testConfig(t *testing.T, mutate ...func(*config.AppConfig)) *config.AppConfig {
	t.Helper()
	cfg := &config.AppConfig{
		ComponentTitles: map[string]string{
			"intro":         "Intro",
			"configuration": "Application Configuration",
		},
	}
	for _, m := range mutate {
		m(cfg)
	}
	_, err := cfg.Validate()
	require.NoError(t, err)
	return cfg
}

// writeTree creates files (slash paths) under root.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	}
}

func introSource(t *testing.T) string {
	t.Helper()
	src := t.TempDir()
	writeTree(t, src, map[string]string{
		"01-intro/01-overview.md":    "## Welcome\n\n## Goals\n",
		"01-intro/02-setup.md":       "## Install\n\nSteps.\n\n## Configure\n\nMore.\n",
		"01-intro/images/nested.png": "png",
		"01-intro/diagram.svg":       "<svg/>",
	})
	return src
}

const introTOC = `[{"title":"Intro","link":"/docs/01-intro","linkMatchMode":"Exact","position":1,"children":[` +
	`{"title":"Setup","link":"/docs/01-intro/02-setup","linkMatchMode":"Exact","position":2,"children":[` +
	`{"title":"Install","link":"#install","linkMatchMode":"Prefix","position":0,"visible":true,"enabled":true},` +
	`{"title":"Configure","link":"#configure","linkMatchMode":"Prefix","position":1,"visible":true,"enabled":true}` +
	`],"visible":true,"enabled":true}],"visible":true,"enabled":true}]` + "\n"

func TestRun_EndToEnd(t *testing.T) {
	src := introSource(t)
	out := filepath.Join(t.TempDir(), "publish")

	summary, err := NewPublisher(testConfig(t), src, out, Options{}, testLogger()).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Pages)
	assert.Equal(t, 1, summary.Assets)
	assert.NotEmpty(t, summary.BuildID)
	assert.Equal(t, filepath.Join(out, "toc.json"), summary.TOCPath)

	data, err := os.ReadFile(summary.TOCPath)
	require.NoError(t, err)
	assert.Equal(t, introTOC, string(data))

	html, err := os.ReadFile(filepath.Join(out, "01-intro", "02-setup.html"))
	require.NoError(t, err)
	assert.Contains(t, string(html), `<h2 id="install">Install</h2>`)

	// The suppressed overview page is still published
	assert.FileExists(t, filepath.Join(out, "01-intro", "01-overview.html"))
	assert.FileExists(t, filepath.Join(out, "01-intro", "diagram.svg"))
	assert.NoDirExists(t, filepath.Join(out, "01-intro", "images"))
}

func TestRun_Deterministic(t *testing.T) {
	src := introSource(t)
	out := filepath.Join(t.TempDir(), "publish")
	cfg := testConfig(t)

	_, err := NewPublisher(cfg, src, out, Options{}, testLogger()).Run(context.Background())
	require.NoError(t, err)
	first, err := os.ReadFile(filepath.Join(out, "toc.json"))
	require.NoError(t, err)

	_, err = NewPublisher(cfg, src, out, Options{}, testLogger()).Run(context.Background())
	require.NoError(t, err)
	second, err := os.ReadFile(filepath.Join(out, "toc.json"))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRun_RecreatesPublishDir(t *testing.T) {
	src := introSource(t)
	out := t.TempDir()
	writeTree(t, out, map[string]string{"stale/old.html": "old"})

	_, err := NewPublisher(testConfig(t), src, out, Options{}, testLogger()).Run(context.Background())
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(out, "stale", "old.html"))
}

func TestRun_InputErrorsLeavePublishDirAlone(t *testing.T) {
	out := t.TempDir()
	marker := filepath.Join(out, "keep.txt")
	require.NoError(t, os.WriteFile(marker, []byte("x"), 0644))

	t.Run("missing source", func(t *testing.T) {
		missing := filepath.Join(t.TempDir(), "nope")
		_, err := NewPublisher(testConfig(t), missing, out, Options{}, testLogger()).Run(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, utils.ErrSourceNotFound)
		assert.FileExists(t, marker)
	})

	t.Run("source is a file", func(t *testing.T) {
		_, err := NewPublisher(testConfig(t), marker, out, Options{}, testLogger()).Run(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, utils.ErrSourceNotFound)
	})

	t.Run("missing manifest", func(t *testing.T) {
		_, err := NewPublisher(testConfig(t), introSource(t), out, Options{UseManifest: true}, testLogger()).Run(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, utils.ErrManifestNotFound)
		assert.FileExists(t, marker)
	})

	t.Run("unknown component", func(t *testing.T) {
		src := t.TempDir()
		writeTree(t, src, map[string]string{"01-intro/setup.md": "x", "mystery/page.md": "x"})
		_, err := NewPublisher(testConfig(t), src, out, Options{}, testLogger()).Run(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, utils.ErrUnknownComponent)
		assert.FileExists(t, marker)
		assert.NoFileExists(t, filepath.Join(out, "01-intro", "setup.html"))
		assert.NoFileExists(t, filepath.Join(out, "mystery", "page.html"))
	})

	t.Run("cancelled before start", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := NewPublisher(testConfig(t), introSource(t), out, Options{}, testLogger()).Run(ctx)
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
		assert.FileExists(t, marker)
	})
}

func TestRun_RefusesToDeleteSource(t *testing.T) {
	src := introSource(t)

	_, err := NewPublisher(testConfig(t), src, src, Options{}, testLogger()).Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, utils.ErrUsage)

	_, err = NewPublisher(testConfig(t), src, filepath.Dir(src), Options{}, testLogger()).Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, utils.ErrUsage)
	assert.DirExists(t, src)
}

func TestRun_PublishDirInsideSource(t *testing.T) {
	src := introSource(t)
	out := filepath.Join(src, "_site")

	for i := 0; i < 2; i++ {
		_, err := NewPublisher(testConfig(t), src, out, Options{}, testLogger()).Run(context.Background())
		require.NoError(t, err)
	}
	data, err := os.ReadFile(filepath.Join(out, "toc.json"))
	require.NoError(t, err)
	assert.Equal(t, introTOC, string(data))
}

func TestRun_PublishDirInsideComponent(t *testing.T) {
	src := introSource(t)
	out := filepath.Join(src, "01-intro", "_site")

	for i := 0; i < 2; i++ {
		_, err := NewPublisher(testConfig(t), src, out, Options{}, testLogger()).Run(context.Background())
		require.NoError(t, err)
	}
	data, err := os.ReadFile(filepath.Join(out, "toc.json"))
	require.NoError(t, err)
	assert.Equal(t, introTOC, string(data))
	assert.FileExists(t, filepath.Join(out, "01-intro", "02-setup.html"))
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewPublisher(testConfig(t), introSource(t), t.TempDir(), Options{}, testLogger()).Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_Manifest(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{
		"nav-menu.yaml": "- name: Setup\n  page: intro/setup.md\n  items:\n    - name: Install\n      page_ref: install\n",
		"intro/setup.md": "## Install\n",
	})
	out := filepath.Join(t.TempDir(), "publish")

	cfg := testConfig(t, func(c *config.AppConfig) { c.VerifyManifestLinks = true })
	_, err := NewPublisher(cfg, src, out, Options{UseManifest: true}, testLogger()).Run(context.Background())
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(out, "toc.json"))
	require.NoError(t, err)
	assert.Equal(t,
		`[{"title":"Setup","link":"intro/setup.html","linkMatchMode":"Exact","position":0,"children":[`+
			`{"title":"Install","link":"#install","linkMatchMode":"Exact","position":0,"visible":true,"enabled":true}`+
			`],"visible":true,"enabled":true}]`+"\n",
		string(data))
	assert.NoFileExists(t, filepath.Join(out, "nav-menu.yaml"))

	t.Run("broken link", func(t *testing.T) {
		writeTree(t, src, map[string]string{"nav-menu.yaml": "- name: Gone\n  page: intro/gone.md\n"})
		_, err := NewPublisher(cfg, src, out, Options{UseManifest: true}, testLogger()).Run(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, utils.ErrBrokenMenuLink)
	})
}

func TestRun_SideOutputs(t *testing.T) {
	src := introSource(t)
	out := filepath.Join(t.TempDir(), "publish")
	cfg := testConfig(t, func(c *config.AppConfig) {
		c.EnableOutputMapping = true
		c.EnableMetadataYAML = true
		c.WriteStructureFile = true
	})

	summary, err := NewPublisher(cfg, src, out, Options{}, testLogger()).Run(context.Background())
	require.NoError(t, err)

	mapping, err := os.ReadFile(filepath.Join(out, "source_to_output_map.tsv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(mapping)), "\n")
	assert.Len(t, lines, 3)
	assert.Contains(t, string(mapping), "01-intro/02-setup.md\t"+filepath.Join(out, "01-intro", "02-setup.html"))

	raw, err := os.ReadFile(filepath.Join(out, "build_metadata.yaml"))
	require.NoError(t, err)
	var meta models.BuildMetadata
	require.NoError(t, yaml.Unmarshal(raw, &meta))
	assert.Equal(t, summary.BuildID, meta.BuildID)
	assert.Equal(t, 2, meta.TotalPages)
	assert.Equal(t, 1, meta.TotalAssets)
	require.Len(t, meta.Pages, 2)

	var setup *models.PageMetadata
	for i := range meta.Pages {
		if meta.Pages[i].SourcePath == "01-intro/02-setup.md" {
			setup = &meta.Pages[i]
		}
	}
	require.NotNil(t, setup)
	assert.Equal(t, "01-intro/02-setup.html", setup.OutputPath)
	assert.Equal(t, "/docs/01-intro/02-setup", setup.Link)
	assert.Equal(t, "Setup", setup.Title)
	assert.Equal(t, 2, setup.HeadingCount)
	assert.NotEmpty(t, setup.ContentHash)

	structure, err := os.ReadFile(filepath.Join(out, "structure.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(structure), "02-setup.html")
	assert.Contains(t, string(structure), "toc.json")
}

func TestRun_RenderCache(t *testing.T) {
	src := introSource(t)
	out := filepath.Join(t.TempDir(), "publish")
	cfg := testConfig(t)

	cache, err := storage.NewBadgerStore(context.Background(), t.TempDir(), false, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })

	first, err := NewPublisher(cfg, src, out, Options{Cache: cache}, testLogger()).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, first.CacheHits)
	firstTOC, err := os.ReadFile(first.TOCPath)
	require.NoError(t, err)

	second, err := NewPublisher(cfg, src, out, Options{Cache: cache}, testLogger()).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, second.CacheHits)
	secondTOC, err := os.ReadFile(second.TOCPath)
	require.NoError(t, err)
	assert.Equal(t, firstTOC, secondTOC)

	// Removing a page prunes its cache entry
	require.NoError(t, os.Remove(filepath.Join(src, "01-intro", "01-overview.md")))
	_, err = NewPublisher(cfg, src, out, Options{Cache: cache}, testLogger()).Run(context.Background())
	require.NoError(t, err)
	count, err := cache.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
