package toc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steeltoeoss/parsemd/pkg/config"
	"github.com/steeltoeoss/parsemd/pkg/models"
	"github.com/steeltoeoss/parsemd/pkg/process"
	"github.com/steeltoeoss/parsemd/pkg/utils"
)

func TestParsePosition(t *testing.T) {
	b := NewBuilder(testConfig(t))

	tests := []struct {
		name    string
		counter int
		want    int
	}{
		{"02-getting-started", 9, 2},
		{"getting-started", 9, 9},
		{"10-advanced", 0, 10},
		{"42", 3, 42},
		{"v2-notes", 4, 4},
		{"-leading", 5, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, b.ParsePosition(tt.name, tt.counter))
		})
	}
}

func TestBuildFile(t *testing.T) {
	b := NewBuilder(testConfig(t))

	t.Run("numeric prefix", func(t *testing.T) {
		node := b.BuildFile("/docs/intro", "02-getting-started.md", 7, false)
		require.NotNil(t, node)
		assert.Equal(t, 2, node.Position)
		assert.Equal(t, "Getting Started", node.Title)
		assert.Equal(t, "/docs/intro/02-getting-started", node.Link)
		assert.Equal(t, models.LinkMatchExact, node.LinkMatchMode)
		assert.True(t, node.Visible)
		assert.True(t, node.Enabled)
		assert.True(t, node.IsLeaf())
	})

	t.Run("traversal counter", func(t *testing.T) {
		node := b.BuildFile("/docs/intro", "getting-started.md", 7, false)
		require.NotNil(t, node)
		assert.Equal(t, 7, node.Position)
		assert.Equal(t, "Getting Started", node.Title)
	})

	t.Run("casing normalized", func(t *testing.T) {
		node := b.BuildFile("/docs", "USING-the-API.md", 0, false)
		require.NotNil(t, node)
		assert.Equal(t, "Using The Api", node.Title)
	})

	t.Run("directory keys dropped from title", func(t *testing.T) {
		node := b.BuildFile("/docs/connectors", "01-connectors-mysql.md", 0, false)
		require.NotNil(t, node)
		assert.Equal(t, "Mysql", node.Title)
	})

	t.Run("title falls back when every word is a key", func(t *testing.T) {
		node := b.BuildFile("/docs/configuration", "configuration.md", 0, false)
		require.NotNil(t, node)
		assert.Equal(t, "Configuration", node.Title)
	})

	t.Run("link is escaped", func(t *testing.T) {
		node := b.BuildFile("/docs/intro", "what is new.md", 0, false)
		require.NotNil(t, node)
		assert.Equal(t, "/docs/intro/what%20is%20new", node.Link)
	})

	t.Run("root page gets published extension", func(t *testing.T) {
		node := b.BuildFile("/docs", "01-welcome.md", 0, true)
		require.NotNil(t, node)
		assert.Equal(t, "/docs/01-welcome.html", node.Link)
	})
}

func TestBuildFile_OverviewSuppressed(t *testing.T) {
	b := NewBuilder(testConfig(t))
	for _, name := range []string{"overview.md", "Overview.md", "OVERVIEW.MD", "01-overview.md"} {
		t.Run(name, func(t *testing.T) {
			assert.Nil(t, b.BuildFile("/docs/intro", name, 0, false))
		})
	}
	assert.NotNil(t, b.BuildFile("/docs/intro", "overview-of-things.md", 0, false))
}

func TestBuildDirectory(t *testing.T) {
	t.Run("known key with prefix", func(t *testing.T) {
		b := NewBuilder(testConfig(t))
		node, err := b.BuildDirectory("01-intro", 5)
		require.NoError(t, err)
		assert.Equal(t, "Intro", node.Title)
		assert.Equal(t, "/docs/01-intro", node.Link)
		assert.Equal(t, 1, node.Position)
		assert.Equal(t, models.LinkMatchExact, node.LinkMatchMode)
	})

	t.Run("key lookup is case-insensitive", func(t *testing.T) {
		b := NewBuilder(testConfig(t))
		node, err := b.BuildDirectory("Configuration", 3)
		require.NoError(t, err)
		assert.Equal(t, "Application Configuration", node.Title)
		assert.Equal(t, 3, node.Position)
		assert.Equal(t, "/docs/Configuration", node.Link)
	})

	t.Run("unknown key fails", func(t *testing.T) {
		b := NewBuilder(testConfig(t))
		_, err := b.BuildDirectory("02-mystery", 0)
		require.Error(t, err)
		assert.ErrorIs(t, err, utils.ErrUnknownComponent)
		assert.Contains(t, err.Error(), "mystery")
	})

	t.Run("unknown key inferred", func(t *testing.T) {
		b := NewBuilder(testConfig(t, func(c *config.AppConfig) { c.InferUnknownTitles = true }))
		node, err := b.BuildDirectory("02-service-mesh", 0)
		require.NoError(t, err)
		assert.Equal(t, "Service Mesh", node.Title)
		assert.Equal(t, 2, node.Position)
	})

	t.Run("custom docs root", func(t *testing.T) {
		b := NewBuilder(testConfig(t, func(c *config.AppConfig) { c.DocsRoot = "guides/" }))
		node, err := b.BuildDirectory("intro", 0)
		require.NoError(t, err)
		assert.Equal(t, "/guides/intro", node.Link)
	})
}

func TestBuildHeading(t *testing.T) {
	b := NewBuilder(testConfig(t))

	node := b.BuildHeading(process.Heading{Level: 2, ID: "install", Text: "Install"}, 3)
	require.NotNil(t, node)
	assert.Equal(t, "Install", node.Title)
	assert.Equal(t, "#install", node.Link)
	assert.Equal(t, 3, node.Position)
	assert.Equal(t, models.LinkMatchPrefix, node.LinkMatchMode)
	assert.True(t, node.IsLeaf())

	for _, text := range []string{"Overview", "overview", " OVERVIEW "} {
		assert.Nil(t, b.BuildHeading(process.Heading{Level: 2, ID: "overview", Text: text}, 0), text)
	}

	exact := NewBuilder(testConfig(t, func(c *config.AppConfig) { c.HeadingMatchMode = "exact" }))
	assert.Equal(t, models.LinkMatchExact, exact.BuildHeading(process.Heading{ID: "a", Text: "A"}, 0).LinkMatchMode)
}

func TestBuildPage(t *testing.T) {
	b := NewBuilder(testConfig(t))
	install := process.Heading{Level: 2, ID: "install", Text: "Install"}
	configure := process.Heading{Level: 2, ID: "configure", Text: "Configure"}
	overview := process.Heading{Level: 2, ID: "overview", Text: "Overview"}

	t.Run("single heading is a leaf", func(t *testing.T) {
		node := b.BuildPage("/docs/intro", "setup.md", 0, false, &process.PageResult{Headings: []process.Heading{install}})
		require.NotNil(t, node)
		assert.Empty(t, node.Children)
	})

	t.Run("two headings make a submenu in document order", func(t *testing.T) {
		node := b.BuildPage("/docs/intro", "setup.md", 0, false, &process.PageResult{Headings: []process.Heading{install, configure}})
		require.NotNil(t, node)
		require.Len(t, node.Children, 2)
		assert.Equal(t, "#install", node.Children[0].Link)
		assert.Equal(t, "#configure", node.Children[1].Link)
	})

	t.Run("reserved heading omitted", func(t *testing.T) {
		node := b.BuildPage("/docs/intro", "setup.md", 0, false,
			&process.PageResult{Headings: []process.Heading{overview, install, configure}})
		require.NotNil(t, node)
		require.Len(t, node.Children, 2)
		assert.Equal(t, "Install", node.Children[0].Title)
		assert.Equal(t, 1, node.Children[0].Position)
		assert.Equal(t, "Configure", node.Children[1].Title)
	})

	t.Run("reserved heading does not count toward a submenu", func(t *testing.T) {
		node := b.BuildPage("/docs/intro", "setup.md", 0, false,
			&process.PageResult{Headings: []process.Heading{overview, install}})
		require.NotNil(t, node)
		assert.Empty(t, node.Children)
	})

	t.Run("front matter overrides", func(t *testing.T) {
		pos := 12
		page := &process.PageResult{FrontMatter: process.FrontMatter{Title: "Set It Up", Position: &pos}}
		node := b.BuildPage("/docs/intro", "03-setup.md", 0, false, page)
		require.NotNil(t, node)
		assert.Equal(t, "Set It Up", node.Title)
		assert.Equal(t, 12, node.Position)
		assert.Equal(t, "/docs/intro/03-setup", node.Link)
	})

	t.Run("overview suppressed regardless of content", func(t *testing.T) {
		node := b.BuildPage("/docs/intro", "overview.md", 0, false, &process.PageResult{Headings: []process.Heading{install, configure}})
		assert.Nil(t, node)
	})

	t.Run("nil page", func(t *testing.T) {
		node := b.BuildPage("/docs/intro", "setup.md", 4, false, nil)
		require.NotNil(t, node)
		assert.Equal(t, 4, node.Position)
	})
}

func TestCheckLayout(t *testing.T) {
	b := NewBuilder(testConfig(t))

	t.Run("known components", func(t *testing.T) {
		layout := &Layout{Components: []Component{
			{Entry: Entry{Name: "01-intro", Path: "01-intro"}},
			{Entry: Entry{Name: "connectors", Path: "connectors", Index: 1}},
		}}
		assert.NoError(t, b.CheckLayout(layout))
	})

	t.Run("every unknown component is reported", func(t *testing.T) {
		layout := &Layout{Components: []Component{
			{Entry: Entry{Name: "01-mystery", Path: "01-mystery"}},
			{Entry: Entry{Name: "02-intro", Path: "02-intro", Index: 1}},
			{Entry: Entry{Name: "03-unknown", Path: "03-unknown", Index: 2}},
		}}
		err := b.CheckLayout(layout)
		require.ErrorIs(t, err, utils.ErrUnknownComponent)
		assert.Contains(t, err.Error(), "01-mystery")
		assert.Contains(t, err.Error(), "03-unknown")
		assert.NotContains(t, err.Error(), "02-intro")
	})

	t.Run("inferred titles never fail", func(t *testing.T) {
		infer := NewBuilder(testConfig(t, func(c *config.AppConfig) { c.InferUnknownTitles = true }))
		layout := &Layout{Components: []Component{{Entry: Entry{Name: "01-mystery", Path: "01-mystery"}}}}
		assert.NoError(t, infer.CheckLayout(layout))
	})
}
