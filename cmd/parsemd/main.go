package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/steeltoeoss/parsemd/pkg/config"
	"github.com/steeltoeoss/parsemd/pkg/publish"
	"github.com/steeltoeoss/parsemd/pkg/redirect"
	"github.com/steeltoeoss/parsemd/pkg/storage"
	"github.com/steeltoeoss/parsemd/pkg/utils"
)

const version = "1.0.0"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run dispatches subcommands and returns the process exit code.
// Anything that is not a known subcommand is treated as a build invocation.
func run(args []string, stdout, stderr io.Writer) int {
	if len(args) > 0 {
		switch args[0] {
		case "validate":
			return runValidate(args[1:], stdout, stderr)
		case "rewrite-url":
			return runRewriteURL(args[1:], stdout, stderr)
		case "version":
			fmt.Fprintf(stdout, "parsemd %s\n", version)
			return 0
		case "-h", "--help", "help":
			printUsageTo(stdout)
			return 0
		}
	}
	return runBuild(args, stdout, stderr)
}

// printUsageTo writes usage information to the provided writer.
func printUsageTo(w io.Writer) {
	fmt.Fprintln(w, `parsemd - Markdown documentation publisher

Usage:
  parsemd [options] <source-dir> <publish-dir>
  parsemd <command> [options]

Commands:
  validate     Validate configuration file
  rewrite-url  Show where the docs redirect sends a legacy URL
  version      Show version info

Run 'parsemd -h' for build options.`)
}

// loadConfig loads the config file, or returns an empty config when path is empty.
// Component titles from an external file are merged before returning.
func loadConfig(path string) (*config.AppConfig, error) {
	appCfg := &config.AppConfig{}
	if path != "" {
		var err error
		if appCfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}
	if err := appCfg.ApplyComponentTitlesFile(); err != nil {
		return nil, err
	}
	return appCfg, nil
}

// setupLogger creates a configured logrus.Logger writing to w.
func setupLogger(logLevelStr string, w io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(w)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05.000"})
	log.SetLevel(logrus.InfoLevel)

	level, err := logrus.ParseLevel(logLevelStr)
	if err != nil {
		log.Warnf("Invalid log level '%s', using default 'info'. Error: %v", logLevelStr, err)
	} else {
		log.SetLevel(level)
		log.Debugf("Setting log level to: %s", level.String())
	}

	return log
}

// runBuild handles the default publish invocation
func runBuild(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("parsemd", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configFile := fs.String("config", "", "Path to YAML config file (built-in defaults if empty)")
	logLevel := fs.String("loglevel", "info", "Log level (trace, debug, info, warn, error)")
	useManifest := fs.Bool("manifest", false, "Build the menu from the navigation manifest in <source-dir>")
	clearCache := fs.Bool("clear-cache", false, "Drop the render cache before publishing")
	showVersion := fs.Bool("version", false, "Show version info and exit")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: parsemd [options] <source-dir> <publish-dir>\n\nOptions:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  parsemd ./docs ./wwwroot/docs\n")
		fmt.Fprintf(stderr, "  parsemd -config parsemd.yaml -manifest ./docs ./wwwroot/docs\n")
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}

	if *showVersion {
		fmt.Fprintf(stdout, "parsemd %s\n", version)
		return 0
	}

	if fs.NArg() < 2 {
		fmt.Fprintln(stderr, "Error: <source-dir> and <publish-dir> are required")
		fs.Usage()
		return 1
	}
	sourceDir, publishDir := fs.Arg(0), fs.Arg(1)

	log := setupLogger(*logLevel, stderr)

	if *configFile != "" {
		log.Infof("Loading configuration from %s", *configFile)
	}
	appCfg, err := loadConfig(*configFile)
	if err != nil {
		log.WithField("category", utils.CategorizeError(err)).Errorf("Config error: %v", err)
		return 1
	}
	warnings, err := appCfg.Validate()
	for _, w := range warnings {
		log.Warn(w)
	}
	if err != nil {
		log.WithField("category", utils.CategorizeError(err)).Errorf("Config error: %v", err)
		return 1
	}
	logAppConfig(appCfg, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := publish.Options{UseManifest: *useManifest}
	if appCfg.EnableRenderCache {
		store, err := storage.NewBadgerStore(ctx, appCfg.StateDir, *clearCache, log.WithField("component", "storage"))
		if err != nil {
			log.WithField("category", utils.CategorizeError(err)).Warnf("Render cache unavailable, rendering everything: %v", err)
		} else {
			defer store.Close()
			opts.Cache = store
		}
	}

	publisher := publish.NewPublisher(appCfg, sourceDir, publishDir, opts, logrus.NewEntry(log))
	summary, err := publisher.Run(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Warn("Publish cancelled.")
			return 1
		}
		log.WithField("category", utils.CategorizeError(err)).Errorf("Publish failed: %v", err)
		return 1
	}

	log.Infof("Published %d pages and %d assets (%d from cache) in %v",
		summary.Pages, summary.Assets, summary.CacheHits, summary.Duration)
	log.Infof("Table of contents written to %s", summary.TOCPath)
	return 0
}

// runValidate handles the validate subcommand
func runValidate(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configFile := fs.String("config", "config.yaml", "Path to config file")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: parsemd validate [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}

	return doValidate(*configFile, stdout, stderr)
}

// doValidate performs validation and writes output to provided writers.
// Returns exit code (0 = success, 1 = error).
func doValidate(configPath string, stdout, stderr io.Writer) int {
	appCfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	warnings, err := appCfg.Validate()
	for _, w := range warnings {
		fmt.Fprintf(stdout, "WARN: %s\n", w)
	}
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "OK: %d component titles, docs root '%s'\n", len(appCfg.ComponentTitles), appCfg.DocsRoot)
	fmt.Fprintln(stdout, "\nConfiguration valid.")
	return 0
}

// runRewriteURL handles the rewrite-url subcommand
func runRewriteURL(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("rewrite-url", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configFile := fs.String("config", "config.yaml", "Path to config file")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: parsemd rewrite-url [options] <url>\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "Error: exactly one <url> is required")
		fs.Usage()
		return 1
	}

	return doRewriteURL(*configFile, fs.Arg(0), stdout, stderr)
}

// doRewriteURL prints the redirect location for rawURL, or the URL itself when
// the redirect does not apply.
func doRewriteURL(configPath, rawURL string, stdout, stderr io.Writer) int {
	appCfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if _, err := appCfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}

	rw := redirect.New(appCfg.Redirect)
	if !rw.Enabled() {
		fmt.Fprintln(stderr, "Error: redirect.new_host is not configured")
		return 1
	}

	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		fmt.Fprintf(stderr, "Error: '%s' is not an absolute URL\n", rawURL)
		return 1
	}

	location, ok := rw.Rewrite(u.Host, u.Path)
	if !ok {
		fmt.Fprintln(stdout, rawURL)
		return 0
	}
	if u.RawQuery != "" {
		location += "?" + u.RawQuery
	}
	fmt.Fprintln(stdout, location)
	return 0
}

// logAppConfig logs the effective configuration
func logAppConfig(appCfg *config.AppConfig, log *logrus.Logger) {
	log.Debugf("Config: DocsRoot:%s, Overview:%s, ReservedHeading:%s, Separator:%q, HeadingMatch:%s",
		appCfg.DocsRoot, appCfg.OverviewPage, appCfg.ReservedHeading, appCfg.Separator, appCfg.HeadingMatchMode)
	log.Debugf("Config: Components:%d, InferUnknown:%t, IgnorePatterns:%d, TOC:%s, Manifest:%s",
		len(appCfg.ComponentTitles), appCfg.InferUnknownTitles, len(appCfg.IgnorePatterns),
		appCfg.TOCFilename, appCfg.ManifestFilename)
	log.Debugf("Config: RenderCache:%t, StateDir:%s, OutputMapping:%t, MetadataYAML:%t, Structure:%t",
		appCfg.EnableRenderCache, appCfg.StateDir, appCfg.EnableOutputMapping,
		appCfg.EnableMetadataYAML, appCfg.WriteStructureFile)
}
