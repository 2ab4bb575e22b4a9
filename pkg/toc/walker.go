package toc

import (
	"fmt"
	"io/fs"
	"path"
	"regexp"

	"github.com/sirupsen/logrus"

	"github.com/steeltoeoss/parsemd/pkg/utils"
)

// Entry is one file or directory found by Walk
type Entry struct {
	Name  string // Base name
	Path  string // Slash path relative to the source root
	Index int    // 0-based position in the parent's enumeration
}

// Component is a top-level directory with its immediate files
type Component struct {
	Entry
	Files []Entry
}

// Layout is the two-level structure of a documentation root
type Layout struct {
	RootFiles  []Entry
	Components []Component
}

// FileCount returns the number of files in the layout
func (l *Layout) FileCount() int {
	n := len(l.RootFiles)
	for _, c := range l.Components {
		n += len(c.Files)
	}
	return n
}

// Walk enumerates the root files and component directories of fsys, each
// component expanded to its immediate files. Entries keep the enumeration
// order of fsys. Names matching any ignore pattern are skipped, as are the
// entries whose slash path relative to the root is listed in exclude.
// Directories below a component directory are not descended into.
func Walk(fsys fs.FS, ignore []*regexp.Regexp, log *logrus.Entry, exclude ...string) (*Layout, error) {
	info, err := fs.Stat(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", utils.ErrSourceNotFound, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: source root is not a directory", utils.ErrSourceNotFound)
	}

	excluded := make(map[string]struct{}, len(exclude))
	for _, p := range exclude {
		excluded[path.Clean(p)] = struct{}{}
	}

	rootEntries, err := readDir(fsys, ".", ignore, excluded, log)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", utils.ErrSourceNotFound, err)
	}

	layout := &Layout{}
	for i, de := range rootEntries {
		e := Entry{Name: de.Name(), Path: de.Name(), Index: i}
		if !de.IsDir() {
			layout.RootFiles = append(layout.RootFiles, e)
			continue
		}

		children, err := readDir(fsys, e.Path, ignore, excluded, log)
		if err != nil {
			return nil, fmt.Errorf("%w: reading component directory '%s': %w", utils.ErrFilesystem, e.Path, err)
		}
		comp := Component{Entry: e}
		for j, child := range children {
			if child.IsDir() {
				log.Debugf("Ignoring nested directory '%s'", path.Join(e.Path, child.Name()))
				continue
			}
			comp.Files = append(comp.Files, Entry{Name: child.Name(), Path: path.Join(e.Path, child.Name()), Index: j})
		}
		layout.Components = append(layout.Components, comp)
	}

	log.Debugf("Walked source root: %d root files, %d components, %d files total",
		len(layout.RootFiles), len(layout.Components), layout.FileCount())
	return layout, nil
}

// readDir lists dir and drops ignored names and excluded paths; the
// enumeration order of fsys is kept.
func readDir(fsys fs.FS, dir string, ignore []*regexp.Regexp, excluded map[string]struct{}, log *logrus.Entry) ([]fs.DirEntry, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}
	kept := entries[:0:0]
	for _, de := range entries {
		rel := path.Join(dir, de.Name())
		if _, skip := excluded[rel]; skip {
			log.Debugf("Excluding '%s'", rel)
			continue
		}
		if utils.MatchesAny(ignore, de.Name()) {
			log.Debugf("Ignoring '%s' (matches ignore pattern)", rel)
			continue
		}
		kept = append(kept, de)
	}
	return kept, nil
}
