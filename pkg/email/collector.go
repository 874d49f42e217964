// Package email finds mail files under a user's profile inside a mounted
// partition and decodes their headers and plain-text body.
package email

import (
	"context"
	"encoding/hex"
	"iter"
	"log/slog"
	"path"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/joshuapare/samkit/internal/logger"
	"github.com/joshuapare/samkit/pkg/evidence"
)

// DefaultExtension marks Windows Mail message files.
const DefaultExtension = ".eml"

// DefaultProfileTemplate is the Windows Mail store under a user profile.
const DefaultProfileTemplate = "/Users/{username}/AppData/Local/Microsoft/Windows Mail/Local Folders"

// ProfileMailDir substitutes username into template.
func ProfileMailDir(template, username string) string {
	return strings.ReplaceAll(template, "{username}", username)
}

// Source is a mounted partition. *evidence.Session implements it.
type Source interface {
	List(p string) ([]evidence.DirEntry, error)
	ReadFile(p string) ([]byte, error)
}

// Artifact is one parsed mail file.
type Artifact struct {
	Message
	SourcePath string `json:"source_path"`
	Size       int    `json:"size"`
	BLAKE3     string `json:"blake3"`
}

// Options configures a Collector.
type Options struct {
	// Extension is the file name suffix to collect. Defaults to ".eml".
	Extension string
	// CaseInsensitive also matches ".EML", ".Eml" and so on.
	CaseInsensitive bool
	Logger          *slog.Logger
}

// Collector enumerates and parses mail files.
type Collector struct {
	ext  string
	fold bool
	log  *slog.Logger
}

// NewCollector returns a collector for opts.
func NewCollector(opts Options) *Collector {
	ext := opts.Extension
	if ext == "" {
		ext = DefaultExtension
	}
	return &Collector{ext: ext, fold: opts.CaseInsensitive, log: logger.Or(opts.Logger)}
}

func (c *Collector) matches(name string) bool {
	if c.fold {
		return len(name) >= len(c.ext) && strings.EqualFold(name[len(name)-len(c.ext):], c.ext)
	}
	return strings.HasSuffix(name, c.ext)
}

// Walk bounds. A corrupt directory index can list an ancestor as a child,
// so neither depth nor the number of directories listed is left to the
// filesystem.
const (
	maxWalkDepth = 64
	maxWalkDirs  = 1 << 16
)

// Walk yields the path of every matching file under root, depth-first in
// listing order. Each range over the sequence walks afresh. A root that
// cannot be listed yields its error and ends the walk; unlistable
// subdirectories, and those past the depth or directory limits, are
// skipped.
func (c *Collector) Walk(src Source, root string) iter.Seq2[string, error] {
	root = evidence.CleanPath(root)
	return func(yield func(string, error) bool) {
		entries, err := src.List(root)
		if err != nil {
			yield("", err)
			return
		}
		w := &walker{c: c, src: src, yield: yield, dirs: 1}
		w.walk(root, entries, 0)
	}
}

// walker holds the state of one range over Walk's sequence.
type walker struct {
	c     *Collector
	src   Source
	yield func(string, error) bool
	dirs  int
}

func (w *walker) walk(dir string, entries []evidence.DirEntry, depth int) bool {
	for _, e := range entries {
		p := path.Join(dir, e.Name)
		if !e.IsDir {
			if w.c.matches(e.Name) && !w.yield(p, nil) {
				return false
			}
			continue
		}
		if depth+1 > maxWalkDepth || w.dirs >= maxWalkDirs {
			w.c.log.Debug("skipping directory past walk limits", "path", p, "depth", depth+1, "listed", w.dirs)
			continue
		}
		w.dirs++
		sub, err := w.src.List(p)
		if err != nil {
			w.c.log.Debug("skipping unlistable directory", "path", p, "error", err)
			continue
		}
		if !w.walk(p, sub, depth+1) {
			return false
		}
	}
	return true
}

// Collect returns every path Walk yields.
func (c *Collector) Collect(src Source, root string) ([]string, error) {
	paths := []string{}
	for p, err := range c.Walk(src, root) {
		if err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// ReadAndParse reads and parses each path. Files that cannot be read or
// parsed are left out of the result. The only error is ctx's.
func (c *Collector) ReadAndParse(ctx context.Context, src Source, paths []string) ([]Artifact, error) {
	out := []Artifact{}
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raw, err := src.ReadFile(p)
		if err != nil {
			c.log.Debug("skipping unreadable mail file", "path", p, "error", err)
			continue
		}
		msg, err := ParseMessage(raw)
		if err != nil {
			c.log.Debug("skipping unparsable mail file", "path", p, "error", err)
			continue
		}
		sum := blake3.Sum256(raw)
		out = append(out, Artifact{Message: msg, SourcePath: p, Size: len(raw), BLAKE3: hex.EncodeToString(sum[:])})
	}
	return out, nil
}

// CollectUser parses every mail file in username's profile mail store.
func (c *Collector) CollectUser(ctx context.Context, src Source, template, username string) ([]Artifact, error) {
	paths, err := c.Collect(src, ProfileMailDir(template, username))
	if err != nil {
		return nil, err
	}
	return c.ReadAndParse(ctx, src, paths)
}
