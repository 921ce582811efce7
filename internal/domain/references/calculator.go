// Package references computes which project files a file mentions.
//
// The calculator indexes the project tree with fastwalk, skipping directories
// and files matched by doublestar exclude globs, then scans the (size capped)
// contents of the file for the base names and relative paths of indexed files.
package references

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/GriffinCanCode/fileprediction/internal/domain/project"
	"github.com/GriffinCanCode/fileprediction/internal/shared/types"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"
)

// Defaults
var DefaultExclude = []string{"**/.git/**", "**/node_modules/**", "**/vendor/**"}

const DefaultMaxFileSize int64 = 1 << 20

// minNameLen drops names short enough to match by accident
const minNameLen = 3

// ErrNoBasePath is returned for projects without a directory on disk
var ErrNoBasePath = errors.New("project has no base path")

// Config configures a Calculator
type Config struct {
	Exclude     []string
	MaxFileSize int64
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Exclude:     append([]string(nil), DefaultExclude...),
		MaxFileSize: DefaultMaxFileSize,
	}
}

// Calculator finds external references of a file
type Calculator struct {
	exclude     []string
	maxFileSize int64
}

// New validates the exclude globs and creates a calculator
func New(cfg Config) (*Calculator, error) {
	for _, pattern := range cfg.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid exclude pattern %q", pattern)
		}
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = DefaultMaxFileSize
	}
	return &Calculator{exclude: cfg.Exclude, maxFileSize: cfg.MaxFileSize}, nil
}

// CalculateExternalReferences returns the project files mentioned by file.
// No file yields an empty set.
func (c *Calculator) CalculateExternalReferences(ctx context.Context, p *project.Project, file types.Option[types.File]) (types.ReferencesResult, error) {
	start := time.Now()

	f, ok := file.Get()
	if !ok || f.IsZero() {
		return types.ReferencesResult{Value: types.NewReferences(), Duration: time.Since(start)}, nil
	}
	if p.BasePath == "" {
		return types.ReferencesResult{}, ErrNoBasePath
	}

	self := p.Resolve(f.Path)
	content, err := c.read(self)
	if err != nil {
		return types.ReferencesResult{}, err
	}

	files, err := c.Index(ctx, p)
	if err != nil {
		return types.ReferencesResult{}, err
	}

	var urls []string
	for _, path := range files {
		if path == self {
			continue
		}
		if mentions(content, p.Rel(path), filepath.Base(path)) {
			urls = append(urls, types.NewFile(path).URL())
		}
	}

	return types.ReferencesResult{Value: types.NewReferences(urls...), Duration: time.Since(start)}, nil
}

// Index lists the non-excluded regular files of the project as absolute paths
func (c *Calculator) Index(ctx context.Context, p *project.Project) ([]string, error) {
	if p.BasePath == "" {
		return nil, ErrNoBasePath
	}

	var (
		mu    sync.Mutex
		files []string
	)
	conf := fastwalk.Config{Follow: false}

	err := fastwalk.Walk(&conf, p.BasePath, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			return nil
		}

		rel, relErr := filepath.Rel(p.BasePath, path)
		if relErr != nil || rel == "." {
			return nil
		}
		if c.excluded(filepath.ToSlash(rel)) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		mu.Lock()
		files = append(files, filepath.Clean(path))
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to index project: %w", err)
	}
	return files, nil
}

func (c *Calculator) excluded(rel string) bool {
	for _, pattern := range c.exclude {
		if doublestar.MatchUnvalidated(pattern, rel) || doublestar.MatchUnvalidated(pattern, rel+"/") {
			return true
		}
	}
	return false
}

func (c *Calculator) read(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, c.maxFileSize))
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

func mentions(content, rel, base string) bool {
	if slash := filepath.ToSlash(rel); strings.Contains(slash, "/") && strings.Contains(content, slash) {
		return true
	}
	return len(base) >= minNameLen && strings.Contains(content, base)
}
