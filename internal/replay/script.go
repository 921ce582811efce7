package replay

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
)

// Actions a script step can perform
const (
	ActionSelect = "select"
	ActionOpen   = "open"
	ActionClose  = "close"
)

// Script formats
const (
	FormatYAML = "yaml"
	FormatTOML = "toml"
)

var (
	ErrUnknownFormat = errors.New("unknown script format")
	ErrInvalidScript = errors.New("invalid script")
)

// Script is a recorded editor session
type Script struct {
	Project ProjectSpec `yaml:"project" toml:"project"`
	Seed    *uint64     `yaml:"seed,omitempty" toml:"seed,omitempty"`
	Draws   []float64   `yaml:"draws,omitempty" toml:"draws,omitempty"`
	Events  []Step      `yaml:"events" toml:"events"`
}

// ProjectSpec describes the project the script runs against
type ProjectSpec struct {
	Name  string `yaml:"name" toml:"name"`
	Path  string `yaml:"path" toml:"path"`
	Light bool   `yaml:"light,omitempty" toml:"light,omitempty"`
}

// Step is one editor notification.
// Prev on a select step defaults to the file of the preceding select.
type Step struct {
	Action string `yaml:"action" toml:"action"`
	File   string `yaml:"file" toml:"file"`
	Prev   string `yaml:"prev,omitempty" toml:"prev,omitempty"`
}

// FormatOf picks the script format from a file name
func FormatOf(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, filepath.Ext(path))
	}
}

// Parse decodes and validates a script
func Parse(data []byte, format string) (*Script, error) {
	var s Script
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &s)
	case FormatTOML:
		err = toml.Unmarshal(data, &s)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s script: %w", format, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Load reads a script file. A relative project path is resolved against
// the directory of the script.
func Load(path string) (*Script, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	s, err := Parse(data, format)
	if err != nil {
		return nil, err
	}
	if s.Project.Path != "" && !filepath.IsAbs(s.Project.Path) {
		s.Project.Path = filepath.Join(filepath.Dir(path), s.Project.Path)
	}
	return s, nil
}

// Validate checks that every step can be replayed
func (s *Script) Validate() error {
	var errs []error
	if s.Project.Name == "" {
		errs = append(errs, errors.New("project.name is required"))
	}
	if s.Project.Path == "" && !s.Project.Light {
		errs = append(errs, errors.New("project.path is required unless the project is light"))
	}
	if s.Seed != nil && len(s.Draws) > 0 {
		errs = append(errs, errors.New("seed and draws are mutually exclusive"))
	}
	for i, d := range s.Draws {
		if d < 0 || d >= 1 {
			errs = append(errs, fmt.Errorf("draws[%d]: %v outside [0,1)", i, d))
		}
	}
	for i, step := range s.Events {
		switch step.Action {
		case ActionSelect, ActionOpen, ActionClose:
		default:
			errs = append(errs, fmt.Errorf("events[%d]: unknown action %q", i, step.Action))
		}
		if step.File == "" {
			errs = append(errs, fmt.Errorf("events[%d]: file is required", i))
		}
		if step.Prev != "" && step.Action != ActionSelect {
			errs = append(errs, fmt.Errorf("events[%d]: prev only applies to select", i))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidScript, err)
	}
	return nil
}
