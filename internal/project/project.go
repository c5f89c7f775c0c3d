// Package project provides job file handling and persistence.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// CurrentVersion is the job file format version written by Save.
const CurrentVersion = 1

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid job file")

// File represents a tourist removal job (.yaml).
type File struct {
	Version  int       `yaml:"version"`
	Name     string    `yaml:"name"`
	Created  time.Time `yaml:"created,omitempty"`
	Modified time.Time `yaml:"modified,omitempty"`

	// Paths are relative to the job file unless absolute.
	Source  string  `yaml:"source"`
	Patches []Patch `yaml:"patches"`
	Output  string  `yaml:"output"`
	Preview string  `yaml:"preview,omitempty"`
}

// Patch replaces a rectangle of the running result with the same region of
// an aligned secondary image.
type Patch struct {
	Secondary int `yaml:"secondary"`
	X         int `yaml:"x"`
	Y         int `yaml:"y"`
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
}

// New creates a new job file.
func New(name, source string) *File {
	now := time.Now()
	return &File{
		Version:  CurrentVersion,
		Name:     name,
		Created:  now,
		Modified: now,
		Source:   source,
	}
}

// Load loads a job from a YAML file and validates it.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var job File
	if err := yaml.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := job.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &job, nil
}

// Save saves the job to a file.
func (p *File) Save(path string) error {
	p.Modified = time.Now()
	if p.Version == 0 {
		p.Version = CurrentVersion
	}

	data, err := yaml.Marshal(p)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the fields the command list depends on.
func (p *File) Validate() error {
	if p.Version != CurrentVersion {
		return fmt.Errorf("version %d not supported: %w", p.Version, ErrInvalid)
	}
	if p.Source == "" {
		return fmt.Errorf("source is required: %w", ErrInvalid)
	}
	if p.Output == "" {
		return fmt.Errorf("output is required: %w", ErrInvalid)
	}
	for i, patch := range p.Patches {
		if patch.Secondary < 0 {
			return fmt.Errorf("patch %d: secondary %d: %w", i, patch.Secondary, ErrInvalid)
		}
		if patch.Width <= 0 || patch.Height <= 0 {
			return fmt.Errorf("patch %d: size %dx%d: %w", i, patch.Width, patch.Height, ErrInvalid)
		}
	}
	return nil
}

// AddPatch appends a patch.
func (p *File) AddPatch(secondary, x, y, width, height int) {
	p.Patches = append(p.Patches, Patch{Secondary: secondary, X: x, Y: y, Width: width, Height: height})
	p.Modified = time.Now()
}

// Resolve returns path made absolute against the job file's directory.
func Resolve(jobPath, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(filepath.Dir(jobPath), path)
}

// Commands converts the job into executor command strings: load the source,
// align each secondary once before its first patch, blend every patch in
// order, save, and optionally write a preview outlining the last patch.
func (p *File) Commands(jobPath string) []string {
	cmds := []string{"--cmd load " + Quote(Resolve(jobPath, p.Source))}

	aligned := make(map[int]bool)
	for _, patch := range p.Patches {
		if !aligned[patch.Secondary] {
			cmds = append(cmds, fmt.Sprintf("--cmd align %d", patch.Secondary))
			aligned[patch.Secondary] = true
		}
		cmds = append(cmds, fmt.Sprintf("--cmd blend %d %d %d %d %d",
			patch.Secondary, patch.X, patch.Y, patch.Width, patch.Height))
	}

	cmds = append(cmds, "--cmd save "+Quote(Resolve(jobPath, p.Output)))
	if p.Preview != "" {
		preview := "--cmd preview " + Quote(Resolve(jobPath, p.Preview))
		if n := len(p.Patches); n > 0 {
			last := p.Patches[n-1]
			preview += fmt.Sprintf(" %d %d %d %d", last.X, last.Y, last.Width, last.Height)
		}
		cmds = append(cmds, preview)
	}
	return cmds
}

var quoter = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// Quote wraps s in double quotes, escaping backslashes and quotes.
func Quote(s string) string {
	return `"` + quoter.Replace(s) + `"`
}
