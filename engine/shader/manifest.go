package shader

import (
	"fmt"
	"io/fs"

	"github.com/Carmen-Shannon/oxy-perf/engine/binding"
	"gopkg.in/yaml.v3"
)

// Manifest lists the programs a benchmark library loads from a file system.
type Manifest struct {
	Programs []ManifestProgram `yaml:"programs"`
}

// ManifestProgram names one program and the WGSL file it is compiled from. Layout is optional and
// replaces the layout derived from the source when present.
type ManifestProgram struct {
	Name   string          `yaml:"name"`
	Source string          `yaml:"source"`
	Layout *ManifestLayout `yaml:"layout,omitempty"`
}

// ManifestLayout is the YAML form of a binding.ProgramLayout.
type ManifestLayout struct {
	Parameters []ManifestParameter `yaml:"parameters"`
}

// ManifestParameter is one top-level entry of a manifest layout. Kind is "direct" or "group".
type ManifestParameter struct {
	Kind     string          `yaml:"kind"`
	Category string          `yaml:"category,omitempty"`
	Register int             `yaml:"register,omitempty"`
	Ranges   []ManifestRange `yaml:"ranges,omitempty"`
}

// ManifestRange is one range of a group parameter. A missing offset continues the running offset.
type ManifestRange struct {
	Category     string `yaml:"category"`
	BaseRegister int    `yaml:"base_register"`
	Count        int    `yaml:"count"`
	Offset       *int   `yaml:"offset,omitempty"`
}

// LoadManifest reads and decodes a YAML program manifest.
//
// Parameters:
//   - fsys: the file system holding the manifest and the WGSL sources it names
//   - path: the manifest path within fsys
//
// Returns:
//   - *Manifest: the decoded manifest
//   - error: an error if the file cannot be read or decoded, or a program entry is incomplete
func LoadManifest(fsys fs.FS, path string) (*Manifest, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode manifest %s: %w", path, err)
	}

	seen := make(map[string]bool, len(m.Programs))
	for i, p := range m.Programs {
		if p.Name == "" || p.Source == "" {
			return nil, fmt.Errorf("%w: manifest %s: program %d needs a name and a source", ErrInvalidProgram, path, i)
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("%w: manifest %s: duplicate program %q", ErrInvalidProgram, path, p.Name)
		}
		seen[p.Name] = true
	}
	return &m, nil
}

// ProgramLayout converts the manifest layout into a binding.ProgramLayout.
//
// Returns:
//   - binding.ProgramLayout: the converted layout
//   - error: an error wrapping binding.ErrInvalidLayout for unknown kinds or categories
func (l *ManifestLayout) ProgramLayout() (binding.ProgramLayout, error) {
	layout := binding.ProgramLayout{Parameters: make([]binding.Parameter, 0, len(l.Parameters))}
	for i, mp := range l.Parameters {
		switch mp.Kind {
		case "direct":
			c, err := binding.ParseCategory(mp.Category)
			if err != nil {
				return binding.ProgramLayout{}, fmt.Errorf("parameter %d: %w", i, err)
			}
			layout.Parameters = append(layout.Parameters, binding.Direct(c, mp.Register))
		case "group":
			ranges := make([]binding.Range, 0, len(mp.Ranges))
			for j, mr := range mp.Ranges {
				c, err := binding.ParseCategory(mr.Category)
				if err != nil {
					return binding.ProgramLayout{}, fmt.Errorf("parameter %d range %d: %w", i, j, err)
				}
				offset := binding.Append
				if mr.Offset != nil {
					offset = *mr.Offset
				}
				ranges = append(ranges, binding.Range{
					Category:     c,
					BaseRegister: mr.BaseRegister,
					Count:        mr.Count,
					Offset:       offset,
				})
			}
			layout.Parameters = append(layout.Parameters, binding.Group(ranges...))
		default:
			return binding.ProgramLayout{}, fmt.Errorf("%w: parameter %d has unknown kind %q", binding.ErrInvalidLayout, i, mp.Kind)
		}
	}
	return layout, nil
}
