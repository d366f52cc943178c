// Package config loads the benchmark harness configuration from TOML. Defaults are applied before
// decoding so a file only needs the keys it changes.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/Carmen-Shannon/oxy-perf/engine/descriptor"
	"github.com/Carmen-Shannon/oxy-perf/engine/device"
	"github.com/Carmen-Shannon/oxy-perf/engine/profiler"
	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"
)

// ErrInvalidConfig is wrapped by every error returned for a malformed or out-of-range config.
var ErrInvalidConfig = errors.New("invalid config")

// DefaultCompareTo is the case every result is compared against unless overridden.
const DefaultCompareTo = "Buffer<RGBA8>.Load random"

// Config is the full harness configuration.
type Config struct {
	Device      DeviceConfig      `toml:"device"`
	Descriptors DescriptorsConfig `toml:"descriptors"`
	Profiler    ProfilerConfig    `toml:"profiler"`
	Bench       BenchConfig       `toml:"bench"`
	Window      WindowConfig      `toml:"window"`
}

// DeviceConfig selects the backend and adapter.
type DeviceConfig struct {
	Backend              string `toml:"backend"`
	Adapter              int    `toml:"adapter"`
	ForceFallbackAdapter bool   `toml:"force_fallback_adapter"`
}

// DescriptorsConfig sizes the per-frame descriptor arenas.
type DescriptorsConfig struct {
	General  int `toml:"general"`
	Samplers int `toml:"samplers"`
}

// ProfilerConfig sizes the timestamp ring and toggles the CPU frame statistics log.
type ProfilerConfig struct {
	Capacity   int  `toml:"capacity"`
	FrameStats bool `toml:"frame_stats"`
}

// BenchConfig drives the frame loop.
type BenchConfig struct {
	WarmupFrames    int       `toml:"warmup_frames"`
	BenchmarkFrames int       `toml:"benchmark_frames"`
	Threads         [3]uint32 `toml:"threads"`
	GroupSize       [3]uint32 `toml:"group_size"`
	CompareTo       string    `toml:"compare_to"`
	Filter          string    `toml:"filter"`
	MaxCases        int       `toml:"max_cases"`
}

// WindowConfig controls the optional presentation window.
type WindowConfig struct {
	Enabled bool   `toml:"enabled"`
	Width   int    `toml:"width"`
	Height  int    `toml:"height"`
	Title   string `toml:"title"`
}

// Default returns the configuration used when no file is given.
//
// Returns:
//   - Config: the default configuration
func Default() Config {
	return Config{
		Device: DeviceConfig{
			Backend: device.BackendTypeWGPU.String(),
		},
		Descriptors: DescriptorsConfig{
			General:  descriptor.DefaultGeneralCapacity,
			Samplers: descriptor.DefaultSamplerCapacity,
		},
		Profiler: ProfilerConfig{
			Capacity: profiler.DefaultCapacity,
		},
		Bench: BenchConfig{
			WarmupFrames:    30,
			BenchmarkFrames: 30,
			Threads:         [3]uint32{1024, 1024, 1},
			GroupSize:       [3]uint32{256, 1, 1},
			CompareTo:       DefaultCompareTo,
			MaxCases:        200,
		},
		Window: WindowConfig{
			Width:  1280,
			Height: 720,
			Title:  "oxy-perf",
		},
	}
}

// Parse decodes TOML over the defaults and validates the result.
//
// Parameters:
//   - data: the TOML document
//
// Returns:
//   - Config: the decoded configuration
//   - error: an error wrapping ErrInvalidConfig on unknown keys, type mismatches or invalid values
func Parse(data []byte) (Config, error) {
	cfg := Default()

	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return Config{}, fmt.Errorf("%w: %s", ErrInvalidConfig, strict.String())
		}
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads and parses a TOML file. An empty path returns the defaults and a leading ~ expands to
// the home directory.
//
// Parameters:
//   - path: the file path, or "" for defaults
//
// Returns:
//   - Config: the loaded configuration
//   - error: an error if the file cannot be read or is invalid
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}

	expanded, err := homedir.Expand(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to expand config path %s: %w", path, err)
	}
	if filepath.IsAbs(expanded) {
		return LoadFS(os.DirFS(filepath.Dir(expanded)), filepath.Base(expanded))
	}
	return LoadFS(os.DirFS("."), filepath.ToSlash(filepath.Clean(expanded)))
}

// LoadFS reads and parses a TOML file from fsys.
//
// Parameters:
//   - fsys: the file system to read from
//   - path: the file path within fsys
//
// Returns:
//   - Config: the loaded configuration
//   - error: an error if the file cannot be read or is invalid
func LoadFS(fsys fs.FS, path string) (Config, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports the first out-of-range value.
//
// Returns:
//   - error: an error wrapping ErrInvalidConfig, or nil
func (c Config) Validate() error {
	if _, err := device.ParseBackendType(c.Device.Backend); err != nil {
		return fmt.Errorf("%w: device.backend: %w", ErrInvalidConfig, err)
	}

	positive := []struct {
		name  string
		value int
	}{
		{"descriptors.general", c.Descriptors.General},
		{"descriptors.samplers", c.Descriptors.Samplers},
		{"profiler.capacity", c.Profiler.Capacity},
		{"bench.warmup_frames", c.Bench.WarmupFrames},
		{"bench.benchmark_frames", c.Bench.BenchmarkFrames},
		{"bench.max_cases", c.Bench.MaxCases},
	}
	for _, p := range positive {
		if p.value <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidConfig, p.name, p.value)
		}
	}

	for axis := range 3 {
		if c.Bench.Threads[axis] == 0 || c.Bench.GroupSize[axis] == 0 {
			return fmt.Errorf("%w: bench.threads and bench.group_size must be positive on every axis", ErrInvalidConfig)
		}
	}

	if c.Window.Enabled && (c.Window.Width <= 0 || c.Window.Height <= 0) {
		return fmt.Errorf("%w: window size %dx%d", ErrInvalidConfig, c.Window.Width, c.Window.Height)
	}
	return nil
}

// BackendType returns the parsed device backend. Call it on a validated config.
//
// Returns:
//   - device.BackendType: the backend
func (c Config) BackendType() device.BackendType {
	t, _ := device.ParseBackendType(c.Device.Backend)
	return t
}

// Marshal encodes the configuration as TOML.
//
// Returns:
//   - []byte: the TOML document
//   - error: an error if encoding fails
func (c Config) Marshal() ([]byte, error) {
	return toml.Marshal(c)
}
