package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-perf/engine/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestResolveConfig_FlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "perf.toml")
	require.NoError(t, os.WriteFile(path, []byte("[bench]\nwarmup_frames = 5\nbenchmark_frames = 7\nfilter = \"Raw\"\n"), 0o644))

	cmd := newRootCommand()
	require.NoError(t, cmd.ParseFlags([]string{"--config", path, "--frames", "3", "--backend", "software"}))
	opts := &options{configPath: path, frames: 3, backend: "software"}

	cfg, err := resolveConfig(cmd, opts, []string{"2"})
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Device.Adapter)
	assert.Equal(t, "software", cfg.Device.Backend)
	assert.Equal(t, 5, cfg.Bench.WarmupFrames)
	assert.Equal(t, 3, cfg.Bench.BenchmarkFrames)
	assert.Equal(t, "Raw", cfg.Bench.Filter)
}

func TestResolveConfig_Rejects(t *testing.T) {
	cmd := newRootCommand()

	_, err := resolveConfig(cmd, &options{}, []string{"first"})
	assert.Error(t, err)
	_, err = resolveConfig(cmd, &options{}, []string{"-1"})
	assert.Error(t, err)

	require.NoError(t, cmd.ParseFlags([]string{"--frames", "0"}))
	_, err = resolveConfig(cmd, &options{}, nil)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestRoot_NoArgumentsListsAdapters(t *testing.T) {
	out, err := execute(t, "--backend", "software")
	require.NoError(t, err)
	assert.Contains(t, out, "Adapters:")
	assert.Contains(t, out, "Software Timeline")
	assert.Contains(t, out, "Usage: perftest [ADAPTER_INDEX]")
}

func TestRoot_ListAdapters(t *testing.T) {
	out, err := execute(t, "0", "--backend", "software", "--list-adapters")
	require.NoError(t, err)
	assert.Contains(t, out, "Software Timeline")
	assert.NotContains(t, out, "Usage:")
}

func TestRoot_ListCases(t *testing.T) {
	out, err := execute(t, "--backend", "software", "--list-cases", "--filter", "Texture2D")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.NotEmpty(t, lines)
	for _, line := range lines {
		assert.Contains(t, line, "Texture2D")
	}

	_, err = execute(t, "--backend", "software", "--list-cases", "--filter", "no such case")
	assert.ErrorContains(t, err, "no case matches")
}

func TestRoot_PrintConfig(t *testing.T) {
	out, err := execute(t, "--backend", "software", "--print-config", "--warmup", "4")
	require.NoError(t, err)

	cfg, err := config.Parse([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, "software", cfg.Device.Backend)
	assert.Equal(t, 4, cfg.Bench.WarmupFrames)
}

func TestRoot_BenchmarkOnSoftwareBackend(t *testing.T) {
	out, err := execute(t, "0", "--backend", "software", "--warmup", "1", "--frames", "2", "--filter", "RawBuffer.Load", "--compare-to", "RawBuffer.Load uniform")
	require.NoError(t, err)

	assert.Contains(t, out, "Adapter: 0: Software Timeline")
	assert.Contains(t, out, ".XX")
	assert.Contains(t, out, "Performance compared to RawBuffer.Load uniform")
	assert.Contains(t, out, "RawBuffer.Load2 random")
}

func TestRoot_TooManyArguments(t *testing.T) {
	_, err := execute(t, "0", "1")
	assert.Error(t, err)
}
