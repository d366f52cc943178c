package engine

import (
	"context"
	"fmt"
	"log"
	"slices"

	"github.com/Carmen-Shannon/oxy-perf/engine/device"
	"github.com/Carmen-Shannon/oxy-perf/engine/shader"
	"github.com/Carmen-Shannon/oxy-perf/engine/suite"
)

// LoadPrograms compiles the programs the given cases use and loads them onto the device.
// Compilation runs in parallel; pipelines are created one at a time in key order.
//
// Parameters:
//   - ctx: cancels compilation
//   - dev: the device to load onto
//   - catalog: the catalog holding the program sources
//   - cases: the cases whose programs are needed
//
// Returns:
//   - map[string]device.Program: the loaded programs keyed by program key
//   - error: an error if a program is missing, fails to compile, or fails to load
func LoadPrograms(ctx context.Context, dev device.Device, catalog *suite.Catalog, cases []suite.Case) (map[string]device.Program, error) {
	sources := make(map[string]string)
	for _, c := range cases {
		if _, ok := sources[c.Program]; ok {
			continue
		}
		src, ok := catalog.Source(c.Program)
		if !ok {
			return nil, fmt.Errorf("case %s: no source for program %s", c.Name, c.Program)
		}
		sources[c.Program] = src
	}

	compiled, err := shader.CompileSources(ctx, sources)
	if err != nil {
		return nil, fmt.Errorf("failed to compile benchmark programs: %w", err)
	}

	keys := make([]string, 0, len(compiled))
	for k := range compiled {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	programs := make(map[string]device.Program, len(compiled))
	for _, k := range keys {
		p, err := dev.LoadProgram(compiled[k])
		if err != nil {
			return nil, fmt.Errorf("failed to load program %s: %w", k, err)
		}
		programs[k] = p
	}
	log.Printf("[Engine] Loaded %d programs for %d cases", len(programs), len(cases))
	return programs, nil
}
