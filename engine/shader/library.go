package shader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"path"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
)

// LoadLibrary compiles every program a manifest lists. Sources are resolved relative to the
// manifest directory when dir is non-empty. Programs compile in parallel on a worker pool; pipeline
// creation is left to the device.
//
// Parameters:
//   - ctx: cancels programs that have not started compiling yet
//   - fsys: the file system holding the WGSL sources
//   - dir: the directory sources are relative to
//   - manifest: the programs to load
//   - options: ProgramBuilderOption functions applied to every program
//
// Returns:
//   - map[string]Program: the compiled programs keyed by name
//   - error: every load failure joined, or ctx.Err() when cancelled
func LoadLibrary(ctx context.Context, fsys fs.FS, dir string, manifest *Manifest, options ...ProgramBuilderOption) (map[string]Program, error) {
	if manifest == nil || len(manifest.Programs) == 0 {
		return map[string]Program{}, nil
	}

	return compileParallel(ctx, len(manifest.Programs), func(i int) (string, Program, error) {
		entry := manifest.Programs[i]
		p, err := loadEntry(ctx, fsys, dir, entry, options)
		return entry.Name, p, err
	})
}

// CompileSources compiles in-memory WGSL sources in parallel on a worker pool.
//
// Parameters:
//   - ctx: cancels programs that have not started compiling yet
//   - sources: WGSL source keyed by program name
//   - options: ProgramBuilderOption functions applied to every program
//
// Returns:
//   - map[string]Program: the compiled programs keyed by name
//   - error: every compile failure joined, or ctx.Err() when cancelled
func CompileSources(ctx context.Context, sources map[string]string, options ...ProgramBuilderOption) (map[string]Program, error) {
	keys := make([]string, 0, len(sources))
	for k := range sources {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	return compileParallel(ctx, len(keys), func(i int) (string, Program, error) {
		key := keys[i]
		if err := ctx.Err(); err != nil {
			return key, nil, fmt.Errorf("%s: %w", key, err)
		}
		p, err := NewProgram(key, sources[key], options...)
		return key, p, err
	})
}

func compileParallel(ctx context.Context, n int, compile func(i int) (string, Program, error)) (map[string]Program, error) {
	programs := make(map[string]Program, n)
	if n == 0 {
		return programs, nil
	}

	start := time.Now()
	pool := worker.NewDynamicWorkerPool(max(runtime.NumCPU()-1, 1), 256, 1*time.Second)
	defer pool.Stop()

	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		errs []error
	)

	for i := range n {
		wg.Add(1)
		pool.SubmitTask(worker.Task{
			ID: i,
			Do: func() (any, error) {
				defer wg.Done()

				name, p, err := compile(i)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					errs = append(errs, err)
					return nil, err
				}
				programs[name] = p
				return p, nil
			},
		})
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log.Printf("[Shader] Compiled %d programs in %s", len(programs), time.Since(start).Round(time.Millisecond))
	return programs, nil
}

func loadEntry(ctx context.Context, fsys fs.FS, dir string, entry ManifestProgram, options []ProgramBuilderOption) (Program, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", entry.Name, err)
	}

	src, err := fs.ReadFile(fsys, path.Join(dir, entry.Source))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read source: %w", entry.Name, err)
	}

	opts := options
	if entry.Layout != nil {
		layout, err := entry.Layout.ProgramLayout()
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidProgram, entry.Name, err)
		}
		opts = append(append([]ProgramBuilderOption(nil), options...), WithLayout(layout))
	}
	return NewProgram(entry.Name, string(src), opts...)
}
