package device

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-perf/engine/binding"
	"github.com/Carmen-Shannon/oxy-perf/engine/dispatch"
	"github.com/Carmen-Shannon/oxy-perf/engine/profiler"
	"github.com/Carmen-Shannon/oxy-perf/engine/resource"
	"github.com/Carmen-Shannon/oxy-perf/engine/shader"
)

// BackendType identifies the GPU backend implementation used by the Device.
type BackendType int

const (
	// BackendTypeWGPU selects the WebGPU backend.
	BackendTypeWGPU BackendType = iota

	// BackendTypeSoftware selects the deterministic in-process timeline. It executes nothing on a
	// GPU and advances a tick clock per dispatched thread group.
	BackendTypeSoftware
)

func (t BackendType) String() string {
	switch t {
	case BackendTypeWGPU:
		return "wgpu"
	case BackendTypeSoftware:
		return "software"
	default:
		return fmt.Sprintf("BackendType(%d)", int(t))
	}
}

// ParseBackendType parses a backend name as accepted on the command line and in config files.
//
// Parameters:
//   - s: "wgpu" or "software", case-insensitive
//
// Returns:
//   - BackendType: the parsed backend
//   - error: an error for unknown names
func ParseBackendType(s string) (BackendType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "wgpu", "webgpu":
		return BackendTypeWGPU, nil
	case "software", "sw":
		return BackendTypeSoftware, nil
	default:
		return 0, fmt.Errorf("unknown backend %q", s)
	}
}

// CommandList is a backend's recording of one frame: dispatch commands plus timestamp queries.
type CommandList interface {
	dispatch.CommandList
	profiler.QueryEncoder
}

// Backend is the GPU API a Device drives. Every method is called with the device lock held.
type Backend interface {
	profiler.TimestampReadback

	// Adapter reports the adapter the backend opened.
	//
	// Returns:
	//   - AdapterInfo: the adapter description
	Adapter() AdapterInfo

	// CreateBuffer allocates b and stores the backend object in b.Handle.
	//
	// Parameters:
	//   - b: the buffer to allocate, with Size and Usage set
	//
	// Returns:
	//   - error: an error if allocation fails
	CreateBuffer(b *resource.Buffer) error

	// CreateTexture allocates t and stores the backend object in t.Handle.
	//
	// Parameters:
	//   - t: the texture to allocate
	//
	// Returns:
	//   - error: an error if allocation fails
	CreateTexture(t *resource.Texture) error

	// WriteBuffer uploads data to the start of b.
	//
	// Parameters:
	//   - b: the destination buffer
	//   - data: the bytes to upload
	//
	// Returns:
	//   - error: an error if the upload fails
	WriteBuffer(b *resource.Buffer, data []byte) error

	// WriteTexture uploads data to mip level 0 of t.
	//
	// Parameters:
	//   - t: the destination texture
	//   - data: tightly packed texels
	//
	// Returns:
	//   - error: an error if the upload fails
	WriteTexture(t *resource.Texture, data []byte) error

	// CreateView creates the backend object for v and stores it in v.Handle.
	//
	// Parameters:
	//   - v: the view to create
	//
	// Returns:
	//   - error: an error if the backend cannot express the view
	CreateView(v *resource.View) error

	// CreateSampler creates the backend object for s and stores it in s.Handle.
	//
	// Parameters:
	//   - s: the sampler to create
	//
	// Returns:
	//   - error: an error if creation fails
	CreateSampler(s *resource.Sampler) error

	// CreatePipeline builds the compute pipeline for a program.
	//
	// Parameters:
	//   - p: the compiled program
	//   - groups: the reflected group layouts, one per parameter
	//
	// Returns:
	//   - any: the backend pipeline object
	//   - error: an error if pipeline creation fails
	CreatePipeline(p shader.Program, groups []binding.GroupLayout) (any, error)

	// ReleasePipeline frees a pipeline returned by CreatePipeline.
	//
	// Parameters:
	//   - pipeline: the pipeline to release
	ReleasePipeline(pipeline any)

	// BeginCommandList opens the command list of a new frame.
	//
	// Returns:
	//   - CommandList: the open command list
	//   - error: an error if the backend cannot record
	BeginCommandList() (CommandList, error)

	// Submit closes cmd and queues it for execution.
	//
	// Parameters:
	//   - cmd: the command list returned by BeginCommandList
	//
	// Returns:
	//   - error: an error if recording failed or submission was rejected
	Submit(cmd CommandList) error

	// Present shows the frame on the attached surface. Without a surface it does nothing.
	//
	// Returns:
	//   - error: an error if the surface could not be presented
	Present() error

	// Signal queues a fence signal of value behind all submitted work.
	//
	// Parameters:
	//   - value: the fence value to signal
	Signal(value uint64)

	// Wait blocks until the fence reaches value. It never times out.
	//
	// Parameters:
	//   - value: the fence value to wait for
	Wait(value uint64)

	// Completed returns the last fence value the backend reached.
	//
	// Returns:
	//   - uint64: the completed fence value
	Completed() uint64

	// Release frees every backend object.
	Release()
}
