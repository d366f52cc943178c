package device

import "github.com/cogentcore/webgpu/wgpu"

// DeviceBuilderOption is a functional option applied to a device during construction via NewDevice.
type DeviceBuilderOption func(*deviceImpl)

// WithAdapter selects the adapter by its index in Adapters. Out-of-range indices are clamped.
//
// Parameters:
//   - index: the adapter index
//
// Returns:
//   - DeviceBuilderOption: a function that applies the adapter option to a device
func WithAdapter(index int) DeviceBuilderOption {
	return func(d *deviceImpl) {
		d.adapterIndex = index
	}
}

// WithForceFallbackAdapter forces WGPU to use a CPU fallback adapter instead of the selected one.
// This requires a software Vulkan ICD (e.g. SwiftShader or lavapipe).
//
// Parameters:
//   - force: true to force the fallback adapter
//
// Returns:
//   - DeviceBuilderOption: a function that applies the fallback option to a device
func WithForceFallbackAdapter(force bool) DeviceBuilderOption {
	return func(d *deviceImpl) {
		d.forceFallbackAdapter = force
	}
}

// WithDescriptorCapacities sizes the general and sampler descriptor arenas.
//
// Parameters:
//   - general: the number of general descriptors per frame
//   - sampler: the number of sampler descriptors per frame
//
// Returns:
//   - DeviceBuilderOption: a function that applies the capacities to a device
func WithDescriptorCapacities(general, sampler int) DeviceBuilderOption {
	return func(d *deviceImpl) {
		d.generalCapacity = general
		d.samplerCapacity = sampler
	}
}

// WithProfilerCapacity sets the number of timing regions the timestamp ring holds.
//
// Parameters:
//   - capacity: the ring capacity
//
// Returns:
//   - DeviceBuilderOption: a function that applies the capacity to a device
func WithProfilerCapacity(capacity uint32) DeviceBuilderOption {
	return func(d *deviceImpl) {
		d.profilerCapacity = capacity
	}
}

// WithSurface attaches a window surface that PresentFrame presents to. Only the WGPU backend uses it.
//
// Parameters:
//   - descriptor: the platform surface descriptor, typically from window.Window.SurfaceDescriptor
//   - width: the surface width in pixels
//   - height: the surface height in pixels
//
// Returns:
//   - DeviceBuilderOption: a function that applies the surface to a device
func WithSurface(descriptor *wgpu.SurfaceDescriptor, width, height int) DeviceBuilderOption {
	return func(d *deviceImpl) {
		d.surfaceDescriptor = descriptor
		d.surfaceWidth = width
		d.surfaceHeight = height
	}
}

// WithGroupCost sets how many ticks the software backend charges per dispatched thread group.
//
// Parameters:
//   - ticks: the ticks per thread group
//
// Returns:
//   - DeviceBuilderOption: a function that applies the cost to a device
func WithGroupCost(ticks uint64) DeviceBuilderOption {
	return func(d *deviceImpl) {
		d.groupCost = ticks
	}
}
