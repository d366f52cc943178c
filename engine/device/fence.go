package device

// Fence is a monotonically increasing counter the GPU timeline signals after submitted work.
type Fence interface {
	// Signal increments the fence value and queues a signal of it behind all submitted work.
	//
	// Returns:
	//   - uint64: the signalled value
	Signal() uint64

	// Wait blocks until the timeline has reached value.
	//
	// Parameters:
	//   - value: the fence value to wait for
	Wait(value uint64)

	// Completed returns the last value the timeline reached.
	//
	// Returns:
	//   - uint64: the completed value
	Completed() uint64

	// Value returns the last value passed to the timeline by Signal.
	//
	// Returns:
	//   - uint64: the last signalled value
	Value() uint64
}

// timeline is the backend side of a fence.
type timeline interface {
	Signal(value uint64)
	Wait(value uint64)
	Completed() uint64
}

type fenceImpl struct {
	timeline timeline
	value    uint64
}

var _ Fence = &fenceImpl{}

func newFence(t timeline) Fence {
	return &fenceImpl{timeline: t}
}

func (f *fenceImpl) Signal() uint64 {
	f.value++
	f.timeline.Signal(f.value)
	return f.value
}

func (f *fenceImpl) Wait(value uint64) {
	if f.timeline.Completed() >= value {
		return
	}
	f.timeline.Wait(value)
}

func (f *fenceImpl) Completed() uint64 {
	return f.timeline.Completed()
}

func (f *fenceImpl) Value() uint64 {
	return f.value
}
