package profiler

// TimestampProfilerOption configures a TimestampProfiler.
type TimestampProfilerOption func(*timestampProfilerImpl)

// WithCapacity sets the number of regions held by the ring. Two timestamp queries are used per region.
//
// Parameters:
//   - capacity: the ring capacity, ignored if zero
//
// Returns:
//   - TimestampProfilerOption: the option
func WithCapacity(capacity uint32) TimestampProfilerOption {
	return func(p *timestampProfilerImpl) {
		if capacity > 0 {
			p.capacity = capacity
		}
	}
}
