// Package profiler measures benchmark regions with GPU timestamp queries held in a fixed-size ring,
// and tracks host-side frame statistics.
package profiler

import (
	"errors"
	"fmt"
)

// DefaultCapacity is the number of timing regions the ring holds by default.
const DefaultCapacity = 4096

// ErrInvalidTimestamps is returned by Resolve when a region's end timestamp precedes its start.
var ErrInvalidTimestamps = errors.New("invalid timestamps")

// QueryEncoder records timestamp query commands into the current frame.
type QueryEncoder interface {
	// WriteTimestamp records the GPU clock into the given query index.
	//
	// Parameters:
	//   - index: the query index, 2*slot for a region start and 2*slot+1 for its end
	WriteTimestamp(index uint32)

	// ResolveTimestamps copies count query results starting at first into the readback memory at the
	// same indices.
	//
	// Parameters:
	//   - first: the first query index
	//   - count: the number of queries
	ResolveTimestamps(first, count uint32)
}

// TimestampReadback exposes the resolved timestamp memory on the host.
type TimestampReadback interface {
	// MapTimestamps maps the readback memory for reading. The returned slice is indexed by query index.
	//
	// Returns:
	//   - []uint64: the resolved timestamps
	//   - error: an error if the memory could not be mapped
	MapTimestamps() ([]uint64, error)

	// UnmapTimestamps releases the mapping returned by MapTimestamps.
	UnmapTimestamps()

	// TimestampFrequency returns the number of timestamp ticks per second.
	//
	// Returns:
	//   - uint64: ticks per second
	TimestampFrequency() uint64
}

// Handle identifies an open timing region. It is valid until its slot is reused.
type Handle struct {
	seq uint32
}

// ResultFunc receives one region's elapsed time in milliseconds along with its id and name.
type ResultFunc func(elapsedMs float64, id uint32, name string)

// TimestampProfiler brackets GPU work with timestamp queries stored in a ring of regions.
type TimestampProfiler interface {
	// BeginFrame marks the first region of the new frame.
	BeginFrame()

	// StartRegion stores the region's identity in the next ring slot and records its start timestamp.
	//
	// Parameters:
	//   - enc: the query encoder of the current frame
	//   - id: the caller-defined region id
	//   - name: the region name
	//
	// Returns:
	//   - Handle: the handle passed to EndRegion
	StartRegion(enc QueryEncoder, id uint32, name string) Handle

	// EndRegion records the end timestamp of the region.
	//
	// Parameters:
	//   - enc: the query encoder of the current frame
	//   - h: the handle returned by StartRegion
	EndRegion(enc QueryEncoder, h Handle)

	// EncodeResolve records resolves for every region started this frame, split at the ring boundary.
	//
	// Parameters:
	//   - enc: the query encoder of the current frame
	EncodeResolve(enc QueryEncoder)

	// Resolve reads back the timestamps of every region started since the last BeginFrame and reports
	// each one. It must only be called after the frame that recorded them has retired.
	//
	// Parameters:
	//   - readback: the resolved timestamp memory
	//   - fn: called once per region in start order, skipping regions whose end precedes their start
	//
	// Returns:
	//   - error: an error if the readback could not be mapped, or ErrInvalidTimestamps
	Resolve(readback TimestampReadback, fn ResultFunc) error

	// Capacity returns the number of regions the ring holds.
	//
	// Returns:
	//   - int: the ring capacity
	Capacity() int

	// Pending returns the number of regions started since the last BeginFrame.
	//
	// Returns:
	//   - int: the number of regions
	Pending() int
}

type region struct {
	id   uint32
	name string
}

type timestampProfilerImpl struct {
	capacity   uint32
	regions    []region
	sequence   uint32
	frameFirst uint32
}

var _ TimestampProfiler = &timestampProfilerImpl{}

// NewTimestampProfiler creates a TimestampProfiler holding DefaultCapacity regions unless overridden.
//
// Parameters:
//   - options: optional TimestampProfilerOption functions
//
// Returns:
//   - TimestampProfiler: the profiler
func NewTimestampProfiler(options ...TimestampProfilerOption) TimestampProfiler {
	p := &timestampProfilerImpl{capacity: DefaultCapacity}
	for _, opt := range options {
		opt(p)
	}
	p.regions = make([]region, p.capacity)
	return p
}

func (p *timestampProfilerImpl) BeginFrame() {
	p.frameFirst = p.sequence
}

func (p *timestampProfilerImpl) StartRegion(enc QueryEncoder, id uint32, name string) Handle {
	slot := p.sequence % p.capacity
	p.regions[slot] = region{id: id, name: name}
	enc.WriteTimestamp(slot * 2)

	h := Handle{seq: p.sequence}
	p.sequence++
	return h
}

func (p *timestampProfilerImpl) EndRegion(enc QueryEncoder, h Handle) {
	enc.WriteTimestamp((h.seq%p.capacity)*2 + 1)
}

func (p *timestampProfilerImpl) EncodeResolve(enc QueryEncoder) {
	first := p.frameFirst % p.capacity
	remain := min(p.sequence-p.frameFirst, p.capacity)
	for remain > 0 {
		n := remain
		if first+remain > p.capacity {
			n = p.capacity - first
		}
		enc.ResolveTimestamps(first*2, n*2)
		first = (first + n) % p.capacity
		remain -= n
	}
}

func (p *timestampProfilerImpl) Resolve(readback TimestampReadback, fn ResultFunc) error {
	if p.sequence == p.frameFirst {
		return nil
	}

	results, err := readback.MapTimestamps()
	if err != nil {
		return fmt.Errorf("failed to map timestamp readback: %w", err)
	}
	defer readback.UnmapTimestamps()

	if len(results) < int(p.capacity)*2 {
		return errors.New("timestamp readback is smaller than the query ring")
	}

	freq := float64(readback.TimestampFrequency())
	var invalid []string
	for seq := p.frameFirst; seq != p.sequence; seq++ {
		slot := seq % p.capacity
		begin, end := results[slot*2], results[slot*2+1]
		r := p.regions[slot]
		if end < begin {
			invalid = append(invalid, fmt.Sprintf("%s (%d > %d)", r.name, begin, end))
			continue
		}
		fn(float64(end-begin)/freq*1000, r.id, r.name)
	}
	if len(invalid) > 0 {
		return fmt.Errorf("%w: %d regions end before they start: %v", ErrInvalidTimestamps, len(invalid), invalid)
	}
	return nil
}

func (p *timestampProfilerImpl) Capacity() int {
	return int(p.capacity)
}

func (p *timestampProfilerImpl) Pending() int {
	return int(p.sequence - p.frameFirst)
}
