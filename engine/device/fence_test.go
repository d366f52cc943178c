package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type countingTimeline struct {
	signalled []uint64
	waits     []uint64
	completed uint64
}

func (c *countingTimeline) Signal(value uint64) {
	c.signalled = append(c.signalled, value)
}

func (c *countingTimeline) Wait(value uint64) {
	c.waits = append(c.waits, value)
	c.completed = value
}

func (c *countingTimeline) Completed() uint64 {
	return c.completed
}

func TestFence_SignalIncrements(t *testing.T) {
	tl := &countingTimeline{}
	f := newFence(tl)

	assert.Equal(t, uint64(1), f.Signal())
	assert.Equal(t, uint64(2), f.Signal())
	assert.Equal(t, []uint64{1, 2}, tl.signalled)
	assert.Equal(t, uint64(2), f.Value())
	assert.Equal(t, uint64(0), f.Completed())
}

func TestFence_WaitSkipsCompletedValues(t *testing.T) {
	tl := &countingTimeline{}
	f := newFence(tl)

	f.Wait(f.Signal())
	f.Wait(1)
	f.Wait(0)
	assert.Equal(t, []uint64{1}, tl.waits)
	assert.Equal(t, uint64(1), f.Completed())
}

func TestFence_SoftwareTimelineRunsQueuedWork(t *testing.T) {
	b := newSoftwareDeviceBackend(nil, 2, defaultGroupCost)
	f := newFence(b)

	cmd := &softwareCommandList{}
	cmd.WriteTimestamp(0)
	cmd.Dispatch([3]uint32{2, 1, 1})
	cmd.WriteTimestamp(1)
	cmd.ResolveTimestamps(0, 2)
	assert.NoError(t, b.Submit(cmd))

	v := f.Signal()
	assert.Equal(t, uint64(0), b.Clock())
	ts, _ := b.MapTimestamps()
	assert.Equal(t, []uint64{0, 0}, ts)

	f.Wait(v)
	assert.Equal(t, v, f.Completed())
	assert.Equal(t, uint64(dispatchOverhead+2*defaultGroupCost), b.Clock())
	ts, _ = b.MapTimestamps()
	assert.Equal(t, []uint64{0, dispatchOverhead + 2*defaultGroupCost}, ts)
}

func TestFence_SoftwareWaitPanicsWithoutSignal(t *testing.T) {
	b := newSoftwareDeviceBackend(nil, 2, defaultGroupCost)
	assert.Panics(t, func() { b.Wait(1) })
}
