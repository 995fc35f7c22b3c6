package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/highway-sim-oss/utils/config"
)

func TestWithLeaderRestores(t *testing.T) {
	w := newTestWorld(t, nil)
	a := w.place(t, 0, 10000, 10, testPersonality())
	a.leaderID, a.gap = 5, 10

	got := a.withLeader(7, 3, func() float64 {
		assert.Equal(t, int32(7), a.leaderID)
		assert.Equal(t, 3., a.gap)
		return 1
	})
	assert.Equal(t, 1., got)
	assert.Equal(t, int32(5), a.leaderID)
	assert.Equal(t, 10., a.gap)

	assert.Panics(t, func() {
		a.withLeader(8, 4, func() float64 { panic("boom") })
	})
	assert.Equal(t, int32(5), a.leaderID)
	assert.Equal(t, 10., a.gap)
}

func TestLaneChangeCompletes(t *testing.T) {
	w := newTestWorld(t, nil)
	a := w.place(t, 1, 10000, 20, testPersonality())
	target := w.road.Lanes().Get(0)
	a.startLaneChange(target, false)

	steps := int(laneChangeDuration / w.clock.DT)
	for i := 0; i < steps-1; i++ {
		w.step()
		require.True(t, a.IsLC(), "step %d", i)
		assert.Equal(t, 1, a.CurrentLane())
		assert.Equal(t, 0, a.LaneIntent())
		assert.Less(t, a.Velocity().X, 0.)
		// 航向角不超过45°
		assert.LessOrEqual(t, -a.Velocity().X, a.Velocity().Y)
	}
	w.step()
	assert.False(t, a.IsLC())
	assert.Equal(t, 0, a.CurrentLane())
	assert.Equal(t, 0, a.LaneIntent())
	assert.Equal(t, target.CenterX(), a.Position().X)
	assert.Equal(t, 0., a.Velocity().X)

	w.step()
	assert.Equal(t, 1, target.Vehicles().Len())
	assert.Equal(t, 0, w.road.Lanes().Get(1).Vehicles().Len())
}

func TestLaneChangePausesWhenSlow(t *testing.T) {
	w := newTestWorld(t, nil)
	p := testPersonality()
	p.DesiredSpeed = 0
	a := w.place(t, 1, 10000, 1, p)
	x := a.Position().X
	a.startLaneChange(w.road.Lanes().Get(0), false)
	for i := 0; i < 5; i++ {
		w.step()
	}
	assert.True(t, a.IsLC())
	assert.Equal(t, 0., a.laneChange.elapsed)
	assert.Equal(t, x, a.Position().X)
}

func TestLaneChangeAbortsOnPredictedOverlap(t *testing.T) {
	w := newTestWorld(t, nil)
	p := testPersonality()
	a := w.place(t, 1, 50000, 20, p)
	follower := w.place(t, 0, 50000-6000, 25, p)
	a.startLaneChange(w.road.Lanes().Get(0), false)

	assert.True(t, a.predictOverlap(follower, w.road.Lanes().Get(0).CenterX(), laneChangeDuration, 0, 0))

	w.step()
	require.True(t, a.IsLC())
	assert.True(t, a.laneChange.emergency)
	assert.Equal(t, 1, a.LaneIntent())
	assert.Equal(t, 1, a.CurrentLane())
	assert.Equal(t, w.road.Lanes().Get(1).CenterX(), a.laneChange.targetX)
	assert.Equal(t, 0., a.Velocity().X)

	// 紧急返回不再被中止，直到完成
	for i := 0; a.IsLC(); i++ {
		require.Less(t, i, 100)
		require.True(t, a.laneChange.emergency, "step %d", i)
		require.Equal(t, 1, a.LaneIntent(), "step %d", i)
		w.step()
	}
	assert.Equal(t, 1, a.CurrentLane())
	assert.Equal(t, 1, a.LaneIntent())
	assert.Equal(t, w.road.Lanes().Get(1).CenterX(), a.Position().X)
}

func TestPredictOverlapClearGap(t *testing.T) {
	w := newTestWorld(t, nil)
	p := testPersonality()
	a := w.place(t, 1, 200000, 30, p)
	follower := w.place(t, 0, 100000, 20, p)
	assert.False(t, a.predictOverlap(follower, w.road.Lanes().Get(0).CenterX(), laneChangeDuration, 0, 0))
}

func TestMobilOvertakesSlowLeader(t *testing.T) {
	w := newTestWorld(t, nil)
	p := testPersonality()
	slow := testPersonality()
	slow.DesiredSpeed = 10
	slow.MaxSpeed = 10
	w.place(t, 1, 60000, 10, slow)
	a := w.place(t, 1, 30000, 25, p)

	w.step()
	require.True(t, a.IsLC())
	// 左右两侧均空闲时左侧收益更高
	assert.Equal(t, 0, a.LaneIntent())
	assert.Equal(t, 1, a.CurrentLane())
}

func TestMobilRejectsUnsafeFollower(t *testing.T) {
	w := newTestWorld(t, func(c *config.Config) {
		c.Road.LaneCount = 2
	})
	p := testPersonality()
	slow := testPersonality()
	slow.DesiredSpeed = 10
	slow.MaxSpeed = 10
	w.place(t, 1, 60000, 10, slow)
	a := w.place(t, 1, 30000, 25, p)
	// 目标车道后车紧贴本车后方且速度更快
	w.place(t, 0, 30000-suvLength-500, 30, p)

	w.step()
	assert.False(t, a.IsLC())
	assert.Equal(t, 1, a.LaneIntent())
}
