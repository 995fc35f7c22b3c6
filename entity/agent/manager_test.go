package agent

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/highway-sim-oss/utils/collision"
	"github.com/tsinghua-fib-lab/highway-sim-oss/utils/config"
)

func populated(initial int, enable bool) func(c *config.Config) {
	return func(c *config.Config) {
		c.Road.Length = 500_000
		c.Population = config.Population{
			Initial: initial,
			Enable:  enable,
			Spawn:   config.Spawn{Rate: 5},
			Mix: config.Mix{
				Aggressive: 1, Defensive: 1,
				SUV: 3, Truck: 1, Motorcycle: 1,
			},
		}
	}
}

func TestInitPlacesWithoutOverlap(t *testing.T) {
	w := newTestWorld(t, populated(40, false))
	w.agents.Init()
	assert.Equal(t, 40, w.agents.Len())
	assert.Equal(t, 40, w.road.Len())
	assert.Empty(t, w.agents.Collisions())
	for _, a := range w.agents.Agents() {
		got, err := w.agents.GetOrError(a.ID())
		require.NoError(t, err)
		assert.Same(t, a, got)
		assert.GreaterOrEqual(t, a.Position().Y, 0.)
		assert.LessOrEqual(t, a.Position().Y, w.road.Length())
	}
}

func TestGetOrError(t *testing.T) {
	w := newTestWorld(t, populated(1, false))
	w.agents.Init()
	a, err := w.agents.GetOrError(0)
	require.NoError(t, err)
	assert.Equal(t, int32(0), a.ID())
	_, err = w.agents.GetOrError(42)
	assert.Error(t, err)
}

func TestSpawnNeverOverlaps(t *testing.T) {
	for _, torus := range []bool{false, true} {
		t.Run(fmt.Sprintf("torus=%v", torus), func(t *testing.T) {
			w := newTestWorld(t, func(c *config.Config) {
				populated(10, true)(c)
				c.Road.Torus = torus
			})
			w.agents.Init()
			spawned := 0
			for i := 0; i < 600; i++ {
				now := w.clock.T
				w.step()
				for _, a := range w.agents.Agents() {
					if a.spawnTime != now || a.ID() < 10 {
						continue
					}
					spawned++
					box := a.OBB()
					for _, other := range w.agents.Agents() {
						if other != a {
							ob := alignedOBB(w.road, other, a.Position().Y)
							require.False(t, collision.Intersects(box, ob), "%v overlaps %v", a, other)
						}
					}
				}
			}
			assert.Greater(t, spawned, 0)
		})
	}
}

func TestSpawnRejectsAgentAcrossSeam(t *testing.T) {
	w := newTestWorld(t, func(c *config.Config) {
		c.Road.Length = 1_000_000
		c.Road.LaneCount = 1
		c.Road.Torus = true
		c.Population = config.Population{Enable: true, Spawn: config.Spawn{Rate: 1000}, Mix: config.Mix{SUV: 1}}
	})
	p := testPersonality()
	p.DesiredSpeed = 0
	// 车头越过道路端点1297.5mm，占据出生点
	w.place(t, 0, w.road.Length()-1000, 0, p)
	for i := 0; i < 5; i++ {
		w.step()
		require.Equal(t, 1, w.agents.Len())
	}
	assert.Empty(t, w.agents.Collisions())
}

func TestSpawnIgnoresOccupantThatLeftLane(t *testing.T) {
	w := newTestWorld(t, func(c *config.Config) {
		c.Road.LaneCount = 2
		c.Population = config.Population{Enable: true, Spawn: config.Spawn{Rate: 1000}, Mix: config.Mix{SUV: 1}}
	})
	p := testPersonality()
	p.DesiredSpeed = 0
	// 在车道0生成、已换到车道1并停在出生点旁的车辆
	moved := w.place(t, 1, 3000, 0, p)
	w.agents.lastSpawned[0] = moved
	w.step()
	require.Equal(t, 2, w.agents.Len())
	spawned := w.agents.lastSpawned[0]
	require.NotSame(t, moved, spawned)
	assert.Equal(t, 0, spawned.CurrentLane())
	assert.InDelta(t, spawned.personality.DesiredSpeed*w.agents.config.Spawn.SpeedFactor, spawned.V(), 1e-9)
}

func TestSpawnRateLimited(t *testing.T) {
	w := newTestWorld(t, populated(0, true))
	w.agents.Init()
	// 5辆/秒，每200ms至多一次尝试
	for i := 0; i < 10; i++ {
		w.step()
	}
	assert.LessOrEqual(t, w.agents.Len(), 5)
	assert.Greater(t, w.agents.Len(), 0)
}

func TestSpawnRejectsCloseOccupant(t *testing.T) {
	w := newTestWorld(t, func(c *config.Config) {
		c.Road.LaneCount = 1
		c.Population = config.Population{Enable: true, Spawn: config.Spawn{Rate: 1000}}
	})
	w.agents.Init()
	w.step()
	require.Equal(t, 1, w.agents.Len())
	first := w.agents.Agents()[0]
	// 最近生成的车辆离出生点过近时不再生成
	w.step()
	assert.Equal(t, 1, w.agents.Len())
	assert.Same(t, first, w.agents.lastSpawned[0])
}

func TestVelocityStaysNonNegative(t *testing.T) {
	w := newTestWorld(t, populated(30, true))
	w.agents.Init()
	for i := 0; i < 600; i++ {
		w.step()
		for _, a := range w.agents.Agents() {
			require.GreaterOrEqual(t, a.V(), 0., "%v", a)
			require.LessOrEqual(t, a.V(), a.personality.MaxSpeed+1e-9, "%v", a)
			if !a.IsLC() {
				require.Equal(t, a.CurrentLane(), a.LaneIntent(), "%v", a)
			}
		}
	}
}

func TestOpenRoadRemovesLeavingAgents(t *testing.T) {
	w := newTestWorld(t, func(c *config.Config) {
		c.Road.Length = 50000
		c.Road.LaneCount = 1
	})
	a := w.place(t, 0, 45000, 30, testPersonality())
	for i := 0; i < 10; i++ {
		w.step()
	}
	assert.True(t, a.Removed())
	assert.Equal(t, 0, w.agents.Len())
	assert.Equal(t, 0, w.road.Len())
	assert.Nil(t, w.agents.lookup(a.ID()))
	w.step()
	assert.Equal(t, 0, w.road.Lanes().Get(0).Vehicles().Len())
}

func TestTorusKeepsPopulation(t *testing.T) {
	w := newTestWorld(t, func(c *config.Config) {
		populated(15, false)(c)
		c.Road.Length = 200_000
		c.Road.Torus = true
	})
	w.agents.Init()
	n := w.agents.Len()
	require.Greater(t, n, 0)
	for i := 0; i < 500; i++ {
		w.step()
		require.Equal(t, n, w.agents.Len())
		for _, a := range w.agents.Agents() {
			require.False(t, a.Removed())
			require.GreaterOrEqual(t, a.Position().Y, 0.)
			require.LessOrEqual(t, a.Position().Y, w.road.Length())
		}
	}
}

func TestTorusWrapKeepsLane(t *testing.T) {
	w := newTestWorld(t, func(c *config.Config) {
		c.Road.Length = 50_000
		c.Road.Torus = true
	})
	a := w.place(t, 2, 45000, 30, testPersonality())
	wrapped := false
	for i := 0; i < 10; i++ {
		y := a.Position().Y
		w.step()
		require.False(t, a.Removed())
		require.Equal(t, 2, a.CurrentLane())
		require.Equal(t, 2, a.LaneIntent())
		if a.Position().Y < y {
			wrapped = true
			assert.Less(t, a.Position().Y, 3000.+1e-9)
		}
	}
	assert.True(t, wrapped)
	assert.Equal(t, 1, w.agents.Len())
	assert.Equal(t, 1, w.road.Len())
	assert.Equal(t, 1, w.road.Lanes().Get(2).Vehicles().Len())
}

func TestRetire(t *testing.T) {
	w := newTestWorld(t, populated(5, false))
	w.agents.Init()
	n := w.agents.Len()
	assert.NoError(t, w.agents.Retire(0))
	assert.Equal(t, n-1, w.agents.Len())
	assert.Equal(t, n-1, w.road.Len())
	assert.Error(t, w.agents.Retire(0))
	w.step()
	assert.Equal(t, n-1, w.agents.Len())
}

func TestDeterministicForFixedSeed(t *testing.T) {
	run := func() Snapshot {
		w := newTestWorld(t, populated(20, true))
		w.agents.Init()
		for i := 0; i < 300; i++ {
			w.step()
		}
		return w.agents.Snapshot()
	}
	a, b := run(), run()
	assert.Equal(t, a, b)
	assert.NotEmpty(t, a.Agents)
}

func TestCollisions(t *testing.T) {
	w := newTestWorld(t, nil)
	p := testPersonality()
	a := w.place(t, 0, 10000, 0, p)
	b := w.place(t, 0, 12000, 0, p)
	w.place(t, 1, 10000, 0, p)
	assert.Equal(t, []Collision{{A: a.ID(), B: b.ID()}}, w.agents.Collisions())
}

func TestSnapshot(t *testing.T) {
	w := newTestWorld(t, nil)
	p := testPersonality()
	w.place(t, 0, 10000, 10, p)
	w.place(t, 1, 10000, 20, p)
	s := w.agents.Snapshot()
	assert.Len(t, s.Agents, 2)
	assert.InDelta(t, 15., s.AvgSpeed, 1e-9)
	assert.Equal(t, "accelerate", s.Agents[0].Strategy)
	assert.Equal(t, "suv", s.Agents[0].VehicleClass)
	assert.Equal(t, p.SensingDistance, s.Agents[1].SensingDistance)
}
