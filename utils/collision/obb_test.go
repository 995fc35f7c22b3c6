package collision_test

import (
	"math"
	"testing"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/highway-sim-oss/utils/collision"
)

func TestIntersectsCoincident(t *testing.T) {
	a := collision.New(1000, 5000, 0, 30, 4595, 1880)
	assert.True(t, collision.Intersects(a, a))
}

func TestIntersectsSymmetric(t *testing.T) {
	cases := []struct {
		name string
		a, b collision.OBB
		want bool
	}{
		{
			name: "same lane overlapping",
			a:    collision.New(0, 0, 0, 20, 4500, 1800),
			b:    collision.New(0, 4000, 0, 25, 4500, 1800),
			want: true,
		},
		{
			name: "same lane overlapping by 1mm",
			a:    collision.New(0, 0, 0, 20, 4500, 1800),
			b:    collision.New(0, 4499, 0, 25, 4500, 1800),
			want: true,
		},
		{
			name: "same lane 1mm apart",
			a:    collision.New(0, 0, 0, 20, 4500, 1800),
			b:    collision.New(0, 4501, 0, 25, 4500, 1800),
			want: false,
		},
		{
			name: "same lane separated",
			a:    collision.New(0, 0, 0, 20, 4500, 1800),
			b:    collision.New(0, 5000, 0, 25, 4500, 1800),
			want: false,
		},
		{
			name: "adjacent lanes",
			a:    collision.New(0, 0, 0, 20, 4500, 1800),
			b:    collision.New(3657, 0, 0, 20, 4500, 1800),
			want: false,
		},
		{
			name: "rotated corner touching box",
			a:    collision.New(0, 0, 0, 20, 4500, 1800),
			b:    collision.New(1500, 2500, 20, 20, 4500, 1800),
			want: true,
		},
		{
			name: "rotated near miss",
			a:    collision.New(0, 0, 0, 0, 4000, 1000),
			b:    collision.New(2600, 2600, 1, 1, 4000, 1000),
			want: false,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, collision.Intersects(c.a, c.b))
			assert.Equal(t, c.want, collision.Intersects(c.b, c.a))
		})
	}
}

func TestStationaryHeadingFallback(t *testing.T) {
	b := collision.New(10, 20, 0, 0, 4000, 2000)
	assert.Equal(t, math.Pi/2, b.Yaw)
	head := b.Head()
	assert.InDelta(t, 10, head.X, 1e-9)
	assert.InDelta(t, 2020, head.Y, 1e-9)
	// 车头左角
	assert.True(t, b.ContainsPoint(geometry.Point{X: -989, Y: 2019}))
	assert.False(t, b.ContainsPoint(geometry.Point{X: -991, Y: 2019}))
}

func TestHeadingFollowsVelocity(t *testing.T) {
	b := collision.New(0, 0, 3, 4, 4000, 2000)
	assert.InDelta(t, math.Atan2(4, 3), b.Yaw, 1e-12)
	assert.InDelta(t, 0.6, math.Cos(b.Yaw), 1e-12)
}

func TestShift(t *testing.T) {
	a := collision.New(0, 1000000-1000, 0, 0, 4595, 1880)
	b := collision.New(0, 2297.5, 0, 0, 4595, 1880)
	assert.False(t, collision.Intersects(a, b))
	shifted := a.Shift(-1000000)
	assert.InDelta(t, -1000, shifted.Center.Y, 1e-9)
	assert.Equal(t, a.Yaw, shifted.Yaw)
	assert.True(t, collision.Intersects(shifted, b))
	assert.True(t, collision.Intersects(b, shifted))
}
