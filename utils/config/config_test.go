package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/highway-sim-oss/utils/config"
	"gopkg.in/yaml.v2"
)

const sample = `
road:
  length: 2000000
  lane_count: 3
  lane_width: 3657
control:
  step:
    start: 0
    total: 9000
    interval: 200
  seed: 7
population:
  initial: 10
  enable: true
  spawn:
    rate: 6
  mix:
    aggressive: 30
    defensive: 70
    suv: 8
    truck: 1
    motorcycle: 1
telemetry:
  enable: true
  dir: out/
`

func TestLoadAndDefaults(t *testing.T) {
	var c config.Config
	require.NoError(t, yaml.UnmarshalStrict([]byte(sample), &c))
	rc, err := config.NewRuntimeConfig(c)
	require.NoError(t, err)
	assert.InDelta(t, 3*3657*1.01, rc.All.Road.Width, 1e-6)
	assert.Equal(t, 2., rc.All.Population.Spawn.ClearanceFactor)
	assert.Equal(t, .8, rc.All.Population.Spawn.SpeedFactor)
	assert.Equal(t, 64, rc.All.Telemetry.Buffer)
	assert.Equal(t, uint64(7), rc.C.Seed)
}

func TestUnknownFieldRejected(t *testing.T) {
	var c config.Config
	err := yaml.UnmarshalStrict([]byte("road:\n  lanes: 3\n"), &c)
	assert.Error(t, err)
}

func TestValidateRejects(t *testing.T) {
	base := func() config.Config {
		return config.Config{
			Road:    config.Road{Length: 1000000, LaneCount: 2, LaneWidth: 3500},
			Control: config.Control{Step: config.ControlStep{Total: 10, Interval: 100}},
		}
	}
	cases := map[string]func(c *config.Config){
		"zero lanes":        func(c *config.Config) { c.Road.LaneCount = 0 },
		"negative width":    func(c *config.Config) { c.Road.LaneWidth = -1 },
		"lanes exceed road": func(c *config.Config) { c.Road.Width = 5000 },
		"zero length":       func(c *config.Config) { c.Road.Length = 0 },
		"zero dt":           func(c *config.Config) { c.Control.Step.Interval = 0 },
		"spawn without rate": func(c *config.Config) {
			c.Population.Enable = true
		},
		"negative mix": func(c *config.Config) { c.Population.Mix.Truck = -1 },
		"mongo without uri": func(c *config.Config) {
			c.Telemetry.Mongo = &config.Mongo{DB: "sim"}
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := base()
			mutate(&c)
			assert.Error(t, config.Validate(&c))
		})
	}
	c := base()
	assert.NoError(t, config.Validate(&c))
	assert.Equal(t, 1., c.Population.Mix.Aggressive)
	assert.Equal(t, 1., c.Population.Mix.SUV)
}
