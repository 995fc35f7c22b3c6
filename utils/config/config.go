package config

import (
	"errors"
	"fmt"
)

const (
	defaultWidthMargin     = 1.01
	defaultClearanceFactor = 2.
	defaultSlowFactor      = .5
	defaultSpeedFactor     = .8
	defaultTelemetryBuffer = 64
)

// RuntimeConfig 运行时配置
// 功能：经过校验并填充默认值的配置，供模拟过程各模块读取
type RuntimeConfig struct {
	All Config  // 全部配置
	C   Control // 全局控制配置
}

// NewRuntimeConfig 根据配置初始化运行时配置
// 功能：校验配置并填充默认值
// 参数：config-原始配置对象
// 返回：运行时配置指针，配置不合法时返回error
func NewRuntimeConfig(config Config) (*RuntimeConfig, error) {
	if err := Validate(&config); err != nil {
		return nil, err
	}
	return &RuntimeConfig{
		All: config,
		C:   config.Control,
	}, nil
}

// Validate 校验配置并原地填充默认值
// 功能：在构造阶段拒绝所有不合法的配置，模拟过程中不再检查
// 参数：c-待校验的配置
// 返回：第一个发现的错误
func Validate(c *Config) error {
	r := &c.Road
	if r.LaneCount <= 0 {
		return fmt.Errorf("road.lane_count must be positive, got %d", r.LaneCount)
	}
	if r.LaneWidth <= 0 {
		return fmt.Errorf("road.lane_width must be positive, got %v", r.LaneWidth)
	}
	if r.Length <= 0 {
		return fmt.Errorf("road.length must be positive, got %v", r.Length)
	}
	if r.Width == 0 {
		r.Width = float64(r.LaneCount) * r.LaneWidth * defaultWidthMargin
	}
	if total := float64(r.LaneCount) * r.LaneWidth; total > r.Width {
		return fmt.Errorf("road.width %v is less than lane_count*lane_width %v", r.Width, total)
	}

	if c.Control.Step.Interval <= 0 {
		return fmt.Errorf("control.step.interval must be positive, got %v", c.Control.Step.Interval)
	}
	if c.Control.Step.Total < 0 {
		return fmt.Errorf("control.step.total must not be negative, got %d", c.Control.Step.Total)
	}
	if c.Control.GracePeriod < 0 {
		return fmt.Errorf("control.grace_period must not be negative, got %v", c.Control.GracePeriod)
	}

	p := &c.Population
	if p.Initial < 0 {
		return fmt.Errorf("population.initial must not be negative, got %d", p.Initial)
	}
	if p.Enable && p.Spawn.Rate <= 0 {
		return fmt.Errorf("population.spawn.rate must be positive when spawning is enabled, got %v", p.Spawn.Rate)
	}
	if p.Spawn.ClearanceFactor == 0 {
		p.Spawn.ClearanceFactor = defaultClearanceFactor
	}
	if p.Spawn.SlowFactor == 0 {
		p.Spawn.SlowFactor = defaultSlowFactor
	}
	if p.Spawn.SpeedFactor == 0 {
		p.Spawn.SpeedFactor = defaultSpeedFactor
	}
	if p.Spawn.ClearanceFactor < 0 || p.Spawn.SlowFactor < 0 || p.Spawn.SpeedFactor < 0 || p.Spawn.SpeedFactor > 1 {
		return fmt.Errorf("bad population.spawn %+v", p.Spawn)
	}
	m := &p.Mix
	for _, w := range []float64{m.Aggressive, m.Defensive, m.SUV, m.Truck, m.Motorcycle} {
		if w < 0 {
			return fmt.Errorf("population.mix weights must not be negative: %+v", *m)
		}
	}
	if m.Aggressive+m.Defensive == 0 {
		m.Aggressive, m.Defensive = 1, 1
	}
	if m.SUV+m.Truck+m.Motorcycle == 0 {
		m.SUV = 1
	}

	t := &c.Telemetry
	if t.Interval < 0 {
		return errors.New("telemetry.interval must not be negative")
	}
	if t.Buffer == 0 {
		t.Buffer = defaultTelemetryBuffer
	}
	if t.Mongo != nil && t.Mongo.URI == "" {
		return errors.New("telemetry.mongo.uri must be set when telemetry.mongo is present")
	}
	return nil
}
