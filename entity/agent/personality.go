package agent

import (
	"fmt"

	"github.com/tsinghua-fib-lab/highway-sim-oss/utils/randengine"
)

// PersonalityClass 驾驶风格
type PersonalityClass int32

const (
	PersonalityAggressive PersonalityClass = iota
	PersonalityDefensive
)

func (c PersonalityClass) String() string {
	switch c {
	case PersonalityAggressive:
		return "aggressive"
	case PersonalityDefensive:
		return "defensive"
	default:
		return fmt.Sprintf("PersonalityClass(%d)", int32(c))
	}
}

// Personality 驾驶员参数，采样后不再改变
// 单位：速度mm/ms，加速度mm/ms²，距离mm，时间ms
type Personality struct {
	Class PersonalityClass

	MaxSpeed            float64 // 最高速度
	DesiredSpeed        float64 // 期望速度v0
	SensingDistance     float64 // 感知距离，超出则视为无前车
	MaxAcceleration     float64 // 最大加速度a_max
	CruiseGain          float64 // 加速策略的速度误差增益（1/ms）
	ComfortableBraking  float64 // 舒适减速度b_comf（正值）
	MaxBraking          float64 // 最大减速度b_max（正值）
	DesiredTimeHeadway  float64 // 期望车头时距T
	MinGapFactor        float64 // 最小车距s0 = 该系数*车长
	DesiredGapFactor    float64 // 期望跟驰距离 = 该系数*车长
	Politeness          float64 // MOBIL礼让系数p
	LaneChangeThreshold float64 // MOBIL换道阈值
	DecisionInterval    float64 // 决策间隔
}

type span struct{ lo, hi float64 }

type personalityRanges struct {
	maxSpeed, desiredRatio, sensing, maxAcc, cruiseGain       span
	comfBraking, headway, maxBraking, minGapFactor, gapFactor span
	politeness, threshold, decision                           span
}

var rangesByClass = map[PersonalityClass]personalityRanges{
	PersonalityAggressive: {
		maxSpeed:     span{35, 40},
		desiredRatio: span{.75, .95},
		sensing:      span{100000, 150000},
		maxAcc:       span{.004, .0055},
		cruiseGain:   span{.0015, .002},
		comfBraking:  span{.0045, .006},
		headway:      span{1000, 1200},
		maxBraking:   span{.012, .015},
		minGapFactor: span{.5, 1},
		gapFactor:    span{1.5, 2},
		politeness:   span{.05, .1},
		threshold:    span{1e-6, 3e-6},
		decision:     span{150, 200},
	},
	PersonalityDefensive: {
		maxSpeed:     span{22, 27},
		desiredRatio: span{.85, .95},
		sensing:      span{120000, 160000},
		maxAcc:       span{.0017, .0023},
		cruiseGain:   span{.0004, .003},
		comfBraking:  span{.0025, .0035},
		headway:      span{1400, 1800},
		maxBraking:   span{.006, .008},
		minGapFactor: span{1.8, 2.3},
		gapFactor:    span{3.5, 4.5},
		politeness:   span{.6, .9},
		threshold:    span{1e-4, 2e-4},
		decision:     span{100, 150},
	},
}

// samplePersonality 按驾驶风格的参数区间均匀采样
func samplePersonality(class PersonalityClass, e *randengine.Engine) Personality {
	r, ok := rangesByClass[class]
	if !ok {
		log.Panicf("unknown personality class %v", class)
	}
	u := func(s span) float64 { return e.Uniform(s.lo, s.hi) }
	p := Personality{Class: class}
	p.MaxSpeed = u(r.maxSpeed)
	p.DesiredSpeed = p.MaxSpeed * u(r.desiredRatio)
	p.SensingDistance = u(r.sensing)
	p.MaxAcceleration = u(r.maxAcc)
	p.CruiseGain = u(r.cruiseGain)
	p.ComfortableBraking = u(r.comfBraking)
	p.DesiredTimeHeadway = u(r.headway)
	p.MaxBraking = u(r.maxBraking)
	p.MinGapFactor = u(r.minGapFactor)
	p.DesiredGapFactor = u(r.gapFactor)
	p.Politeness = u(r.politeness)
	p.LaneChangeThreshold = u(r.threshold)
	p.DecisionInterval = u(r.decision)
	return p
}
