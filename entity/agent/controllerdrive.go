package agent

import (
	"math"

	"github.com/samber/lo"
)

const (
	idmTheta = 4 // IDM自由流项的指数
)

// driveStrategy 纵向策略
type driveStrategy int32

const (
	driveAccelerate driveStrategy = iota // 加速至期望速度
	driveCruise                          // 保持速度
	driveBrake                           // IDM制动
)

func (s driveStrategy) String() string {
	switch s {
	case driveAccelerate:
		return "accelerate"
	case driveCruise:
		return "cruise"
	case driveBrake:
		return "brake"
	default:
		return "unknown"
	}
}

// 接近速度的舒适性判定：所需减速度超过b_comf*比例即视为不舒适，速度越高越保守
var closingBands = []struct {
	below float64 // 本车速度上限（mm/ms）
	ratio float64
}{
	{10, 1.},
	{25, .8},
	{math.Inf(1), .6},
}

// desiredGap IDM期望车距 s* = s0 + max(0, v*T + v*Δv/(2*sqrt(a*b)))
// 参数：v-本车速度，dv-与前车速度差（本车减前车，接近为正）
func (a *Agent) desiredGap(v, dv float64) float64 {
	p := a.personality
	dyn := v * p.DesiredTimeHeadway
	if ab := p.MaxAcceleration * p.ComfortableBraking; ab > 0 {
		dyn += v * dv / (2 * math.Sqrt(ab))
	}
	return a.minGap() + math.Max(0, dyn)
}

// closingUncomfortable 以当前接近速度在车距内停止相对运动所需的减速度是否不舒适
func (a *Agent) closingUncomfortable(v, dv, gap float64) bool {
	if dv <= 0 {
		return false
	}
	if gap <= 0 {
		return true
	}
	required := dv * dv / (2 * gap)
	for _, band := range closingBands {
		if v < band.below {
			return required > band.ratio*a.personality.ComfortableBraking
		}
	}
	return false
}

// inGracePeriod 是否处于生成后的保护期
func (a *Agent) inGracePeriod() bool {
	return a.ctx.Clock().T-a.spawnTime < a.ctx.RuntimeConfig().C.GracePeriod
}

// chooseDrive 纵向策略选择
// 算法说明：
// 1. 无前车或处于保护期：加速
// 2. 车距小于s*或接近速度不舒适：制动
// 3. 车距小于期望跟驰距离：巡航
// 4. 否则：加速
func (a *Agent) chooseDrive() driveStrategy {
	leader := a.leader()
	if leader == nil || a.inGracePeriod() {
		return driveAccelerate
	}
	v := a.snapshot.Velocity.Y
	dv := v - leader.snapshot.Velocity.Y
	if a.gap < a.desiredGap(v, dv) || a.closingUncomfortable(v, dv, a.gap) {
		return driveBrake
	}
	if a.gap < a.desiredFollowGap() {
		return driveCruise
	}
	return driveAccelerate
}

// driveAccel 纵向策略s在当前前车与车距下给出的加速度
// 说明：只读取本车snapshot、leaderID/gap与前车snapshot，是纯函数，可用于换道的假设计算
func (a *Agent) driveAccel(s driveStrategy) float64 {
	switch s {
	case driveAccelerate:
		return a.accelerateAccel()
	case driveCruise:
		return 0
	case driveBrake:
		return a.brakeAccel()
	default:
		log.Panicf("bad drive strategy %d for agent %d", s, a.id)
		return 0
	}
}

// accelerateAccel clip(cruise_gain*(v0-v), 0, a_max)
func (a *Agent) accelerateAccel() float64 {
	p := a.personality
	v := a.snapshot.Velocity.Y
	acc := lo.Clamp(p.CruiseGain*(p.DesiredSpeed-v), 0, p.MaxAcceleration)
	if acc <= 0 && v < zeroVThreshold {
		acc = 0
	}
	return acc
}

// brakeAccel IDM制动
// a = a_max*(1-(v/v0)^4) - a_max*(s*/max(gap,s0))^2，限制在[-b_max, 0]
// 已静止返回0，车距小于s0返回-b_max
func (a *Agent) brakeAccel() float64 {
	p := a.personality
	v := a.snapshot.Velocity.Y
	if v < zeroVThreshold {
		return 0
	}
	s0 := a.minGap()
	free := 0.
	if p.DesiredSpeed > 0 {
		free = p.MaxAcceleration * (1 - math.Pow(v/p.DesiredSpeed, idmTheta))
	}
	leader := a.leader()
	if leader == nil {
		return lo.Clamp(free, -p.MaxBraking, 0)
	}
	if a.gap < s0 {
		return -p.MaxBraking
	}
	sStar := a.desiredGap(v, v-leader.snapshot.Velocity.Y)
	interaction := p.MaxAcceleration * math.Pow(sStar/math.Max(a.gap, s0), 2)
	return lo.Clamp(free-interaction, -p.MaxBraking, 0)
}
