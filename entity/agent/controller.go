package agent

import (
	"git.fiblab.net/general/common/v2/geometry"
)

// update 更新阶段：车辆前进一步
// 算法说明：
// 1. sense：查找本车道前车与车距
// 2. action：纵向策略给出加速度，横向策略给出横向速度，速度积分
// 3. 位置积分
// 4. 边界检查：开放道路驶出即标记移除；首尾相接时折回近端
// 5. 更新空间索引
// 6. 决策计时：累加dt，纵向策略类型变化时清零
func (a *Agent) update(dt float64) {
	if a.removed {
		return
	}
	a.sense()
	changed := a.action(dt)
	a.runtime.integratePosition(dt)

	road := a.ctx.Roadway()
	if !road.InBounds(a.runtime.Position) {
		if !road.Torus() {
			log.Debugf("agent %d leaves the roadway at y=%.0f", a.id, a.runtime.Position.Y)
			a.removed = true
			return
		}
		a.runtime.Position.Y = road.Wrap(a.runtime.Position.Y)
	}
	road.Move(a)

	a.decisionTimer += dt
	if changed {
		a.decisionTimer = 0
	}
}

// sense 感知本车道前车
func (a *Agent) sense() {
	leader, gap := a.leaderIn(a.lane)
	if leader == nil {
		a.leaderID = noLeader
	} else {
		a.leaderID = leader.id
	}
	a.gap = gap
}

// action 决策与速度更新
// 返回：纵向策略类型是否发生变化
// 说明：决策只在决策计时达到决策间隔时进行，期间沿用当前策略；换道评估只在Stay状态下进行
func (a *Agent) action(dt float64) (changed bool) {
	prev := a.drive
	if a.decisionTimer >= a.personality.DecisionInterval {
		a.drive = a.chooseDrive()
		a.planLaneChange()
		a.decisionTimer = 0
	}
	a.runtime.SetAcceleration(geometry.Point{Y: a.driveAccel(a.drive)})
	a.stepLaneChange(dt)
	a.runtime.integrateVelocity(dt)
	return a.drive != prev
}
