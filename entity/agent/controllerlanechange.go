package agent

import (
	"math"

	"git.fiblab.net/general/common/v2/mathutil"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/highway-sim-oss/entity"
	"github.com/tsinghua-fib-lab/highway-sim-oss/utils/collision"
)

const (
	laneChangeDuration    = 2000.       // 换道标称时长（ms）
	minLaneChangeSpeed    = 5.          // 低于该纵向速度时暂停换道（mm/ms）
	maxLaneChangeAngle    = math.Pi / 4 // 换道最大航向角
	leftLaneGainBias      = 1.2         // 左侧（超车道）收益加权
	laneChangePredictStep = 100.        // 轨迹预测步长上限（ms）
)

type laneChangeKind int32

const (
	laneStay laneChangeKind = iota
	laneChanging
)

// laneChangeStrategy 横向策略
// 说明：kind为laneStay时其余字段无意义
type laneChangeStrategy struct {
	kind      laneChangeKind
	targetX   float64 // 目标横坐标（目标车道中心线）
	duration  float64 // 标称时长（ms）
	elapsed   float64 // 已用时长（ms），暂停时不增加
	emergency bool    // 是否为紧急返回，紧急返回不会被中止
}

// withLeader 临时替换leader与gap，执行f后恢复
// 说明：用于MOBIL的假设计算，恢复在defer中完成
func (a *Agent) withLeader(leaderID int32, gap float64, f func() float64) float64 {
	oldID, oldGap := a.leaderID, a.gap
	defer func() {
		a.leaderID, a.gap = oldID, oldGap
	}()
	a.leaderID, a.gap = leaderID, gap
	return f()
}

// neighborsIn 本车在lane链表中的后方与前方节点
// 说明：本车道直接取自身节点的前驱后继，其他车道按snapshot纵向坐标查找
func (a *Agent) neighborsIn(lane entity.ILane) (behind, ahead *entity.VehicleNode) {
	list := lane.Vehicles()
	if a.node.Parent() == list {
		return a.node.Prev(), a.node.Next()
	}
	return list.Around(a.snapshot.Position.Y, a.node)
}

// leaderIn 本车在lane上的前车与车距（基于snapshot）
// 说明：超出感知距离视为无前车；首尾相接时越过远端从近端继续查找
func (a *Agent) leaderIn(lane entity.ILane) (*Agent, float64) {
	y := a.snapshot.Position.Y
	_, ahead := a.neighborsIn(lane)
	road := a.ctx.Roadway()
	if ahead == nil && road.Torus() {
		if first := lane.FirstVehicle(); first != nil && first != a.node {
			ahead = first
		}
	}
	if ahead == nil {
		return nil, mathutil.INF
	}
	other := ahead.Value.(*Agent)
	d := road.LongitudinalGap(y, other.snapshot.Position.Y)
	if d > a.personality.SensingDistance {
		return nil, mathutil.INF
	}
	return other, d - other.snapshot.Length/2 - a.snapshot.Length/2
}

// followerIn 本车在lane上的后车，以及后车到本车的车距（基于snapshot）
func (a *Agent) followerIn(lane entity.ILane) (*Agent, float64) {
	y := a.snapshot.Position.Y
	behind, _ := a.neighborsIn(lane)
	road := a.ctx.Roadway()
	if behind == nil && road.Torus() {
		if last := lane.LastVehicle(); last != nil && last != a.node {
			behind = last
		}
	}
	if behind == nil {
		return nil, mathutil.INF
	}
	other := behind.Value.(*Agent)
	d := road.LongitudinalGap(other.snapshot.Position.Y, y)
	return other, d - other.snapshot.Length/2 - a.snapshot.Length/2
}

// accelWith 本车在给定前车下、按策略s的加速度
func (a *Agent) accelWith(leader *Agent, gap float64, s driveStrategy) float64 {
	id := noLeader
	if leader != nil {
		id = leader.id
	}
	return a.withLeader(id, gap, func() float64 {
		return a.driveAccel(s)
	})
}

// planLaneChange MOBIL换道决策
// 功能：评估左右相邻车道，满足安全与激励条件时开始换道
// 算法说明：
// 1. 目标车道后车以本车为前车时的加速度不得低于其-b_comf，且轨迹预测无碰撞
// 2. 激励 = 本车收益 - p*后车损失，需大于换道阈值
// 3. 通过门槛的车道中，左侧车道收益乘以1.2后取最大者
func (a *Agent) planLaneChange() {
	if a.laneChange.kind != laneStay {
		return
	}
	current := a.driveAccel(a.drive)
	var best entity.ILane
	bestGain := math.Inf(-1)
	for _, side := range []int{entity.LEFT, entity.RIGHT} {
		target := a.lane.NeighborLane(side)
		if target == nil {
			continue
		}
		newLeader, newGap := a.leaderIn(target)
		follower, followerGap := a.followerIn(target)

		followerLoss := 0.
		if follower != nil {
			withEgo := follower.accelWith(a, followerGap, follower.snapshotDrive)
			if withEgo < -follower.personality.ComfortableBraking {
				continue
			}
			egoAcc := a.accelWith(newLeader, newGap, a.drive)
			if a.predictOverlap(follower, target.CenterX(), laneChangeDuration, egoAcc, withEgo) {
				continue
			}
			oldLeader, oldGap := follower.leaderIn(target)
			followerLoss = follower.accelWith(oldLeader, oldGap, follower.snapshotDrive) - withEgo
		}

		gain := a.accelWith(newLeader, newGap, a.drive) - current
		incentive := gain - a.personality.Politeness*followerLoss
		if incentive <= a.personality.LaneChangeThreshold {
			continue
		}
		if side == entity.LEFT {
			gain *= leftLaneGainBias
		}
		if gain > bestGain {
			bestGain = gain
			best = target
		}
	}
	if best != nil {
		log.Debugf("agent %d starts lane change %d -> %d (gain %.3g)", a.id, a.lane.Index(), best.Index(), bestGain)
		a.startLaneChange(best, false)
	}
}

// startLaneChange 开始向target车道换道
func (a *Agent) startLaneChange(target entity.ILane, emergency bool) {
	a.laneIntent = target.Index()
	a.laneChange = laneChangeStrategy{
		kind:      laneChanging,
		targetX:   target.CenterX(),
		duration:  laneChangeDuration,
		emergency: emergency,
	}
}

// stepLaneChange 横向策略前进一步，写入横向速度
// 算法说明：
// 1. 计时累加，到达时长后吸附到目标中心线并结束换道
// 2. 纵向速度过低时暂停（横向速度为0，计时不增加）
// 3. 横向速度 = 剩余横向距离/剩余时间，航向角不超过45°
// 4. 非紧急返回时预测剩余时长内与目标车道后车是否碰撞，碰撞则紧急返回原车道
func (a *Agent) stepLaneChange(dt float64) {
	lc := &a.laneChange
	if lc.kind != laneChanging {
		a.runtime.Velocity.X = 0
		return
	}
	lc.elapsed += dt
	if lc.elapsed >= lc.duration {
		a.completeLaneChange()
		return
	}
	vLong := a.runtime.Velocity.Y
	if math.Abs(vLong) < minLaneChangeSpeed {
		a.runtime.Velocity.X = 0
		lc.elapsed -= dt
		return
	}
	remaining := lc.duration - lc.elapsed
	maxLateral := math.Abs(vLong) * math.Tan(maxLaneChangeAngle)
	lateral := lo.Clamp((lc.targetX-a.runtime.Position.X)/remaining, -maxLateral, maxLateral)

	if !lc.emergency {
		target := a.ctx.Roadway().Lanes().Get(a.laneIntent)
		if follower, _ := a.followerIn(target); follower != nil &&
			a.predictOverlap(follower, lc.targetX, remaining, a.runtime.Acceleration.Y, follower.snapshot.Acceleration.Y) {
			log.Debugf("agent %d aborts lane change to %d, returning to %d", a.id, a.laneIntent, a.lane.Index())
			a.startLaneChange(a.lane, true)
			a.runtime.Velocity.X = 0
			return
		}
	}
	a.runtime.Velocity.X = lateral
}

// completeLaneChange 换道完成：吸附中心线，更新当前车道与链表
func (a *Agent) completeLaneChange() {
	a.runtime.Position.X = a.laneChange.targetX
	a.runtime.Velocity.X = 0
	if a.laneIntent != a.lane.Index() {
		target := a.ctx.Roadway().Lanes().Get(a.laneIntent)
		a.lane.RemoveVehicle(a.node)
		a.node = &entity.VehicleNode{S: a.runtime.Position.Y, Value: a}
		target.AddVehicle(a.node)
		a.lane = target
	}
	a.laneChange = laneChangeStrategy{kind: laneStay}
}

// predictOverlap 轨迹预测
// 功能：本车以恒定纵向加速度横移到targetX，后车以恒定加速度直行，预测duration内是否出现包围盒重叠
// 参数：follower-目标车道后车，egoAcc/followerAcc-双方纵向加速度
// 说明：在本车的纵向坐标系中计算，首尾相接时后车位置按车距展开
func (a *Agent) predictOverlap(follower *Agent, targetX, duration, egoAcc, followerAcc float64) bool {
	dt := math.Min(a.ctx.Clock().DT, laneChangePredictStep)
	if dt <= 0 || duration <= 0 {
		return false
	}
	road := a.ctx.Roadway()
	ego := a.snapshot
	f := follower.snapshot
	f.Position.Y = ego.Position.Y - road.LongitudinalGap(f.Position.Y, ego.Position.Y)
	f.Velocity.X = 0
	for t := 0.; t < duration; t += dt {
		remaining := duration - t
		ego.Velocity.X = (targetX - ego.Position.X) / remaining
		ego.Velocity.Y = math.Max(0, ego.Velocity.Y+egoAcc*dt)
		ego.integratePosition(dt)
		f.Velocity.Y = math.Max(0, f.Velocity.Y+followerAcc*dt)
		f.integratePosition(dt)
		if collision.Intersects(ego.obb(), f.obb()) {
			return true
		}
	}
	return false
}
