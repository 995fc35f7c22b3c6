package agent

import (
	"slices"

	"git.fiblab.net/general/common/v2/parallel"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/highway-sim-oss/entity"
	"github.com/tsinghua-fib-lab/highway-sim-oss/utils/collision"
)

// AgentState 单辆车的对外状态
type AgentState struct {
	ID              int32   `json:"id" bson:"id"`
	Lane            int     `json:"lane" bson:"lane"`
	LaneIntent      int     `json:"lane_intent" bson:"lane_intent"`
	X               float64 `json:"x" bson:"x"`
	Y               float64 `json:"y" bson:"y"`
	VX              float64 `json:"vx" bson:"vx"`
	VY              float64 `json:"vy" bson:"vy"`
	AX              float64 `json:"ax" bson:"ax"`
	AY              float64 `json:"ay" bson:"ay"`
	Heading         float64 `json:"heading" bson:"heading"`
	Length          float64 `json:"length" bson:"length"`
	Width           float64 `json:"width" bson:"width"`
	DesiredSpeed    float64 `json:"desired_speed" bson:"desired_speed"`
	MaxSpeed        float64 `json:"max_speed" bson:"max_speed"`
	SensingDistance float64 `json:"sensing_distance" bson:"sensing_distance"`
	Strategy        string  `json:"strategy" bson:"strategy"`
	VehicleClass    string  `json:"vehicle_class" bson:"vehicle_class"`
	Personality     string  `json:"personality" bson:"personality"`
	LaneChanging    bool    `json:"lane_changing" bson:"lane_changing"`
}

// Snapshot 一个模拟步结束时的世界状态
type Snapshot struct {
	T        float64      `json:"t"`         // 当前时间（ms）
	Step     int32        `json:"step"`      // 当前步数
	Elapsed  float64      `json:"elapsed"`   // 已模拟时长（ms）
	AvgSpeed float64      `json:"avg_speed"` // 平均纵向速度（mm/ms），无车辆时为0
	Agents   []AgentState `json:"agents"`
}

// Collision 一对包围盒相交的车辆，A < B
type Collision struct {
	A int32 `json:"a" bson:"a"`
	B int32 `json:"b" bson:"b"`
}

// State 车辆对外状态
func (a *Agent) State() AgentState {
	b := a.runtime
	return AgentState{
		ID:              a.id,
		Lane:            a.lane.Index(),
		LaneIntent:      a.laneIntent,
		X:               b.Position.X,
		Y:               b.Position.Y,
		VX:              b.Velocity.X,
		VY:              b.Velocity.Y,
		AX:              b.Acceleration.X,
		AY:              b.Acceleration.Y,
		Heading:         a.Heading(),
		Length:          b.Length,
		Width:           b.Width,
		DesiredSpeed:    a.personality.DesiredSpeed,
		MaxSpeed:        a.personality.MaxSpeed,
		SensingDistance: a.personality.SensingDistance,
		Strategy:        a.drive.String(),
		VehicleClass:    a.class.String(),
		Personality:     a.personality.Class.String(),
		LaneChanging:    a.IsLC(),
	}
}

// Snapshot 生成当前世界状态
// 说明：只读，可在步与步之间调用；逐车状态并行构建，结果按ID升序
func (m *AgentManager) Snapshot() Snapshot {
	clock := m.ctx.Clock()
	states := parallel.GoMap(m.agents.Data(), func(a *Agent) AgentState {
		return a.State()
	})
	slices.SortFunc(states, func(x, y AgentState) int {
		return int(x.ID - y.ID)
	})
	avg := 0.
	if len(states) > 0 {
		avg = lo.SumBy(states, func(s AgentState) float64 { return s.VY }) / float64(len(states))
	}
	return Snapshot{
		T:        clock.T,
		Step:     clock.InternalStep,
		Elapsed:  clock.Elapsed(),
		AvgSpeed: avg,
		Agents:   states,
	}
}

// Collisions 当前所有包围盒相交的车辆对
// 算法说明：
// 1. 粗筛：对每辆车用空间索引查询可能相交的邻居
// 2. 精筛：分离轴检测
// 3. 首尾相接时跨越道路端点的邻居按道路长度平移后再检测
// 返回：按(A, B)升序排列
func (m *AgentManager) Collisions() []Collision {
	road := m.ctx.Roadway()
	var result []Collision
	for _, a := range m.agents.Data() {
		p := a.runtime.Position
		box := a.runtime.obb()
		for _, other := range road.Neighbors(p.X, p.Y, a.runtime.Length+maxVehicleLength, a, false) {
			if other.ID() < a.id {
				continue
			}
			if collision.Intersects(box, alignedOBB(road, other, p.Y)) {
				result = append(result, Collision{A: a.id, B: other.ID()})
			}
		}
	}
	slices.SortFunc(result, compareCollision)
	return result
}

// detectCollisions 在给定车辆集合内两两检测包围盒相交
func detectCollisions(road entity.IRoadway, agents []entity.IAgent) []Collision {
	var result []Collision
	for i, a := range agents {
		box := a.OBB()
		for _, b := range agents[i+1:] {
			if collision.Intersects(box, alignedOBB(road, b, a.Position().Y)) {
				result = append(result, Collision{A: min(a.ID(), b.ID()), B: max(a.ID(), b.ID())})
			}
		}
	}
	slices.SortFunc(result, compareCollision)
	return result
}

// alignedOBB other的包围盒，首尾相接时平移到纵向坐标ref所在的一侧
func alignedOBB(road entity.IRoadway, other entity.IAgent, ref float64) collision.OBB {
	b := other.OBB()
	if y := road.Unwrap(b.Center.Y, ref); y != b.Center.Y {
		b = b.Shift(y - b.Center.Y)
	}
	return b
}

func compareCollision(x, y Collision) int {
	if x.A != y.A {
		return int(x.A - y.A)
	}
	return int(x.B - y.B)
}
