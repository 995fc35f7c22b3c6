package agent

import (
	"fmt"

	"git.fiblab.net/general/common/v2/geometry"
	"git.fiblab.net/general/common/v2/mathutil"
	"github.com/tsinghua-fib-lab/highway-sim-oss/entity"
	"github.com/tsinghua-fib-lab/highway-sim-oss/utils/collision"
	"github.com/tsinghua-fib-lab/highway-sim-oss/utils/container"
)

const (
	noLeader int32 = -1 // leaderID的空值
)

// Agent 车辆智能体
// 功能：一辆车及其驾驶员，每步执行感知-决策-运动
// 说明：采用snapshot/runtime双缓冲，模拟步内读取其他车辆时只读snapshot，
// 写入只发生在自己的runtime上，因此结果与遍历顺序无关
type Agent struct {
	container.IncrementalItemBase

	ctx entity.ITaskContext
	m   *AgentManager

	id          int32
	class       VehicleClass
	personality Personality

	snapshot, runtime vehicleBody
	snapshotDrive     driveStrategy // 步开始时的纵向策略

	node       *entity.VehicleNode // 所在车道链表的节点
	lane       entity.ILane        // 当前车道
	laneIntent int                 // 意图车道索引

	drive      driveStrategy      // 当前纵向策略
	laneChange laneChangeStrategy // 当前横向策略

	leaderID int32   // 前车ID，无前车时为noLeader
	gap      float64 // 与前车的车距（前车车尾到本车车头），无前车时为INF

	decisionTimer float64 // 距离上次决策的时间（ms）
	spawnTime     float64 // 生成时刻（ms）
	removed       bool    // 已标记移除，步末清理
}

// newAgent 创建车辆
// 参数：lane-初始车道，y-初始纵向位置，speed-初始纵向速度
// 返回：车辆实例，尺寸不合法时返回error
func newAgent(
	ctx entity.ITaskContext, m *AgentManager,
	id int32, class VehicleClass, personality Personality,
	lane entity.ILane, y, speed float64,
) (*Agent, error) {
	length, width := class.Dimensions()
	body, err := newVehicleBody(lane.GetPositionByS(y), length, width)
	if err != nil {
		return nil, fmt.Errorf("agent %d: %w", id, err)
	}
	body.Velocity.Y = min(speed, personality.MaxSpeed)
	a := &Agent{
		ctx:         ctx,
		m:           m,
		id:          id,
		class:       class,
		personality: personality,
		runtime:     body,
		snapshot:    body,
		lane:        lane,
		laneIntent:  lane.Index(),
		drive:       driveAccelerate,
		laneChange:  laneChangeStrategy{kind: laneStay},
		leaderID:    noLeader,
		gap:         mathutil.INF,
		// 生成后第一步即做出决策
		decisionTimer: personality.DecisionInterval,
		spawnTime:     ctx.Clock().T,
	}
	a.snapshotDrive = a.drive
	a.node = &entity.VehicleNode{S: y, Value: a}
	return a, nil
}

// prepare 准备阶段：runtime写入snapshot，同步链表节点的键值
func (a *Agent) prepare() {
	a.snapshot = a.runtime
	a.snapshotDrive = a.drive
	a.node.S = a.snapshot.Position.Y
}

func (a *Agent) String() string {
	return fmt.Sprintf("Agent %d (%v, lane=%d, y=%.0f, v=%.2f, %v)",
		a.id, a.class, a.lane.Index(), a.runtime.Position.Y, a.runtime.Velocity.Y, a.drive)
}

func (a *Agent) ID() int32 {
	return a.id
}

// V 纵向速度
func (a *Agent) V() float64 {
	return a.runtime.Velocity.Y
}

func (a *Agent) Length() float64 {
	return a.runtime.Length
}

func (a *Agent) Width() float64 {
	return a.runtime.Width
}

func (a *Agent) Position() geometry.Point {
	return a.runtime.Position
}

func (a *Agent) Velocity() geometry.Point {
	return a.runtime.Velocity
}

func (a *Agent) Acceleration() geometry.Point {
	return a.runtime.Acceleration
}

// Heading 朝向角，静止时为车道方向
func (a *Agent) Heading() float64 {
	return a.runtime.heading(a.lane.Direction())
}

func (a *Agent) OBB() collision.OBB {
	return a.runtime.obb()
}

func (a *Agent) CurrentLane() int {
	return a.lane.Index()
}

func (a *Agent) LaneIntent() int {
	return a.laneIntent
}

func (a *Agent) Removed() bool {
	return a.removed
}

// Class 车型
func (a *Agent) Class() VehicleClass {
	return a.class
}

// Personality 驾驶员参数
func (a *Agent) Personality() Personality {
	return a.personality
}

// DriveStrategy 当前纵向策略名
func (a *Agent) DriveStrategy() string {
	return a.drive.String()
}

// IsLC 是否正在换道
func (a *Agent) IsLC() bool {
	return a.laneChange.kind == laneChanging
}

// Leader 前车ID与车距，无前车时ok为false
func (a *Agent) Leader() (id int32, gap float64, ok bool) {
	return a.leaderID, a.gap, a.leaderID != noLeader
}

// minGap 最小车距s0
func (a *Agent) minGap() float64 {
	return a.personality.MinGapFactor * a.snapshot.Length
}

// desiredFollowGap 期望跟驰距离
func (a *Agent) desiredFollowGap() float64 {
	return a.personality.DesiredGapFactor * a.snapshot.Length
}

// leader 解析前车句柄，前车不存在或已移除时返回nil
func (a *Agent) leader() *Agent {
	if a.leaderID == noLeader {
		return nil
	}
	return a.m.lookup(a.leaderID)
}
