package entity

import (
	"git.fiblab.net/general/common/v2/geometry"
	"github.com/tsinghua-fib-lab/highway-sim-oss/utils/collision"
	"github.com/tsinghua-fib-lab/highway-sim-oss/utils/container"
)

// 方位常量
const (
	LEFT   = 0 // 左侧（车道索引减小的方向，超车道一侧）
	RIGHT  = 1 // 右侧
	BEFORE = 0 // 后方，等价于prev/behind
	AFTER  = 1 // 前方，等价于next/ahead
)

// entity/agent/agent.go的依赖倒置
// 说明：getter返回车辆当前（runtime）状态，供空间索引、碰撞检测与输出使用
type IAgent interface {
	container.IHasVAndLength

	ID() int32                    // 获取车辆ID
	Width() float64               // 车宽（mm）
	Position() geometry.Point     // 车辆中心坐标（mm）
	Velocity() geometry.Point     // 速度（mm/ms）
	Acceleration() geometry.Point // 加速度（mm/ms²）
	Heading() float64             // 朝向角（弧度，atan2(vy, vx)，静止时为车道方向）
	OBB() collision.OBB           // 当前占用区域
	CurrentLane() int             // 当前所在车道索引
	LaneIntent() int              // 意图车道索引
	Removed() bool                // 是否已标记移除

	String() string
}

// 车辆链表节点类型
type VehicleNode = container.ListNode[IAgent]

// 车辆链表类型
type VehicleList = container.List[IAgent]

// entity/lane/lane.go的依赖倒置
type ILane interface {
	String() string

	ID() int32                   // 获取Lane ID
	Index() int                  // 车道索引，最左侧为0，往右侧递增
	Length() float64             // 获取Lane长度（mm）
	Width() float64              // 获取Lane宽度（mm）
	CenterX() float64            // 中心线横坐标（mm）
	Start() geometry.Point       // 中心线起点
	End() geometry.Point         // 中心线终点
	Direction() float64          // 行进方向角（弧度）
	NeighborLane(side int) ILane // 根据side获取左(side=0)/右(side=1)侧的Lane，不存在时为nil

	GetPositionByS(s float64) geometry.Point // 将当前车道s坐标转换为xy坐标

	// 获取特定位置车辆

	FirstVehicle() *VehicleNode // 获取最后方的车
	LastVehicle() *VehicleNode  // 获取最前方的车
	Vehicles() *VehicleList     // 获取车道上的车辆

	// Lane链表操作

	AddVehicle(node *VehicleNode)    // 向Lane链表中添加车辆（Prepare后生效）
	RemoveVehicle(node *VehicleNode) // 从Lane链表中移除车辆（Prepare后生效）
}

// entity/road/road.go的依赖倒置：道路与空间索引
type IRoadway interface {
	Width() float64  // 道路总宽（mm）
	Length() float64 // 道路长度（mm）
	Torus() bool     // 是否首尾相接
	Lanes() ILaneManager

	// 空间索引

	Place(a IAgent)  // 放入新车辆
	Move(a IAgent)   // 车辆位置更新后调用
	Remove(a IAgent) // 移除车辆
	// 返回中心与(x,y)距离不超过radius的车辆，按ID升序
	Neighbors(x, y, radius float64, self IAgent, includeSelf bool) []IAgent
	Len() int // 索引中的车辆数

	InBounds(p geometry.Point) bool           // 纵向是否在道路范围内
	Wrap(y float64) float64                   // 将纵向坐标折回[0, length)
	Unwrap(y, ref float64) float64            // 首尾相接时将y平移到ref所在的一圈
	LongitudinalGap(from, to float64) float64 // 从from向前到to的纵向距离，首尾相接时考虑折回

	Prepare() // 准备阶段：恢复车道链表有序
}
