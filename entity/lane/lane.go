package lane

import (
	"fmt"
	"math"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/highway-sim-oss/entity"
)

// Lane 车道实体
// 功能：表示直线道路上的一条车道，包含几何信息与车辆链表
// 说明：中心线从y=0指向y=length，横坐标固定
type Lane struct {
	id    int32
	index int // 在道路中的索引，0为最左侧车道，1为左数第二侧车道，以此类推

	start, end geometry.Point // 中心线起终点
	length     float64        // 车道长度
	width      float64        // 车道宽度
	direction  float64        // 行进方向角（atan2）

	sideLanes [2]entity.ILane // 左/右侧相邻车道

	vehicles laneList
}

// newLane 创建车道
// 参数：index-车道索引，centerX-中心线横坐标，width-车道宽，length-车道长
func newLane(index int, centerX, width, length float64) *Lane {
	l := &Lane{
		id:     int32(index),
		index:  index,
		start:  geometry.Point{X: centerX, Y: 0},
		end:    geometry.Point{X: centerX, Y: length},
		length: length,
		width:  width,
	}
	l.direction = math.Atan2(l.end.Y-l.start.Y, l.end.X-l.start.X)
	l.vehicles = newLaneList(fmt.Sprintf("lane %d vehicles", l.id))
	return l
}

// prepare 准备阶段，维护本车道链表
func (l *Lane) prepare() {
	l.vehicles.prepare()
}

func (l *Lane) String() string {
	return fmt.Sprintf("Lane %d (x=%.0f)", l.id, l.start.X)
}

func (l *Lane) ID() int32 {
	return l.id
}

func (l *Lane) Index() int {
	return l.index
}

func (l *Lane) Length() float64 {
	return l.length
}

func (l *Lane) Width() float64 {
	return l.width
}

func (l *Lane) CenterX() float64 {
	return l.start.X
}

func (l *Lane) Start() geometry.Point {
	return l.start
}

func (l *Lane) End() geometry.Point {
	return l.end
}

func (l *Lane) Direction() float64 {
	return l.direction
}

// NeighborLane 根据side获取左(side=0)/右(side=1)侧的Lane
func (l *Lane) NeighborLane(side int) entity.ILane {
	return l.sideLanes[side]
}

// GetPositionByS 将当前车道s坐标转换为xy坐标，超出范围时截断到端点
func (l *Lane) GetPositionByS(s float64) geometry.Point {
	if s < 0 || s > l.length {
		log.Debugf("get position with s %v out of range{0,%v}", s, l.length)
		s = lo.Clamp(s, 0, l.length)
	}
	return geometry.Blend(l.start, l.end, s/l.length)
}

func (l *Lane) FirstVehicle() *entity.VehicleNode {
	return l.vehicles.list.First()
}

func (l *Lane) LastVehicle() *entity.VehicleNode {
	return l.vehicles.list.Last()
}

func (l *Lane) Vehicles() *entity.VehicleList {
	return l.vehicles.list
}

func (l *Lane) AddVehicle(node *entity.VehicleNode) {
	l.vehicles.add(node)
}

func (l *Lane) RemoveVehicle(node *entity.VehicleNode) {
	l.vehicles.remove(node)
}
