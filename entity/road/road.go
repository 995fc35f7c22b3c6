package road

import (
	"fmt"
	"math"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/dhconnelly/rtreego"
	"github.com/tsinghua-fib-lab/highway-sim-oss/entity"
	"github.com/tsinghua-fib-lab/highway-sim-oss/entity/lane"
	"github.com/tsinghua-fib-lab/highway-sim-oss/utils/config"
)

// Roadway 直线多车道道路
// 功能：持有车道集合与车辆空间索引，负责边界判断与首尾折回
// 说明：横向范围[0, width]，纵向范围[0, length]，车辆沿y正方向行驶
type Roadway struct {
	width  float64
	length float64
	torus  bool

	lanes *lane.LaneManager
	index *spatialIndex
}

// New 创建道路
// 功能：校验道路几何并按配置创建车道与空间索引
// 参数：c-道路配置
// 返回：道路实例，几何不合法（车道数、车道宽、长度非正，或车道总宽超过道路宽）时返回error
func New(c config.Road) (*Roadway, error) {
	if c.LaneCount <= 0 {
		return nil, fmt.Errorf("lane count must be positive, got %d", c.LaneCount)
	}
	if c.LaneWidth <= 0 || c.Length <= 0 || c.Width <= 0 {
		return nil, fmt.Errorf("road dimensions must be positive: width=%v length=%v lane_width=%v",
			c.Width, c.Length, c.LaneWidth)
	}
	if total := float64(c.LaneCount) * c.LaneWidth; total > c.Width {
		return nil, fmt.Errorf("lanes need %v mm but road is only %v mm wide", total, c.Width)
	}
	r := &Roadway{
		width:  c.Width,
		length: c.Length,
		torus:  c.Torus,
		lanes:  lane.NewManager(c),
		index:  newSpatialIndex(),
	}
	log.Infof("roadway %.0fx%.0f mm, %d lanes, torus=%v", r.width, r.length, c.LaneCount, r.torus)
	return r, nil
}

func (r *Roadway) Width() float64 {
	return r.width
}

func (r *Roadway) Length() float64 {
	return r.length
}

func (r *Roadway) Torus() bool {
	return r.torus
}

func (r *Roadway) Lanes() entity.ILaneManager {
	return r.lanes
}

// Place 将新车辆放入空间索引，重复放入会panic
func (r *Roadway) Place(a entity.IAgent) {
	r.index.insert(a)
}

// Move 车辆位置变化后更新空间索引
func (r *Roadway) Move(a entity.IAgent) {
	r.index.remove(a)
	r.index.insert(a)
}

// Remove 从空间索引中移除车辆，不存在时忽略
func (r *Roadway) Remove(a entity.IAgent) {
	r.index.remove(a)
}

func (r *Roadway) Len() int {
	return r.index.len()
}

// Neighbors 邻居查询
// 功能：返回中心与(x,y)距离不超过radius的车辆，按ID升序
// 参数：self-查询者，includeSelf为false时结果中排除self
// 说明：首尾相接时查询区域跨越道路端点的部分会折回另一端
func (r *Roadway) Neighbors(x, y, radius float64, self entity.IAgent, includeSelf bool) []entity.IAgent {
	offsets := []float64{0}
	if r.torus {
		if y-radius < 0 {
			offsets = append(offsets, r.length)
		}
		if y+radius > r.length {
			offsets = append(offsets, -r.length)
		}
	}
	var skip int32 = -1
	if self != nil && !includeSelf {
		skip = self.ID()
	}
	return r.index.search(x, offsets, y, radius, skip)
}

// InBounds 纵向坐标是否仍在道路内
func (r *Roadway) InBounds(p geometry.Point) bool {
	return p.Y >= 0 && p.Y <= r.length
}

// Wrap 将纵向坐标折回[0, length)
func (r *Roadway) Wrap(y float64) float64 {
	y = math.Mod(y, r.length)
	if y < 0 {
		y += r.length
	}
	return y
}

// Unwrap 首尾相接时将纵向坐标y平移±length，使其与ref处于道路的同一圈
// 说明：开放道路原样返回
func (r *Roadway) Unwrap(y, ref float64) float64 {
	if !r.torus {
		return y
	}
	switch d := y - ref; {
	case d > r.length/2:
		return y - r.length
	case d < -r.length/2:
		return y + r.length
	default:
		return y
	}
}

// LongitudinalGap 从from向前到to的中心纵向距离
// 说明：开放道路直接相减（可能为负）；首尾相接时结果在[0, length)内
func (r *Roadway) LongitudinalGap(from, to float64) float64 {
	d := to - from
	if r.torus {
		d = r.Wrap(d)
	}
	return d
}

// Prepare 准备阶段，恢复各车道链表有序
func (r *Roadway) Prepare() {
	r.lanes.Prepare()
}

// rtree节点
type indexEntry struct {
	agent entity.IAgent
	rect  rtreego.Rect
}

func (e *indexEntry) Bounds() rtreego.Rect {
	return e.rect
}
