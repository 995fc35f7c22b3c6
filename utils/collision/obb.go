// 有向包围盒（OBB）碰撞检测，基于geometry.Rect的分离轴算法
package collision

import (
	"math"

	"git.fiblab.net/general/common/v2/geometry"
)

const (
	eps     = 1e-9
	laneYaw = math.Pi / 2 // 静止时的车头方向（沿道路纵向）
)

// OBB 有向矩形
// 功能：描述车辆在平面上的占用区域
// 说明：Yaw为车头方向角，Length沿车头方向，Width沿其法向
type OBB struct {
	geometry.Rect
}

// New 由车辆状态构造OBB
// 功能：以速度方向作为车头方向，速度接近0时退化为车道方向(0,1)
// 参数：cx,cy-中心，vx,vy-速度，length,width-车长车宽
func New(cx, cy, vx, vy, length, width float64) OBB {
	yaw := laneYaw
	if math.Hypot(vx, vy) > eps {
		yaw = math.Atan2(vy, vx)
	}
	return OBB{Rect: geometry.NewRect(geometry.Point{X: cx, Y: cy}, length, width, yaw)}
}

// Shift 纵向平移dy后的OBB，用于首尾相接道路跨越端点的比较
func (b OBB) Shift(dy float64) OBB {
	return OBB{Rect: geometry.NewRect(b.Center.Add(geometry.Point{Y: dy}), b.Length, b.Width, b.Yaw)}
}

// Intersects 判断两个OBB是否相交
// 功能：在两个矩形的4条边方向上投影全部角点，任一轴上投影区间分离即不相交
// 返回：重叠或边界接触返回true；结果与参数顺序无关
func Intersects(a, b OBB) bool {
	return a.OverlapWithRect(b.Rect)
}
