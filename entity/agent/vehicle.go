package agent

import (
	"fmt"
	"math"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/tsinghua-fib-lab/highway-sim-oss/utils/collision"
)

const (
	zeroVThreshold = 1e-6 // 速度小于该值视为静止（mm/ms）
)

// VehicleClass 车型
type VehicleClass int32

const (
	VehicleSUV VehicleClass = iota
	VehicleTruck
	VehicleMotorcycle
)

// 车型尺寸（长、宽，mm）
var vehicleDimensions = [...][2]float64{
	VehicleSUV:        {4595, 1880},
	VehicleTruck:      {5887, 2690},
	VehicleMotorcycle: {2410, 975},
}

// 最长车型的车长，用于邻居查询半径
var maxVehicleLength = vehicleDimensions[VehicleTruck][0]

func (c VehicleClass) String() string {
	switch c {
	case VehicleSUV:
		return "suv"
	case VehicleTruck:
		return "truck"
	case VehicleMotorcycle:
		return "motorcycle"
	default:
		return fmt.Sprintf("VehicleClass(%d)", int32(c))
	}
}

// Dimensions 车型的车长与车宽
func (c VehicleClass) Dimensions() (length, width float64) {
	d := vehicleDimensions[c]
	return d[0], d[1]
}

// vehicleBody 车辆刚体状态
// 功能：位置、速度、加速度与尺寸，x为横向，y为纵向
type vehicleBody struct {
	Position     geometry.Point // 中心坐标（mm）
	Velocity     geometry.Point // 速度（mm/ms）
	Acceleration geometry.Point // 加速度（mm/ms²）
	Length       float64        // 车长（mm）
	Width        float64        // 车宽（mm）
}

// newVehicleBody 创建车辆刚体，要求length > width > 0
func newVehicleBody(pos geometry.Point, length, width float64) (vehicleBody, error) {
	if !(length > width && width > 0) {
		return vehicleBody{}, fmt.Errorf("vehicle must satisfy length > width > 0, got %vx%v", length, width)
	}
	return vehicleBody{Position: pos, Length: length, Width: width}, nil
}

// SetAcceleration 覆盖加速度
func (b *vehicleBody) SetAcceleration(a geometry.Point) {
	b.Acceleration = a
}

// integrateVelocity 速度积分：v += a*dt，纵向速度不小于0
func (b *vehicleBody) integrateVelocity(dt float64) {
	b.Velocity.X += b.Acceleration.X * dt
	b.Velocity.Y += b.Acceleration.Y * dt
	if b.Velocity.Y < 0 {
		b.Velocity.Y = 0
	}
}

// integratePosition 位置积分：p += v*dt
func (b *vehicleBody) integratePosition(dt float64) {
	b.Position.X += b.Velocity.X * dt
	b.Position.Y += b.Velocity.Y * dt
}

// Speed 速度大小
func (b *vehicleBody) Speed() float64 {
	return math.Hypot(b.Velocity.X, b.Velocity.Y)
}

// heading 朝向角，静止时返回fallback
func (b *vehicleBody) heading(fallback float64) float64 {
	if b.Speed() < zeroVThreshold {
		return fallback
	}
	return math.Atan2(b.Velocity.Y, b.Velocity.X)
}

func (b *vehicleBody) obb() collision.OBB {
	return collision.New(b.Position.X, b.Position.Y, b.Velocity.X, b.Velocity.Y, b.Length, b.Width)
}
