package clock

import (
	"fmt"

	"git.fiblab.net/sim/protos/v2/go/city/clock/v1/clockv1connect"
	"github.com/tsinghua-fib-lab/highway-sim-oss/utils/config"
)

// Clock 仿真时钟
// 功能：管理仿真系统的时间推进，时间单位为毫秒
// 说明：维护当前仿真时间、步数等信息，提供时间格式化和RPC服务
type Clock struct {
	clockv1connect.UnimplementedClockServiceHandler

	DT         float64 // 每个模拟步时间间隔（ms）
	START_STEP int32   // 起始步
	END_STEP   int32   // 结束步，模拟区间[START, END)

	T            float64 // 当前时间（ms）
	InternalStep int32   // 当前步数
}

// New 根据配置创建新的时钟实例
// 参数：stepConfig-控制步配置
// 返回：初始化完成的时钟实例
func New(stepConfig config.ControlStep) *Clock {
	c := &Clock{
		DT:         stepConfig.Interval,
		START_STEP: stepConfig.Start,
		END_STEP:   stepConfig.Start + stepConfig.Total,
	}
	c.Init()
	return c
}

// Init 重置时钟到起始步
func (c *Clock) Init() {
	c.InternalStep = c.START_STEP
	c.T = float64(c.InternalStep) * c.DT
}

// Tick 时钟前进一步
func (c *Clock) Tick() {
	c.InternalStep++
	c.T = float64(c.InternalStep) * c.DT
}

// Elapsed 从起始步开始经过的时间（ms）
func (c *Clock) Elapsed() float64 {
	return float64(c.InternalStep-c.START_STEP) * c.DT
}

// Done 是否已到达结束步
func (c *Clock) Done() bool {
	return c.InternalStep >= c.END_STEP
}

// Seconds 当前时间（s）
func (c *Clock) Seconds() float64 {
	return c.T / 1000
}

// String 格式化为HH:MM:SS.mmm
func (c *Clock) String() string {
	h, m, s := c.GetHourMinuteSecond()
	return fmt.Sprintf("%02d:%02d:%06.3f", h, m, s)
}

// GetHourMinuteSecond 获取当前时间的小时、分钟、秒
// 返回：小时、分钟、秒（秒为浮点数，保留毫秒精度）
func (c *Clock) GetHourMinuteSecond() (int, int, float64) {
	t := c.Seconds()
	hour := int(t) / 3600
	minute := int(t) % 3600 / 60
	second := t - float64(hour*3600+minute*60)
	return hour, minute, second
}
