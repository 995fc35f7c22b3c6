package lane

import (
	"git.fiblab.net/general/common/v2/parallel"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/highway-sim-oss/entity"
	"github.com/tsinghua-fib-lab/highway-sim-oss/utils/config"
)

// LaneManager Lane管理器
// 功能：按道路配置创建等间距排布的车道，提供按索引的查找
type LaneManager struct {
	lanes []*Lane
}

// NewManager 创建Lane管理器实例
// 功能：车道在道路宽度内居中排布，中心线间距为车道宽
// 参数：c-道路配置（已校验）
// 返回：新创建的Lane管理器实例
// 算法说明：
// 1. margin = (道路宽 - 车道数*车道宽) / 2
// 2. 第i条车道中心 = margin + (i+0.5)*车道宽
// 3. 建立左右相邻关系
func NewManager(c config.Road) *LaneManager {
	margin := (c.Width - float64(c.LaneCount)*c.LaneWidth) / 2
	m := &LaneManager{
		lanes: lo.Times(c.LaneCount, func(i int) *Lane {
			return newLane(i, margin+(float64(i)+.5)*c.LaneWidth, c.LaneWidth, c.Length)
		}),
	}
	for i, l := range m.lanes {
		if i > 0 {
			l.sideLanes[entity.LEFT] = m.lanes[i-1]
		}
		if i+1 < len(m.lanes) {
			l.sideLanes[entity.RIGHT] = m.lanes[i+1]
		}
	}
	return m
}

// Get 根据索引获取Lane实例，如果不存在则panic
func (m *LaneManager) Get(index int) entity.ILane {
	if index < 0 || index >= len(m.lanes) {
		log.Panicf("no index %d in lane data", index)
		return nil
	}
	return m.lanes[index]
}

func (m *LaneManager) All() []entity.ILane {
	return lo.Map(m.lanes, func(l *Lane, _ int) entity.ILane { return l })
}

func (m *LaneManager) Len() int {
	return len(m.lanes)
}

// Prepare 准备阶段，各车道独立维护自己的链表
func (m *LaneManager) Prepare() {
	parallel.GoFor(m.lanes, func(l *Lane) { l.prepare() })
}
