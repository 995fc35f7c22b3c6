package lane

import (
	"github.com/tsinghua-fib-lab/highway-sim-oss/entity"
)

// laneList 车道车辆列表
// 功能：管理车道上的车辆链表，增删操作先进入缓冲区，在prepare阶段统一生效
// 说明：模拟步内读取的始终是步开始时的链表，与车辆的snapshot保持一致
type laneList struct {
	list         *entity.VehicleList
	addBuffer    []*entity.VehicleNode
	removeBuffer []*entity.VehicleNode
}

func newLaneList(id string) laneList {
	return laneList{
		list:         &entity.VehicleList{ID: id},
		addBuffer:    make([]*entity.VehicleNode, 0),
		removeBuffer: make([]*entity.VehicleNode, 0),
	}
}

// prepare 应用缓冲区的增删，恢复链表按S升序并重建查找索引
// 说明：调用前节点的S应已更新为本步snapshot的纵向坐标
func (l *laneList) prepare() {
	for _, v := range l.removeBuffer {
		l.list.Remove(v)
	}
	unsorted := l.list.PopUnsorted()
	l.list.Merge(append(l.addBuffer, unsorted...))
	l.list.Index()
	l.removeBuffer = l.removeBuffer[:0]
	l.addBuffer = l.addBuffer[:0]
}

// add 添加节点到缓冲区，节点不能已属于某个链表
func (l *laneList) add(node *entity.VehicleNode) {
	if node.Parent() != nil {
		log.Panicf("add node %v who has parent %v", node, node.Parent())
	}
	l.addBuffer = append(l.addBuffer, node)
}

// remove 将节点加入删除缓冲区，节点必须属于本链表
// 说明：若节点仍在添加缓冲区中（同一步内生成又移除），直接从添加缓冲区撤销
func (l *laneList) remove(node *entity.VehicleNode) {
	if node.Parent() == nil {
		for i, n := range l.addBuffer {
			if n == node {
				l.addBuffer = append(l.addBuffer[:i], l.addBuffer[i+1:]...)
				return
			}
		}
	}
	if node.Parent() != l.list {
		log.Panicf("remove node %v (parent=%v) from wrong parent %+v", node, node.Parent(), l.list)
	}
	l.removeBuffer = append(l.removeBuffer, node)
}
