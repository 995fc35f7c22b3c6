package entity

// Manager依赖倒置

// entity/lane/manager.go的依赖倒置
type ILaneManager interface {
	// 输入车道索引，查找Lane，如果不存在则panic
	Get(index int) ILane
	// 所有车道，按索引排序
	All() []ILane
	// 车道数
	Len() int

	Prepare() // 准备阶段：应用链表增删并恢复有序
}
