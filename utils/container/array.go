package container

// IIncrementalItem 支持增量更新的元素接口
// 功能：元素记录自己在数组中的位置，使删除可以按索引定位
type IIncrementalItem interface {
	Index() int         // 获取元素的索引
	SetIndex(index int) // 设置元素的索引
}

// IncrementalItemBase 增量元素基类，可嵌入结构体快速实现IIncrementalItem
type IncrementalItemBase struct {
	index int
}

func (b *IncrementalItemBase) Index() int {
	return b.index
}

func (b *IncrementalItemBase) SetIndex(index int) {
	b.index = index
}

// IncrementalArray 增量数组
// 功能：存储存活实体集合，添加和删除先进入缓冲区，在Prepare时统一生效
// 说明：Prepare保持剩余元素的相对顺序，新元素按添加顺序追加在末尾，
// 因此固定种子下的遍历顺序是确定的
type IncrementalArray[T IIncrementalItem] struct {
	data   []T // 主数据数组
	add    []T // 待添加的元素列表
	remove []T // 待删除的元素列表
}

// NewIncrementalArray 创建增量数组
func NewIncrementalArray[T IIncrementalItem]() *IncrementalArray[T] {
	return &IncrementalArray[T]{
		data:   make([]T, 0),
		add:    make([]T, 0),
		remove: make([]T, 0),
	}
}

// Len 当前数组长度（不含未生效的增删）
func (a *IncrementalArray[T]) Len() int {
	return len(a.data)
}

// Data 获取当前数据，调用方不应修改返回的切片
func (a *IncrementalArray[T]) Data() []T {
	return a.data
}

// Pending 待生效的添加与删除数量
func (a *IncrementalArray[T]) Pending() (add int, remove int) {
	return len(a.add), len(a.remove)
}

// Add 增加元素（等到Prepare时才会真正增加）
func (a *IncrementalArray[T]) Add(value T) {
	a.add = append(a.add, value)
}

// Remove 删除元素（等到Prepare时才会真正删除）
func (a *IncrementalArray[T]) Remove(value T) {
	a.remove = append(a.remove, value)
}

// Prepare 执行增量操作
// 功能：统一执行所有待处理的删除和添加操作
// 算法说明：
// 1. 按索引标记待删除的位置（重复删除同一元素只生效一次）
// 2. 原地压缩数组，保持剩余元素的相对顺序并更新索引
// 3. 追加新元素并设置索引
// 4. 清空待处理列表
func (a *IncrementalArray[T]) Prepare() {
	if len(a.remove) > 0 {
		dead := make(map[int]struct{}, len(a.remove))
		for _, x := range a.remove {
			dead[x.Index()] = struct{}{}
		}
		n := 0
		for i, x := range a.data {
			if _, ok := dead[i]; ok {
				continue
			}
			x.SetIndex(n)
			a.data[n] = x
			n++
		}
		// 释放尾部引用
		var zero T
		for i := n; i < len(a.data); i++ {
			a.data[i] = zero
		}
		a.data = a.data[:n]
	}
	for _, x := range a.add {
		x.SetIndex(len(a.data))
		a.data = append(a.data, x)
	}
	a.add = a.add[:0]
	a.remove = a.remove[:0]
}
