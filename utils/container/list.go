package container

import (
	"cmp"
	"fmt"
	"log"
	"slices"
)

// IHasVAndLength 具有速度和长度属性的接口
// 功能：定义车辆作为链表元素时需要的关键信息接口
// 说明：链表按纵向坐标S升序排列，便于查找前后车
type IHasVAndLength interface {
	V() float64      // 获取纵向速度（mm/ms）
	Length() float64 // 获取车长（mm）
}

// ListNode 有序双向链表中的节点
type ListNode[T IHasVAndLength] struct {
	parent     *List[T]     // 所属链表
	prev, next *ListNode[T] // 前驱和后继节点
	S          float64      // 键值（纵向坐标y）
	Value      T            // 节点值
}

func (n *ListNode[T]) String() string {
	return fmt.Sprintf("Node{Key:%v, Value:%+v}", n.S, n.Value)
}

// Prev 前驱节点（更靠后的车），第一个节点返回nil
func (n *ListNode[T]) Prev() *ListNode[T] {
	return n.prev
}

// Next 后继节点（更靠前的车），最后一个节点返回nil
func (n *ListNode[T]) Next() *ListNode[T] {
	return n.next
}

// Parent 节点所在的链表
func (n *ListNode[T]) Parent() *List[T] {
	return n.parent
}

// InsertBefore 在节点前插入新节点
// 功能：在当前节点之前插入一个新节点，不检查S的顺序
// 参数：add-要插入的新节点，不能已属于某个链表
func (n *ListNode[T]) InsertBefore(add *ListNode[T]) {
	if add.parent != nil {
		log.Panic("insert node who already in list")
	}
	add.parent = n.parent
	add.next = n
	add.prev = n.prev
	n.prev = add
	if add.prev != nil {
		add.prev.next = add
	} else {
		add.parent.head = add
	}
	n.parent.length++
	n.parent.indexed = false
}

// InsertAfter 在节点后插入新节点
// 功能：在当前节点之后插入一个新节点，不检查S的顺序
// 参数：add-要插入的新节点，不能已属于某个链表
func (n *ListNode[T]) InsertAfter(add *ListNode[T]) {
	if add.parent != nil {
		log.Panic("insert node who already in list")
	}
	add.parent = n.parent
	add.prev = n
	add.next = n.next
	n.next = add
	if add.next != nil {
		add.next.prev = add
	} else {
		add.parent.tail = add
	}
	n.parent.length++
	n.parent.indexed = false
}

// List 按S升序排列的双向链表
// 功能：作为每条车道的车辆索引，回答"前车/后车是谁"的查询
// 说明：节点的S在模拟步内可能被修改，由PopUnsorted+Merge在准备阶段统一恢复有序性
type List[T IHasVAndLength] struct {
	ID         string       // 链表标识符
	head, tail *ListNode[T] // 头尾节点指针
	length     int          // 链表长度

	index   []*ListNode[T] // Index建立的有序节点数组
	indexed bool           // index是否与链表一致，任何增删都会使其失效
}

func (l *List[T]) String() string {
	return fmt.Sprintf("List{ID:%v}", l.ID)
}

// Len 链表长度
func (l *List[T]) Len() int {
	return l.length
}

// PushBack 向链表尾部插入节点
func (l *List[T]) PushBack(add *ListNode[T]) {
	if add.parent != nil {
		log.Panic("push back node who already in list")
	}
	add.next = nil
	add.prev = nil
	if l.tail == nil {
		add.parent = l
		l.head = add
		l.tail = add
		l.length++
		l.indexed = false
	} else {
		// length++和add.parent在InsertAfter中处理
		l.tail.InsertAfter(add)
	}
}

// Remove 从链表中移除节点
// 功能：断开节点与链表的所有连接，节点可以被重新插入其他链表
// 参数：node-要删除的节点，必须属于当前链表
func (l *List[T]) Remove(node *ListNode[T]) {
	if node.parent != l {
		log.Panic("remove node from wrong list")
	}
	if node.prev != nil {
		node.prev.next = node.next
	} else {
		l.head = node.next
	}
	if node.next != nil {
		node.next.prev = node.prev
	} else {
		l.tail = node.prev
	}
	node.prev = nil
	node.next = nil
	node.parent = nil
	l.length--
	l.indexed = false
}

// First 链表头部节点（S最小）
func (l *List[T]) First() *ListNode[T] {
	return l.head
}

// Last 链表尾部节点（S最大）
func (l *List[T]) Last() *ListNode[T] {
	return l.tail
}

// PopUnsorted 移除逆序节点
// 功能：移除链表中键值逆序的节点（前驱节点的键值大于当前节点），剩余节点保持升序
// 返回：被移除的逆序节点数组
func (l *List[T]) PopUnsorted() (unsorted []*ListNode[T]) {
	for node := l.head; node != nil; {
		next := node.next
		if node.prev != nil && node.prev.S > node.S {
			l.Remove(node)
			unsorted = append(unsorted, node)
		}
		node = next
	}
	return unsorted
}

// Merge 批量有序插入节点
// 功能：将一组节点按S插入到有序链表中，S相同时新节点排在已有节点之前
// 参数：adds-待插入节点，函数会对其原地排序
func (l *List[T]) Merge(adds []*ListNode[T]) {
	slices.SortStableFunc(adds, func(a, b *ListNode[T]) int {
		switch {
		case a.S < b.S:
			return -1
		case a.S > b.S:
			return 1
		default:
			return 0
		}
	})
	node := l.head
	for _, add := range adds {
		for node != nil && node.S < add.S {
			node = node.next
		}
		if node != nil {
			node.InsertBefore(add)
		} else {
			l.PushBack(add)
		}
	}
}

// Index 按当前顺序建立节点数组，使Around可以二分查找
// 说明：须在链表有序时调用；之后的任何增删都会使索引失效，Around退化为顺序查找
func (l *List[T]) Index() {
	l.index = l.index[:0]
	for node := l.head; node != nil; node = node.next {
		l.index = append(l.index, node)
	}
	l.indexed = true
}

// Around 查询键值s两侧最近的节点
// 功能：返回S<s的最后一个节点与S>=s的第一个节点，用于非本车道成员（如目标车道）的前后车查询
// 参数：s-查询位置，skip-需要忽略的节点（通常为自身），可为nil
// 返回：behind-后方最近节点，ahead-前方最近节点，不存在则为nil
// 算法说明：索引有效时二分查找，否则从头顺序查找
func (l *List[T]) Around(s float64, skip *ListNode[T]) (behind, ahead *ListNode[T]) {
	if !l.indexed {
		for node := l.head; node != nil; node = node.next {
			if node == skip {
				continue
			}
			if node.S < s {
				behind = node
			} else {
				ahead = node
				break
			}
		}
		return
	}
	i, _ := slices.BinarySearchFunc(l.index, s, func(n *ListNode[T], s float64) int {
		return cmp.Compare(n.S, s)
	})
	for j := i; j < len(l.index); j++ {
		if l.index[j] != skip {
			ahead = l.index[j]
			break
		}
	}
	for j := i - 1; j >= 0; j-- {
		if l.index[j] != skip {
			behind = l.index[j]
			break
		}
	}
	return
}
