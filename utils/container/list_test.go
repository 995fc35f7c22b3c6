package container_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/highway-sim-oss/utils/container"
)

type testData struct {
	id int
}

func (t testData) V() float64 {
	return 0
}

func (t testData) Length() float64 {
	return 4500
}

func newNode(s float64) *container.ListNode[testData] {
	return &container.ListNode[testData]{S: s, Value: testData{id: int(s)}}
}

func keys(l *container.List[testData]) []float64 {
	var s []float64
	for n := l.First(); n != nil; n = n.Next() {
		s = append(s, n.S)
	}
	return s
}

func TestListInit(t *testing.T) {
	l := &container.List[testData]{}
	assert.Nil(t, l.First())
	assert.Nil(t, l.Last())
	assert.Equal(t, 0, l.Len())
	assert.Empty(t, keys(l))
}

func TestListOperation(t *testing.T) {
	l := &container.List[testData]{}

	// test: insert

	// ^, 1, ^
	n1 := newNode(1)
	l.PushBack(n1)
	// ^, 2, 1, ^
	n2 := newNode(2)
	n1.InsertBefore(n2)
	// ^, 3, 2, 1, ^
	n3 := newNode(3)
	n2.InsertBefore(n3)
	// ^, 3, 2, 1, 4, ^
	n4 := newNode(4)
	n1.InsertAfter(n4)
	assert.Equal(t, 4, l.Len())

	// test: first last next prev

	n := l.First()
	assert.Equal(t, n3, n)
	n = n.Next()
	assert.Equal(t, n2, n)
	n = n.Next()
	assert.Equal(t, n1, n)
	assert.Equal(t, n, n.Next().Prev())
	assert.Equal(t, n, n.Prev().Next())
	n = n.Next()
	assert.Equal(t, n4, n)
	assert.Equal(t, n4, l.Last())
	assert.Equal(t, l, n4.Parent())

	// test: pop merge

	// before: head, 0, 3, 2, 1, 4, tail
	n0 := newNode(0)
	l.First().InsertBefore(n0)
	unsorted := l.PopUnsorted()
	assert.ElementsMatch(t, []*container.ListNode[testData]{n2, n1}, unsorted)
	assert.Equal(t, 5-2, l.Len())

	// head, 0, 1, 2, 3, 4, tail
	l.Merge(unsorted)
	assert.Equal(t, []float64{0, 1, 2, 3, 4}, keys(l))
	assert.Equal(t, n0, l.First())
	assert.Equal(t, n4, l.Last())

	// test: remove

	// head, 0, 1, 2, 3, tail
	l.Remove(n4)
	assert.Equal(t, n3, l.Last())
	assert.Equal(t, 5-1, l.Len())
	assert.Nil(t, n4.Parent())
	assert.Nil(t, n4.Prev())
}

func TestListMergeIntoEmpty(t *testing.T) {
	l := &container.List[testData]{}
	l.Merge([]*container.ListNode[testData]{newNode(30), newNode(10), newNode(20)})
	assert.Equal(t, []float64{10, 20, 30}, keys(l))
	assert.Equal(t, 3, l.Len())
	assert.Equal(t, testData{10}, l.First().Value)
	assert.Equal(t, testData{30}, l.Last().Value)
}

func TestListAround(t *testing.T) {
	for _, indexed := range []bool{false, true} {
		t.Run(fmt.Sprintf("indexed=%v", indexed), func(t *testing.T) {
			l := &container.List[testData]{}
			a, b, c := newNode(100), newNode(200), newNode(300)
			l.Merge([]*container.ListNode[testData]{a, b, c})
			if indexed {
				l.Index()
			}

			behind, ahead := l.Around(250, nil)
			assert.Equal(t, b, behind)
			assert.Equal(t, c, ahead)

			behind, ahead = l.Around(50, nil)
			assert.Nil(t, behind)
			assert.Equal(t, a, ahead)

			behind, ahead = l.Around(350, nil)
			assert.Equal(t, c, behind)
			assert.Nil(t, ahead)

			// 与节点键值相同时该节点在前方
			behind, ahead = l.Around(200, nil)
			assert.Equal(t, a, behind)
			assert.Equal(t, b, ahead)

			// 跳过自身
			behind, ahead = l.Around(200, b)
			assert.Equal(t, a, behind)
			assert.Equal(t, c, ahead)
			behind, ahead = l.Around(300, c)
			assert.Equal(t, b, behind)
			assert.Nil(t, ahead)
		})
	}
}

func TestListIndexInvalidated(t *testing.T) {
	l := &container.List[testData]{}
	a, c := newNode(100), newNode(300)
	l.Merge([]*container.ListNode[testData]{a, c})
	l.Index()
	// 索引建立后的插入与删除仍能被查到
	b := newNode(200)
	c.InsertBefore(b)
	behind, ahead := l.Around(150, nil)
	assert.Equal(t, a, behind)
	assert.Equal(t, b, ahead)
	l.Remove(b)
	behind, ahead = l.Around(150, nil)
	assert.Equal(t, a, behind)
	assert.Equal(t, c, ahead)
}
