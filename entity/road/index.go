package road

import (
	"math"
	"slices"

	"github.com/dhconnelly/rtreego"
	"github.com/tsinghua-fib-lab/highway-sim-oss/entity"
)

const (
	pointSize = 1. // 索引中车辆中心的包围盒边长（mm）
	minRadius = 1e-3
)

// spatialIndex 车辆中心点的R树索引
// 功能：以固定代价回答半径邻居查询
type spatialIndex struct {
	tree    *rtreego.Rtree
	entries map[int32]*indexEntry
}

func newSpatialIndex() *spatialIndex {
	return &spatialIndex{
		tree:    rtreego.NewTree(2, 25, 50),
		entries: make(map[int32]*indexEntry),
	}
}

func (s *spatialIndex) len() int {
	return len(s.entries)
}

func (s *spatialIndex) insert(a entity.IAgent) {
	if _, ok := s.entries[a.ID()]; ok {
		log.Panicf("agent %d already in spatial index", a.ID())
	}
	p := a.Position()
	rect, err := rtreego.NewRect(rtreego.Point{p.X - pointSize/2, p.Y - pointSize/2}, []float64{pointSize, pointSize})
	if err != nil {
		log.Panicf("bad rect for agent %d at %v: %v", a.ID(), p, err)
	}
	e := &indexEntry{agent: a, rect: rect}
	s.entries[a.ID()] = e
	s.tree.Insert(e)
}

func (s *spatialIndex) remove(a entity.IAgent) {
	e, ok := s.entries[a.ID()]
	if !ok {
		return
	}
	delete(s.entries, a.ID())
	if !s.tree.Delete(e) {
		log.Warnf("agent %d not found in rtree", a.ID())
	}
}

// search 查询以(x, y+offset)为中心的圆形区域，offset用于首尾折回
func (s *spatialIndex) search(x float64, offsets []float64, y, radius float64, skip int32) []entity.IAgent {
	radius = math.Max(radius, minRadius)
	found := make(map[int32]entity.IAgent)
	for _, off := range offsets {
		cy := y + off
		rect, err := rtreego.NewRect(rtreego.Point{x - radius, cy - radius}, []float64{2 * radius, 2 * radius})
		if err != nil {
			log.Panicf("bad search rect at (%v,%v) r=%v: %v", x, cy, radius, err)
		}
		for _, obj := range s.tree.SearchIntersect(rect) {
			a := obj.(*indexEntry).agent
			if a.ID() == skip {
				continue
			}
			p := a.Position()
			if math.Hypot(p.X-x, p.Y-cy) <= radius {
				found[a.ID()] = a
			}
		}
	}
	result := make([]entity.IAgent, 0, len(found))
	for _, a := range found {
		result = append(result, a)
	}
	slices.SortFunc(result, func(a, b entity.IAgent) int {
		return int(a.ID()) - int(b.ID())
	})
	return result
}
