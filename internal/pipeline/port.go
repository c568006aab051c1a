package pipeline

import (
	"context"
	"sync"

	"sector-grid/internal/geo"
)

// Port：结果持久化能力，由调用方注入
// 约束：实现需幂等；重复保存同一 ID 不得产生重复记录
type Port interface {
	SavePoints(ctx context.Context, pts []geo.GridPoint) error
	SaveSectors(ctx context.Context, sectors []geo.Sector) error
	SaveIntersections(ctx context.Context, pairs []geo.Intersection) error
}

// Fanout：按顺序写入多个落地端，nil 项跳过；第一个错误即返回
type Fanout []Port

// NewFanout：过滤掉 nil 落地端
func NewFanout(ports ...Port) Fanout {
	var out Fanout
	for _, p := range ports {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

func (f Fanout) SavePoints(ctx context.Context, pts []geo.GridPoint) error {
	for _, p := range f {
		if err := p.SavePoints(ctx, pts); err != nil {
			return err
		}
	}
	return nil
}

func (f Fanout) SaveSectors(ctx context.Context, sectors []geo.Sector) error {
	for _, p := range f {
		if err := p.SaveSectors(ctx, sectors); err != nil {
			return err
		}
	}
	return nil
}

func (f Fanout) SaveIntersections(ctx context.Context, pairs []geo.Intersection) error {
	for _, p := range f {
		if err := p.SaveIntersections(ctx, pairs); err != nil {
			return err
		}
	}
	return nil
}

// Memory：进程内落地端，按 ID 去重并保留首次写入顺序；用于测试与导出
type Memory struct {
	mu            sync.Mutex
	Points        []geo.GridPoint
	Sectors       []geo.Sector
	Intersections []geo.Intersection
	pointIDs      map[string]struct{}
	sectorIDs     map[string]struct{}
	pairs         map[geo.Intersection]struct{}
}

func NewMemory() *Memory {
	return &Memory{
		pointIDs:  map[string]struct{}{},
		sectorIDs: map[string]struct{}{},
		pairs:     map[geo.Intersection]struct{}{},
	}
}

func (m *Memory) SavePoints(_ context.Context, pts []geo.GridPoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range pts {
		if _, ok := m.pointIDs[p.ID]; ok {
			continue
		}
		m.pointIDs[p.ID] = struct{}{}
		m.Points = append(m.Points, p)
	}
	return nil
}

func (m *Memory) SaveSectors(_ context.Context, sectors []geo.Sector) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range sectors {
		if _, ok := m.sectorIDs[s.ID]; ok {
			continue
		}
		m.sectorIDs[s.ID] = struct{}{}
		m.Sectors = append(m.Sectors, s)
	}
	return nil
}

func (m *Memory) SaveIntersections(_ context.Context, pairs []geo.Intersection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range pairs {
		if _, ok := m.pairs[x]; ok {
			continue
		}
		m.pairs[x] = struct{}{}
		m.Intersections = append(m.Intersections, x)
	}
	return nil
}
