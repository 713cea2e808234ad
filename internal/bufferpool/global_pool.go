package bufferpool

import (
	"log/slog"
	"sync"

	"github.com/tuannm99/novaspatial/internal/storage"
)

var DefaultCapacity = 128

var _ storage.Source = (*GlobalPool)(nil)

// GlobalPool is a single shared page cache for every tree file. Pages are
// immutable once loaded and never written through the pool, so frames carry
// no pins: eviction only drops the frame and readers keep their *Page.
type GlobalPool struct {
	src storage.Source

	mu     sync.Mutex
	frames []*Frame                   // len == capacity, nil == free slot
	table  map[storage.PageFileID]int // page -> frame index
	repl   Replacer
	stats  Stats
}

type Frame struct {
	ID   storage.PageFileID
	Page *storage.Page
}

type Stats struct {
	Capacity  int    `json:"capacity" yaml:"capacity"`
	Resident  int    `json:"resident" yaml:"resident"`
	Hits      uint64 `json:"hits" yaml:"hits"`
	Misses    uint64 `json:"misses" yaml:"misses"`
	Evictions uint64 `json:"evictions" yaml:"evictions"`
}

func NewGlobalPool(src storage.Source, capacity int) *GlobalPool {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &GlobalPool{
		src:    src,
		frames: make([]*Frame, capacity),
		table:  make(map[storage.PageFileID]int),
		repl:   newClock(capacity),
	}
}

// LoadPage resolves a page through the cache. The caller may hold on to the
// result after the frame is evicted.
func (g *GlobalPool) LoadPage(id storage.PageFileID) (*storage.Page, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if idx, ok := g.table[id]; ok {
		g.repl.RecordAccess(idx)
		g.stats.Hits++
		return g.frames[idx].Page, nil
	}
	g.stats.Misses++

	page, err := g.src.LoadPage(id)
	if err != nil {
		return nil, err
	}

	// free slot first, then a victim
	idx := -1
	for i, f := range g.frames {
		if f == nil {
			idx = i
			break
		}
	}
	if idx == -1 {
		victim, ok := g.repl.Evict()
		if !ok {
			// every slot is taken and tracked, so this cannot happen
			return page, nil
		}
		delete(g.table, g.frames[victim].ID)
		g.frames[victim] = nil
		g.stats.Evictions++
		idx = victim
	}

	g.frames[idx] = &Frame{ID: id, Page: page}
	g.table[id] = idx
	g.repl.RecordAccess(idx)
	return page, nil
}

// DropFile forgets every cached page of a data file. It must run before the
// file is replaced on disk.
func (g *GlobalPool) DropFile(file uint16) {
	g.mu.Lock()
	defer g.mu.Unlock()

	dropped := 0
	for i, f := range g.frames {
		if f == nil || f.ID.File != file {
			continue
		}
		delete(g.table, f.ID)
		g.frames[i] = nil
		g.repl.Remove(i)
		dropped++
	}
	slog.Debug("bufferpool.drop_file", "file", file, "frames", dropped)
}

func (g *GlobalPool) Stats() Stats {
	g.mu.Lock()
	defer g.mu.Unlock()
	s := g.stats
	s.Capacity = len(g.frames)
	s.Resident = len(g.table)
	return s
}
