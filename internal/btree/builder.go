package btree

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/tuannm99/novaspatial/internal/storage"
)

// BuildOptions caps rows per page. Zero means fill the page.
type BuildOptions struct {
	MaxLeafRows  int
	MaxInnerRows int
}

// BuildResult describes a finished tree.
type BuildResult struct {
	Root       storage.PageFileID `json:"root"`
	Height     int                `json:"height"`
	Rows       int                `json:"rows"`
	LeafPages  int                `json:"leaf_pages"`
	InnerPages int                `json:"inner_pages"`
	// NextPage is the first unused page number of the file.
	NextPage uint32 `json:"next_page"`
}

type childRef[K any] struct {
	key K
	id  storage.PageFileID
}

// levelWriter fills the pages of one tree level left to right.
type levelWriter[K any] struct {
	b       *Builder[K]
	op      storage.TreeOpaque
	maxRows int

	cur   *storage.Page
	n     int
	pages int
	refs  []childRef[K]
}

func (w *levelWriter[K]) start(prev storage.PageFileID) error {
	op := w.op
	op.Prev = prev
	p, err := storage.NewTreePage(make([]byte, storage.PageSize), w.b.alloc(), op)
	if err != nil {
		return err
	}
	w.cur, w.n = p, 0
	return nil
}

// roll writes the current page linked to a freshly allocated right sibling.
func (w *levelWriter[K]) roll() error {
	done := w.cur
	if err := w.start(done.ID()); err != nil {
		return err
	}
	op, err := done.Opaque()
	if err != nil {
		return err
	}
	op.Next = w.cur.ID()
	done.SetOpaque(op)
	return w.save(done)
}

func (w *levelWriter[K]) save(p *storage.Page) error {
	w.pages++
	return w.b.sink.SavePage(p.ID(), p)
}

func (w *levelWriter[K]) add(key K, tup []byte) error {
	if w.cur == nil {
		if err := w.start(storage.InvalidPage); err != nil {
			return err
		}
	} else if w.maxRows > 0 && w.n >= w.maxRows {
		if err := w.roll(); err != nil {
			return err
		}
	}

	_, err := w.cur.InsertTuple(tup)
	if errors.Is(err, storage.ErrNoSpace) && w.n > 0 {
		if err = w.roll(); err != nil {
			return err
		}
		_, err = w.cur.InsertTuple(tup)
	}
	if err != nil {
		return err
	}
	if w.n == 0 {
		w.refs = append(w.refs, childRef[K]{key: key, id: w.cur.ID()})
	}
	w.n++
	return nil
}

// finish writes the last page. An untouched level still gets one page.
func (w *levelWriter[K]) finish() error {
	if w.cur == nil {
		if err := w.start(storage.InvalidPage); err != nil {
			return err
		}
		w.refs = append(w.refs, childRef[K]{id: w.cur.ID()})
	}
	err := w.save(w.cur)
	w.cur = nil
	return err
}

// Builder bulk-loads rows given in non-decreasing key order into a fresh
// file. Leaves are written as they fill; index levels are written by Finish.
// Inner rows hold the first key of their child. Page 0 is left for the file
// meta page.
type Builder[K any] struct {
	sink  storage.Sink
	file  uint16
	codec Codec[K]
	opts  BuildOptions

	next    uint32
	leaves  *levelWriter[K]
	last    K
	hasLast bool
	rows    int
}

func NewBuilder[K any](sink storage.Sink, file uint16, codec Codec[K], opts BuildOptions) *Builder[K] {
	// one row per inner page would never converge to a root
	if opts.MaxInnerRows == 1 {
		opts.MaxInnerRows = 2
	}
	b := &Builder[K]{sink: sink, file: file, codec: codec, opts: opts, next: 1}
	b.leaves = &levelWriter[K]{b: b, op: storage.TreeOpaque{Kind: storage.KindLeaf}, maxRows: opts.MaxLeafRows}
	return b
}

func (b *Builder[K]) alloc() storage.PageFileID {
	id := storage.PageFileID{File: b.file, Page: b.next}
	b.next++
	return id
}

// Add appends one leaf row.
func (b *Builder[K]) Add(key K, payload []byte) error {
	if b.hasLast && b.codec.Compare(key, b.last) < 0 {
		return ErrOutOfOrderInsert
	}
	if err := b.leaves.add(key, encodeLeafEntry(b.codec, key, payload)); err != nil {
		return fmt.Errorf("btree: add row %d: %w", b.rows, err)
	}
	b.rows++
	b.last, b.hasLast = key, true
	return nil
}

// Finish writes the last leaf and the index levels above it. A builder with
// no rows produces a single empty leaf, which Open rejects with ErrEmptyTree.
func (b *Builder[K]) Finish() (BuildResult, error) {
	if err := b.leaves.finish(); err != nil {
		return BuildResult{}, err
	}
	res := BuildResult{Rows: b.rows, LeafPages: b.leaves.pages}

	level := uint8(0)
	refs := b.leaves.refs
	for len(refs) > 1 {
		level++
		w := &levelWriter[K]{
			b:       b,
			op:      storage.TreeOpaque{Kind: storage.KindInner, Level: level},
			maxRows: b.opts.MaxInnerRows,
		}
		for _, r := range refs {
			if err := w.add(r.key, encodeInnerEntry(b.codec, r.key, r.id)); err != nil {
				return BuildResult{}, fmt.Errorf("btree: write level %d: %w", level, err)
			}
		}
		if err := w.finish(); err != nil {
			return BuildResult{}, err
		}
		res.InnerPages += w.pages
		refs = w.refs
	}

	res.Root = refs[0].id
	res.Height = int(level) + 1
	res.NextPage = b.next
	if err := writeMeta(b.sink, b.file, b.codec.Size(), res); err != nil {
		return BuildResult{}, err
	}
	slog.Debug("btree.build.finish",
		"root", res.Root.String(),
		"height", res.Height,
		"rows", res.Rows,
		"leafPages", res.LeafPages,
		"innerPages", res.InnerPages,
	)
	return res, nil
}
