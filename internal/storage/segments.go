package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// SegFileName returns segment file name:
//   - seg 0: base
//   - seg N>0: base.N
func SegFileName(base string, segNo int32) string {
	if segNo <= 0 {
		return base
	}
	return fmt.Sprintf("%s.%d", base, segNo)
}

func segmentNumber(base, name string) (int32, bool) {
	if name == base {
		return 0, true
	}
	suf, ok := strings.CutPrefix(name, base+".")
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(suf, 10, 32)
	if err != nil || n <= 0 {
		return 0, false
	}
	return int32(n), true
}

// ListSegments returns the segment numbers present for lfs in ascending order.
func ListSegments(lfs LocalFileSet) ([]int32, error) {
	ents, err := os.ReadDir(lfs.Dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var segs []int32
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		if n, ok := segmentNumber(lfs.Base, e.Name()); ok {
			segs = append(segs, n)
		}
	}
	slices.Sort(segs)
	return segs, nil
}

// RemoveAllSegments removes Base, Base.1, Base.2, ...
func RemoveAllSegments(lfs LocalFileSet) error {
	segs, err := ListSegments(lfs)
	if err != nil {
		return err
	}
	for _, segNo := range segs {
		path := filepath.Join(lfs.Dir, SegFileName(lfs.Base, segNo))
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

// RenameAllSegments moves every segment of from onto to. Segments already at
// the target are replaced; stale higher segments of to are removed first.
func RenameAllSegments(from, to LocalFileSet) error {
	if err := os.MkdirAll(to.Dir, FileMode0755); err != nil {
		return err
	}
	segs, err := ListSegments(from)
	if err != nil {
		return err
	}
	if len(segs) == 0 {
		return fmt.Errorf("%w: no segments for %s", ErrPageNotFound, from.Base)
	}
	if err := RemoveAllSegments(to); err != nil {
		return err
	}
	for _, segNo := range segs {
		oldPath := filepath.Join(from.Dir, SegFileName(from.Base, segNo))
		newPath := filepath.Join(to.Dir, SegFileName(to.Base, segNo))
		if err := os.Rename(oldPath, newPath); err != nil {
			return err
		}
	}
	return nil
}
