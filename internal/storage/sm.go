package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/tuannm99/novaspatial/internal/alias/util"
)

type FileSet interface {
	OpenSegment(segNo int32, create bool) (*os.File, error)
}

var _ FileSet = (*LocalFileSet)(nil)

// LocalFileSet represents a local directory + base file name.
// Segments are stored as: Base, Base.1, Base.2, ...
type LocalFileSet struct {
	Dir  string
	Base string
}

func (lfs LocalFileSet) OpenSegment(segNo int32, create bool) (*os.File, error) {
	path := filepath.Join(lfs.Dir, SegFileName(lfs.Base, segNo))
	if !create {
		return os.Open(path)
	}
	if err := os.MkdirAll(lfs.Dir, FileMode0755); err != nil {
		return nil, err
	}
	// RDWR | CREATE (no truncate)
	return os.OpenFile(path, os.O_RDWR|os.O_CREATE, FileMode0644)
}

// StorageManager maps a page number -> (segment, offset).
type StorageManager struct{}

func NewStorageManager() *StorageManager {
	return &StorageManager{}
}

func (sm *StorageManager) locate(page uint32) (segNo int32, offset int64) {
	segNo = int32(page / MaxPagePerSegment)
	offset = int64(page%MaxPagePerSegment) * PageSize
	return segNo, offset
}

// ReadPage reads exactly one page (PageSize bytes) into dst. A page past the
// end of its segment, or in a missing segment, is ErrPageNotFound.
func (sm *StorageManager) ReadPage(fs FileSet, page uint32, dst []byte) error {
	if len(dst) != PageSize {
		return ErrWrongSize
	}
	segNo, off := sm.locate(page)
	f, err := fs.OpenSegment(segNo, false)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: page %d", ErrPageNotFound, page)
		}
		return fmt.Errorf("%w: %v", ErrStorageIO, err)
	}
	defer util.CloseQuietly(f, "segment")

	n, err := f.ReadAt(dst, off)
	if n == 0 && errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: page %d", ErrPageNotFound, page)
	}
	if n != PageSize {
		if err == nil || errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: short page %d (%d bytes)", ErrPageCorrupted, page, n)
		}
		return fmt.Errorf("%w: %v", ErrStorageIO, err)
	}
	return nil
}

// WritePage writes exactly one page (PageSize bytes) from src to disk
// at the location computed from page.
func (sm *StorageManager) WritePage(fs FileSet, page uint32, src []byte) error {
	if len(src) != PageSize {
		return ErrWrongSize
	}
	segNo, off := sm.locate(page)
	f, err := fs.OpenSegment(segNo, true)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageIO, err)
	}
	defer util.CloseQuietly(f, "segment")

	n, err := f.WriteAt(src, off)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageIO, err)
	}
	if n != PageSize {
		return io.ErrShortWrite
	}
	return nil
}

// LoadPage reads a page into memory and returns a Page wrapper.
func (sm *StorageManager) LoadPage(fs FileSet, page uint32) (*Page, error) {
	buf := make([]byte, PageSize)
	if err := sm.ReadPage(fs, page, buf); err != nil {
		return nil, err
	}
	p, err := PageFrom(buf)
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", page, err)
	}
	return p, nil
}

// SavePage writes the in-memory Page back to disk.
func (sm *StorageManager) SavePage(fs FileSet, page uint32, p *Page) error {
	return sm.WritePage(fs, page, p.Buf)
}

// CountPages computes total pages for a given FileSet by scanning all segments.
func (sm *StorageManager) CountPages(fs FileSet) (uint32, error) {
	var total uint32
	for segNo := int32(0); ; segNo++ {
		f, err := fs.OpenSegment(segNo, false)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				break
			}
			return 0, err
		}
		info, statErr := f.Stat()
		_ = f.Close()
		if statErr != nil {
			return 0, statErr
		}
		total += uint32(info.Size() / PageSize)
	}
	return total, nil
}
