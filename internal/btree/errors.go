package btree

import (
	"errors"
	"fmt"

	"github.com/tuannm99/novaspatial/internal/storage"
)

var (
	// ErrBadIndex reports a structural inconsistency of the tree.
	ErrBadIndex = errors.New("btree: bad index")

	// ErrEmptyTree is returned when the root page has no rows.
	ErrEmptyTree = errors.New("btree: empty tree")

	// ErrOutOfOrderInsert is returned by the builder when keys decrease.
	ErrOutOfOrderInsert = errors.New("btree: keys must be added in non-decreasing order")

	ErrBadRecord = errors.New("btree: record id out of range")
)

// CorruptionError describes where the tree went wrong. It matches ErrBadIndex
// and, when set, the underlying cause.
type CorruptionError struct {
	Page   storage.PageFileID
	Reason string
	Err    error
}

func (e *CorruptionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("btree: bad index at page %s: %s: %v", e.Page, e.Reason, e.Err)
	}
	return fmt.Sprintf("btree: bad index at page %s: %s", e.Page, e.Reason)
}

func (e *CorruptionError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrBadIndex, e.Err}
	}
	return []error{ErrBadIndex}
}

func corrupt(id storage.PageFileID, reason string, err error) error {
	return &CorruptionError{Page: id, Reason: reason, Err: err}
}
