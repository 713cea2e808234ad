package storage

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
)

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Fprintf(format string, a ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, a...)
}

// Debug prints header, tree opaque and a hex preview of every row.
func (p *Page) Debug(w io.Writer) error {
	ew := &errWriter{w: w}

	ew.Fprintf("=== Page %s ===\n", p.ID())
	ew.Fprintf("flags=0x%04x lower=%d upper=%d special=%d free=%d rows=%d\n",
		p.flags(), p.lower(), p.upper(), p.special(), p.FreeSpace(), p.NumSlots())

	if p.IsTree() {
		if op, err := p.Opaque(); err != nil {
			ew.Fprintf("opaque: <error: %v>\n", err)
		} else {
			ew.Fprintf("kind=%s level=%d prev=%s next=%s\n", op.Kind, op.Level, op.Prev, op.Next)
		}
	}

	const maxPreview = 32
	for i := 0; i < p.NumSlots() && ew.err == nil; i++ {
		data, err := p.ReadTuple(i)
		if err != nil {
			ew.Fprintf("[%d] <error: %v>\n", i, err)
			continue
		}
		preview := data
		if len(preview) > maxPreview {
			preview = preview[:maxPreview]
		}
		ew.Fprintf("[%d] len=%d %s\n", i, len(data), hex.EncodeToString(preview))
	}
	return ew.err
}

func (p *Page) DebugString() string {
	var b bytes.Buffer
	if err := p.Debug(&b); err != nil {
		_, _ = b.WriteString("\n<debug write error: " + err.Error() + ">\n")
	}
	return b.String()
}
