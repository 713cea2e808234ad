package util

import (
	"io"
	"log/slog"
)

// CloseQuietly closes c and logs a failure instead of returning it.
func CloseQuietly(c io.Closer, what string) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		slog.Warn("close.failed", "what", what, "err", err)
	}
}
