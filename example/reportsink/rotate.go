package reportsink

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// RotatingWriter is an io.Writer that rolls over to a new file once the
// current one reaches maxBytes. It is a deliberately small stand-in for
// the double-buffered, background-flushed log file a production reporter
// would use: synchronous and single-file-at-a-time, with none of the
// async queueing.
type RotatingWriter struct {
	mu       sync.Mutex
	dir      string
	prefix   string
	maxBytes int64
	seq      int
	cur      *os.File
	curBytes int64
}

// NewRotatingWriter creates a RotatingWriter under dir, naming each file
// prefix.N.log. maxBytes must be positive.
func NewRotatingWriter(dir, prefix string, maxBytes int64) (*RotatingWriter, error) {
	if maxBytes <= 0 {
		panic(fmt.Sprintf("reportsink: invalid maxBytes: %d", maxBytes))
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &RotatingWriter{dir: dir, prefix: prefix, maxBytes: maxBytes}, nil
}

// Write implements io.Writer, rotating to a fresh file first if p would
// push the current one past maxBytes.
func (w *RotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cur == nil || w.curBytes+int64(len(p)) > w.maxBytes {
		if err := w.rotate(); err != nil {
			return 0, err
		}
	}
	n, err := w.cur.Write(p)
	w.curBytes += int64(n)
	return n, err
}

func (w *RotatingWriter) rotate() error {
	if w.cur != nil {
		if err := w.cur.Close(); err != nil {
			return err
		}
	}
	name := filepath.Join(w.dir, fmt.Sprintf("%s.%d.log", w.prefix, w.seq))
	w.seq++
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	w.cur = f
	w.curBytes = 0
	return nil
}

// Close closes the current underlying file, if any.
func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cur == nil {
		return nil
	}
	err := w.cur.Close()
	w.cur = nil
	return err
}
