package runner

import (
	"io"
	"sync"
)

// lockedWriter serializes writes to an underlying writer.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

// Write writes to the underlying writer with a mutex guard.
func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// Fd exposes the wrapped file descriptor so terminal detection still works.
func (l *lockedWriter) Fd() uintptr {
	if fder, ok := l.w.(interface{ Fd() uintptr }); ok {
		return fder.Fd()
	}
	return ^uintptr(0)
}

// wrapVerboseWriters returns concurrency-safe writers. Units of every
// backend log from their own goroutines.
func wrapVerboseWriters(verboseWriter io.Writer, verboseLogWriter io.Writer) (io.Writer, io.Writer) {
	if verboseWriter != nil {
		verboseWriter = &lockedWriter{w: verboseWriter}
	}
	if verboseLogWriter != nil {
		verboseLogWriter = &lockedWriter{w: verboseLogWriter}
	}
	return verboseWriter, verboseLogWriter
}
