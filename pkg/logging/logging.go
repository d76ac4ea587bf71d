// Package logging provides the append-only flat-file log sink. Each entry
// is a timestamp followed by a tab and the event message. The sink is wired
// in as a zerolog hook so every logger event is mirrored to the file; the
// send path never depends on the sink succeeding.
package logging

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const timeLayout = "2006-01-02 15:04:05"

// FileHook mirrors log events to an append-only text file.
type FileHook struct {
	mu  sync.Mutex
	f   *os.File
	now func() time.Time
}

var _ zerolog.Hook = (*FileHook)(nil)

func NewFileHook(path string) (*FileHook, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &FileHook{f: f, now: time.Now}, nil
}

// Run appends one line per event. Write errors are swallowed: a broken log
// file must not fail the send it is reporting on.
func (h *FileHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	if msg == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	_, _ = fmt.Fprintf(h.f, "%s\t%s\n", h.now().Format(timeLayout), msg)
}

func (h *FileHook) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.f.Close()
}
