// Package emit writes key events as newline-delimited JSON.
package emit

import (
	"bufio"
	"io"
	"sync"

	"keytap/keyevent"
)

// Emitter writes one line per event and flushes it before returning, so a
// downstream reader sees each event as soon as it happens.
type Emitter struct {
	mu    sync.Mutex
	w     *bufio.Writer
	buf   []byte
	count int
}

func New(w io.Writer) *Emitter {
	return &Emitter{
		w:   bufio.NewWriterSize(w, 128),
		buf: make([]byte, 0, 96),
	}
}

func (e *Emitter) Emit(ev keyevent.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.buf = ev.AppendJSON(e.buf[:0])
	e.buf = append(e.buf, '\n')
	if _, err := e.w.Write(e.buf); err != nil {
		return err
	}
	if err := e.w.Flush(); err != nil {
		return err
	}
	e.count++
	return nil
}

// Count returns the number of lines successfully written.
func (e *Emitter) Count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.count
}
