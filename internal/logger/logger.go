package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

// rotatingWriter is an io.Writer that rolls the log file over once it grows
// past maxSize bytes, keeping up to maxBackups older files.
type rotatingWriter struct {
	path       string
	maxSize    int64
	maxBackups int

	mu   sync.Mutex
	file *os.File
	size int64
}

// Setup points the standard logger at stdout plus a rotating file. A file
// open failure is not fatal; logging falls back to stdout only.
func Setup(path string, maxSizeMB int64, maxBackups int) {
	w := &rotatingWriter{
		path:       path,
		maxSize:    maxSizeMB * 1024 * 1024,
		maxBackups: maxBackups,
	}

	if err := w.open(); err != nil {
		log.Printf("WARN: log file unavailable, stdout only: %v", err)
		return
	}

	log.SetOutput(io.MultiWriter(os.Stdout, w))
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}

func (w *rotatingWriter) open() error {
	info, err := os.Stat(w.path)
	if os.IsNotExist(err) {
		return w.openFresh()
	}
	if err != nil {
		return err
	}

	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	w.file = f
	w.size = info.Size()
	return nil
}

func (w *rotatingWriter) openFresh() error {
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	w.file = f
	w.size = 0
	return nil
}

func (w *rotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		if err := w.open(); err != nil {
			return 0, err
		}
	}

	if w.size+int64(len(p)) > w.maxSize {
		if err := w.rotate(); err != nil {
			// Keep writing to the old handle rather than dropping log lines.
			fmt.Fprintf(os.Stderr, "log rotation failed: %v\n", err)
		}
	}

	n, err := w.file.Write(p)
	w.size += int64(n)
	return n, err
}

// rotate shifts path.N to path.N+1, moves the live file to path.1 and starts
// a fresh one.
func (w *rotatingWriter) rotate() error {
	if w.file != nil {
		w.file.Close()
	}

	for i := w.maxBackups - 1; i >= 1; i-- {
		older := fmt.Sprintf("%s.%d", w.path, i)
		if _, err := os.Stat(older); os.IsNotExist(err) {
			continue
		}
		os.Rename(older, fmt.Sprintf("%s.%d", w.path, i+1))
	}

	if _, err := os.Stat(w.path); err == nil {
		os.Rename(w.path, w.path+".1")
	}

	return w.openFresh()
}
