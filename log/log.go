package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

var (
	diagLog  zerolog.Logger
	diagFile *os.File
	logMu    sync.Mutex
	logReady bool
	pid      int
	dir      string
)

// ResolveDir returns the OS-specific log directory.
func ResolveDir() (string, error) {
	return getDefaultDir()
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

func EnsureDir() error {
	if dir == "" {
		return fmt.Errorf("log directory not set")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

// Init starts diagnostic logging to console and, when a log directory is
// set and writable, to diagnostics_log.txt in it. Standard output carries
// the event stream, so console should be stderr.
func Init(console io.Writer) error {
	logMu.Lock()
	defer logMu.Unlock()

	pid = os.Getpid()

	consoleWriter := zerolog.ConsoleWriter{
		Out:        console,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    !isTerminal(console),
	}
	writers := []io.Writer{consoleWriter}

	var fileErr error
	if dir != "" {
		if fileErr = EnsureDir(); fileErr == nil {
			diagPath := filepath.Join(dir, "diagnostics_log.txt")
			diagFile, fileErr = os.OpenFile(diagPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
			if fileErr == nil {
				writers = append(writers, zerolog.ConsoleWriter{
					Out:        diagFile,
					TimeFormat: "2006-01-02 15:04:05",
					NoColor:    true,
				})
			}
		}
	}

	diagLog = zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Int("pid", pid).Logger()
	logReady = true
	return fileErr
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	if diagFile != nil {
		diagFile.Close()
		diagFile = nil
	}
	logReady = false
}

func Info(msg string) {
	if logReady {
		diagLog.Info().Msg(msg)
	}
}

func Errorf(format string, args ...any) {
	if logReady {
		diagLog.Error().Msg(fmt.Sprintf(format, args...))
	}
}

func Warn(msg string) {
	if logReady {
		diagLog.Warn().Msg(msg)
	}
}

func Warnf(format string, args ...any) {
	if logReady {
		diagLog.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

// Backend records which capture backend came up and, where the platform
// negotiates one, its protocol version.
func Backend(name string, major, minor int) {
	if !logReady {
		return
	}
	ev := diagLog.Info().Str("backend", name)
	if major != 0 || minor != 0 {
		ev = ev.Str("protocol", fmt.Sprintf("%d.%d", major, minor))
	}
	ev.Msg("capture_ready")
}

func SessionStart(source, version string) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("source", source).
		Str("version", version).
		Msg("session_start")
}

func SessionEnd(count int) {
	if !logReady {
		return
	}
	diagLog.Info().
		Int("count", count).
		Msg("session_end")
}
