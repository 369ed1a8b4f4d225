package source

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileSource tails a log file, emitting each complete line appended to it.
type FileSource struct {
	Path         string
	FromStart    bool
	PollInterval time.Duration
	Logger       *slog.Logger
}

func NewFileSource(path string, fromStart bool, poll time.Duration, logger *slog.Logger) *FileSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileSource{Path: path, FromStart: fromStart, PollInterval: poll, Logger: logger}
}

func (s *FileSource) Name() string {
	return "file:" + s.Path
}

func (s *FileSource) Run(ctx context.Context, emit func(string)) error {
	path := filepath.Clean(s.Path)
	poll := s.PollInterval
	if poll <= 0 {
		poll = 500 * time.Millisecond
	}
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var offset int64
	if !s.FromStart {
		if info, err := os.Stat(path); err == nil {
			offset = info.Size()
		}
	}

	// Watch the directory so creation and rotation are seen too. Polling
	// covers filesystems where fsnotify delivers nothing.
	var events <-chan fsnotify.Event
	var watchErrs <-chan error
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warn("fsnotify unavailable, polling only", "err", err)
	} else {
		defer watcher.Close()
		if err := watcher.Add(filepath.Dir(path)); err != nil {
			logger.Warn("watch failed, polling only", "dir", filepath.Dir(path), "err", err)
		} else {
			events = watcher.Events
			watchErrs = watcher.Errors
		}
	}

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		lines, next, err := readLines(path, offset)
		if err != nil {
			logger.Debug("read failed", "path", path, "err", err)
		}
		offset = next
		for _, line := range lines {
			emit(line)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-events:
			if !ok {
				events = nil
			}
		case err, ok := <-watchErrs:
			if !ok {
				watchErrs = nil
			} else {
				logger.Debug("watch error", "err", err)
			}
		case <-ticker.C:
		}
	}
}

// readLines returns the complete lines written after offset and the offset
// just past the last complete line. A trailing partial line is left for the
// next call. A file that shrank is read again from the start.
func readLines(path string, offset int64) ([]string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, offset, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, offset, err
	}
	if info.Size() < offset {
		offset = 0
	}
	if info.Size() == offset {
		return nil, offset, nil
	}
	if offset > 0 {
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			return nil, offset, err
		}
	}

	var lines []string
	reader := bufio.NewReader(f)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil && err != io.EOF {
			return lines, offset, err
		}
		if len(line) == 0 || line[len(line)-1] != '\n' {
			break
		}
		offset += int64(len(line))
		lines = append(lines, strings.TrimRight(string(line), "\r\n"))
		if err == io.EOF {
			break
		}
	}
	return lines, offset, nil
}
