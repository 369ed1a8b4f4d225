package source

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const maxLineSize = 1 << 20

// execWaitDelay bounds how long Run waits for output after cancellation.
const execWaitDelay = 2 * time.Second

// ExecSource runs a command and emits every line it writes to stdout or
// stderr. The two pipes are scanned concurrently.
type ExecSource struct {
	Path string
	Args []string
	Dir  string

	// Passthrough, when set, receives a copy of every raw line.
	Passthrough io.Writer

	passMu sync.Mutex
}

func NewExecSource(argv []string) *ExecSource {
	s := &ExecSource{}
	if len(argv) > 0 {
		s.Path = argv[0]
		s.Args = argv[1:]
	}
	return s
}

func (s *ExecSource) Name() string {
	return "exec:" + filepath.Base(s.Path)
}

func (s *ExecSource) Run(ctx context.Context, emit func(string)) error {
	if s.Path == "" {
		return fmt.Errorf("exec: no command")
	}
	cmd := exec.CommandContext(ctx, s.Path, s.Args...)
	cmd.Dir = s.Dir
	cmd.WaitDelay = execWaitDelay
	setProcessGroup(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting %s: %w", s.Path, err)
	}

	var wg sync.WaitGroup
	scanErrs := make([]error, 2)
	for i, r := range []io.Reader{stdout, stderr} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			scanErrs[i] = s.scan(r, emit)
		}()
	}
	scanned := make(chan struct{})
	go func() {
		wg.Wait()
		close(scanned)
	}()

	// Pipes must be drained before Wait closes them. Once ctx is done a
	// surviving descendant may hold them open, so stop waiting after a grace
	// period and let Wait close our ends.
	select {
	case <-scanned:
	case <-ctx.Done():
		select {
		case <-scanned:
		case <-time.After(execWaitDelay):
		}
	}

	waitErr := cmd.Wait()
	<-scanned
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if waitErr != nil {
		return fmt.Errorf("%s: %w", s.Path, waitErr)
	}
	for _, err := range scanErrs {
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *ExecSource) scan(r io.Reader, emit func(string)) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		s.passthrough(line)
		emit(line)
	}
	if err := sc.Err(); err != nil {
		// Keep draining so the child never blocks on a full pipe.
		io.Copy(io.Discard, r)
		return fmt.Errorf("reading output: %w", err)
	}
	return nil
}

func (s *ExecSource) passthrough(line string) {
	if s.Passthrough == nil {
		return
	}
	s.passMu.Lock()
	defer s.passMu.Unlock()
	fmt.Fprintln(s.Passthrough, line)
}
