package channel

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/convopipe/convopipe/internal/chat"
)

// StdinSource reads lines from standard input. When stdin is a pipe
// rather than a terminal it reads exactly one message and then reports
// end of input, so `echo "hi" | convopipe` processes one turn and lets
// the process drain.
type StdinSource struct {
	r           io.Reader
	interactive bool
	once        sync.Once
	lines       chan string
}

func NewStdinSource() *StdinSource {
	interactive := false
	if info, err := os.Stdin.Stat(); err == nil {
		interactive = info.Mode()&os.ModeCharDevice != 0
	}
	return newStdinSource(os.Stdin, interactive)
}

func newStdinSource(r io.Reader, interactive bool) *StdinSource {
	return &StdinSource{
		r:           r,
		interactive: interactive,
		lines:       make(chan string),
	}
}

func (s *StdinSource) Name() string { return "stdin" }

func (s *StdinSource) Receive(ctx context.Context) (string, error) {
	s.once.Do(func() { go s.pump() })

	select {
	case line, ok := <-s.lines:
		if !ok {
			return "", io.EOF
		}
		return line, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (s *StdinSource) pump() {
	defer close(s.lines)

	scanner := bufio.NewScanner(s.r)
	for scanner.Scan() {
		s.lines <- scanner.Text()
		if !s.interactive {
			return
		}
	}
}

// ConsoleSink writes messages to the terminal. Unlike the network
// sinks it echoes every role, purely for local visibility.
type ConsoleSink struct {
	mu sync.Mutex
	w  io.Writer
}

func NewConsoleSink(w io.Writer) *ConsoleSink {
	if w == nil {
		w = os.Stdout
	}
	return &ConsoleSink{w: w}
}

func (s *ConsoleSink) Name() string { return "stdout" }

func (s *ConsoleSink) Deliver(_ context.Context, msg chat.Message) error {
	var label string
	switch msg.Role {
	case chat.RoleAssistant:
		label = "Assistant"
	case chat.RoleUser:
		label = "User"
	case chat.RoleSystem:
		label = "System"
	case chat.RoleTool:
		label = "Tool"
	default:
		label = string(msg.Role)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintf(s.w, "\n%s: %s\n", label, msg.Content)
	return err
}
