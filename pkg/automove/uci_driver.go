package automove

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Transport is the write side of a line-oriented engine connection.
type Transport interface {
	Send(line string) error
	Close() error
}

// Launcher starts an engine and returns its command transport together
// with the stream of output lines.
type Launcher func(ctx context.Context) (Transport, io.Reader, error)

// Engine manages a UCI engine process.
type Engine struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	stderr io.ReadCloser

	mu     sync.Mutex
	closed bool
}

// Start launches an external UCI engine process.
func Start(ctx context.Context, path string, args ...string) (*Engine, error) {
	if path == "" {
		return nil, errors.New("engine path is required")
	}
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Dir = filepath.Dir(path)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &Engine{cmd: cmd, stdin: stdin, stdout: stdout, stderr: stderr}, nil
}

// ProcessLauncher returns a Launcher running the engine binary at path.
// Engine stderr is forwarded to log at debug level.
func ProcessLauncher(log zerolog.Logger, path string, args ...string) Launcher {
	return func(ctx context.Context) (Transport, io.Reader, error) {
		// The process must outlive the Init call, so ctx only bounds startup.
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		eng, err := Start(context.Background(), path, args...)
		if err != nil {
			return nil, nil, err
		}
		go func() {
			scanner := bufio.NewScanner(eng.Stderr())
			for scanner.Scan() {
				log.Debug().Str("engine", filepath.Base(path)).Msg(scanner.Text())
			}
		}()
		return eng, eng.Stdout(), nil
	}
}

// Stdout returns the engine's output stream.
func (e *Engine) Stdout() io.Reader {
	return e.stdout
}

// Stderr returns the stderr stream for the engine process.
func (e *Engine) Stderr() io.Reader {
	return e.stderr
}

// Send sends a single command line to the engine.
func (e *Engine) Send(line string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return errors.New("engine is closed")
	}
	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}
	_, err := io.WriteString(e.stdin, line)
	return err
}

// Close asks the engine to quit and kills it if it does not exit in time.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.mu.Unlock()

	_ = e.Send(cmdQuit)
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	done := make(chan error, 1)
	go func() { done <- e.cmd.Wait() }()
	select {
	case err := <-done:
		return err
	case <-time.After(3 * time.Second):
		_ = e.cmd.Process.Kill()
		return errors.New("engine did not exit in time")
	}
}

// Reader reads and parses UCI protocol lines from the engine.
type Reader struct {
	scanner *bufio.Scanner
}

// NewReader creates a Reader for engine stdout.
func NewReader(r io.Reader) *Reader {
	return &Reader{scanner: bufio.NewScanner(r)}
}

// Next blocks until a non-empty line is available or the stream ends.
// Lines that do not parse come back as EventUnknown; only stream failures
// are returned as errors.
func (r *Reader) Next() (Event, error) {
	for r.scanner.Scan() {
		line := r.scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		event, err := ParseLine(line)
		if err != nil {
			return Event{Type: EventUnknown, Raw: strings.TrimSpace(line)}, nil
		}
		return event, nil
	}
	if err := r.scanner.Err(); err != nil {
		return Event{}, err
	}
	return Event{}, io.EOF
}

// EventType represents a UCI protocol event type.
type EventType int

const (
	EventUnknown EventType = iota
	EventID
	EventUCIOK
	EventReadyOK
	EventInfo
	EventBestMove
)

func (t EventType) String() string {
	switch t {
	case EventID:
		return "id"
	case EventUCIOK:
		return "uciok"
	case EventReadyOK:
		return "readyok"
	case EventInfo:
		return "info"
	case EventBestMove:
		return "bestmove"
	default:
		return "unknown"
	}
}

// Event is a parsed UCI protocol line.
type Event struct {
	Type   EventType
	Key    string
	Value  string
	Move   string
	Ponder string
	Raw    string
}

// ParseLine converts a raw line into a protocol event.
func ParseLine(line string) (Event, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Event{}, errors.New("empty line")
	}
	fields := strings.Fields(line)
	switch fields[0] {
	case "id":
		if len(fields) < 3 {
			return Event{}, fmt.Errorf("invalid id: %q", line)
		}
		return Event{Type: EventID, Key: fields[1], Value: strings.Join(fields[2:], " "), Raw: line}, nil
	case "uciok":
		return Event{Type: EventUCIOK, Raw: line}, nil
	case "readyok":
		return Event{Type: EventReadyOK, Raw: line}, nil
	case "bestmove":
		// a bare "bestmove" still ends the search; the empty move is
		// rejected by the session
		e := Event{Type: EventBestMove, Raw: line}
		if len(fields) >= 2 {
			e.Move = fields[1]
		}
		if len(fields) >= 4 && fields[2] == "ponder" {
			e.Ponder = fields[3]
		}
		return e, nil
	case "info":
		return Event{Type: EventInfo, Raw: line}, nil
	default:
		return Event{Type: EventUnknown, Raw: line}, nil
	}
}

// Protocol commands.
const (
	cmdIdentify   = "uci"
	cmdReady      = "isready"
	cmdStop       = "stop"
	cmdQuit       = "quit"
	variantOption = "UCI_Variant"
)

func positionCommand(fen string) string {
	return "position fen " + fen
}

func searchCommand(depth int) string {
	return fmt.Sprintf("go depth %d", depth)
}

func setOptionCommand(name, value string) string {
	return fmt.Sprintf("setoption name %s value %s", name, value)
}
