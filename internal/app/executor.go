package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"

	"tourist-remover/internal/alignment"
	"tourist-remover/pkg/geometry"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrBadArguments   = errors.New("bad arguments")
)

// Command is one parsed command string.
type Command struct {
	Raw   string
	Verb  string
	Path  string
	Index int
	Rect  *geometry.RectInt
}

func (c Command) String() string { return c.Raw }

// Executor queues command strings and runs them against a State one at a time.
type Executor struct {
	state *State
	queue []Command
}

// NewExecutor creates an executor bound to state.
func NewExecutor(state *State) *Executor {
	return &Executor{state: state}
}

// Pending returns the number of queued commands.
func (e *Executor) Pending() int { return len(e.queue) }

// Parse parses every command and appends them to the queue. Nothing is
// queued when any command is malformed.
func (e *Executor) Parse(cmds []string) error {
	parsed := make([]Command, 0, len(cmds))
	for _, raw := range cmds {
		cmd, err := ParseCommand(raw)
		if err != nil {
			return err
		}
		parsed = append(parsed, cmd)
	}
	e.queue = append(e.queue, parsed...)
	return nil
}

// ExecuteNext runs the next queued command. It returns false when the queue
// was empty. Alignment failures and blends of skipped secondaries are logged
// and do not stop the run; any other error does.
func (e *Executor) ExecuteNext(ctx context.Context) (bool, error) {
	if len(e.queue) == 0 {
		return false, nil
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	cmd := e.queue[0]
	e.queue = e.queue[1:]

	err := e.execute(cmd)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, alignment.ErrAlignment), errors.Is(err, ErrSkipped):
		log.Printf("%s: skipping: %v", cmd, err)
		return true, nil
	default:
		return true, fmt.Errorf("%s: %w", cmd, err)
	}
}

// Run executes queued commands until the queue is empty or one fails.
func (e *Executor) Run(ctx context.Context) error {
	for {
		ran, err := e.ExecuteNext(ctx)
		if err != nil {
			return err
		}
		if !ran {
			return nil
		}
	}
}

func (e *Executor) execute(cmd Command) error {
	if e.state.Config.Verbose {
		log.Printf("executing %s", cmd)
	}
	switch cmd.Verb {
	case "load":
		return e.state.LoadSource(cmd.Path)
	case "align":
		_, err := e.state.Align(cmd.Index)
		return err
	case "blend":
		return e.state.Blend(cmd.Index, *cmd.Rect)
	case "save":
		return e.state.Save(cmd.Path)
	case "preview":
		return e.state.Preview(cmd.Path, cmd.Rect)
	case "highlight":
		return e.state.Highlight(cmd.Index, cmd.Path)
	case "reset":
		return e.state.Reset()
	default:
		return fmt.Errorf("%q: %w", cmd.Verb, ErrUnknownCommand)
	}
}

// ParseCommand parses a command string such as
//
//	--cmd blend 2 10 20 30 40
//
// The leading "--cmd" is optional. Arguments are separated by whitespace and
// may be double-quoted; inside quotes \" and \\ are escapes.
func ParseCommand(raw string) (Command, error) {
	tokens, err := tokenize(raw)
	if err != nil {
		return Command{}, fmt.Errorf("%s: %w", raw, err)
	}
	if len(tokens) > 0 && tokens[0] == "--cmd" {
		tokens = tokens[1:]
	}
	if len(tokens) == 0 {
		return Command{}, fmt.Errorf("empty command %q: %w", raw, ErrBadArguments)
	}

	cmd := Command{Raw: strings.TrimSpace(raw), Verb: strings.ToLower(tokens[0])}
	args := tokens[1:]
	bad := func(format string, a ...interface{}) error {
		return fmt.Errorf("%s: %s: %w", cmd.Raw, fmt.Sprintf(format, a...), ErrBadArguments)
	}

	switch cmd.Verb {
	case "load", "save":
		if len(args) != 1 {
			return Command{}, bad("want 1 path, got %d arguments", len(args))
		}
		cmd.Path = args[0]

	case "align":
		if len(args) != 1 {
			return Command{}, bad("want a secondary number, got %d arguments", len(args))
		}
		if cmd.Index, err = parseIndex(args[0]); err != nil {
			return Command{}, bad("%v", err)
		}

	case "blend":
		if len(args) != 5 {
			return Command{}, bad("want <secondary> <x> <y> <w> <h>, got %d arguments", len(args))
		}
		if cmd.Index, err = parseIndex(args[0]); err != nil {
			return Command{}, bad("%v", err)
		}
		if cmd.Rect, err = parseRect(args[1:]); err != nil {
			return Command{}, bad("%v", err)
		}

	case "preview":
		if len(args) != 1 && len(args) != 5 {
			return Command{}, bad("want <path> [<x> <y> <w> <h>], got %d arguments", len(args))
		}
		cmd.Path = args[0]
		if len(args) == 5 {
			if cmd.Rect, err = parseRect(args[1:]); err != nil {
				return Command{}, bad("%v", err)
			}
		}

	case "highlight":
		if len(args) != 2 {
			return Command{}, bad("want <secondary> <dir>, got %d arguments", len(args))
		}
		if cmd.Index, err = parseIndex(args[0]); err != nil {
			return Command{}, bad("%v", err)
		}
		cmd.Path = args[1]

	case "reset":
		if len(args) != 0 {
			return Command{}, bad("takes no arguments")
		}

	default:
		return Command{}, fmt.Errorf("%q: %w", tokens[0], ErrUnknownCommand)
	}
	return cmd, nil
}

var trailingNumber = regexp.MustCompile(`(\d+)$`)

// parseIndex accepts "3" as well as names ending in the number, such as
// "Secondary-3" or "image_3".
func parseIndex(s string) (int, error) {
	m := trailingNumber.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("secondary %q has no number", s)
	}
	return strconv.Atoi(m[1])
}

func parseRect(args []string) (*geometry.RectInt, error) {
	var v [4]int
	for i, a := range args {
		n, err := strconv.Atoi(a)
		if err != nil {
			return nil, fmt.Errorf("rectangle value %q is not an integer", a)
		}
		v[i] = n
	}
	return &geometry.RectInt{X: v[0], Y: v[1], Width: v[2], Height: v[3]}, nil
}

// tokenize splits s on whitespace, honoring double quotes.
func tokenize(s string) ([]string, error) {
	var (
		tokens  []string
		cur     strings.Builder
		inQuote bool
		started bool
	)
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case inQuote && ch == '\\' && i+1 < len(s) && (s[i+1] == '"' || s[i+1] == '\\'):
			i++
			cur.WriteByte(s[i])
		case ch == '"':
			inQuote = !inQuote
			started = true
		case !inQuote && (ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'):
			if started {
				tokens = append(tokens, cur.String())
				cur.Reset()
				started = false
			}
		default:
			cur.WriteByte(ch)
			started = true
		}
	}
	if inQuote {
		return nil, fmt.Errorf("unterminated quote: %w", ErrBadArguments)
	}
	if started {
		tokens = append(tokens, cur.String())
	}
	return tokens, nil
}
