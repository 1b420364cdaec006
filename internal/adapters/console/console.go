package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/juju/ansiterm"
)

var (
	infoColor    = ansiterm.Foreground(ansiterm.BrightBlue)
	warnColor    = ansiterm.Foreground(ansiterm.Yellow)
	errorColor   = ansiterm.Foreground(ansiterm.BrightRed)
	successColor = ansiterm.Foreground(ansiterm.Green)
	promptColor  = ansiterm.Styles(ansiterm.Bold)
)

// Terminal implements ports.Console on top of an input reader and an output writer.
// Messages are prefixed with a level tag so they stay distinguishable when
// color is not available.
type Terminal struct {
	mu  sync.Mutex // guards out
	out *ansiterm.Writer

	readMu sync.Mutex // guards in
	in     *bufio.Reader
}

type readResult struct {
	line string
	err  error
}

// New creates a Terminal. Color is used when out is a terminal, unless noColor is set.
func New(in io.Reader, out io.Writer, noColor bool) *Terminal {
	w := ansiterm.NewWriter(out)
	if noColor {
		w.SetColorCapable(false)
	}
	return &Terminal{
		out: w,
		in:  bufio.NewReader(in),
	}
}

// Info writes an informational message.
func (t *Terminal) Info(format string, args ...any) {
	t.write(infoColor, "[INFO]", format, args...)
}

// Warn writes a warning.
func (t *Terminal) Warn(format string, args ...any) {
	t.write(warnColor, "[WARN]", format, args...)
}

// Error writes an error message.
func (t *Terminal) Error(format string, args ...any) {
	t.write(errorColor, "[ERROR]", format, args...)
}

// Success writes a completion message.
func (t *Terminal) Success(format string, args ...any) {
	t.write(successColor, "[OK]", format, args...)
}

// Prompt writes the question and reads a single line. The trailing newline is
// stripped. A final line without newline is returned as-is; EOF with no input
// returns io.EOF. Other messages may be written while the read is pending.
//
// When ctx is done first, Prompt returns ctx.Err(). The abandoned read keeps
// the next line it receives.
func (t *Terminal) Prompt(ctx context.Context, question string) (string, error) {
	t.mu.Lock()
	promptColor.Fprint(t.out, question)
	fmt.Fprint(t.out, " ")
	t.mu.Unlock()

	ch := make(chan readResult, 1)
	go func() {
		t.readMu.Lock()
		defer t.readMu.Unlock()
		line, err := t.in.ReadString('\n')
		ch <- readResult{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		if r.err != nil && !(errors.Is(r.err, io.EOF) && r.line != "") {
			return "", r.err
		}
		return strings.TrimRight(r.line, "\r\n"), nil
	}
}

func (t *Terminal) write(ctx *ansiterm.Context, tag, format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()

	ctx.Fprint(t.out, tag)
	fmt.Fprintf(t.out, " %s\n", fmt.Sprintf(format, args...))
}
