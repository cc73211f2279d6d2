// Package log provides logging utilities including colored console output
// and connection logging capabilities.
package log

import (
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// Logger writes colored status messages. Verbose messages are only
// printed when the logger was created with verbose enabled.
// A nil *Logger discards everything.
type Logger struct {
	out     io.Writer
	verbose bool

	red    *color.Color
	blue   *color.Color
	yellow *color.Color

	mu sync.Mutex
}

// NewLogger creates a Logger writing to stderr. Colors are disabled
// when stderr is not a terminal.
func NewLogger(verbose bool) *Logger {
	return NewLoggerTo(os.Stderr, verbose, isTerminal(os.Stderr))
}

// NewLoggerTo creates a Logger writing to out.
func NewLoggerTo(out io.Writer, verbose bool, colored bool) *Logger {
	l := &Logger{
		out:     out,
		verbose: verbose,
		red:     color.New(color.FgRed),
		blue:    color.New(color.FgBlue),
		yellow:  color.New(color.FgYellow),
	}

	for _, c := range []*color.Color{l.red, l.blue, l.yellow} {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	return l
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Verbose reports whether verbose messages are printed.
func (l *Logger) Verbose() bool {
	return l != nil && l.verbose
}

// ErrorMsg prints an error message in red. Like all messages it is
// terminated with a newline.
func (l *Logger) ErrorMsg(format string, a ...interface{}) {
	if l == nil {
		return
	}
	l.print(l.red, "[!] Error: "+format+"\n", a...)
}

// InfoMsg prints an informational message in blue.
func (l *Logger) InfoMsg(format string, a ...interface{}) {
	if l == nil {
		return
	}
	l.print(l.blue, "[+] "+format+"\n", a...)
}

// VerboseMsg prints a debug message in yellow if verbose mode is enabled.
func (l *Logger) VerboseMsg(format string, a ...interface{}) {
	if !l.Verbose() {
		return
	}
	l.print(l.yellow, "[v] "+format+"\n", a...)
}

func (l *Logger) print(c *color.Color, format string, a ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, _ = c.Fprintf(l.out, format, a...)
}

var std = NewLogger(false)

// ErrorMsg prints an error message to stderr, for failures that happen
// before a configured Logger exists.
func ErrorMsg(format string, a ...interface{}) {
	std.ErrorMsg(format, a...)
}
