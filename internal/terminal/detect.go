// Package terminal provides terminal detection utilities.
package terminal

import (
	"io"
	"os"

	"golang.org/x/term"
)

type fdWriter interface {
	Fd() uintptr
}

var isTerminalFn = term.IsTerminal

// IsInteractive reports whether stdin and stdout are both interactive terminals.
func IsInteractive() bool {
	return isTerminalFn(int(os.Stdin.Fd())) && isTerminalFn(int(os.Stdout.Fd()))
}

// IsTerminalWriter reports whether w is backed by a terminal file descriptor.
// Buffers and files report false, which disables console coloring.
func IsTerminalWriter(w io.Writer) bool {
	f, ok := w.(fdWriter)
	if !ok {
		return false
	}
	return isTerminalFn(int(f.Fd()))
}
