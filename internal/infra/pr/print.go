// Package pr is a thin wrapper for unified output in an interactive CLI.
// It sets up readline with a cancelable stdin, retargets stdout/stderr
// onto its buffers, and provides print helpers for normal and
// pretty-printed diagnostic output.
package pr

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/chzyer/readline"
	"github.com/kr/pretty"
)

var (
	// rl is the active readline instance, set by Init.
	rl *readline.Instance
	// out is the current stdout target: os.Stdout before Init, rl.Stdout after.
	out io.Writer = os.Stdout
	// errOut is the current stderr target.
	errOut io.Writer = os.Stderr
	// mu guards swapping the writer references; it does not serialize
	// writes themselves.
	mu sync.Mutex

	// cancelableIn is the stdin handle closed to unblock a pending
	// Readline() call with io.EOF on shutdown.
	cancelableIn interface{ Close() error }
)

// Init sets up readline and redirects output onto its stdout/stderr
// buffers, using a cancelable stdin so shutdown can interrupt a pending
// read.
func Init() error {
	cs := readline.NewCancelableStdin(os.Stdin)
	newRl, err := readline.NewEx(&readline.Config{Stdin: cs})
	if err != nil {
		_ = cs.Close()
		return err
	}
	rl = newRl

	mu.Lock()
	cancelableIn = cs
	out = rl.Stdout()
	errOut = rl.Stderr()
	mu.Unlock()

	return nil
}

// InterruptReadline closes the cancelable stdin, unblocking a pending
// Readline() call with io.EOF. Safe to call more than once.
func InterruptReadline() {
	if cancelableIn != nil {
		_ = cancelableIn.Close()
	}
}

// SetPrompt sets the prompt string. Assumes Init has already run.
func SetPrompt(prompt string) {
	rl.SetPrompt(prompt)
}

// Rl returns the current readline instance, nil if Init was never called.
func Rl() *readline.Instance {
	return rl
}

// Stdout returns the current stdout writer.
func Stdout() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	return out
}

// Stderr returns the current stderr writer.
func Stderr() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	return errOut
}

func Print(a ...any)                 { fmt.Fprint(Stdout(), a...) }
func Println(a ...any)               { fmt.Fprintln(Stdout(), a...) }
func Printf(format string, a ...any) { fmt.Fprintf(Stdout(), format, a...) }

func ErrPrint(a ...any)                 { fmt.Fprint(Stderr(), a...) }
func ErrPrintln(a ...any)               { fmt.Fprintln(Stderr(), a...) }
func ErrPrintf(format string, a ...any) { fmt.Fprintf(Stderr(), format, a...) }

// PP pretty-prints v to Stdout. Handy for debugging; avoid on hot paths.
func PP(v any) {
	fmt.Fprintf(Stdout(), "%# v\n", pretty.Formatter(v))
}

// Pf returns v's pretty-printed representation.
func Pf(v any) string {
	return fmt.Sprintf("%# v\n", pretty.Formatter(v))
}
