package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"
)

const (
	ansiYellow = "\x1b[33m"
	ansiReset  = "\x1b[0m"
)

// terminalConfirmer asks on the terminal. Without a terminal on stdin every
// question is declined, --yes is the way to confirm in scripts.
type terminalConfirmer struct {
	in          *bufio.Reader
	out         io.Writer
	interactive bool
	colorize    bool
}

func newTerminalConfirmer(in *os.File, out *os.File) *terminalConfirmer {
	return &terminalConfirmer{
		in:          bufio.NewReader(in),
		out:         out,
		interactive: term.IsTerminal(int(in.Fd())),
		colorize:    shouldColorize(out),
	}
}

func (c *terminalConfirmer) Confirm(question string) (bool, error) {
	if !c.interactive {
		fmt.Fprintf(c.out, "%s\nNo terminal to confirm on, use --yes to proceed\n", question)
		return false, nil
	}

	prompt := question
	if c.colorize {
		prompt = ansiYellow + question + ansiReset
	}
	fmt.Fprintf(c.out, "%s [y/N] ", prompt)

	line, err := c.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	return isYes(line), nil
}

// isYes accepts any answer starting with y, case insensitive.
func isYes(answer string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(answer)), "y")
}

func shouldColorize(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
