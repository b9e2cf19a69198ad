package main

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// prompt reads a secret without echo on a terminal, or one line otherwise.
func (a *app) prompt(label string) (string, error) {
	fmt.Fprint(a.stderr, label)
	defer fmt.Fprintln(a.stderr)

	if f, ok := a.stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}
	if a.lines == nil {
		a.lines = bufio.NewScanner(a.stdin)
	}
	if a.lines.Scan() {
		return a.lines.Text(), nil
	}
	if err := a.lines.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
