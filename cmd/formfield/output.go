package main

import (
	"fmt"
	"io"
	"os"
)

// ANSI color codes
const (
	reset  = "\033[0m"
	red    = "\033[31m"
	green  = "\033[32m"
	yellow = "\033[33m"
	blue   = "\033[34m"
	dim    = "\033[2m"
)

// printer writes colored status lines for CLI commands.
type printer struct {
	out, err io.Writer
	useColor bool
}

func newPrinter(out, err io.Writer) *printer {
	return &printer{out: out, err: err, useColor: isTerminal(out)}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

func (p *printer) colorize(color, text string) string {
	if !p.useColor {
		return text
	}
	return color + text + reset
}

// Success prints a green success message with checkmark
func (p *printer) Success(format string, args ...interface{}) {
	fmt.Fprintf(p.out, "%s %s\n", p.colorize(green, "✓"), fmt.Sprintf(format, args...))
}

// Error prints a red error message with X mark
func (p *printer) Error(format string, args ...interface{}) {
	fmt.Fprintf(p.err, "%s %s\n", p.colorize(red, "✗"), fmt.Sprintf(format, args...))
}

// Warning prints a yellow warning message
func (p *printer) Warning(format string, args ...interface{}) {
	fmt.Fprintf(p.out, "%s %s\n", p.colorize(yellow, "!"), fmt.Sprintf(format, args...))
}

// Info prints a blue info message
func (p *printer) Info(format string, args ...interface{}) {
	fmt.Fprintf(p.out, "%s %s\n", p.colorize(blue, "→"), fmt.Sprintf(format, args...))
}

// Detail prints an indented dim line
func (p *printer) Detail(format string, args ...interface{}) {
	fmt.Fprintf(p.out, "    %s\n", p.colorize(dim, fmt.Sprintf(format, args...)))
}
