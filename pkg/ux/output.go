// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// Mode controls how much styling an Output emits.
type Mode int

const (
	// ModeRich renders styled text and icons for interactive terminals.
	ModeRich Mode = iota
	// ModePlain renders icons without color styling.
	ModePlain
	// ModeMachine renders line-oriented, prefix-tagged output for scripts.
	ModeMachine
)

// String returns the mode name as accepted by ParseMode.
func (m Mode) String() string {
	switch m {
	case ModePlain:
		return "plain"
	case ModeMachine:
		return "machine"
	default:
		return "rich"
	}
}

// ParseMode converts a mode name into a Mode. It accepts "rich", "plain",
// and "machine", case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rich":
		return ModeRich, nil
	case "plain":
		return ModePlain, nil
	case "machine":
		return ModeMachine, nil
	default:
		return ModeRich, fmt.Errorf("unknown output mode %q", s)
	}
}

// DetectMode picks an output mode for the current process: an explicit
// WHEELHOUSE_OUTPUT env var wins, piped stdout gets machine output, and
// NO_COLOR downgrades a terminal to plain.
func DetectMode() Mode {
	if env := os.Getenv("WHEELHOUSE_OUTPUT"); env != "" {
		if m, err := ParseMode(env); err == nil {
			return m
		}
	}
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return ModeMachine
	}
	if os.Getenv("NO_COLOR") != "" {
		return ModePlain
	}
	return ModeRich
}

// Output writes user-facing CLI messages in a given mode. Unlike a log, its
// output is the product: probe results, session listings, and the rendered
// mirror tree all flow through here.
type Output struct {
	mode Mode
	out  io.Writer
	err  io.Writer
}

// OutputOption configures an Output.
type OutputOption func(*Output)

// WithWriters redirects normal and error output, which tests use to capture
// what would hit the terminal.
func WithWriters(out, err io.Writer) OutputOption {
	return func(o *Output) {
		o.out = out
		o.err = err
	}
}

// NewOutput creates an Output in the given mode writing to stdout/stderr.
func NewOutput(mode Mode, opts ...OutputOption) *Output {
	o := &Output{
		mode: mode,
		out:  os.Stdout,
		err:  os.Stderr,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Mode reports the mode the Output renders in.
func (o *Output) Mode() Mode { return o.mode }

// Printf writes formatted text with no decoration, in every mode.
func (o *Output) Printf(format string, args ...any) {
	fmt.Fprintf(o.out, format, args...)
}

// Title prints a styled heading. Machine mode drops it.
func (o *Output) Title(text string) {
	if o.mode == ModeMachine {
		return
	}
	fmt.Fprintln(o.out, Styles.Title.Render(text))
}

// Success prints a success message with checkmark
func (o *Output) Success(text string) {
	switch o.mode {
	case ModeMachine:
		fmt.Fprintf(o.out, "OK: %s\n", text)
	case ModePlain:
		fmt.Fprintf(o.out, "%s %s\n", IconSuccess, text)
	default:
		fmt.Fprintf(o.out, "%s %s\n", IconSuccess.Render(), Styles.Success.Render(text))
	}
}

// Warning prints a warning message
func (o *Output) Warning(text string) {
	switch o.mode {
	case ModeMachine:
		fmt.Fprintf(o.err, "WARN: %s\n", text)
	case ModePlain:
		fmt.Fprintf(o.out, "%s %s\n", IconWarning, text)
	default:
		fmt.Fprintf(o.out, "%s %s\n", IconWarning.Render(), Styles.Warning.Render(text))
	}
}

// Error prints an error message
func (o *Output) Error(text string) {
	switch o.mode {
	case ModeMachine:
		fmt.Fprintf(o.err, "ERROR: %s\n", text)
	case ModePlain:
		fmt.Fprintf(o.out, "%s %s\n", IconError, text)
	default:
		fmt.Fprintf(o.out, "%s %s\n", IconError.Render(), Styles.Error.Render(text))
	}
}

// Info prints an informational message
func (o *Output) Info(text string) {
	if o.mode == ModeMachine {
		fmt.Fprintln(o.out, text)
		return
	}
	fmt.Fprintf(o.out, "%s %s\n", Styles.Muted.Render("│"), text)
}

// Muted prints muted/secondary text. Machine mode drops it.
func (o *Output) Muted(text string) {
	if o.mode == ModeMachine {
		return
	}
	fmt.Fprintln(o.out, Styles.Muted.Render(text))
}

// Item prints one list entry, a bare line in machine mode so scripts
// can consume the list directly.
func (o *Output) Item(text string) {
	switch o.mode {
	case ModeMachine:
		fmt.Fprintln(o.out, text)
	case ModePlain:
		fmt.Fprintf(o.out, "%s %s\n", IconBullet, text)
	default:
		fmt.Fprintf(o.out, "%s %s\n", Styles.Subtitle.Render(string(IconBullet)), text)
	}
}

// KV prints a labeled value, tab-separated in machine mode.
func (o *Output) KV(key, value string) {
	if o.mode == ModeMachine {
		fmt.Fprintf(o.out, "%s\t%s\n", key, value)
		return
	}
	fmt.Fprintf(o.out, "%s %s\n", Styles.Subtitle.Render(key+":"), value)
}

// Status prints an icon-tagged line with an optional muted note, used for
// per-item results such as session rows.
func (o *Output) Status(status Icon, text, note string) {
	switch o.mode {
	case ModeMachine:
		fmt.Fprintf(o.out, "%s\t%s\t%s\n", status, text, note)
	case ModePlain:
		fmt.Fprintf(o.out, "%s %s\n", status, text)
	default:
		if note != "" {
			fmt.Fprintf(o.out, "%s %s %s\n", status.Render(), text, Styles.Muted.Render("("+note+")"))
		} else {
			fmt.Fprintf(o.out, "%s %s\n", status.Render(), text)
		}
	}
}

// Box prints content in a rounded box with a title line.
func (o *Output) Box(title, content string) {
	if o.mode == ModeMachine {
		fmt.Fprintf(o.out, "%s: %s\n", title, content)
		return
	}
	boxStyle := Styles.Box.Width(60)
	titleLine := Styles.Title.Render(title)
	fmt.Fprintln(o.out, boxStyle.Render(titleLine+"\n"+content))
}
