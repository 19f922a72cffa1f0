// Package console reads user input line by line without blocking the
// goroutine that owns the interaction state.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// Lines delivers input lines from a reader. A single goroutine reads
// ahead one line at a time, so input typed while nobody is waiting is kept
// for the next call.
type Lines struct {
	out   io.Writer
	lines chan string
	err   error
	done  chan struct{}
}

// NewLines starts reading in. Prompts are written to out.
func NewLines(in io.Reader, out io.Writer) *Lines {
	l := &Lines{
		out:   out,
		lines: make(chan string),
		done:  make(chan struct{}),
	}
	go l.read(bufio.NewReader(in))
	return l
}

func (l *Lines) read(r *bufio.Reader) {
	defer close(l.done)
	for {
		line, err := r.ReadString('\n')
		if line != "" {
			l.lines <- strings.TrimRight(line, "\r\n")
		}
		if err != nil {
			l.err = err
			return
		}
	}
}

// C returns the channel of lines, for use in a select. It is never closed;
// watch Done for end of input.
func (l *Lines) C() <-chan string { return l.lines }

// Done is closed once input has ended.
func (l *Lines) Done() <-chan struct{} { return l.done }

// Err returns the error that ended input, io.EOF included.
func (l *Lines) Err() error {
	select {
	case <-l.done:
		return l.err
	default:
		return nil
	}
}

// Next waits for the next line.
func (l *Lines) Next(ctx context.Context) (string, error) {
	select {
	case line := <-l.lines:
		return line, nil
	case <-l.done:
		return "", l.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Ask prints question and waits for the answer.
func (l *Lines) Ask(ctx context.Context, question string) (string, error) {
	if _, err := fmt.Fprint(l.out, question); err != nil {
		return "", err
	}
	line, err := l.Next(ctx)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
