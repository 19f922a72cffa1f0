package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/x/term"

	"github.com/rsclarke/ingestcam/internal/console"
	"github.com/rsclarke/ingestcam/internal/session"
)

var (
	stdin = bufio.NewReader(os.Stdin)
	lines *console.Lines
)

// stdinLines starts the background line reader on first use. Anything
// that reads the terminal directly, like the password prompt, must run
// before this.
func stdinLines(out io.Writer) *console.Lines {
	if lines == nil {
		lines = console.NewLines(stdin, out)
	}
	return lines
}

// readCredentials fills in whatever the flags left empty from the
// terminal. The password is read without echo when stdin is a terminal.
func readCredentials(ctx context.Context, out io.Writer, creds session.Credentials) (session.Credentials, error) {
	if creds.Username == "" {
		fmt.Fprint(out, "Username: ")
		line, err := readLine(ctx)
		if err != nil {
			return creds, err
		}
		creds.Username = line
	}
	if creds.Password == "" {
		fmt.Fprint(out, "Password: ")
		var (
			pw  string
			err error
		)
		if fd := os.Stdin.Fd(); lines == nil && term.IsTerminal(fd) {
			var b []byte
			b, err = term.ReadPassword(fd)
			fmt.Fprintln(out)
			pw = string(b)
		} else {
			pw, err = readLine(ctx)
		}
		if err != nil {
			return creds, err
		}
		creds.Password = pw
	}
	return creds, nil
}

func readLine(ctx context.Context) (string, error) {
	if lines != nil {
		return lines.Next(ctx)
	}
	line, err := stdin.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
