// Package prompt reads interactive input for the login and signup commands.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// ErrNoInput is returned when input ends before an answer is read.
var ErrNoInput = errors.New("no input")

// Prompter asks the user for a value.
type Prompter interface {
	// Line reads one visible line.
	Line(label string) (string, error)
	// Password reads one line without echo when the input is a terminal.
	Password(label string) (string, error)
}

// Terminal prompts on out and reads from in.
type Terminal struct {
	in     *os.File
	out    io.Writer
	reader *bufio.Reader
}

// NewTerminal creates a Terminal. Labels go to out, typically stderr.
func NewTerminal(in *os.File, out io.Writer) *Terminal {
	return &Terminal{in: in, out: out, reader: bufio.NewReader(in)}
}

// Line implements Prompter.
func (t *Terminal) Line(label string) (string, error) {
	fmt.Fprint(t.out, label)
	return t.readLine()
}

// Password implements Prompter. When in is not a terminal the line is read
// as-is so passwords can be piped.
func (t *Terminal) Password(label string) (string, error) {
	fmt.Fprint(t.out, label)
	fd := int(t.in.Fd())
	if !term.IsTerminal(fd) {
		return t.readLine()
	}
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(t.out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}

func (t *Terminal) readLine() (string, error) {
	line, err := t.reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) {
			return "", ErrNoInput
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Scripted answers prompts from a fixed list, in order.
type Scripted struct {
	Answers []string
	Labels  []string
}

// Line implements Prompter.
func (s *Scripted) Line(label string) (string, error) {
	return s.next(label)
}

// Password implements Prompter.
func (s *Scripted) Password(label string) (string, error) {
	return s.next(label)
}

func (s *Scripted) next(label string) (string, error) {
	s.Labels = append(s.Labels, label)
	if len(s.Answers) == 0 {
		return "", ErrNoInput
	}
	a := s.Answers[0]
	s.Answers = s.Answers[1:]
	return a, nil
}
