package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/term"
)

// ErrInterrupted is returned when the user presses Ctrl+C at a prompt.
var ErrInterrupted = errors.New("interrupted")

// Console is the line-oriented terminal the REPL and auth prompts talk to.
type Console struct {
	in         *bufio.Reader
	out        io.Writer
	readSecret func(prompt string) ([]byte, error)
}

// NewConsole reads from in and writes to out. Secrets are read as plain
// lines, which suits pipes and tests.
func NewConsole(in io.Reader, out io.Writer) *Console {
	c := &Console{in: bufio.NewReader(in), out: out}
	c.readSecret = func(prompt string) ([]byte, error) {
		line, err := c.ReadLine(prompt)
		return []byte(line), err
	}
	return c
}

// NewTerminalConsole uses stdin/stdout and masks secrets when stdin is a
// terminal.
func NewTerminalConsole() *Console {
	c := NewConsole(os.Stdin, os.Stdout)
	if term.IsTerminal(int(os.Stdin.Fd())) {
		c.readSecret = ReadPasswordMasked
	}
	return c
}

func (c *Console) Printf(format string, a ...any) { fmt.Fprintf(c.out, format, a...) }

func (c *Console) Println(a ...any) { fmt.Fprintln(c.out, a...) }

// ReadLine prints prompt and returns the next line without surrounding
// whitespace. io.EOF is only returned when no input is left at all.
func (c *Console) ReadLine(prompt string) (string, error) {
	fmt.Fprint(c.out, prompt)
	line, err := c.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// ReadSecret prompts for a value that must not be echoed.
func (c *Console) ReadSecret(prompt string) ([]byte, error) {
	return c.readSecret(prompt)
}

// Confirm asks a yes/no question; only "y" or "yes" count as yes.
func (c *Console) Confirm(prompt string) (bool, error) {
	ans, err := c.ReadLine(prompt + " [y/N]: ")
	if err != nil {
		return false, err
	}
	ans = strings.ToLower(ans)
	return ans == "y" || ans == "yes", nil
}

// ReadPasswordMasked reads a password from the terminal in raw mode,
// echoing '*' per character.
func ReadPasswordMasked(prompt string) ([]byte, error) {
	fmt.Print(prompt)
	fd := int(os.Stdin.Fd())
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, err
	}
	defer term.Restore(fd, state)

	var input []byte
	var buf [1]byte
	for {
		if _, err := os.Stdin.Read(buf[:]); err != nil {
			return nil, err
		}
		c := buf[0]

		switch c {
		case 13, 10: // Enter
			fmt.Print("\r\n")
			return input, nil
		case 3: // Ctrl+C
			fmt.Print("\r\n")
			return nil, ErrInterrupted
		case 127, 8: // Backspace
			if len(input) > 0 {
				_, size := utf8.DecodeLastRune(input)
				input = input[:len(input)-size]
				fmt.Print("\b \b")
			}
		default:
			input = append(input, c)
			// One star per rune, not per byte.
			if utf8.RuneStart(c) {
				fmt.Print("*")
			}
		}
	}
}
