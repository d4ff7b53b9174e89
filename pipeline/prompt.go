package pipeline

import (
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/mattn/go-isatty"
)

// Confirmer asks the user a yes/no question.
type Confirmer interface {
	// Interactive is false when nobody can answer, the caller then takes the default answer.
	Interactive() bool
	Confirm(message string, defaultAnswer bool) (bool, error)
}

// TerminalConfirmer asks on the process terminal.
type TerminalConfirmer struct {
	in  *os.File
	out *os.File
}

func NewTerminalConfirmer() *TerminalConfirmer {
	return &TerminalConfirmer{in: os.Stdin, out: os.Stdout}
}

func (c *TerminalConfirmer) Interactive() bool {
	fd := c.in.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func (c *TerminalConfirmer) Confirm(message string, defaultAnswer bool) (bool, error) {
	answer := defaultAnswer
	prompt := &survey.Confirm{Message: message, Default: defaultAnswer}
	if err := survey.AskOne(prompt, &answer, survey.WithStdio(c.in, c.out, os.Stderr)); err != nil {
		return false, err
	}
	return answer, nil
}
