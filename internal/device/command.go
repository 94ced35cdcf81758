// Package device holds the command vocabulary understood by the buzzer
// controller.
package device

import (
	"errors"
	"fmt"
)

var ErrInvalidCommand = errors.New("invalid command")

// Command is a single ASCII instruction for the indicator device.
type Command string

const (
	CommandAdvance  Command = "0" // reset indicators, next question
	CommandPositive Command = "1" // correct answer
	CommandNegative Command = "2" // wrong answer
)

func (c Command) Validate() error {
	switch c {
	case CommandAdvance, CommandPositive, CommandNegative:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidCommand, string(c))
	}
}

// Bytes is the raw UTF-8 payload without any terminator.
func (c Command) Bytes() []byte {
	return []byte(c)
}

func (c Command) String() string {
	switch c {
	case CommandAdvance:
		return "advance"
	case CommandPositive:
		return "positive"
	case CommandNegative:
		return "negative"
	default:
		return fmt.Sprintf("unknown(%q)", string(c))
	}
}

// ParseCommand accepts the raw digit or its name.
func ParseCommand(s string) (Command, error) {
	switch s {
	case "0", "advance", "next", "reset":
		return CommandAdvance, nil
	case "1", "positive", "correct":
		return CommandPositive, nil
	case "2", "negative", "wrong":
		return CommandNegative, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidCommand, s)
	}
}
