package protocol

import (
	"fmt"

	"github.com/google/shlex"
)

// ArgumentsKind identifies which branch of Arguments is active.
type ArgumentsKind int

const (
	ArgumentsParsed ArgumentsKind = iota
	ArgumentsManual
)

// Arguments is either a single shell-syntax string to be tokenised on use,
// or an already-split list of arguments.
type Arguments struct {
	Kind   ArgumentsKind `cbor:"kind"`
	Parsed string        `cbor:"parsed,omitempty"`
	Manual []string      `cbor:"manual,omitempty"`
}

// Resolve returns the argument list to pass to the child process. Parsed
// arguments are tokenised with POSIX shell rules on every call, matching
// the Rust original's lazy `shlex::split` at spawn time.
func (a Arguments) Resolve() ([]string, error) {
	switch a.Kind {
	case ArgumentsManual:
		return a.Manual, nil
	case ArgumentsParsed:
		args, err := shlex.Split(a.Parsed)
		if err != nil {
			return nil, fmt.Errorf("the provided arguments contain invalid shell syntax: %w", err)
		}
		return args, nil
	default:
		return nil, fmt.Errorf("unknown arguments kind %d", a.Kind)
	}
}
