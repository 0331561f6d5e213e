package gateway

import (
	"errors"
	"fmt"
	"strings"
)

// Environment selects a credential profile.
type Environment string

const (
	Live    Environment = "live"
	Sandbox Environment = "sandbox"
)

var (
	ErrUnknownEnvironment = errors.New("unknown gateway environment")
	ErrUnknownEndpoint    = errors.New("unknown gateway endpoint")
	ErrMissingToken       = errors.New("gateway endpoint has no token")
)

// ParseEnvironment accepts "live" or "sandbox", case-insensitively.
func ParseEnvironment(s string) (Environment, error) {
	switch Environment(strings.ToLower(strings.TrimSpace(s))) {
	case Live:
		return Live, nil
	case Sandbox:
		return Sandbox, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownEnvironment, s)
	}
}

func (e Environment) String() string { return string(e) }
