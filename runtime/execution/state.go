package execution

import (
	"fmt"
	"strings"
)

// Mode selects how matrix operations complete.
type Mode int

const (
	// NonBlocking lets operations leave work pending until Wait.
	NonBlocking Mode = 0
	// Blocking completes every operation before it returns.
	Blocking Mode = 1
)

// IsValid reports whether m is a recognised mode.
func (m Mode) IsValid() bool {
	return m == NonBlocking || m == Blocking
}

func (m Mode) String() string {
	switch m {
	case NonBlocking:
		return "nonblocking"
	case Blocking:
		return "blocking"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// ParseMode converts a configuration value into a Mode.
func ParseMode(value string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "nonblocking", "non-blocking", "":
		return NonBlocking, nil
	case "blocking":
		return Blocking, nil
	}
	return 0, fmt.Errorf("%w: unknown mode: %q", ErrInvalidValue, value)
}

// State represents the lifecycle state of a Context
type State string

const (
	StateUninitialized State = "uninitialized"
	StateInitialized   State = "initialized"
	StateFinalized     State = "finalized"
)
