package scenario

import (
	"fmt"
	"log"

	apperrors "github.com/louisbranch/respawn-penalty/internal/platform/errors"
)

// AssertionMode selects how failed expectations are reported.
type AssertionMode int

const (
	// AssertionStrict fails the scenario on the first failed expectation.
	AssertionStrict AssertionMode = iota
	// AssertionLogOnly logs failed expectations and keeps running.
	AssertionLogOnly
)

// String returns the mode name.
func (m AssertionMode) String() string {
	switch m {
	case AssertionStrict:
		return "strict"
	case AssertionLogOnly:
		return "log-only"
	default:
		return fmt.Sprintf("AssertionMode(%d)", int(m))
	}
}

// Assertions reports expectation results according to Mode.
type Assertions struct {
	Mode   AssertionMode
	Logger *log.Logger
}

// Failf returns an error regardless of mode. Use it for broken scenarios
// rather than unmet expectations.
func (a Assertions) Failf(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}

// Assertf reports an unmet expectation. In strict mode it returns a scenario
// assertion error; otherwise it logs and returns nil.
func (a Assertions) Assertf(format string, args ...any) error {
	message := fmt.Sprintf(format, args...)
	if a.Mode == AssertionStrict {
		return apperrors.New(apperrors.CodeScenarioAssertion, message)
	}
	if a.Logger != nil {
		a.Logger.Printf("expectation failed: %s", message)
	}
	return nil
}
