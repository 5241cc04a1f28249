// Package errors provides structured domain errors with machine-readable codes.
package errors

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Persistence errors
	CodeSaveDataCorrupt Code = "SAVE_DATA_CORRUPT"
	CodeSaveDataWrite   Code = "SAVE_DATA_WRITE"
	CodeSaveDataRead    Code = "SAVE_DATA_READ"

	// Policy errors
	CodePolicyInvalid Code = "POLICY_INVALID"

	// Configuration errors
	CodeConfigInvalid Code = "CONFIG_INVALID"

	// Scenario errors
	CodeScenarioAssertion Code = "SCENARIO_ASSERTION"
)

// ExitCode maps domain codes to process exit codes for CLI entry points.
func (c Code) ExitCode() int {
	switch c {
	// Bad input from the operator
	case CodeConfigInvalid,
		CodePolicyInvalid:
		return 2

	// Persisted data cannot be trusted
	case CodeSaveDataCorrupt:
		return 3

	// Scenario expectations failed
	case CodeScenarioAssertion:
		return 4

	default:
		return 1
	}
}
