package cli

import "github.com/europython/programapi/internal/model"

// Process exit codes.
const (
	ExitOK                = 0
	ExitFailure           = 1
	ExitMalformedRecord   = 3
	ExitDanglingReference = 4
	ExitDuplicate         = 5
)

// ExitCode maps an error to the process exit code.
func ExitCode(err error) int {
	switch model.ErrorKind(err) {
	case "":
		return ExitOK
	case "malformed_record":
		return ExitMalformedRecord
	case "dangling_reference":
		return ExitDanglingReference
	case "duplicate_collision":
		return ExitDuplicate
	default:
		return ExitFailure
	}
}
