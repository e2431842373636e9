package pipeline

import (
	"errors"

	"go-gblur/pkg/bmp"
)

var (
	// ErrOpenInput wraps failures to open the input file.
	ErrOpenInput = errors.New("error opening input file")
	// ErrReadInput wraps failures while decoding the input bitmap.
	ErrReadInput = errors.New("error reading input file")
	// ErrOpenOutput wraps failures to create the temporary output file.
	ErrOpenOutput = errors.New("error opening output file")
	// ErrWriteOutput wraps failures while encoding, syncing or renaming the output.
	ErrWriteOutput = errors.New("error writing output file")
	// ErrVerify reports a produced file that did not decode to the expected size.
	ErrVerify = errors.New("output verification failed")
	// ErrCanceled reports a run stopped by its context between stages.
	ErrCanceled = errors.New("blur cancelled")
)

// Process exit codes.
const (
	ExitOK            = 0
	ExitInputFailure  = 1
	ExitOutputFailure = 2
	ExitInvalidFormat = 3
	ExitUsage         = 4
	ExitCanceled      = 130
)

// ExitCode maps an error returned by Run to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrCanceled):
		return ExitCanceled
	case errors.Is(err, bmp.ErrInvalidFormat):
		return ExitInvalidFormat
	case errors.Is(err, ErrOpenOutput), errors.Is(err, ErrWriteOutput), errors.Is(err, ErrVerify):
		return ExitOutputFailure
	default:
		return ExitInputFailure
	}
}
