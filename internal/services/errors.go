package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation        = errors.New("validation error")
	ErrConfiguration     = errors.New("configuration error")
	ErrTransport         = errors.New("transport error")
	ErrJobRejected       = errors.New("job rejected")
	ErrJobFailed         = errors.New("job failed")
	ErrMalformedResponse = errors.New("malformed response")
	ErrUnknown           = errors.New("unknown error")
)

// Process exit codes reported by the CLI for each failure class.
const (
	ExitOK               = 0
	ExitUnknown          = 1
	ExitValidation       = 2
	ExitTransport        = 3
	ExitJobRejected      = 4
	ExitJobFailed        = 5
	ExitMalformed        = 6
	ExitInterrupted      = 130
	defaultFailureDetail = "service failure"
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrUnknown
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// RejectionError reports a response that arrived intact but carried
// success=false. Message is the server-supplied error text, verbatim.
type RejectionError struct {
	Stage   string
	Message string
}

// Reject constructs a RejectionError for the given stage.
func Reject(stage, message string) error {
	return &RejectionError{Stage: strings.TrimSpace(stage), Message: message}
}

func (e *RejectionError) Error() string {
	msg := e.Message
	if strings.TrimSpace(msg) == "" {
		msg = "no error message supplied"
	}
	if e.Stage == "" {
		return fmt.Sprintf("%s: %s", ErrJobRejected, msg)
	}
	return fmt.Sprintf("%s: %s: %s", ErrJobRejected, e.Stage, msg)
}

func (e *RejectionError) Unwrap() error { return ErrJobRejected }

// ServerMessage returns the server-supplied rejection message carried by err.
func ServerMessage(err error) (string, bool) {
	var rejection *RejectionError
	if errors.As(err, &rejection) {
		return rejection.Message, true
	}
	return "", false
}

// Classify returns the sentinel marker that best describes err, or ErrUnknown.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	for _, marker := range []error{
		ErrValidation,
		ErrConfiguration,
		ErrJobRejected,
		ErrJobFailed,
		ErrMalformedResponse,
		ErrTransport,
	} {
		if errors.Is(err, marker) {
			return marker
		}
	}
	return ErrUnknown
}

// ExitCode maps an error to the process exit code the CLI should report.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	if errors.Is(err, context.Canceled) {
		return ExitInterrupted
	}
	switch Classify(err) {
	case ErrValidation, ErrConfiguration:
		return ExitValidation
	case ErrTransport:
		return ExitTransport
	case ErrJobRejected:
		return ExitJobRejected
	case ErrJobFailed:
		return ExitJobFailed
	case ErrMalformedResponse:
		return ExitMalformed
	default:
		return ExitUnknown
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return defaultFailureDetail
	}
	return strings.Join(parts, ": ")
}
