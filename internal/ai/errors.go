package ai

import (
	"errors"
	"fmt"

	"github.com/spigell/interviewer/internal/utils"
)

var (
	// ErrTransport marks failures of the generation call itself.
	ErrTransport = errors.New("generation request failed")
	// ErrParse marks responses that are not valid JSON when JSON was requested.
	ErrParse = errors.New("response is not valid json")
	// ErrSchema marks parsed responses that do not match the expected shape.
	ErrSchema = errors.New("response does not match schema")
)

const rawPreviewLength = 500

// GenerationError is an upstream generation failure. Raw holds the response
// text when the generator returned one, for diagnosis and prompt tuning.
type GenerationError struct {
	Op  string
	Raw string
	Err error
}

func (e *GenerationError) Error() string {
	msg := e.Err.Error()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Raw != "" {
		msg = fmt.Sprintf("%s (raw response: %q)", msg, utils.TruncateForLog(e.Raw, rawPreviewLength))
	}
	return msg
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// RawResponse returns the raw generator output carried by err, if any.
func RawResponse(err error) string {
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return genErr.Raw
	}
	return ""
}
