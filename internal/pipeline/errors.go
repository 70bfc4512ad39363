package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError reports missing required request fields.
type ValidationError struct {
	Fields []string
	// Err is set when the request could not be decoded at all.
	Err error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid request body: %v", e.Err)
	}
	return "missing required fields: " + strings.Join(e.Fields, ", ")
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// FetchError reports a failed source download.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch input video: %v", e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// TranscodeError reports a failed transcoder run. Stderr holds the
// transcoder's diagnostic output when it produced any.
type TranscodeError struct {
	Err    error
	Stderr string
}

func (e *TranscodeError) Error() string {
	return fmt.Sprintf("transcoding failed: %v", e.Err)
}

func (e *TranscodeError) Unwrap() error {
	return e.Err
}

// UploadError reports a failure from the storage collaborator.
type UploadError struct {
	Bucket string
	Key    string
	Err    error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload failed: %v", e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Diagnostics returns the transcoder output attached to err, if any.
func Diagnostics(err error) string {
	var te *TranscodeError
	if errors.As(err, &te) {
		return te.Stderr
	}
	return ""
}

// StageOf returns the stage that produced err. Errors from outside the
// taxonomy are attributed to the stage passed as fallback.
func StageOf(err error, fallback Stage) Stage {
	var (
		ve *ValidationError
		fe *FetchError
		te *TranscodeError
		ue *UploadError
	)
	switch {
	case errors.As(err, &ve):
		return StageValidating
	case errors.As(err, &fe):
		return StageFetching
	case errors.As(err, &te):
		return StageTranscoding
	case errors.As(err, &ue):
		return StageUploading
	default:
		return fallback
	}
}
