package types

import (
	"errors"
	"fmt"
)

// Kind classifies pipeline failures so callers can branch on the error
// class without parsing messages.
type Kind string

const (
	KindNotFound         Kind = "not_found"
	KindNoVideoStream    Kind = "no_video_stream"
	KindCorruptFile      Kind = "corrupt_file"
	KindInvalidRange     Kind = "invalid_range"
	KindEncodeFailure    Kind = "encode_failure"
	KindNoValidClips     Kind = "no_valid_clips"
	KindGenerationFailed Kind = "generation_failed"
	KindValidationFailed Kind = "validation_failed"
	KindInvalidInput     Kind = "invalid_input"
)

// Error is a tagged error: a kind plus a message, optionally wrapping a
// cause. Encoder failures keep the underlying ffmpeg stderr in Msg so
// the operator sees the actionable diagnostic.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func E(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of err, or "" when err carries no kind.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func IsKind(err error, kind Kind) bool { return KindOf(err) == kind }
