package media

import (
	"errors"
	"fmt"
)

// ErrToolUnavailable reports that ffmpeg or ffprobe is not installed. Jobs
// failing with this error are not retryable without an operator fix.
var ErrToolUnavailable = errors.New("decoder tools not found in PATH")

// ProbeError reports that a media file could not be probed.
type ProbeError struct {
	Path string
	Err  error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probing %q: %v", e.Path, e.Err)
}

func (e *ProbeError) Unwrap() error { return e.Err }

// DecodeError reports that the scene-score decode pass failed on this input.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding %q: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// CaptureError reports a failed single-frame capture. Individual captures may
// fail without aborting a batch.
type CaptureError struct {
	Path      string
	Timestamp float64
	Err       error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("capturing frame at %.1fs from %q: %v", e.Timestamp, e.Path, e.Err)
}

func (e *CaptureError) Unwrap() error { return e.Err }
