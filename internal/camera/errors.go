package camera

import "errors"

// ErrNotOpened is returned by CheckOpened when the session is closed.
var ErrNotOpened = errors.New("camera is not opened")

// ErrorCode is the result of a session lifecycle operation.
type ErrorCode int

const (
	Success ErrorCode = iota
	Failure
	CameraOpenFailed
)

func (c ErrorCode) String() string {
	switch c {
	case Success:
		return "success"
	case Failure:
		return "failure"
	case CameraOpenFailed:
		return "camera open failed"
	default:
		return "unknown"
	}
}
