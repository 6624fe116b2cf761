package socket

import (
	"errors"
	"fmt"
)

// Status is the result code shared by every socket operation.
type Status int32

const (
	OK       Status = 0
	Error    Status = -1
	NotValid Status = -2
	NoData   Status = -3
)

// String returns the status name.
func (st Status) String() string {
	switch st {
	case OK:
		return "ok"
	case Error:
		return "error"
	case NotValid:
		return "not valid"
	case NoData:
		return "no data"
	default:
		return fmt.Sprintf("status(%d)", int32(st))
	}
}

var (
	// ErrNotValid is reported for operations on a closed or never-opened socket.
	ErrNotValid = errors.New("socket not valid")

	// ErrStartup is reported by Open when the platform network subsystem cannot start.
	ErrStartup = errors.New("network subsystem startup failed")
)

// OpError describes a failed socket operation.
type OpError struct {
	Op     string
	Status Status
	Code   int32 // platform error code, 0 if none was recorded
}

func (e *OpError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Status, PlatformErrorString(e.Code))
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Status)
}

// Unwrap exposes ErrNotValid or the platform errno so errors.Is works against both.
func (e *OpError) Unwrap() error {
	if e.Status == NotValid {
		return ErrNotValid
	}
	if e.Code != 0 {
		return errnoFromCode(e.Code)
	}
	return nil
}
