// Package errno carries a POSIX error number on an error value. Gateway
// responses report that number as their status.
package errno

import (
	"fmt"

	"github.com/ansel1/merry"
	"golang.org/x/sys/unix"
)

type Errno int

const (
	Success Errno = 0

	ENOENT = Errno(unix.ENOENT)
	EBUSY  = Errno(unix.EBUSY)
	EEXIST = Errno(unix.EEXIST)
	ENODEV = Errno(unix.ENODEV)
	EINVAL = Errno(unix.EINVAL)
	ENOKEY = Errno(unix.ENOKEY)
	EIO    = Errno(unix.EIO)
)

const errnoKey = "errno"

func (e Errno) Value() int {
	return int(e)
}

func (e Errno) String() string {
	return unix.ErrnoName(unix.Errno(e))
}

func New(code Errno, format string, args ...interface{}) error {
	return merry.WrapSkipping(fmt.Errorf(format, args...), 1).WithValue(errnoKey, int(code))
}

// Wrap attaches code to err, keeping its message.
func Wrap(err error, code Errno) error {
	if err == nil {
		return nil
	}
	return merry.WrapSkipping(err, 1).WithValue(errnoKey, int(code))
}

// Code returns 0 for nil, the carried code if any, and EINVAL for an error
// that never had one attached.
func Code(err error) Errno {
	if err == nil {
		return Success
	}
	if v, ok := merry.Value(err, errnoKey).(int); ok {
		return Errno(v)
	}
	return EINVAL
}

func Message(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func Is(err error, code Errno) bool {
	return Code(err) == code
}
