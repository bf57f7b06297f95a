// Package sftperrno translates host filesystem errors into SFTP status
// codes.
package sftperrno

import (
	"errors"
	"io/fs"
	"os"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/jevinskie/nih-sftp-server/encoding/ssh/filexfer"
)

// FromError maps err to the SFTP status code a handler should report for it.
// A nil error maps to StatusOK. Errors are unwrapped through fs.PathError
// and os.LinkError to reach the underlying syscall.Errno before the table
// lookup, mirroring how the host reports filesystem failures.
func FromError(err error) filexfer.Status {
	if err == nil {
		return filexfer.StatusOK
	}

	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		err = pathErr.Err
	}
	var linkErr *os.LinkError
	if errors.As(err, &linkErr) {
		err = linkErr.Err
	}

	var errno syscall.Errno
	if !errors.As(err, &errno) {
		return filexfer.StatusFailure
	}

	return fromErrno(errno)
}

// fromErrno implements the host-error-to-status table.
func fromErrno(errno syscall.Errno) filexfer.Status {
	switch unix.Errno(errno) {
	case 0:
		return filexfer.StatusOK
	case unix.ENOENT, unix.ENOTDIR, unix.EBADF, unix.ELOOP:
		return filexfer.StatusNoSuchFile
	case unix.EPERM, unix.EACCES, unix.EFAULT:
		return filexfer.StatusPermissionDenied
	case unix.ENAMETOOLONG, unix.EINVAL:
		return filexfer.StatusBadMessage
	default:
		return filexfer.StatusFailure
	}
}
