package server

import (
	"os"
	"time"

	"github.com/jevinskie/nih-sftp-server/encoding/ssh/filexfer"
	"github.com/jevinskie/nih-sftp-server/internal/handle"
	"github.com/jevinskie/nih-sftp-server/internal/sftperrno"
)

// handleStat serves both STAT (followSymlink true) and LSTAT (false).
func (s *Server) handleStat(followSymlink bool) error {
	id, err := s.inBuf.GetUint32()
	if err != nil {
		return err
	}
	path, err := s.inBuf.GetCString()
	if err != nil {
		return err
	}

	var fi os.FileInfo
	var serr error
	if followSymlink {
		fi, serr = os.Stat(string(path))
	} else {
		fi, serr = os.Lstat(string(path))
	}
	if serr != nil {
		return s.writeStatus(id, sftperrno.FromError(serr))
	}
	return s.writeAttrs(id, attributesFromFileInfo(fi))
}

func (s *Server) handleFstat() error {
	id, err := s.inBuf.GetUint32()
	if err != nil {
		return err
	}
	hs, err := s.inBuf.GetCString()
	if err != nil {
		return err
	}

	v, ok := handle.ParseHandle(string(hs))
	if !ok {
		return s.writeStatus(id, filexfer.StatusFailure)
	}
	f, ok := s.handles.ResolveFile(v)
	if !ok {
		return s.writeStatus(id, filexfer.StatusFailure)
	}
	fi, serr := f.Stat()
	if serr != nil {
		return s.writeStatus(id, sftperrno.FromError(serr))
	}
	return s.writeAttrs(id, attributesFromFileInfo(fi))
}

// applyAttrs applies the fields selected by a.Flags, in the fixed order
// permissions, then (atime,mtime), then (uid,gid).
// It stops and returns the first error encountered.
func applyAttrs(chmod func(os.FileMode) error, chtimes func(atime, mtime time.Time) error, chown func(uid, gid int) error, a filexfer.Attributes) error {
	if a.Flags&filexfer.AttrPermissions != 0 {
		if err := chmod(os.FileMode(a.Permissions & 0777)); err != nil {
			return err
		}
	}
	if a.Flags&filexfer.AttrACModTime != 0 {
		if err := chtimes(a.ATimeTime(), a.MTimeTime()); err != nil {
			return err
		}
	}
	if a.Flags&filexfer.AttrUIDGID != 0 {
		if err := chown(int(a.UID), int(a.GID)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) handleSetstat() error {
	id, err := s.inBuf.GetUint32()
	if err != nil {
		return err
	}
	path, err := s.inBuf.GetCString()
	if err != nil {
		return err
	}
	attrs, err := filexfer.GetAttrs(&s.inBuf)
	if err != nil {
		return err
	}

	p := string(path)
	aerr := applyAttrs(
		func(mode os.FileMode) error { return os.Chmod(p, mode) },
		func(atime, mtime time.Time) error { return os.Chtimes(p, atime, mtime) },
		func(uid, gid int) error { return os.Chown(p, uid, gid) },
		attrs,
	)
	return s.writeStatus(id, sftperrno.FromError(aerr))
}

func (s *Server) handleFsetstat() error {
	id, err := s.inBuf.GetUint32()
	if err != nil {
		return err
	}
	hs, err := s.inBuf.GetCString()
	if err != nil {
		return err
	}
	attrs, err := filexfer.GetAttrs(&s.inBuf)
	if err != nil {
		return err
	}

	v, ok := handle.ParseHandle(string(hs))
	if !ok {
		return s.writeStatus(id, filexfer.StatusFailure)
	}
	f, ok := s.handles.ResolveFile(v)
	if !ok {
		return s.writeStatus(id, filexfer.StatusFailure)
	}

	// Go's os.File exposes no fd-based equivalent of futimes, so an
	// atime/mtime change via FSETSTAT is reported unsupported rather than
	// risk applying it to a path the fd no longer names.
	if attrs.Flags&filexfer.AttrPermissions != 0 {
		if err := f.Chmod(os.FileMode(attrs.Permissions & 0777)); err != nil {
			return s.writeStatus(id, sftperrno.FromError(err))
		}
	}
	if attrs.Flags&filexfer.AttrACModTime != 0 {
		return s.writeStatus(id, filexfer.StatusOPUnsupported)
	}
	if attrs.Flags&filexfer.AttrUIDGID != 0 {
		if err := f.Chown(int(attrs.UID), int(attrs.GID)); err != nil {
			return s.writeStatus(id, sftperrno.FromError(err))
		}
	}
	return s.writeStatus(id, filexfer.StatusOK)
}
