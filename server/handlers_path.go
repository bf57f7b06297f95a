package server

import (
	"os"
	"path/filepath"

	"github.com/jevinskie/nih-sftp-server/encoding/ssh/filexfer"
	"github.com/jevinskie/nih-sftp-server/internal/sftperrno"
)

func (s *Server) handleRemove() error {
	id, err := s.inBuf.GetUint32()
	if err != nil {
		return err
	}
	path, err := s.inBuf.GetCString()
	if err != nil {
		return err
	}
	return s.writeStatus(id, sftperrno.FromError(os.Remove(string(path))))
}

func (s *Server) handleMkdir() error {
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

	mode := os.FileMode(0777)
	if attrs.Flags&filexfer.AttrPermissions != 0 {
		mode = os.FileMode(attrs.Permissions & 0777)
	}
	return s.writeStatus(id, sftperrno.FromError(os.Mkdir(string(path), mode)))
}

func (s *Server) handleRmdir() error {
	id, err := s.inBuf.GetUint32()
	if err != nil {
		return err
	}
	path, err := s.inBuf.GetCString()
	if err != nil {
		return err
	}
	return s.writeStatus(id, sftperrno.FromError(os.Remove(string(path))))
}

func (s *Server) handleRename() error {
	id, err := s.inBuf.GetUint32()
	if err != nil {
		return err
	}
	oldpath, err := s.inBuf.GetCString()
	if err != nil {
		return err
	}
	newpath, err := s.inBuf.GetCString()
	if err != nil {
		return err
	}
	return s.writeStatus(id, sftperrno.FromError(os.Rename(string(oldpath), string(newpath))))
}

func (s *Server) handleRealpath() error {
	id, err := s.inBuf.GetUint32()
	if err != nil {
		return err
	}
	path, err := s.inBuf.GetCString()
	if err != nil {
		return err
	}

	abs, operr := filepath.Abs(string(path))
	if operr != nil {
		return s.writeStatus(id, sftperrno.FromError(operr))
	}
	abs = filepath.Clean(abs)

	// Resolve symlinks where possible; a path whose final component does not
	// yet exist (e.g. the target of an upcoming OPEN|CREAT) still
	// canonicalizes via its existing parent.
	if resolved, rerr := filepath.EvalSymlinks(abs); rerr == nil {
		abs = resolved
	} else if parent, perr := filepath.EvalSymlinks(filepath.Dir(abs)); perr == nil {
		abs = filepath.Join(parent, filepath.Base(abs))
	}
	return s.writeSingleName(id, abs, filexfer.Attributes{})
}

func (s *Server) handleReadlink() error {
	id, err := s.inBuf.GetUint32()
	if err != nil {
		return err
	}
	path, err := s.inBuf.GetCString()
	if err != nil {
		return err
	}

	preHeader := s.outBuf.SaveCursor()
	if err := s.outBuf.PutByte(byte(filexfer.PacketTypeName)); err != nil {
		return err
	}
	if err := s.outBuf.PutUint32(id); err != nil {
		return err
	}
	if err := s.outBuf.PutUint32(1); err != nil {
		return err
	}

	target, lerr := os.Readlink(string(path))
	if lerr != nil {
		s.outBuf.Restore(preHeader)
		return s.writeStatus(id, sftperrno.FromError(lerr))
	}

	avail := (s.outBuf.Remaining()-maxAttrsBytes)/2 - 4
	if len(target) > avail {
		s.outBuf.Restore(preHeader)
		return s.writeStatus(id, filexfer.StatusFailure)
	}

	if err := s.outBuf.PutString(target); err != nil {
		return err
	}
	if err := s.outBuf.PutString(target); err != nil {
		return err
	}
	return s.outBuf.PutUint32(0)
}

func (s *Server) handleSymlink() error {
	id, err := s.inBuf.GetUint32()
	if err != nil {
		return err
	}
	// Wire order is (link_path, target_path); the host call takes
	// (target, link), mirroring an ambiguity in the original wire ordering.
	linkpath, err := s.inBuf.GetCString()
	if err != nil {
		return err
	}
	targetpath, err := s.inBuf.GetCString()
	if err != nil {
		return err
	}
	return s.writeStatus(id, sftperrno.FromError(os.Symlink(string(targetpath), string(linkpath))))
}
