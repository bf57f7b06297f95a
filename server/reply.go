package server

import (
	"github.com/jevinskie/nih-sftp-server/encoding/ssh/filexfer"
	"github.com/jevinskie/nih-sftp-server/internal/handle"
)

// writeStatus writes a STATUS reply: code, fixed message, and the "en"
// language tag.
func (s *Server) writeStatus(id uint32, status filexfer.Status) error {
	if err := s.outBuf.PutByte(byte(filexfer.PacketTypeStatus)); err != nil {
		return err
	}
	if err := s.outBuf.PutUint32(id); err != nil {
		return err
	}
	if err := s.outBuf.PutUint32(uint32(status)); err != nil {
		return err
	}
	if err := s.outBuf.PutString(status.Message()); err != nil {
		return err
	}
	return s.outBuf.PutString("en")
}

// writeHandle writes a HANDLE reply carrying the external handle for slot v.
func (s *Server) writeHandle(id uint32, v int) error {
	if err := s.outBuf.PutByte(byte(filexfer.PacketTypeHandle)); err != nil {
		return err
	}
	if err := s.outBuf.PutUint32(id); err != nil {
		return err
	}
	return s.outBuf.PutString(handle.FormatHandle(v))
}

// writeAttrs writes an ATTRS reply.
func (s *Server) writeAttrs(id uint32, a filexfer.Attributes) error {
	if err := s.outBuf.PutByte(byte(filexfer.PacketTypeAttrs)); err != nil {
		return err
	}
	if err := s.outBuf.PutUint32(id); err != nil {
		return err
	}
	return filexfer.PutAttrs(&s.outBuf, a)
}

// writeSingleName writes a NAME reply with exactly one (filename, longname,
// attrs) entry, used by REALPATH.
func (s *Server) writeSingleName(id uint32, name string, a filexfer.Attributes) error {
	if err := s.outBuf.PutByte(byte(filexfer.PacketTypeName)); err != nil {
		return err
	}
	if err := s.outBuf.PutUint32(id); err != nil {
		return err
	}
	if err := s.outBuf.PutUint32(1); err != nil {
		return err
	}
	if err := s.outBuf.PutString(name); err != nil {
		return err
	}
	if err := s.outBuf.PutString(name); err != nil {
		return err
	}
	return filexfer.PutAttrs(&s.outBuf, a)
}
