// Package server implements the SFTP v3 request/response engine: dispatch,
// the per-opcode handlers, and the main loop that ties them to framed I/O.
package server

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/pkg/errors"

	"github.com/jevinskie/nih-sftp-server/encoding/ssh/filexfer"
	"github.com/jevinskie/nih-sftp-server/internal/frame"
	"github.com/jevinskie/nih-sftp-server/internal/handle"
)

// Server holds the process-wide singletons the protocol describes: the
// input and output buffers, the handle table, and the initialized flag.
type Server struct {
	in  *os.File
	out *os.File

	inBuf  filexfer.Buffer
	outBuf filexfer.Buffer

	handles     handle.Table
	initialized bool

	log *slog.Logger
}

// New returns a Server reading requests from in and writing replies to out.
func New(in, out *os.File, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{in: in, out: out, log: log}
}

// Serve runs the single-threaded request/response loop until the peer
// closes the stream in an orderly way (returns nil) or a fatal condition
// occurs (returns a non-nil error; the caller should then exit
// non-zero).
func (s *Server) Serve() error {
	defer s.handles.ReleaseAll()

	for {
		if err := frame.ReadFrame(s.in, &s.inBuf); err != nil {
			if errors.Is(err, frame.ErrOrderlyShutdown) {
				return nil
			}
			return errors.Wrap(err, "server: read frame")
		}

		s.outBuf.ResetOutput()
		if err := s.dispatch(); err != nil {
			return errors.Wrap(err, "server: dispatch")
		}

		if err := frame.WriteFrame(s.out, &s.outBuf); err != nil {
			return errors.Wrap(err, "server: write frame")
		}
	}
}

// dispatch consumes the opcode byte of the current input frame and routes
// to the matching handler. A zero-length input frame produces no reply.
func (s *Server) dispatch() error {
	if s.inBuf.Remaining() == 0 {
		return nil
	}

	opByte, err := s.inBuf.GetByte()
	if err != nil {
		return err
	}
	op := filexfer.PacketType(opByte)

	if !s.initialized {
		if op != filexfer.PacketTypeInit {
			return errors.Errorf("server: first frame must be SSH_FXP_INIT, got %s", op)
		}
		s.log.Debug("dispatch", "opcode", op)
		return s.handleInit()
	}
	if op == filexfer.PacketTypeInit {
		return errors.New("server: duplicate SSH_FXP_INIT")
	}

	// Every opcode past INIT carries its request id as the next u32; peek
	// it for the trace line without disturbing the handler's own read.
	peek := s.inBuf.SaveCursor()
	if id, err := s.inBuf.GetUint32(); err == nil {
		s.log.Debug("dispatch", "opcode", op, "id", id)
	} else {
		s.log.Debug("dispatch", "opcode", op)
	}
	s.inBuf.Restore(peek)

	switch op {
	case filexfer.PacketTypeOpen:
		return s.handleOpen()
	case filexfer.PacketTypeClose:
		return s.handleClose()
	case filexfer.PacketTypeRead:
		return s.handleRead()
	case filexfer.PacketTypeWrite:
		return s.handleWrite()
	case filexfer.PacketTypeLstat:
		return s.handleStat(false)
	case filexfer.PacketTypeStat:
		return s.handleStat(true)
	case filexfer.PacketTypeFstat:
		return s.handleFstat()
	case filexfer.PacketTypeSetstat:
		return s.handleSetstat()
	case filexfer.PacketTypeFsetstat:
		return s.handleFsetstat()
	case filexfer.PacketTypeOpendir:
		return s.handleOpendir()
	case filexfer.PacketTypeReaddir:
		return s.handleReaddir()
	case filexfer.PacketTypeRemove:
		return s.handleRemove()
	case filexfer.PacketTypeMkdir:
		return s.handleMkdir()
	case filexfer.PacketTypeRmdir:
		return s.handleRmdir()
	case filexfer.PacketTypeRealpath:
		return s.handleRealpath()
	case filexfer.PacketTypeRename:
		return s.handleRename()
	case filexfer.PacketTypeReadlink:
		return s.handleReadlink()
	case filexfer.PacketTypeSymlink:
		return s.handleSymlink()
	default:
		return s.handleUnknownOpcode()
	}
}

func (s *Server) handleUnknownOpcode() error {
	id, err := s.inBuf.GetUint32()
	if err != nil {
		return err
	}
	return s.writeStatus(id, filexfer.StatusOPUnsupported)
}

func (s *Server) handleInit() error {
	version, err := s.inBuf.GetUint32()
	if err != nil {
		return err
	}
	if version < filexfer.ProtocolVersion {
		return fmt.Errorf("server: unsupported client version %d", version)
	}
	s.initialized = true

	if err := s.outBuf.PutByte(byte(filexfer.PacketTypeVersion)); err != nil {
		return err
	}
	return s.outBuf.PutUint32(filexfer.ProtocolVersion)
}
