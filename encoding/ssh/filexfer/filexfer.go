// Package filexfer implements the wire encoding for SSH_FXP_* packets as
// described in draft-ietf-secsh-filexfer-02, restricted to protocol version 3.
package filexfer

// PacketType identifies the opcode byte that begins every SFTP packet.
type PacketType uint8

// Request packet types, plus VERSION, the reply to INIT.
const (
	PacketTypeInit = PacketType(iota + 1)
	PacketTypeVersion
	PacketTypeOpen
	PacketTypeClose
	PacketTypeRead
	PacketTypeWrite
	PacketTypeLstat
	PacketTypeFstat
	PacketTypeSetstat
	PacketTypeFsetstat
	PacketTypeOpendir
	PacketTypeReaddir
	PacketTypeRemove
	PacketTypeMkdir
	PacketTypeRmdir
	PacketTypeRealpath
	PacketTypeStat
	PacketTypeRename
	PacketTypeReadlink
	PacketTypeSymlink
)

// Response packet types.
const (
	PacketTypeStatus = PacketType(iota + 101)
	PacketTypeHandle
	PacketTypeData
	PacketTypeName
	PacketTypeAttrs
)

func (t PacketType) String() string {
	switch t {
	case PacketTypeInit:
		return "SSH_FXP_INIT"
	case PacketTypeVersion:
		return "SSH_FXP_VERSION"
	case PacketTypeOpen:
		return "SSH_FXP_OPEN"
	case PacketTypeClose:
		return "SSH_FXP_CLOSE"
	case PacketTypeRead:
		return "SSH_FXP_READ"
	case PacketTypeWrite:
		return "SSH_FXP_WRITE"
	case PacketTypeLstat:
		return "SSH_FXP_LSTAT"
	case PacketTypeFstat:
		return "SSH_FXP_FSTAT"
	case PacketTypeSetstat:
		return "SSH_FXP_SETSTAT"
	case PacketTypeFsetstat:
		return "SSH_FXP_FSETSTAT"
	case PacketTypeOpendir:
		return "SSH_FXP_OPENDIR"
	case PacketTypeReaddir:
		return "SSH_FXP_READDIR"
	case PacketTypeRemove:
		return "SSH_FXP_REMOVE"
	case PacketTypeMkdir:
		return "SSH_FXP_MKDIR"
	case PacketTypeRmdir:
		return "SSH_FXP_RMDIR"
	case PacketTypeRealpath:
		return "SSH_FXP_REALPATH"
	case PacketTypeStat:
		return "SSH_FXP_STAT"
	case PacketTypeRename:
		return "SSH_FXP_RENAME"
	case PacketTypeReadlink:
		return "SSH_FXP_READLINK"
	case PacketTypeSymlink:
		return "SSH_FXP_SYMLINK"
	case PacketTypeStatus:
		return "SSH_FXP_STATUS"
	case PacketTypeHandle:
		return "SSH_FXP_HANDLE"
	case PacketTypeData:
		return "SSH_FXP_DATA"
	case PacketTypeName:
		return "SSH_FXP_NAME"
	case PacketTypeAttrs:
		return "SSH_FXP_ATTRS"
	default:
		return "SSH_FXP_UNKNOWN"
	}
}

// ProtocolVersion is the only SFTP version this server speaks.
const ProtocolVersion = 3

// MaxPacketSize is the minimum payload size SFTP v3 servers SHOULD support,
// per draft-ietf-secsh-filexfer-02 section 3, and the fixed capacity of the
// input and output buffers.
const MaxPacketSize = 34000
