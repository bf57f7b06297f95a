package filexfer

// OPEN pflags bits, per draft-ietf-secsh-filexfer-02 section 6.3.
const (
	FXFRead   = uint32(1 << 0)
	FXFWrite  = uint32(1 << 1)
	FXFAppend = uint32(1 << 2)
	FXFCreat  = uint32(1 << 3)
	FXFTrunc  = uint32(1 << 4)
	FXFExcl   = uint32(1 << 5)
)
