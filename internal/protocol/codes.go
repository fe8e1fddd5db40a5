package protocol

// Code classifies a daemon-reported failure in ErrorReply.
type Code uint32

const (
	CodeUnknown        Code = 0
	CodeUnimplemented  Code = 1
	CodeNotFound       Code = 2
	CodeAlreadyRunning Code = 3
	CodeNotRunning     Code = 4
	CodeInternal       Code = 5
)

func (c Code) String() string {
	switch c {
	case CodeUnknown:
		return "unknown"
	case CodeUnimplemented:
		return "unimplemented"
	case CodeNotFound:
		return "not-found"
	case CodeAlreadyRunning:
		return "already-running"
	case CodeNotRunning:
		return "not-running"
	case CodeInternal:
		return "internal"
	default:
		return "unrecognized"
	}
}
