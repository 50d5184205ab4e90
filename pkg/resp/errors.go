package resp

import "fmt"

// ErrIncomplete is the internal sentinel for "the buffer does not yet hold
// a complete frame". It never reaches the wire; callers retry Decode once
// more bytes have arrived. It is returned with exactly zero bytes
// consumed — see Decode's doc comment for the full contract.
var ErrIncomplete = fmt.Errorf("resp: incomplete frame")

// MalformedError is returned when the buffer's prefix cannot possibly be
// a valid RESP frame, regardless of how many more bytes arrive. Unlike
// ErrIncomplete this is fatal to the connection (§4.5 step 2).
type MalformedError struct {
	Kind string // InvalidFrameType, InvalidFrameLength, ParseNumber
	Msg  string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("resp: %s: %s", e.Kind, e.Msg)
}

func errInvalidType(format string, args ...interface{}) error {
	return &MalformedError{Kind: "InvalidFrameType", Msg: fmt.Sprintf(format, args...)}
}

func errInvalidLength(format string, args ...interface{}) error {
	return &MalformedError{Kind: "InvalidFrameLength", Msg: fmt.Sprintf(format, args...)}
}

func errParseNumber(format string, args ...interface{}) error {
	return &MalformedError{Kind: "ParseNumber", Msg: fmt.Sprintf(format, args...)}
}
