package resp

import (
	"strconv"

	"github.com/emberkv/ember/pkg/frame"
)

// findCRLF returns the index of the first "\r\n" in b, or -1 if absent.
// Mirrors the prototype's find_crlf (a literal two-byte window search, not
// a bare '\n' scan) so a lone '\r' or '\n' never terminates a frame.
func findCRLF(b []byte) int {
	for i := 0; i+1 < len(b); i++ {
		if b[i] == '\r' && b[i+1] == '\n' {
			return i
		}
	}
	return -1
}

// Decode consumes exactly one complete Frame from the head of buf.
//
// Three outcomes, per spec §4.2.2:
//   - (Frame{}, 0, ErrIncomplete): buf does not yet hold a full frame.
//     buf is conceptually unchanged — callers must not advance past 0.
//   - (f, n, nil): buf[:n] was a complete, valid frame; the caller should
//     advance its read position by n.
//   - (Frame{}, 0, err) where err is a *MalformedError: buf's prefix can
//     never become valid no matter how many more bytes arrive.
//
// Decode never partially advances: it always preflights the total frame
// length via expectLength before building the result.
func Decode(buf []byte) (frame.Frame, int, error) {
	n, err := expectLength(buf)
	if err != nil {
		return frame.Frame{}, 0, err
	}
	f, err := decodeExact(buf[:n])
	if err != nil {
		return frame.Frame{}, 0, err
	}
	return f, n, nil
}

// expectLength is the size preflight described in §4.2.2: it returns the
// total byte length of the frame starting at buf[0], or ErrIncomplete if
// buf doesn't yet hold enough bytes to know that length, or a
// *MalformedError if the prefix can never be valid.
func expectLength(buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, ErrIncomplete
	}
	switch frame.Kind(buf[0]) {
	case frame.SimpleString, frame.SimpleError, frame.Integer, frame.Double, frame.Null, frame.Boolean:
		return expectSimpleLength(buf)
	case frame.BulkString:
		return expectBulkLength(buf)
	case frame.Array:
		return expectAggregateLength(buf, true)
	case frame.Map:
		return expectMapLength(buf)
	case frame.Set:
		return expectAggregateLength(buf, false)
	default:
		return 0, errInvalidType("unknown type prefix %q", buf[0])
	}
}

// expectSimpleLength handles every CRLF-terminated, non-aggregate variant:
// the line from byte 1 up to (and including) the CRLF is the whole frame.
func expectSimpleLength(buf []byte) (int, error) {
	idx := findCRLF(buf[1:])
	if idx < 0 {
		return 0, ErrIncomplete
	}
	return 1 + idx + 2, nil
}

func expectBulkLength(buf []byte) (int, error) {
	headerLen, err := expectSimpleLength(buf)
	if err != nil {
		return 0, err
	}
	n, err := parseLengthField(buf[1 : headerLen-2])
	if err != nil {
		return 0, err
	}
	if n == -1 {
		return headerLen, nil
	}
	if n < -1 {
		return 0, errInvalidLength("bulk string length %d", n)
	}
	total := headerLen + n + 2
	if len(buf) < total {
		return 0, ErrIncomplete
	}
	return total, nil
}

// expectAggregateLength handles Array (nullAllowed=true) and Set
// (nullAllowed=false): a count header followed by that many generic
// Frame children.
func expectAggregateLength(buf []byte, nullAllowed bool) (int, error) {
	headerLen, err := expectSimpleLength(buf)
	if err != nil {
		return 0, err
	}
	n, err := parseLengthField(buf[1 : headerLen-2])
	if err != nil {
		return 0, err
	}
	if n == -1 && nullAllowed {
		return headerLen, nil
	}
	if n < 0 {
		return 0, errInvalidLength("aggregate length %d", n)
	}
	total := headerLen
	for i := 0; i < n; i++ {
		if total > len(buf) {
			return 0, ErrIncomplete
		}
		childLen, err := expectLength(buf[total:])
		if err != nil {
			return 0, err
		}
		total += childLen
	}
	return total, nil
}

// expectMapLength handles the Map variant: a count header followed by
// that many (SimpleString key, Frame value) pairs.
func expectMapLength(buf []byte) (int, error) {
	headerLen, err := expectSimpleLength(buf)
	if err != nil {
		return 0, err
	}
	n, err := parseLengthField(buf[1 : headerLen-2])
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, errInvalidLength("map length %d", n)
	}
	total := headerLen
	for i := 0; i < n; i++ {
		if total > len(buf) {
			return 0, ErrIncomplete
		}
		keyLen, err := expectSimpleStringLength(buf[total:])
		if err != nil {
			return 0, err
		}
		total += keyLen
		if total > len(buf) {
			return 0, ErrIncomplete
		}
		valLen, err := expectLength(buf[total:])
		if err != nil {
			return 0, err
		}
		total += valLen
	}
	return total, nil
}

// expectSimpleStringLength preflights a Map key, which must itself be a
// SimpleString frame (§4.2.2 Map).
func expectSimpleStringLength(buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, ErrIncomplete
	}
	if frame.Kind(buf[0]) != frame.SimpleString {
		return 0, errInvalidType("map key must be SimpleString, got %q", buf[0])
	}
	return expectSimpleLength(buf)
}

// parseLengthField parses the text between a header's prefix byte and its
// CRLF as a signed decimal length. It accepts a leading '-' (for the -1
// null sentinel); callers reject other negative values themselves since
// the valid range differs between BulkString/Array (-1 allowed) and
// Map/Set (no negative value is valid).
func parseLengthField(text []byte) (int, error) {
	n, err := strconv.Atoi(string(text))
	if err != nil {
		return 0, errInvalidLength("non-numeric length %q", text)
	}
	return n, nil
}

// decodeExact builds a Frame from a buffer already known (via
// expectLength) to hold exactly one complete frame. It performs no
// incompleteness checks of its own.
func decodeExact(buf []byte) (frame.Frame, error) {
	switch frame.Kind(buf[0]) {
	case frame.SimpleString:
		return frame.NewSimpleString(string(buf[1 : len(buf)-2])), nil
	case frame.SimpleError:
		return frame.NewError(string(buf[1 : len(buf)-2])), nil
	case frame.Integer:
		text := buf[1 : len(buf)-2]
		n, err := strconv.ParseInt(string(text), 10, 64)
		if err != nil {
			return frame.Frame{}, errParseNumber("invalid integer %q", text)
		}
		return frame.NewInteger(n), nil
	case frame.Double:
		text := buf[1 : len(buf)-2]
		f, err := strconv.ParseFloat(string(text), 64)
		if err != nil {
			return frame.Frame{}, errParseNumber("invalid double %q", text)
		}
		return frame.NewDouble(f), nil
	case frame.Null:
		if len(buf) != 3 {
			return frame.Frame{}, errInvalidType("null frame must be exactly \"_\\r\\n\"")
		}
		return frame.NewNull(), nil
	case frame.Boolean:
		text := buf[1 : len(buf)-2]
		if len(text) != 1 {
			return frame.Frame{}, errInvalidType("boolean frame must be #t or #f")
		}
		switch text[0] {
		case 't':
			return frame.NewBoolean(true), nil
		case 'f':
			return frame.NewBoolean(false), nil
		default:
			return frame.Frame{}, errInvalidType("boolean frame must be #t or #f, got %q", text)
		}
	case frame.BulkString:
		return decodeBulkExact(buf)
	case frame.Array:
		return decodeArrayExact(buf)
	case frame.Map:
		return decodeMapExact(buf)
	case frame.Set:
		return decodeSetExact(buf)
	default:
		return frame.Frame{}, errInvalidType("unknown type prefix %q", buf[0])
	}
}

func decodeBulkExact(buf []byte) (frame.Frame, error) {
	headerLen, _ := expectSimpleLength(buf)
	n, _ := parseLengthField(buf[1 : headerLen-2])
	if n == -1 {
		return frame.NewNullBulkString(), nil
	}
	payload := buf[headerLen : headerLen+n]
	if buf[headerLen+n] != '\r' || buf[headerLen+n+1] != '\n' {
		return frame.Frame{}, errInvalidLength("bulk string missing CRLF terminator")
	}
	out := make([]byte, n)
	copy(out, payload)
	return frame.NewBulkString(out), nil
}

func decodeArrayExact(buf []byte) (frame.Frame, error) {
	headerLen, _ := expectSimpleLength(buf)
	n, _ := parseLengthField(buf[1 : headerLen-2])
	if n == -1 {
		return frame.NewNullArray(), nil
	}
	items := make([]frame.Frame, 0, n)
	pos := headerLen
	for i := 0; i < n; i++ {
		childLen, err := expectLength(buf[pos:])
		if err != nil {
			return frame.Frame{}, err
		}
		child, err := decodeExact(buf[pos : pos+childLen])
		if err != nil {
			return frame.Frame{}, err
		}
		items = append(items, child)
		pos += childLen
	}
	return frame.NewArray(items), nil
}

func decodeSetExact(buf []byte) (frame.Frame, error) {
	headerLen, _ := expectSimpleLength(buf)
	n, _ := parseLengthField(buf[1 : headerLen-2])
	members := make([]frame.Frame, 0, n)
	pos := headerLen
	for i := 0; i < n; i++ {
		childLen, err := expectLength(buf[pos:])
		if err != nil {
			return frame.Frame{}, err
		}
		child, err := decodeExact(buf[pos : pos+childLen])
		if err != nil {
			return frame.Frame{}, err
		}
		members = append(members, child)
		pos += childLen
	}
	return frame.NewSet(members), nil
}

func decodeMapExact(buf []byte) (frame.Frame, error) {
	headerLen, _ := expectSimpleLength(buf)
	n, _ := parseLengthField(buf[1 : headerLen-2])
	entries := make([]frame.MapEntry, 0, n)
	pos := headerLen
	for i := 0; i < n; i++ {
		keyLen, err := expectSimpleStringLength(buf[pos:])
		if err != nil {
			return frame.Frame{}, err
		}
		key := string(buf[pos+1 : pos+keyLen-2])
		pos += keyLen

		valLen, err := expectLength(buf[pos:])
		if err != nil {
			return frame.Frame{}, err
		}
		val, err := decodeExact(buf[pos : pos+valLen])
		if err != nil {
			return frame.Frame{}, err
		}
		pos += valLen

		entries = append(entries, frame.MapEntry{Key: key, Value: val})
	}
	return frame.NewMap(entries), nil
}
