package resp

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/emberkv/ember/pkg/frame"
)

// Encode serializes f as its canonical wire form. Encode never fails:
// every valid Frame (one built through the frame package's constructors)
// has exactly one encoding, so there is nothing for Encode to reject.
func Encode(f frame.Frame) []byte {
	buf := make([]byte, 0, 64)
	return appendFrame(buf, f)
}

func appendFrame(buf []byte, f frame.Frame) []byte {
	switch f.Kind {
	case frame.SimpleString:
		return appendLine(buf, '+', f.Str)
	case frame.SimpleError:
		return appendLine(buf, '-', f.Str)
	case frame.Integer:
		return appendLine(buf, ':', formatSignedInt(f.Int))
	case frame.Double:
		return appendLine(buf, ',', formatDouble(f.Num))
	case frame.Null:
		return append(buf, '_', '\r', '\n')
	case frame.Boolean:
		if f.Bool {
			return append(buf, '#', 't', '\r', '\n')
		}
		return append(buf, '#', 'f', '\r', '\n')
	case frame.BulkString:
		return appendBulk(buf, f)
	case frame.Array:
		return appendArray(buf, f)
	case frame.Map:
		return appendMap(buf, f)
	case frame.Set:
		return appendSet(buf, f)
	default:
		panic("resp: Encode called on a Frame with invalid Kind")
	}
}

func appendLine(buf []byte, prefix byte, s string) []byte {
	buf = append(buf, prefix)
	buf = append(buf, s...)
	return append(buf, '\r', '\n')
}

// formatSignedInt renders n with an explicit sign, matching §4.2.1: unlike
// Go's normal integer formatting, a non-negative Integer's wire form still
// carries a leading '+'.
func formatSignedInt(n int64) string {
	if n >= 0 {
		return "+" + strconv.FormatInt(n, 10)
	}
	return strconv.FormatInt(n, 10)
}

// formatDouble mirrors the prototype's `{:+e}` Double formatting: always
// explicitly signed, scientific notation, with the special inf/-inf/nan
// spellings RESP3 defines for the non-finite cases. Rust's `{:+e}` emits
// a bare, un-padded exponent (`5.21e0`, `-1.23456e-8`) where Go's
// strconv.FormatFloat zero-pads and signs it (`5.21e+00`, `-1.23456e-08`)
// — the mantissa/exponent are split and the exponent re-rendered to match.
func formatDouble(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	mantissa, exp := splitExponent(strconv.FormatFloat(f, 'e', -1, 64))
	s := mantissa + "e" + strconv.Itoa(exp)
	if !math.Signbit(f) {
		return "+" + s
	}
	return s
}

// splitExponent separates strconv's zero-padded, explicitly-signed
// exponent form (e.g. "5.21e+00", "-1.23456e-08") into its mantissa and a
// bare integer exponent (5.21/0, -1.23456/-8).
func splitExponent(s string) (string, int) {
	idx := strings.IndexByte(s, 'e')
	exp, _ := strconv.Atoi(s[idx+1:])
	return s[:idx], exp
}

func appendBulk(buf []byte, f frame.Frame) []byte {
	if f.BulkNull {
		return append(buf, '$', '-', '1', '\r', '\n')
	}
	buf = append(buf, '$')
	buf = strconv.AppendInt(buf, int64(len(f.Bulk)), 10)
	buf = append(buf, '\r', '\n')
	buf = append(buf, f.Bulk...)
	return append(buf, '\r', '\n')
}

func appendArray(buf []byte, f frame.Frame) []byte {
	if f.ArrayNull {
		return append(buf, '*', '-', '1', '\r', '\n')
	}
	buf = append(buf, '*')
	buf = strconv.AppendInt(buf, int64(len(f.Items)), 10)
	buf = append(buf, '\r', '\n')
	for _, item := range f.Items {
		buf = appendFrame(buf, item)
	}
	return buf
}

func appendSet(buf []byte, f frame.Frame) []byte {
	buf = append(buf, '~')
	buf = strconv.AppendInt(buf, int64(len(f.Members)), 10)
	buf = append(buf, '\r', '\n')
	for _, m := range f.Members {
		buf = appendFrame(buf, m)
	}
	return buf
}

// appendMap serializes entries sorted by key, matching the prototype's use
// of a BTreeMap as the Map payload's backing store (§3.1, §4.4 HGETALL).
func appendMap(buf []byte, f frame.Frame) []byte {
	entries := f.Entries
	sorted := make([]frame.MapEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })

	buf = append(buf, '%')
	buf = strconv.AppendInt(buf, int64(len(sorted)), 10)
	buf = append(buf, '\r', '\n')
	for _, e := range sorted {
		buf = appendLine(buf, '+', e.Key)
		buf = appendFrame(buf, e.Value)
	}
	return buf
}
