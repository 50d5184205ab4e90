// Package frame defines the RESP2+RESP3 value model used throughout ember.
//
// A Frame is a tagged union: exactly one of the ten RESP variants listed in
// the protocol spec (https://redis.io/docs/reference/protocol-spec/) and its
// RESP3 extension. Construction goes through the New* functions below so a
// Frame is never left in an ambiguous state (e.g. a BulkString that is
// simultaneously null and non-nil).
package frame

import "math"

// Kind identifies which RESP variant a Frame holds. The numeric value is the
// variant's wire prefix byte, so Kind can be used directly as the first byte
// of an encoded frame.
type Kind byte

const (
	SimpleString Kind = '+'
	SimpleError  Kind = '-'
	Integer      Kind = ':'
	BulkString   Kind = '$'
	Array        Kind = '*'
	Null         Kind = '_'
	Boolean      Kind = '#'
	Double       Kind = ','
	Map          Kind = '%'
	Set          Kind = '~'
)

func (k Kind) String() string {
	switch k {
	case SimpleString:
		return "SimpleString"
	case SimpleError:
		return "SimpleError"
	case Integer:
		return "Integer"
	case BulkString:
		return "BulkString"
	case Array:
		return "Array"
	case Null:
		return "Null"
	case Boolean:
		return "Boolean"
	case Double:
		return "Double"
	case Map:
		return "Map"
	case Set:
		return "Set"
	default:
		return "Unknown"
	}
}

// MapEntry is one key/value pair of a Map frame. Map keys are always
// serialized as SimpleString on the wire (§3.1), so the key is a plain Go
// string rather than a nested Frame.
type MapEntry struct {
	Key   string
	Value Frame
}

// Frame is the tagged union described in spec §3.1. Only the fields
// relevant to Kind are meaningful; the others are zero. Use the New*
// constructors rather than building a Frame by hand.
type Frame struct {
	Kind Kind

	// SimpleString / SimpleError
	Str string

	// Integer
	Int int64

	// BulkString. Null is a separate bool because a present-but-empty
	// bulk string ("$0\r\n\r\n") is distinct from a null bulk string
	// ("$-1\r\n"); Bulk == nil does not by itself mean null.
	Bulk     []byte
	BulkNull bool

	// Array. Same null/empty distinction as BulkString.
	Items     []Frame
	ArrayNull bool

	// Boolean
	Bool bool

	// Double
	Num float64

	// Map. Always non-nil for a Map-kind Frame (possibly length 0).
	Entries []MapEntry

	// Set. Always non-nil for a Set-kind Frame (possibly length 0).
	Members []Frame
}

func NewSimpleString(s string) Frame { return Frame{Kind: SimpleString, Str: s} }
func NewError(s string) Frame        { return Frame{Kind: SimpleError, Str: s} }
func NewInteger(n int64) Frame       { return Frame{Kind: Integer, Int: n} }

func NewBulkString(b []byte) Frame {
	return Frame{Kind: BulkString, Bulk: b}
}

func NewNullBulkString() Frame {
	return Frame{Kind: BulkString, BulkNull: true}
}

func NewArray(items []Frame) Frame {
	if items == nil {
		items = []Frame{}
	}
	return Frame{Kind: Array, Items: items}
}

func NewNullArray() Frame {
	return Frame{Kind: Array, ArrayNull: true}
}

func NewNull() Frame { return Frame{Kind: Null} }

func NewBoolean(b bool) Frame { return Frame{Kind: Boolean, Bool: b} }

func NewDouble(f float64) Frame { return Frame{Kind: Double, Num: f} }

func NewMap(entries []MapEntry) Frame {
	if entries == nil {
		entries = []MapEntry{}
	}
	return Frame{Kind: Map, Entries: entries}
}

func NewSet(members []Frame) Frame {
	if members == nil {
		members = []Frame{}
	}
	return Frame{Kind: Set, Members: members}
}

// IsNull reports whether f is the explicit RESP3 Null, a null BulkString,
// or a null Array — the three distinct "there is no value here" encodings.
func (f Frame) IsNull() bool {
	switch f.Kind {
	case Null:
		return true
	case BulkString:
		return f.BulkNull
	case Array:
		return f.ArrayNull
	default:
		return false
	}
}

// Equal reports structural equality. Two Frames of different Kind are
// never equal. Double comparison uses bit-pattern equality per §4.1 (so
// two NaNs with identical bit patterns are equal and +0.0/-0.0 are not),
// not ordinary float64 equality. Map entries are matched by key, so two
// Maps holding the same pairs in a different entry order are equal.
func (f Frame) Equal(o Frame) bool {
	if f.Kind != o.Kind {
		return false
	}
	switch f.Kind {
	case SimpleString, SimpleError:
		return f.Str == o.Str
	case Integer:
		return f.Int == o.Int
	case BulkString:
		if f.BulkNull != o.BulkNull {
			return false
		}
		if f.BulkNull {
			return true
		}
		return string(f.Bulk) == string(o.Bulk)
	case Array:
		if f.ArrayNull != o.ArrayNull {
			return false
		}
		if f.ArrayNull {
			return true
		}
		if len(f.Items) != len(o.Items) {
			return false
		}
		for i := range f.Items {
			if !f.Items[i].Equal(o.Items[i]) {
				return false
			}
		}
		return true
	case Null:
		return true
	case Boolean:
		return f.Bool == o.Bool
	case Double:
		return math.Float64bits(f.Num) == math.Float64bits(o.Num)
	case Map:
		if len(f.Entries) != len(o.Entries) {
			return false
		}
		for _, fe := range f.Entries {
			found := false
			for _, oe := range o.Entries {
				if fe.Key == oe.Key {
					found = fe.Value.Equal(oe.Value)
					break
				}
			}
			if !found {
				return false
			}
		}
		return true
	case Set:
		if len(f.Members) != len(o.Members) {
			return false
		}
		for i := range f.Members {
			if !f.Members[i].Equal(o.Members[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// HashKind returns the value used to bucket a Frame in a hash-based set.
// Per spec §4.1/§9, hashing discriminates by variant tag only — a
// deliberate simplification inherited from the prototype (whose derived
// Hash impl hashes only the enum discriminant, not the payload). This
// means, for example, all Array-kind members of a set land in the same
// bucket regardless of their contents; equality (Equal, above) is still
// used to disambiguate members within a bucket, so this only degrades to
// linear-scan performance for sets with many same-kind members, it does
// not cause distinct values to be treated as duplicates.
func (f Frame) HashKind() Kind { return f.Kind }

// IsNaNDouble reports whether f is a Double frame holding NaN. A NaN never
// enters a set, because SADD rejects any Double member outright (§7); it
// can still be stored and returned as a SET/HSET value.
func (f Frame) IsNaNDouble() bool {
	return f.Kind == Double && math.IsNaN(f.Num)
}
