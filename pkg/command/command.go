// Package command parses RESP Array frames into typed commands and
// executes them against a store.Store, producing reply frames (§4.4).
//
// Grounded on original_source/src/cmd/{mod,set,hmap,hmget,echo}.rs, whose
// enum-of-structs-per-verb shape (Command wrapping Get/Set/HSet/...) maps
// onto a single tagged Command struct with a Verb discriminant — the same
// "one struct, Kind field, per-variant payload fields" style already used
// for pkg/frame.Frame, rather than nine separate Go types behind an
// interface.
package command

import (
	"bytes"
	"unicode/utf8"

	"github.com/emberkv/ember/pkg/frame"
	"github.com/emberkv/ember/pkg/store"
)

// Verb identifies which of the nine recognized commands (or the Unknown
// catch-all) a Command holds.
type Verb int

const (
	Get Verb = iota
	Set
	HGet
	HSet
	HGetAll
	Echo
	HMGet
	SAdd
	SIsMember
	Unknown
)

func (v Verb) String() string {
	switch v {
	case Get:
		return "get"
	case Set:
		return "set"
	case HGet:
		return "hget"
	case HSet:
		return "hset"
	case HGetAll:
		return "hgetall"
	case Echo:
		return "echo"
	case HMGet:
		return "hmget"
	case SAdd:
		return "sadd"
	case SIsMember:
		return "sismember"
	default:
		return "unknown"
	}
}

// Command is the parsed, typed form of one client request. Only the
// fields relevant to Verb are populated.
type Command struct {
	Verb Verb

	Key    string
	Field  string   // HGET, HSET
	Fields []string // HMGET, in order

	Value frame.Frame // SET, HSET value argument (any Frame variant)

	Members []frame.Frame // SADD
	Member  frame.Frame   // SISMEMBER

	Msg string // ECHO

	UnknownVerb string // Unknown: the raw verb text, for the error reply
}

// Parse converts a decoded Frame (expected to be an Array of BulkStrings)
// into a Command. The first element is the verb, dispatched
// case-insensitively; everything else follows the per-verb arity and
// argument-type rules in §4.4.
func Parse(f frame.Frame) (Command, error) {
	if f.Kind != frame.Array || f.ArrayNull {
		return Command{}, errNotArray
	}
	items := f.Items
	if len(items) == 0 || items[0].Kind != frame.BulkString || items[0].BulkNull {
		return Command{}, errNotArray
	}
	verb := string(bytes.ToLower(items[0].Bulk))
	args := items[1:]

	switch verb {
	case "get":
		return parseGet(verb, args)
	case "set":
		return parseSet(verb, args)
	case "hget":
		return parseHGet(verb, args)
	case "hset":
		return parseHSet(verb, args)
	case "hgetall":
		return parseHGetAll(verb, args)
	case "echo":
		return parseEcho(verb, args)
	case "hmget":
		return parseHMGet(verb, args)
	case "sadd":
		return parseSAdd(verb, args)
	case "sismember":
		return parseSIsMember(verb, args)
	default:
		return Command{Verb: Unknown, UnknownVerb: verb}, nil
	}
}

// bulkKey extracts args[i] as a UTF-8 key/field string, validating that it
// is a non-null BulkString with valid UTF-8 content.
func bulkKey(verb string, args []frame.Frame, i int) (string, error) {
	if i >= len(args) || args[i].Kind != frame.BulkString || args[i].BulkNull {
		return "", &ErrBadArgType{Verb: verb, Arg: "key/field"}
	}
	if !utf8.Valid(args[i].Bulk) {
		return "", &ErrInvalidUTF8{Verb: verb, Arg: "key/field"}
	}
	return string(args[i].Bulk), nil
}

func parseGet(verb string, args []frame.Frame) (Command, error) {
	if len(args) != 1 {
		return Command{}, &ErrWrongArgs{Verb: verb}
	}
	key, err := bulkKey(verb, args, 0)
	if err != nil {
		return Command{}, err
	}
	return Command{Verb: Get, Key: key}, nil
}

func parseSet(verb string, args []frame.Frame) (Command, error) {
	if len(args) != 2 {
		return Command{}, &ErrWrongArgs{Verb: verb}
	}
	key, err := bulkKey(verb, args, 0)
	if err != nil {
		return Command{}, err
	}
	return Command{Verb: Set, Key: key, Value: args[1]}, nil
}

func parseHGet(verb string, args []frame.Frame) (Command, error) {
	if len(args) != 2 {
		return Command{}, &ErrWrongArgs{Verb: verb}
	}
	key, err := bulkKey(verb, args, 0)
	if err != nil {
		return Command{}, err
	}
	field, err := bulkKey(verb, args, 1)
	if err != nil {
		return Command{}, err
	}
	return Command{Verb: HGet, Key: key, Field: field}, nil
}

func parseHSet(verb string, args []frame.Frame) (Command, error) {
	if len(args) != 3 {
		return Command{}, &ErrWrongArgs{Verb: verb}
	}
	key, err := bulkKey(verb, args, 0)
	if err != nil {
		return Command{}, err
	}
	field, err := bulkKey(verb, args, 1)
	if err != nil {
		return Command{}, err
	}
	return Command{Verb: HSet, Key: key, Field: field, Value: args[2]}, nil
}

func parseHGetAll(verb string, args []frame.Frame) (Command, error) {
	if len(args) != 1 {
		return Command{}, &ErrWrongArgs{Verb: verb}
	}
	key, err := bulkKey(verb, args, 0)
	if err != nil {
		return Command{}, err
	}
	return Command{Verb: HGetAll, Key: key}, nil
}

func parseEcho(verb string, args []frame.Frame) (Command, error) {
	if len(args) != 1 {
		return Command{}, &ErrWrongArgs{Verb: verb}
	}
	if args[0].Kind != frame.BulkString || args[0].BulkNull {
		return Command{}, &ErrBadArgType{Verb: verb, Arg: "message"}
	}
	if !utf8.Valid(args[0].Bulk) {
		return Command{}, &ErrInvalidUTF8{Verb: verb, Arg: "message"}
	}
	return Command{Verb: Echo, Msg: string(args[0].Bulk)}, nil
}

func parseHMGet(verb string, args []frame.Frame) (Command, error) {
	if len(args) < 2 {
		return Command{}, &ErrWrongArgs{Verb: verb}
	}
	key, err := bulkKey(verb, args, 0)
	if err != nil {
		return Command{}, err
	}
	fields := make([]string, 0, len(args)-1)
	for i := 1; i < len(args); i++ {
		field, err := bulkKey(verb, args, i)
		if err != nil {
			return Command{}, err
		}
		fields = append(fields, field)
	}
	return Command{Verb: HMGet, Key: key, Fields: fields}, nil
}

func parseSAdd(verb string, args []frame.Frame) (Command, error) {
	if len(args) < 2 {
		return Command{}, &ErrWrongArgs{Verb: verb}
	}
	key, err := bulkKey(verb, args, 0)
	if err != nil {
		return Command{}, err
	}
	members := make([]frame.Frame, len(args)-1)
	copy(members, args[1:])
	return Command{Verb: SAdd, Key: key, Members: members}, nil
}

func parseSIsMember(verb string, args []frame.Frame) (Command, error) {
	if len(args) != 2 {
		return Command{}, &ErrWrongArgs{Verb: verb}
	}
	key, err := bulkKey(verb, args, 0)
	if err != nil {
		return Command{}, err
	}
	return Command{Verb: SIsMember, Key: key, Member: args[1]}, nil
}

// Execute runs the command against s and returns the reply Frame.
// Execution of a well-formed Command never fails (§4.4): every path
// below produces a Frame unconditionally.
func (c Command) Execute(s *store.Store) frame.Frame {
	switch c.Verb {
	case Get:
		if v, ok := s.Get(c.Key); ok {
			return v
		}
		return frame.NewNullBulkString()

	case Set:
		// §4.4: SET's reply is always SimpleString OK, even when it
		// overwrites an existing value — the store's "previous value"
		// return is plumbing, not something the client ever sees.
		s.Set(c.Key, c.Value)
		return frame.NewSimpleString("OK")

	case HGet:
		if v, ok := s.HGet(c.Key, c.Field); ok {
			return v
		}
		return frame.NewNullBulkString()

	case HSet:
		s.HSet(c.Key, c.Field, c.Value)
		return frame.NewSimpleString("OK")

	case HGetAll:
		entries, ok := s.SortedHGetAll(c.Key)
		if !ok {
			return frame.NewArray(nil)
		}
		items := make([]frame.Frame, 0, len(entries)*2)
		for _, e := range entries {
			items = append(items, frame.NewBulkString([]byte(e.Key)), e.Value)
		}
		return frame.NewArray(items)

	case Echo:
		return frame.NewSimpleString(c.Msg)

	case HMGet:
		items := make([]frame.Frame, len(c.Fields))
		for i, field := range c.Fields {
			if v, ok := s.HGet(c.Key, field); ok {
				items[i] = v
			} else {
				items[i] = frame.NewNullBulkString()
			}
		}
		return frame.NewArray(items)

	case SAdd:
		// §7/§9: the prototype refuses the whole call if any member is a
		// Double (Double doesn't participate cleanly in the tag-only Hash
		// scheme) and signals that with Integer 0. Preserved verbatim.
		for _, m := range c.Members {
			if m.Kind == frame.Double {
				return frame.NewInteger(0)
			}
		}
		s.SAdd(c.Key, c.Members)
		return frame.NewInteger(1)

	case SIsMember:
		if s.SIsMember(c.Key, c.Member) {
			return frame.NewInteger(1)
		}
		return frame.NewInteger(0)

	default: // Unknown
		return frame.NewError((&ErrUnknownCommand{Verb: c.UnknownVerb}).Error())
	}
}
