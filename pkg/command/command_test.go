package command_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberkv/ember/pkg/command"
	"github.com/emberkv/ember/pkg/frame"
	"github.com/emberkv/ember/pkg/store"
)

func bulkArray(parts ...string) frame.Frame {
	items := make([]frame.Frame, len(parts))
	for i, p := range parts {
		items[i] = frame.NewBulkString([]byte(p))
	}
	return frame.NewArray(items)
}

func TestParseRejectsNonArray(t *testing.T) {
	_, err := command.Parse(frame.NewInteger(1))
	assert.Error(t, err)
}

func TestParseUnknownVerb(t *testing.T) {
	cmd, err := command.Parse(bulkArray("frobnicate", "x"))
	require.NoError(t, err)
	assert.Equal(t, command.Unknown, cmd.Verb)

	s := store.New()
	reply := cmd.Execute(s)
	assert.Equal(t, frame.SimpleError, reply.Kind)
	assert.Equal(t, "ERR unknown command 'frobnicate'", reply.Str)
}

func TestSetAlwaysRepliesOKEvenOnOverwrite(t *testing.T) {
	s := store.New()
	cmd, err := command.Parse(bulkArray("set", "k", "v1"))
	require.NoError(t, err)
	reply := cmd.Execute(s)
	assert.True(t, reply.Equal(frame.NewSimpleString("OK")))

	cmd, err = command.Parse(bulkArray("set", "k", "v2"))
	require.NoError(t, err)
	reply = cmd.Execute(s)
	assert.True(t, reply.Equal(frame.NewSimpleString("OK")), "SET must always reply OK, even overwriting")

	got, ok := s.Get("k")
	require.True(t, ok)
	assert.True(t, got.Equal(frame.NewBulkString([]byte("v2"))))
}

func TestGetMissingReturnsNullBulkString(t *testing.T) {
	s := store.New()
	cmd, err := command.Parse(bulkArray("get", "nope"))
	require.NoError(t, err)
	reply := cmd.Execute(s)
	assert.True(t, reply.IsNull())
	assert.Equal(t, frame.BulkString, reply.Kind)
}

func TestHGetAllSortedByField(t *testing.T) {
	s := store.New()
	for _, kv := range [][2]string{{"field2", "value2"}, {"field1", "value1"}} {
		cmd, err := command.Parse(bulkArray("hset", "k", kv[0], kv[1]))
		require.NoError(t, err)
		cmd.Execute(s)
	}

	cmd, err := command.Parse(bulkArray("hgetall", "k"))
	require.NoError(t, err)
	reply := cmd.Execute(s)

	require.Equal(t, frame.Array, reply.Kind)
	require.Len(t, reply.Items, 4)
	assert.Equal(t, "field1", string(reply.Items[0].Bulk))
	assert.Equal(t, "value1", string(reply.Items[1].Bulk))
	assert.Equal(t, "field2", string(reply.Items[2].Bulk))
	assert.Equal(t, "value2", string(reply.Items[3].Bulk))
}

func TestHGetAllMissingKeyReturnsEmptyArray(t *testing.T) {
	s := store.New()
	cmd, err := command.Parse(bulkArray("hgetall", "nope"))
	require.NoError(t, err)
	reply := cmd.Execute(s)
	assert.Equal(t, frame.Array, reply.Kind)
	assert.False(t, reply.ArrayNull)
	assert.Empty(t, reply.Items)
}

func TestHMGetMixedHitAndMiss(t *testing.T) {
	s := store.New()
	cmd, _ := command.Parse(bulkArray("hset", "k", "field1", "value1"))
	cmd.Execute(s)

	cmd, err := command.Parse(bulkArray("hmget", "k", "field1", "nopef"))
	require.NoError(t, err)
	reply := cmd.Execute(s)

	require.Len(t, reply.Items, 2)
	assert.Equal(t, "value1", string(reply.Items[0].Bulk))
	assert.True(t, reply.Items[1].IsNull())
}

func TestEchoReturnsSimpleString(t *testing.T) {
	cmd, err := command.Parse(bulkArray("echo", "hello"))
	require.NoError(t, err)
	reply := cmd.Execute(store.New())
	assert.True(t, reply.Equal(frame.NewSimpleString("hello")))
}

func TestSAddThenSIsMember(t *testing.T) {
	s := store.New()
	cmd, err := command.Parse(bulkArray("sadd", "s", "a"))
	require.NoError(t, err)
	reply := cmd.Execute(s)
	assert.True(t, reply.Equal(frame.NewInteger(1)))

	cmd, _ = command.Parse(bulkArray("sismember", "s", "a"))
	reply = cmd.Execute(s)
	assert.True(t, reply.Equal(frame.NewInteger(1)))

	cmd, _ = command.Parse(bulkArray("sismember", "s", "b"))
	reply = cmd.Execute(s)
	assert.True(t, reply.Equal(frame.NewInteger(0)))
}

func TestSAddRejectsDoubleMembers(t *testing.T) {
	s := store.New()
	cmd := command.Command{
		Verb:    command.SAdd,
		Key:     "s",
		Members: []frame.Frame{frame.NewBulkString([]byte("a")), frame.NewDouble(1.5)},
	}
	reply := cmd.Execute(s)
	assert.True(t, reply.Equal(frame.NewInteger(0)))

	// Per §7, rejection means none of the members were added, not even
	// the ones that weren't Doubles.
	assert.False(t, s.SIsMember("s", frame.NewBulkString([]byte("a"))))
}

func TestParseWrongArity(t *testing.T) {
	_, err := command.Parse(bulkArray("get"))
	assert.Error(t, err)

	_, err = command.Parse(bulkArray("set", "onlykey"))
	assert.Error(t, err)
}

func TestParseRejectsNonBulkStringKey(t *testing.T) {
	arr := frame.NewArray([]frame.Frame{
		frame.NewBulkString([]byte("get")),
		frame.NewInteger(5),
	})
	_, err := command.Parse(arr)
	assert.Error(t, err)
}
