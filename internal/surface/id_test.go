package surface

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestID_ZeroValueIsInvalid(t *testing.T) {
	var zero ID
	assert.False(t, zero.IsValid())
	assert.True(t, NewID(1, 1).IsValid())
	assert.True(t, NewID(0, 1).IsValid(), "counter alone makes an ID valid")
}

func TestID_StringRoundTrip(t *testing.T) {
	id := NewID(7, 42)
	assert.Equal(t, "7:42", id.String())

	parsed, err := ParseID("7:42")
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestParseID_Errors(t *testing.T) {
	cases := []string{"", "7", "7:", ":42", "a:1", "1:b", "1:2:3"}
	for _, in := range cases {
		_, err := ParseID(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestID_Less(t *testing.T) {
	assert.True(t, NewID(1, 9).Less(NewID(2, 1)), "client dominates")
	assert.True(t, NewID(1, 1).Less(NewID(1, 2)))
	assert.False(t, NewID(1, 2).Less(NewID(1, 2)))
	assert.False(t, NewID(2, 1).Less(NewID(1, 9)))
}

func TestAllocator_Monotonic(t *testing.T) {
	alloc := NewAllocator(3)

	first := alloc.NextID()
	second := alloc.NextID()

	assert.Equal(t, NewID(3, 1), first, "counters start at 1")
	assert.Equal(t, NewID(3, 2), second)
	assert.True(t, first.Less(second))
}

func TestAllocator_DistinctClientsNeverCollide(t *testing.T) {
	a := NewAllocator(1)
	b := NewAllocator(2)
	assert.NotEqual(t, a.NextID(), b.NextID())
}
