package surface

import (
	"fmt"
	"strconv"
	"strings"
)

// ID uniquely names one frame producer (a surface). The zero value is
// the invalid ID.
type ID struct {
	// Client identifies the component that issued the ID.
	Client uint32
	// Counter is the per-client monotonic counter.
	Counter uint32
}

// NewID builds an ID from its halves.
func NewID(client, counter uint32) ID {
	return ID{Client: client, Counter: counter}
}

// IsValid reports whether the ID names a real surface. Allocators
// start counters at 1, so the zero value never collides.
func (id ID) IsValid() bool {
	return id.Client != 0 || id.Counter != 0
}

// String renders the canonical "client:counter" form.
func (id ID) String() string {
	return fmt.Sprintf("%d:%d", id.Client, id.Counter)
}

// Less imposes the total order used for deterministic iteration.
func (id ID) Less(other ID) bool {
	if id.Client != other.Client {
		return id.Client < other.Client
	}
	return id.Counter < other.Counter
}

// ParseID parses the "client:counter" form produced by String.
func ParseID(s string) (ID, error) {
	client, counter, ok := strings.Cut(s, ":")
	if !ok {
		return ID{}, fmt.Errorf("parse surface id %q: want client:counter", s)
	}
	c, err := strconv.ParseUint(client, 10, 32)
	if err != nil {
		return ID{}, fmt.Errorf("parse surface id %q: client: %w", s, err)
	}
	n, err := strconv.ParseUint(counter, 10, 32)
	if err != nil {
		return ID{}, fmt.Errorf("parse surface id %q: counter: %w", s, err)
	}
	return ID{Client: uint32(c), Counter: uint32(n)}, nil
}

// Allocator generates IDs with a fixed client half and an
// incrementing counter half, starting at 1.
type Allocator struct {
	client uint32
	next   uint32
}

// NewAllocator creates an allocator for the given client id.
func NewAllocator(client uint32) *Allocator {
	return &Allocator{client: client, next: 1}
}

// NextID returns the next unique ID.
func (a *Allocator) NextID() ID {
	id := ID{Client: a.client, Counter: a.next}
	a.next++
	return id
}
