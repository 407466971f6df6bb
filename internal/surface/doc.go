// Package surface defines the opaque identifiers naming frame
// producers in the compositing pipeline, and the allocator that
// hands them out.
//
// An ID is a (client, counter) pair: the client half is fixed per
// identifier-issuing component, the counter half increases
// monotonically within it. IDs are compared as opaque totally ordered
// values; nothing downstream may interpret the halves.
package surface
