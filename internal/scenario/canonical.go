package scenario

import (
	"bytes"
	"fmt"
	"sort"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/latch/internal/tracker"
)

// TraceSnapshot is the serialized form of a scenario run used for
// golden comparison. Threshold is the effective deadline threshold so
// the policy a trace ran under is visible in the fixture.
type TraceSnapshot struct {
	Name      string
	Threshold uint32
	Trace     []TraceEvent
}

// NewTraceSnapshot builds the snapshot for a completed run.
func NewTraceSnapshot(s *Scenario, result *Result) TraceSnapshot {
	threshold := s.Threshold
	if threshold == 0 {
		threshold = tracker.DefaultDeadlineThreshold
	}
	return TraceSnapshot{Name: s.Name, Threshold: threshold, Trace: result.Trace}
}

// MarshalCanonical produces deterministic compact JSON for the
// snapshot: object keys sorted, strings NFC-normalized, zero-valued
// optional fields omitted. Byte-for-byte stable across runs, which is
// what golden comparison requires.
func (s TraceSnapshot) MarshalCanonical() ([]byte, error) {
	events := make([]any, len(s.Trace))
	for i, e := range s.Trace {
		events[i] = e.canonicalMap()
	}
	top := map[string]any{
		"name":      s.Name,
		"threshold": uint64(s.Threshold),
		"trace":     events,
	}
	return marshalCanonical(top)
}

func (e TraceEvent) canonicalMap() map[string]any {
	m := map[string]any{
		"kind": e.Kind,
		"seq":  e.Seq,
	}
	if e.Surface != "" {
		m["surface"] = e.Surface
	}
	if e.Dependency != "" {
		m["dependency"] = e.Dependency
	}
	if e.TickSource != 0 {
		m["tick_source"] = uint64(e.TickSource)
	}
	if e.TickSequence != 0 {
		m["tick_sequence"] = e.TickSequence
	}
	if e.Forced {
		m["forced"] = true
	}
	if e.Late {
		m["late"] = true
	}
	return m
}

func marshalCanonical(v any) ([]byte, error) {
	switch val := v.(type) {
	case string:
		return marshalCanonicalString(val), nil
	case bool:
		if val {
			return []byte("true"), nil
		}
		return []byte("false"), nil
	case int64:
		return []byte(fmt.Sprintf("%d", val)), nil
	case uint64:
		return []byte(fmt.Sprintf("%d", val)), nil
	case int:
		return []byte(fmt.Sprintf("%d", val)), nil
	case []any:
		return marshalCanonicalArray(val)
	case map[string]any:
		return marshalCanonicalObject(val)
	default:
		return nil, fmt.Errorf("canonical JSON: unsupported type %T", v)
	}
}

func marshalCanonicalArray(arr []any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, elem := range arr {
		if i > 0 {
			buf.WriteByte(',')
		}
		b, err := marshalCanonical(elem)
		if err != nil {
			return nil, fmt.Errorf("array[%d]: %w", i, err)
		}
		buf.Write(b)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func marshalCanonicalObject(obj map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(marshalCanonicalString(k))
		buf.WriteByte(':')
		b, err := marshalCanonical(obj[k])
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		buf.Write(b)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// marshalCanonicalString emits an NFC-normalized JSON string without
// HTML escaping.
func marshalCanonicalString(s string) []byte {
	s = norm.NFC.String(s)

	var buf bytes.Buffer
	buf.WriteByte('"')
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if r < 0x20 {
				fmt.Fprintf(&buf, `\u%04x`, r)
			} else {
				buf.WriteString(s[i : i+size])
			}
		}
		i += size
	}
	buf.WriteByte('"')
	return buf.Bytes()
}
