package plan

import "sync"

// payloadSlot is the single-assignment, concurrency-safe mutable slot
// backing Leaf and Materialization payloads (Invariant 4, §5, Testable
// Property 7). The zero value is an empty slot.
type payloadSlot struct {
	mu sync.Mutex
	p  payloadValue
}

// payloadValue is satisfied by rel.Payload; declared locally to avoid a
// cyclic doc-reference and keep this file import-light.
type payloadValue interface{}

func (s *payloadSlot) get() payloadValue {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p
}

// attach assigns p if the slot is empty and reports whether this call's p
// is the one that ended up stored (attached==false means a concurrent
// caller, or an earlier call, already won — its payload is returned as
// winner so every caller converges on the same value; §5: "the first
// assignment wins; concurrent losers discard their computed payload").
func (s *payloadSlot) attach(p payloadValue) (winner payloadValue, attached bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.p == nil {
		s.p = p
		return p, true
	}
	return s.p, false
}
