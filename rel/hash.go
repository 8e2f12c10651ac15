package rel

import "github.com/mitchellh/hashstructure"

// StructuralHash hashes v, a plain struct capturing a relation's kind and
// operand hashes (never its payload, per Invariant 6: "value-equal iff
// structurally equal up to payload identity"). rel/plan's concrete node
// types call this from their Hash() method rather than hashing themselves,
// using mitchellh/hashstructure the same way it's used elsewhere for
// hashing plain definition structs.
func StructuralHash(v any) uint64 {
	h, err := hashstructure.Hash(v, nil)
	if err != nil {
		// hashstructure only fails on unhashable inputs (channels, funcs);
		// every field we pass it is a plain value, tag, or nested hash, so
		// this indicates a programming error in this module, not bad user
		// input.
		panic("rel: structural hash of a well-formed relation field set failed: " + err.Error())
	}
	return h
}
