// Package label implements the identity registry for positions in a Code
// attribute's instruction stream: an opaque 32-bit id standing in for a
// byte offset, so cyclic and forward-referencing jump targets can be
// represented without pointers. A Reader mints ids from byte offsets seen
// while disassembling; a Writer records where each id ends up while
// assembling, resolving it to a final byte offset only once every
// instruction's size is known.
//
// The bookkeeping mirrors exec/internal/compile's block/patchOffsets
// machinery in the teacher repo: there, branch targets are block nesting
// depths resolved to absolute addresses by patching placeholder bytes once
// the enclosing block's end is reached; here, label ids play the same
// "resolve now, was opaque a moment ago" role for explicit jump targets.
package label

// ID is an opaque identity for a position in an instruction stream. Two
// instructions that target the same byte offset on read share an ID; on
// write, the caller mints IDs as it appends instructions.
type ID uint32

// Allocator mints fresh, unique IDs for a Code being constructed for
// writing. It has no required use — callers may mint IDs any way they
// like — but saves call sites from reinventing a counter.
type Allocator struct{ next ID }

// Next returns a fresh ID, unused by any prior call on this Allocator.
func (a *Allocator) Next() ID {
	id := a.next
	a.next++
	return id
}
