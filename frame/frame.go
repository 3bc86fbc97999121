// Package frame implements the compact stack-map frame encoding: the
// multi-range tag dispatch of spec.md §4.6, read and written against the
// same label identities the Code codec uses for jump targets (a frame's
// implicit/explicit offset_delta is just another label-relative position).
//
// The tag-range dispatch mirrors disasm.Disassemble's opcode switch (one
// decode path per contiguous tag range rather than 256 individual cases)
// and borrows the tagged-enum shape of wasm/types.go's value-type
// constants for VerificationType.
package frame

import "github.com/go-classfile/coffer/label"

// VerificationTypeTag identifies the kind of one verification_type_info
// entry in a frame's locals or stack vector.
type VerificationTypeTag uint8

const (
	Top VerificationTypeTag = iota
	Integer
	Float
	Double
	Long
	Null
	UninitializedThis
	Object
	UninitializedVariable
)

// VerificationType is one locals/stack vector entry. Class is populated
// only for Object; New is populated only for UninitializedVariable. New
// holds the bytecode offset of the `new` instruction that produced the
// uninitialized value, converted directly to a label.ID: it is not minted
// through a label.Reader, and WriteStackMapTable writes it back as the
// offset unchanged rather than resolving it.
type VerificationType struct {
	Tag   VerificationTypeTag
	Class string // internal class name, for Tag == Object
	New   label.ID
}

// wide reports whether this verification type conceptually occupies two
// local/stack slots, matching how Long and Double constant pool entries
// consume two indices — spec.md §4.6: "Long and Double are wide."
func (v VerificationType) wide() bool {
	return v.Tag == Long || v.Tag == Double
}

// Kind distinguishes a RawFrame's five shapes.
type Kind uint8

const (
	Same Kind = iota
	SameLocalsOneStack
	Chop
	Append
	Full
)

// RawFrame is one stack_map_frame entry. At is the frame's
// position as a label (every frame implicitly or explicitly marks a
// bytecode offset, the same coordinate space instruction jump targets
// use). ChopCount is populated only for Kind == Chop (1..3); Locals holds
// the appended locals for Append, or the full locals vector for Full;
// Stack holds the one-element stack for SameLocalsOneStack, or the full
// stack vector for Full.
type RawFrame struct {
	Kind      Kind
	At        label.ID
	ChopCount int
	Locals    []VerificationType
	Stack     []VerificationType
}
