// Package coffer implements the codec for the Code attribute of a Java
// class file method: its instruction stream, try/catch table, and
// stack-map/local-variable side-tables, built on the constant pool, label
// registry, instruction, side-table, and frame packages.
//
// The read/write pair (the package-level ReadFrom and the (*Code).WriteTo
// method, both taking the pool and stream explicitly rather than hiding
// them) mirrors wasm.ReadModule/wasm.EncodeModule in the teacher repo; the two-pass
// write algorithm is grounded on exec/internal/compile's block/
// patchOffsets "emit now, patch later" buffer rewrite, generalized from a
// single patch pass to the upper-bound-then-exact sizing scheme spec.md
// §4.5 requires for jump-width promotion.
package coffer

import (
	"github.com/go-classfile/coffer/attr"
	"github.com/go-classfile/coffer/instr"
	"github.com/go-classfile/coffer/label"
)

// Code is one method's Code attribute: its stack/local limits, its
// instruction stream (including the synthetic Label and LineNumber
// pseudo-instructions interleaved at their positions), its try/catch
// table, and its high-level attributes.
type Code struct {
	MaxStack, MaxLocals uint16
	Code                []instr.Instruction
	Catches             []Catch
	Attrs               []Attr
}

// Catch is one try/catch region: the instructions in [Start, End) are
// guarded, with control transferring to Handler on a matching exception.
// Class is empty for a catch-all (finally) handler, per spec.md §3's
// "catch_type index 0 -> None".
type Catch struct {
	Start, End, Handler label.ID
	Class               string
}

// Attr is a high-level Code attribute: a local-variable table (merged from
// its descriptor and signature side-tables), a type-annotations blob, a
// stack-map table (preserved raw, per spec.md §9's Open Question), or any
// other attribute this codec does not model, preserved byte-for-byte.
type Attr interface{ isAttr() }

// LocalVariables is the merged LocalVariableTable/LocalVariableTypeTable
// attribute pair, per spec.md §4.4 step 4's merge-on-read rule.
type LocalVariables struct{ Vars []attr.LocalVar }

func (LocalVariables) isAttr() {}

// TypeAnnotations preserves a RuntimeVisibleTypeAnnotations or
// RuntimeInvisibleTypeAnnotations attribute's body as opaque bytes, reusing
// attr.TypeAnnotations's field shape.
type TypeAnnotations struct{ attr.TypeAnnotations }

func (TypeAnnotations) isAttr() {}

// StackMapTable preserves a StackMapTable attribute's body as opaque bytes.
// spec.md §9 permits either preserving raw bytes or parsing into
// frame.RawFrame and re-emitting; this codec takes the raw path, so a
// round trip is byte-exact for this one attribute regardless of the
// otherwise-normalized attribute ordering (see DESIGN.md).
type StackMapTable struct{ Raw []byte }

func (StackMapTable) isAttr() {}

// RawAttr preserves an attribute this codec does not otherwise model,
// byte-for-byte, so a round trip never silently drops class-file data it
// doesn't understand, reusing attr.Raw's field shape.
type RawAttr struct{ attr.Raw }

func (RawAttr) isAttr() {}

const (
	attrLineNumberTable              = "LineNumberTable"
	attrLocalVariableTable           = "LocalVariableTable"
	attrLocalVariableTypeTable       = "LocalVariableTypeTable"
	attrStackMapTable                = "StackMapTable"
	attrRuntimeVisibleTypeAnnotation = "RuntimeVisibleTypeAnnotations"
	attrRuntimeInvisTypeAnnotation   = "RuntimeInvisibleTypeAnnotations"
)

// resolver adapts a *label.Writer plus a segment-start table into the
// label.ID -> absolute byte offset function attr.WriteLocalVarRows,
// frame.WriteStackMapTable, and instr.Encode all expect. Built once Pass C
// has fixed every segment's exact starting offset.
type resolver struct {
	lw        *label.Writer
	segStarts []int64
}

func (r resolver) resolve(id label.ID) (int64, error) {
	pos, ok := r.lw.Resolve(id)
	if !ok {
		return 0, label.UnresolvedLabelError(id)
	}
	return r.segStarts[pos.Segment] + pos.Offset, nil
}

func (r resolver) resolveU16(id label.ID) (uint16, error) {
	v, err := r.resolve(id)
	if err != nil {
		return 0, err
	}
	return uint16(v), nil
}
