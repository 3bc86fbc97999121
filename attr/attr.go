// Package attr implements the Code attribute's side-table model: line
// numbers (handled as pseudo-instructions in the instr package, not here),
// local variables (merged from two independent descriptor/signature
// tables), type annotations, and unknown raw attribute preservation. The
// root package embeds Raw and TypeAnnotations in its own Attr variants
// rather than re-declaring their fields.
//
// Grounded on wasm/section.go's Other []Section raw-payload preservation
// (unknown attributes here play the same role as wagon's unrecognized
// custom sections) and wasm/module.go's population passes (read each
// attribute by name, dispatch, build a high-level structure).
package attr

// Raw preserves an attribute this codec does not model, byte-for-byte, so
// a round trip never silently drops class-file data it doesn't understand.
type Raw struct {
	Name string
	Data []byte
}

// TypeAnnotations preserves the body of a RuntimeVisibleTypeAnnotations or
// RuntimeInvisibleTypeAnnotations attribute. The type_annotation structure
// (target_info's nine-way union, type_path, nested element_value trees) is
// preserved as opaque bytes rather than parsed field-by-field: this codec
// has no consumer that inspects annotation content (source-language type
// checking is an explicit Non-goal), so the only obligation is round-trip
// fidelity, which raw preservation gives exactly, the same way StackMapTable
// content is optionally preserved raw per spec.md §9's Open Question.
type TypeAnnotations struct {
	Visible bool
	Raw     []byte
}
