package label

import "fmt"

// Position locates a label within the segmented buffer built by the write
// path's Pass A: buf[Segment] holds the bytes up to (but not including) the
// jump instruction that follows it, and Offset is the label's byte offset
// within that segment. Its absolute offset in the assembled code array is
// the segment's final start offset plus Offset.
type Position struct {
	Segment int
	Offset  int64
}

// Writer records where each label ends up while assembling a Code
// attribute. Unlike Reader, a Writer never mints IDs itself — the caller
// assigns them while building the instruction sequence (spec.md §3: "Label:
// ...Created on write by the caller as instructions are appended").
type Writer struct {
	positions map[ID]Position
}

// NewWriter returns an empty label writer.
func NewWriter() *Writer {
	return &Writer{positions: make(map[ID]Position)}
}

// Mark records that id occurred at the given segment/offset. Called from
// Pass A as each Label pseudo-instruction is encountered.
func (w *Writer) Mark(id ID, seg int, offset int64) {
	w.positions[id] = Position{Segment: seg, Offset: offset}
}

// Resolve returns the recorded position for id.
func (w *Writer) Resolve(id ID) (Position, bool) {
	p, ok := w.positions[id]
	return p, ok
}

// UnresolvedLabelError is returned when a jump or catch references a label
// that never appeared as a Label pseudo-instruction in the code sequence.
type UnresolvedLabelError ID

func (e UnresolvedLabelError) Error() string {
	return fmt.Sprintf("label: reference to label %d has no matching Label pseudo-instruction", ID(e))
}
