package label

// Reader mints label IDs from byte offsets while disassembling. The first
// reference to an offset allocates a new ID; later references to the same
// offset reuse it, exactly as spec.md §4.3 describes the read-side Labeler.
type Reader struct {
	byOffset map[int]ID
	next     ID
}

// NewReader returns an empty label reader.
func NewReader() *Reader {
	return &Reader{byOffset: make(map[int]ID)}
}

// Label returns the ID for offset, minting one if this is the first time
// offset has been seen.
func (r *Reader) Label(offset int) ID {
	if id, ok := r.byOffset[offset]; ok {
		return id
	}
	id := r.next
	r.next++
	r.byOffset[offset] = id
	return id
}

// Offsets returns every offset that was assigned a label, keyed by its ID.
// The Code codec uses this to build the offset-to-instruction-index map it
// needs to splice Label pseudo-instructions into the decoded stream.
func (r *Reader) Offsets() map[ID]int {
	out := make(map[ID]int, len(r.byOffset))
	for offset, id := range r.byOffset {
		out[id] = offset
	}
	return out
}

// Len reports how many distinct labels have been minted.
func (r *Reader) Len() int { return int(r.next) }
