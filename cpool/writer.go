package cpool

import (
	"io"

	"github.com/go-classfile/coffer/internal/stream"
)

// Writer is the write-side constant pool: entry -> index, deduplicating.
// Because callers are given a running length rather than the final pool
// dump, inserting is monotonic: an entry once assigned an index keeps it
// for the lifetime of the Writer, and no earlier index is ever renumbered.
type Writer struct {
	entries []Entry
	index   map[Entry]uint16
	next    uint16 // next index to hand out; starts at 1, the first valid constant pool index
	bsms    []BootstrapMethod
}

// NewWriter returns an empty constant pool writer.
func NewWriter() *Writer {
	return &Writer{
		index: make(map[Entry]uint16),
		next:  1,
	}
}

// InsertRaw returns e's index, inserting it if this is the first time e has
// been seen. Identical entries (by ==, which is bitwise for Float/Double)
// return the same index.
func (w *Writer) InsertRaw(e Entry) uint16 {
	if idx, ok := w.index[e]; ok {
		return idx
	}
	idx := w.next
	w.entries = append(w.entries, e)
	w.index[e] = idx
	if e.wide() {
		w.next += 2
	} else {
		w.next++
	}
	return idx
}

// InsertBSM appends a bootstrap method and returns its index in the
// bootstrap-methods table. Unlike InsertRaw, bootstrap methods are not
// deduplicated: each call mints a fresh index, matching how bytecode that
// references bootstrap method N always means position N in emission order.
func (w *Writer) InsertBSM(b BootstrapMethod) uint16 {
	idx := uint16(len(w.bsms))
	w.bsms = append(w.bsms, b)
	return idx
}

// BootstrapMethods returns the bootstrap methods inserted so far, in
// insertion order.
func (w *Writer) BootstrapMethods() []BootstrapMethod {
	return w.bsms
}

// Len reports the constant_pool_count this writer would emit (one greater
// than the highest slot in use, counting the second slot of a trailing
// Long/Double, per the JVM's off-by-one pool numbering).
func (w *Writer) Len() uint16 {
	return w.next
}

// WriteTo writes constant_pool_count followed by each entry in insertion order.
func (w *Writer) WriteTo(out io.Writer) error {
	if err := stream.WriteU2(out, w.next); err != nil {
		return err
	}
	for _, e := range w.entries {
		if err := writeEntry(out, e); err != nil {
			return err
		}
	}
	return nil
}

// WriteBootstrapMethods writes the BootstrapMethods attribute body (count
// followed by each bootstrap method) to out.
func WriteBootstrapMethods(out io.Writer, bsms []BootstrapMethod) error {
	if err := stream.WriteU2(out, uint16(len(bsms))); err != nil {
		return err
	}
	for _, b := range bsms {
		if err := stream.WriteU2(out, b.Handle.ReferenceIndex); err != nil {
			return err
		}
		if err := stream.WriteU2(out, uint16(len(b.Args))); err != nil {
			return err
		}
		for _, a := range b.Args {
			if err := stream.WriteU2(out, a); err != nil {
				return err
			}
		}
	}
	return nil
}
