package cpool

import (
	"io"

	"github.com/go-classfile/coffer/internal/stream"
)

// Reader is the read-side constant pool: index -> entry. It is sparse,
// since the slot following a wide (Long/Double) entry is unaddressable.
type Reader struct {
	entries map[uint16]Entry
	pending map[uint16][]*BootstrapHolder
}

// ReadFrom reads a constant_pool_count followed by that many entries,
// honoring that Long/Double entries consume two index slots.
func ReadFrom(r io.Reader) (*Reader, error) {
	count, err := stream.ReadU2(r)
	if err != nil {
		return nil, err
	}
	p := &Reader{
		entries: make(map[uint16]Entry, count),
		pending: make(map[uint16][]*BootstrapHolder),
	}
	for i := uint16(1); i < count; i++ {
		e, err := readEntry(r)
		if err != nil {
			return nil, err
		}
		p.entries[i] = e
		if e.wide() {
			i++
		}
	}
	return p, nil
}

// ReadRaw returns the entry at idx, or false if idx is unpopulated (out of
// range, zero, or the trailing slot of a wide entry).
func (p *Reader) ReadRaw(idx uint16) (Entry, bool) {
	e, ok := p.entries[idx]
	return e, ok
}

// ResolveLater registers holder to be filled once BootstrapMethods is
// called with the bootstrap method at bsmIdx.
func (p *Reader) ResolveLater(bsmIdx uint16, holder *BootstrapHolder) {
	p.pending[bsmIdx] = append(p.pending[bsmIdx], holder)
}

// BootstrapMethods fills every holder registered via ResolveLater against
// bsms. It returns an UnresolvedBootstrapError for a registered index that
// bsms does not cover; when several are uncovered, which one is reported is
// not defined, and holders for other indices may already have been filled.
func (p *Reader) BootstrapMethods(bsms []BootstrapMethod) error {
	for idx, holders := range p.pending {
		if int(idx) >= len(bsms) {
			return UnresolvedBootstrapError(idx)
		}
		for _, h := range holders {
			if err := h.Fill(bsms[idx]); err != nil {
				return err
			}
		}
		delete(p.pending, idx)
	}
	return nil
}
