package cpool

import (
	"io"

	"github.com/go-classfile/coffer/internal/stream"
)

// BootstrapMethod is a static method handle plus its arguments, referenced
// by Dynamic/InvokeDynamic entries via a bootstrap-method-attribute index
// rather than a constant pool index.
type BootstrapMethod struct {
	Handle MethodHandle
	Args   []uint16 // constant pool indices
}

// BootstrapHolder is a one-shot fillable cell. The reader parks one of
// these per deferred Dynamic/InvokeDynamic reference; it is filled exactly
// once, when the BootstrapMethods attribute is finally parsed.
type BootstrapHolder struct {
	filled bool
	value  BootstrapMethod
}

// Fill sets the holder's value. Calling Fill twice is a programmer error.
func (h *BootstrapHolder) Fill(b BootstrapMethod) error {
	if h.filled {
		return ErrAlreadyFilled
	}
	h.value = b
	h.filled = true
	return nil
}

// Get returns the filled value, or false if the holder was never filled.
func (h *BootstrapHolder) Get() (BootstrapMethod, bool) {
	return h.value, h.filled
}

// ReadBootstrapMethods reads a class file's BootstrapMethods attribute body
// (the u2 num_bootstrap_methods count followed by that many entries), as
// referenced by spec.md's §3 "Bootstrap method" and consumed by
// (*Reader).BootstrapMethods. Parsing the rest of the class attribute table
// that this attribute would be embedded in is out of scope.
func ReadBootstrapMethods(r io.Reader) ([]BootstrapMethod, error) {
	count, err := stream.ReadU2(r)
	if err != nil {
		return nil, err
	}
	bsms := make([]BootstrapMethod, count)
	for i := range bsms {
		handleIdx, err := stream.ReadU2(r)
		if err != nil {
			return nil, err
		}
		argc, err := stream.ReadU2(r)
		if err != nil {
			return nil, err
		}
		args := make([]uint16, argc)
		for j := range args {
			v, err := stream.ReadU2(r)
			if err != nil {
				return nil, err
			}
			args[j] = v
		}
		bsms[i] = BootstrapMethod{
			Handle: MethodHandle{ReferenceIndex: handleIdx},
			Args:   args,
		}
	}
	return bsms, nil
}
