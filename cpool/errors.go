package cpool

import "fmt"

// InvalidTagError is returned when a constant pool entry's tag byte does not
// match any known CONSTANT_* tag.
type InvalidTagError uint8

func (e InvalidTagError) Error() string {
	return fmt.Sprintf("cpool: invalid constant pool tag %d", uint8(e))
}

// InvalidIndexError is returned when an index refers to a pool slot that is
// out of range, unpopulated, or the second slot of a wide entry.
type InvalidIndexError uint16

func (e InvalidIndexError) Error() string {
	return fmt.Sprintf("cpool: invalid constant pool index %d", uint16(e))
}

// UnresolvedBootstrapError is returned by (*Reader).BootstrapMethods when a
// deferred bootstrap-method reference was never filled.
type UnresolvedBootstrapError uint16

func (e UnresolvedBootstrapError) Error() string {
	return fmt.Sprintf("cpool: unresolved bootstrap method reference at index %d", uint16(e))
}

// ErrAlreadyFilled reports a programmer error: a BootstrapHolder was filled twice.
var ErrAlreadyFilled = fmt.Errorf("cpool: bootstrap holder already filled")
