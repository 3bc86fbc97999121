package instr

import "github.com/go-classfile/coffer/cpool"

// ClassRef names a class/interface/array type by its resolved constant pool
// entry rather than a raw index, per spec.md's "typed constant references
// (not raw indices)" requirement for the instruction model.
type ClassRef struct{ Class cpool.Class }

// MemberRef names a field or non-interface method reference.
type MemberRef struct {
	Interface bool // true if resolved from an InterfaceMethodref entry
	Class     cpool.Class
	NameType  cpool.NameAndType
}

// InvokeDynamicRef names an invokedynamic call site. Bootstrap is filled in
// two possible ways: on read, it is registered with the enclosing
// cpool.Reader via ResolveLater and filled once BootstrapMethods is parsed;
// on write, the caller fills it before the instruction is constructed so
// Encode can append it to the Writer's deferred BootstrapMethods list.
type InvokeDynamicRef struct {
	NameType  cpool.NameAndType
	Bootstrap *cpool.BootstrapHolder
}

// LdcOperand is the operand of ldc/ldc_w/ldc2_w: any loadable constant pool
// entry. Dynamic entries carry the same deferred-bootstrap holder as
// InvokeDynamicRef — ldc and invokedynamic are the two ways a bootstrap
// method reference enters the constant pool, and both resolve through the
// same mechanism.
type LdcOperand struct {
	Entry     cpool.Entry
	Bootstrap *cpool.BootstrapHolder // non-nil only when Entry is cpool.Dynamic
}

// LocalVarOperand is the operand of the indexed *load/*store family: the
// local variable slot index. Decode returns ret as a Ret instruction, not an
// Op carrying this operand.
type LocalVarOperand struct{ Index uint16 }

// IincOperand is iinc's operand: a local slot index and a signed increment.
type IincOperand struct {
	Index uint16
	Const int32
}

// MultiANewArrayOperand is multianewarray's operand.
type MultiANewArrayOperand struct {
	Class      cpool.Class
	Dimensions uint8
}
