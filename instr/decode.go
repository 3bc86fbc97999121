package instr

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-classfile/coffer/cpool"
	"github.com/go-classfile/coffer/internal/stream"
	"github.com/go-classfile/coffer/label"
)

// InvalidOpcodeError is returned when a byte in the code array matches no
// known opcode (or is the wide prefix, 0xc4, which this decoder does not
// support).
type InvalidOpcodeError uint8

func (e InvalidOpcodeError) Error() string {
	return fmt.Sprintf("instr: invalid or unsupported opcode 0x%02x", uint8(e))
}

// Decode reads one instruction from code starting at pos (the byte offset
// of its opcode, relative to the start of the code array — the same
// absolute coordinate system tableswitch/lookupswitch alignment and jump
// offsets use). It returns the instruction and the number of bytes
// consumed. cp resolves constant pool operands; labels mints/reuses label
// IDs for jump targets, keyed by absolute byte offset.
//
// The one-opcode-at-a-time linear scan mirrors disasm.Disassemble in the
// teacher: walk forward, switch on the opcode byte, consume however many
// immediate bytes that opcode carries.
func Decode(code []byte, pos int, cp *cpool.Reader, labels *label.Reader) (Instruction, int, error) {
	if pos >= len(code) {
		return nil, 0, io.ErrUnexpectedEOF
	}
	op := Opcode(code[pos])
	r := bytes.NewReader(code[pos+1:])

	if op == TableSwitchOp || op == LookupSwitchOp {
		return decodeSwitch(op, code, pos, labels)
	}

	if cond, ok := opcodeCondition[op]; ok {
		off, err := stream.ReadI2(r)
		if err != nil {
			return nil, 0, err
		}
		target := labels.Label(pos + int(off))
		return Jump{Cond: cond, Target: target}, 3, nil
	}
	switch op {
	case JsrOp:
		off, err := stream.ReadI2(r)
		if err != nil {
			return nil, 0, err
		}
		return Jsr{Target: labels.Label(pos + int(off))}, 3, nil
	case GotoW, JsrW:
		off, err := stream.ReadI4(r)
		if err != nil {
			return nil, 0, err
		}
		target := labels.Label(pos + int(off))
		if op == GotoW {
			return Jump{Cond: Always, Target: target}, 5, nil
		}
		return Jsr{Target: target}, 5, nil
	}

	info, ok := opcodeTable[op]
	if !ok {
		return nil, 0, InvalidOpcodeError(op)
	}

	switch info.kind {
	case kindNone:
		return Op{Code: op}, 1, nil
	case kindI1:
		v, err := stream.ReadU1(r)
		if err != nil {
			return nil, 0, err
		}
		return Op{Code: op, Operand: int32(int8(v))}, 2, nil
	case kindI2:
		v, err := stream.ReadI2(r)
		if err != nil {
			return nil, 0, err
		}
		return Op{Code: op, Operand: int32(v)}, 3, nil
	case kindLocal1:
		v, err := stream.ReadU1(r)
		if err != nil {
			return nil, 0, err
		}
		if op == RetOp {
			return Ret{Index: uint16(v)}, 2, nil
		}
		return Op{Code: op, Operand: LocalVarOperand{Index: uint16(v)}}, 2, nil
	case kindIinc:
		idx, err := stream.ReadU1(r)
		if err != nil {
			return nil, 0, err
		}
		c, err := stream.ReadU1(r)
		if err != nil {
			return nil, 0, err
		}
		return Op{Code: op, Operand: IincOperand{Index: uint16(idx), Const: int32(int8(c))}}, 3, nil
	case kindLdc1:
		idx, err := stream.ReadU1(r)
		if err != nil {
			return nil, 0, err
		}
		operand, err := decodeLdc(cp, uint16(idx))
		if err != nil {
			return nil, 0, err
		}
		return Op{Code: op, Operand: operand}, 2, nil
	case kindLdc2:
		idx, err := stream.ReadU2(r)
		if err != nil {
			return nil, 0, err
		}
		operand, err := decodeLdc(cp, idx)
		if err != nil {
			return nil, 0, err
		}
		return Op{Code: op, Operand: operand}, 3, nil
	case kindMember2:
		idx, err := stream.ReadU2(r)
		if err != nil {
			return nil, 0, err
		}
		ref, err := decodeMember(cp, idx, false)
		if err != nil {
			return nil, 0, err
		}
		return Op{Code: op, Operand: ref}, 3, nil
	case kindInvokeInterface:
		idx, err := stream.ReadU2(r)
		if err != nil {
			return nil, 0, err
		}
		if _, err := stream.ReadU1(r); err != nil { // count, redundant with resolved descriptor
			return nil, 0, err
		}
		if _, err := stream.ReadU1(r); err != nil { // reserved zero byte
			return nil, 0, err
		}
		ref, err := decodeMember(cp, idx, true)
		if err != nil {
			return nil, 0, err
		}
		return Op{Code: op, Operand: ref}, 5, nil
	case kindInvokeDynamic:
		idx, err := stream.ReadU2(r)
		if err != nil {
			return nil, 0, err
		}
		if _, err := stream.ReadU2(r); err != nil { // two reserved zero bytes
			return nil, 0, err
		}
		ref, err := decodeInvokeDynamic(cp, idx)
		if err != nil {
			return nil, 0, err
		}
		return Op{Code: op, Operand: ref}, 5, nil
	case kindClass2:
		idx, err := stream.ReadU2(r)
		if err != nil {
			return nil, 0, err
		}
		class, err := resolveClass(cp, idx)
		if err != nil {
			return nil, 0, err
		}
		return Op{Code: op, Operand: ClassRef{Class: class}}, 3, nil
	case kindAType1:
		v, err := stream.ReadU1(r)
		if err != nil {
			return nil, 0, err
		}
		return Op{Code: op, Operand: v}, 2, nil
	case kindMultiANewArray:
		idx, err := stream.ReadU2(r)
		if err != nil {
			return nil, 0, err
		}
		dims, err := stream.ReadU1(r)
		if err != nil {
			return nil, 0, err
		}
		class, err := resolveClass(cp, idx)
		if err != nil {
			return nil, 0, err
		}
		return Op{Code: op, Operand: MultiANewArrayOperand{Class: class, Dimensions: dims}}, 4, nil
	}
	return nil, 0, InvalidOpcodeError(op)
}

func resolveClass(cp *cpool.Reader, idx uint16) (cpool.Class, error) {
	e, ok := cp.ReadRaw(idx)
	if !ok {
		return cpool.Class{}, cpool.InvalidIndexError(idx)
	}
	class, ok := e.(cpool.Class)
	if !ok {
		return cpool.Class{}, cpool.InvalidTagError(e.Tag())
	}
	return class, nil
}

func decodeMember(cp *cpool.Reader, idx uint16, iface bool) (MemberRef, error) {
	e, ok := cp.ReadRaw(idx)
	if !ok {
		return MemberRef{}, cpool.InvalidIndexError(idx)
	}
	var classIdx, ntIdx uint16
	switch v := e.(type) {
	case cpool.Fieldref:
		classIdx, ntIdx = v.ClassIndex, v.NameAndTypeIndex
	case cpool.Methodref:
		classIdx, ntIdx = v.ClassIndex, v.NameAndTypeIndex
	case cpool.InterfaceMethodref:
		classIdx, ntIdx = v.ClassIndex, v.NameAndTypeIndex
		iface = true
	default:
		return MemberRef{}, cpool.InvalidTagError(e.Tag())
	}
	class, err := resolveClass(cp, classIdx)
	if err != nil {
		return MemberRef{}, err
	}
	ntEntry, ok := cp.ReadRaw(ntIdx)
	if !ok {
		return MemberRef{}, cpool.InvalidIndexError(ntIdx)
	}
	nt, ok := ntEntry.(cpool.NameAndType)
	if !ok {
		return MemberRef{}, cpool.InvalidTagError(ntEntry.Tag())
	}
	return MemberRef{Interface: iface, Class: class, NameType: nt}, nil
}

func decodeInvokeDynamic(cp *cpool.Reader, idx uint16) (InvokeDynamicRef, error) {
	e, ok := cp.ReadRaw(idx)
	if !ok {
		return InvokeDynamicRef{}, cpool.InvalidIndexError(idx)
	}
	id, ok := e.(cpool.InvokeDynamic)
	if !ok {
		return InvokeDynamicRef{}, cpool.InvalidTagError(e.Tag())
	}
	ntEntry, ok := cp.ReadRaw(id.NameAndTypeIndex)
	if !ok {
		return InvokeDynamicRef{}, cpool.InvalidIndexError(id.NameAndTypeIndex)
	}
	nt, ok := ntEntry.(cpool.NameAndType)
	if !ok {
		return InvokeDynamicRef{}, cpool.InvalidTagError(ntEntry.Tag())
	}
	holder := &cpool.BootstrapHolder{}
	cp.ResolveLater(id.BootstrapMethodAttrIndex, holder)
	return InvokeDynamicRef{NameType: nt, Bootstrap: holder}, nil
}

func decodeLdc(cp *cpool.Reader, idx uint16) (LdcOperand, error) {
	e, ok := cp.ReadRaw(idx)
	if !ok {
		return LdcOperand{}, cpool.InvalidIndexError(idx)
	}
	if dyn, ok := e.(cpool.Dynamic); ok {
		holder := &cpool.BootstrapHolder{}
		cp.ResolveLater(dyn.BootstrapMethodAttrIndex, holder)
		return LdcOperand{Entry: e, Bootstrap: holder}, nil
	}
	return LdcOperand{Entry: e}, nil
}

// decodeSwitch reads tableswitch/lookupswitch, whose padding depends on
// pos's position modulo 4 within the code array (the JVM aligns the first
// operand byte, immediately following the opcode, to a 4-byte boundary
// measured from the start of the method's bytecode).
func decodeSwitch(op Opcode, code []byte, pos int, labels *label.Reader) (Instruction, int, error) {
	cur := pos + 1
	for cur%4 != 0 {
		cur++
	}
	r := bytes.NewReader(code[cur:])
	defOff, err := stream.ReadI4(r)
	if err != nil {
		return nil, 0, err
	}
	def := labels.Label(pos + int(defOff))
	cur += 4

	if op == TableSwitchOp {
		low, err := stream.ReadI4(r)
		if err != nil {
			return nil, 0, err
		}
		high, err := stream.ReadI4(r)
		if err != nil {
			return nil, 0, err
		}
		cur += 8
		if high < low {
			return nil, 0, fmt.Errorf("instr: tableswitch high bound %d is below low bound %d", high, low)
		}
		n := int(high-low) + 1
		targets := make([]label.ID, n)
		for i := 0; i < n; i++ {
			off, err := stream.ReadI4(r)
			if err != nil {
				return nil, 0, err
			}
			targets[i] = labels.Label(pos + int(off))
			cur += 4
		}
		return TableSwitch{Default: def, Low: low, High: high, Targets: targets}, cur - pos, nil
	}

	npairs, err := stream.ReadI4(r)
	if err != nil {
		return nil, 0, err
	}
	cur += 4
	cases := make([]LookupSwitchCase, npairs)
	for i := range cases {
		key, err := stream.ReadI4(r)
		if err != nil {
			return nil, 0, err
		}
		off, err := stream.ReadI4(r)
		if err != nil {
			return nil, 0, err
		}
		cases[i] = LookupSwitchCase{Key: key, Target: labels.Label(pos + int(off))}
		cur += 8
	}
	return LookupSwitch{Default: def, Cases: cases}, cur - pos, nil
}
