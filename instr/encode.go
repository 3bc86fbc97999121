package instr

import (
	"fmt"
	"io"

	"github.com/go-classfile/coffer/cpool"
	"github.com/go-classfile/coffer/internal/stream"
	"github.com/go-classfile/coffer/label"
)

// UnresolvedOperandError is returned when an instruction's operand is not
// the type its opcode requires — a programmer error building the
// instruction stream by hand rather than via Decode.
type UnresolvedOperandError struct {
	Code Opcode
	Want string
}

func (e UnresolvedOperandError) Error() string {
	return fmt.Sprintf("instr: %s (0x%02x) operand must be a %s", e.Code.Name(), uint8(e.Code), e.Want)
}

// Resolver maps a label id to its final absolute byte offset in the
// assembled code array. The Code codec's write path can only supply one
// once every segment's exact size is fixed (Pass C), since a label's
// absolute offset is its enclosing segment's start plus its offset within
// that segment; computing the segment start is the root package's job, not
// this package's, so Resolver is a plain function rather than a
// *label.Writer.
type Resolver func(label.ID) (int64, error)

// Size reports how many bytes Encode will write for inst, given the
// opcode's absolute position pos (needed only for switch alignment
// padding) and, for Jump/Jsr, whether the wide encoding was chosen — used
// by the write path's Pass B/C sizing projection without requiring target
// resolution.
func Size(inst Instruction, pos int, wide bool) int {
	switch v := inst.(type) {
	case Op:
		return opSize(v)
	case Jump:
		if !wide {
			return 3
		}
		if v.Cond == Always {
			return 5
		}
		return 8 // if<negated> +3, goto_w +5
	case Jsr:
		if wide {
			return 5
		}
		return 3
	case Ret:
		return 2
	case TableSwitch:
		pad := padLen(pos)
		return 1 + pad + 12 + 4*len(v.Targets)
	case LookupSwitch:
		pad := padLen(pos)
		return 1 + pad + 8 + 8*len(v.Cases)
	case Label, LineNumber:
		return 0
	}
	return 0
}

func padLen(pos int) int {
	cur := pos + 1
	n := 0
	for cur%4 != 0 {
		cur++
		n++
	}
	return n
}

func opSize(op Op) int {
	info, ok := opcodeTable[op.Code]
	if !ok {
		return 1
	}
	switch info.kind {
	case kindNone:
		return 1
	case kindI1, kindLocal1, kindLdc1, kindAType1:
		return 2
	case kindI2, kindIinc, kindLdc2, kindClass2:
		return 3
	case kindMember2:
		return 3
	case kindMultiANewArray:
		return 4
	case kindInvokeInterface, kindInvokeDynamic:
		return 5
	}
	return 1
}

// Encode writes inst at absolute position pos in the code array being
// assembled. resolve maps a label id to its final absolute offset (already
// fixed, since Encode runs in Pass D after every segment's exact size is
// known); wide forces the long-displacement encoding for Jump/Jsr,
// mirroring Size's wide flag so Pass C's sizing decision and Pass D's
// emission never disagree. cp is the write-side constant pool that
// LdcOperand/MemberRef/ClassRef entries are inserted into (or looked up, if
// already present via a prior instruction).
func Encode(w io.Writer, inst Instruction, pos int, cp *cpool.Writer, resolve Resolver, wide bool) error {
	switch v := inst.(type) {
	case Op:
		return encodeOp(w, v, cp)
	case Jump:
		return encodeJump(w, v, pos, resolve, wide)
	case Jsr:
		target, err := resolve(v.Target)
		if err != nil {
			return err
		}
		off := int32(target) - int32(pos)
		if !wide {
			if err := stream.WriteU1(w, uint8(JsrOp)); err != nil {
				return err
			}
			return stream.WriteI2(w, int16(off))
		}
		if err := stream.WriteU1(w, uint8(JsrW)); err != nil {
			return err
		}
		return stream.WriteI4(w, off)
	case Ret:
		if err := stream.WriteU1(w, uint8(RetOp)); err != nil {
			return err
		}
		return stream.WriteU1(w, uint8(v.Index))
	case TableSwitch:
		return encodeTableSwitch(w, v, pos, resolve)
	case LookupSwitch:
		return encodeLookupSwitch(w, v, pos, resolve)
	case Label, LineNumber:
		return nil
	}
	return fmt.Errorf("instr: unknown instruction type %T", inst)
}

func encodeJump(w io.Writer, v Jump, pos int, resolve Resolver, wide bool) error {
	target, err := resolve(v.Target)
	if err != nil {
		return err
	}
	off := int32(target) - int32(pos)

	if v.Cond == Always {
		if !wide {
			if err := stream.WriteU1(w, uint8(Goto)); err != nil {
				return err
			}
			return stream.WriteI2(w, int16(off))
		}
		if err := stream.WriteU1(w, uint8(GotoW)); err != nil {
			return err
		}
		return stream.WriteI4(w, off)
	}

	op, ok := conditionOpcode[v.Cond]
	if !ok {
		return fmt.Errorf("instr: unknown branch condition %d", v.Cond)
	}
	if !wide {
		if err := stream.WriteU1(w, uint8(op)); err != nil {
			return err
		}
		return stream.WriteI2(w, int16(off))
	}

	// Widen: if<negated> past a 3-byte skip, then goto_w to the real target.
	neg, ok := v.Cond.Negate()
	if !ok {
		return fmt.Errorf("instr: condition %d has no negation for widening", v.Cond)
	}
	negOp := conditionOpcode[neg]
	if err := stream.WriteU1(w, uint8(negOp)); err != nil {
		return err
	}
	if err := stream.WriteI2(w, 8); err != nil { // skip over this goto_w (3+5 bytes)
		return err
	}
	if err := stream.WriteU1(w, uint8(GotoW)); err != nil {
		return err
	}
	return stream.WriteI4(w, off-3)
}

func encodeOp(w io.Writer, v Op, cp *cpool.Writer) error {
	info, ok := opcodeTable[v.Code]
	if !ok {
		return InvalidOpcodeError(v.Code)
	}
	if err := stream.WriteU1(w, uint8(v.Code)); err != nil {
		return err
	}
	switch info.kind {
	case kindNone:
		return nil
	case kindI1:
		n, ok := v.Operand.(int32)
		if !ok {
			return UnresolvedOperandError{v.Code, "int32"}
		}
		return stream.WriteU1(w, uint8(int8(n)))
	case kindI2:
		n, ok := v.Operand.(int32)
		if !ok {
			return UnresolvedOperandError{v.Code, "int32"}
		}
		return stream.WriteI2(w, int16(n))
	case kindLocal1:
		lv, ok := v.Operand.(LocalVarOperand)
		if !ok {
			return UnresolvedOperandError{v.Code, "LocalVarOperand"}
		}
		return stream.WriteU1(w, uint8(lv.Index))
	case kindIinc:
		iv, ok := v.Operand.(IincOperand)
		if !ok {
			return UnresolvedOperandError{v.Code, "IincOperand"}
		}
		if err := stream.WriteU1(w, uint8(iv.Index)); err != nil {
			return err
		}
		return stream.WriteU1(w, uint8(int8(iv.Const)))
	case kindLdc1:
		lc, ok := v.Operand.(LdcOperand)
		if !ok {
			return UnresolvedOperandError{v.Code, "LdcOperand"}
		}
		return stream.WriteU1(w, uint8(insertLdc(cp, lc)))
	case kindLdc2:
		lc, ok := v.Operand.(LdcOperand)
		if !ok {
			return UnresolvedOperandError{v.Code, "LdcOperand"}
		}
		return stream.WriteU2(w, insertLdc(cp, lc))
	case kindMember2:
		ref, ok := v.Operand.(MemberRef)
		if !ok {
			return UnresolvedOperandError{v.Code, "MemberRef"}
		}
		if v.Code == GetStatic || v.Code == PutStatic || v.Code == GetField || v.Code == PutField {
			classIdx := cp.InsertRaw(ref.Class)
			ntIdx := cp.InsertRaw(ref.NameType)
			return stream.WriteU2(w, cp.InsertRaw(cpool.Fieldref{ClassIndex: classIdx, NameAndTypeIndex: ntIdx}))
		}
		return stream.WriteU2(w, insertMember(cp, ref))
	case kindInvokeInterface:
		ref, ok := v.Operand.(MemberRef)
		if !ok {
			return UnresolvedOperandError{v.Code, "MemberRef"}
		}
		if err := stream.WriteU2(w, insertMember(cp, ref)); err != nil {
			return err
		}
		count := argSlotCount(ref.NameType, cp)
		if err := stream.WriteU1(w, count); err != nil {
			return err
		}
		return stream.WriteU1(w, 0)
	case kindInvokeDynamic:
		ref, ok := v.Operand.(InvokeDynamicRef)
		if !ok {
			return UnresolvedOperandError{v.Code, "InvokeDynamicRef"}
		}
		if err := stream.WriteU2(w, insertInvokeDynamic(cp, ref)); err != nil {
			return err
		}
		return stream.WriteU2(w, 0)
	case kindClass2:
		ref, ok := v.Operand.(ClassRef)
		if !ok {
			return UnresolvedOperandError{v.Code, "ClassRef"}
		}
		return stream.WriteU2(w, cp.InsertRaw(ref.Class))
	case kindAType1:
		n, ok := v.Operand.(uint8)
		if !ok {
			return UnresolvedOperandError{v.Code, "uint8"}
		}
		return stream.WriteU1(w, n)
	case kindMultiANewArray:
		m, ok := v.Operand.(MultiANewArrayOperand)
		if !ok {
			return UnresolvedOperandError{v.Code, "MultiANewArrayOperand"}
		}
		if err := stream.WriteU2(w, cp.InsertRaw(m.Class)); err != nil {
			return err
		}
		return stream.WriteU1(w, m.Dimensions)
	}
	return nil
}

func insertLdc(cp *cpool.Writer, lc LdcOperand) uint16 {
	if lc.Bootstrap != nil {
		dyn := lc.Entry.(cpool.Dynamic)
		bm, _ := lc.Bootstrap.Get()
		dyn.BootstrapMethodAttrIndex = cp.InsertBSM(bm)
		return cp.InsertRaw(dyn)
	}
	return cp.InsertRaw(lc.Entry)
}

func insertInvokeDynamic(cp *cpool.Writer, ref InvokeDynamicRef) uint16 {
	bm, _ := ref.Bootstrap.Get()
	bsmIdx := cp.InsertBSM(bm)
	ntIdx := cp.InsertRaw(ref.NameType)
	return cp.InsertRaw(cpool.InvokeDynamic{BootstrapMethodAttrIndex: bsmIdx, NameAndTypeIndex: ntIdx})
}

func insertMember(cp *cpool.Writer, ref MemberRef) uint16 {
	classIdx := cp.InsertRaw(ref.Class)
	ntIdx := cp.InsertRaw(ref.NameType)
	if ref.Interface {
		return cp.InsertRaw(cpool.InterfaceMethodref{ClassIndex: classIdx, NameAndTypeIndex: ntIdx})
	}
	return cp.InsertRaw(cpool.Methodref{ClassIndex: classIdx, NameAndTypeIndex: ntIdx})
}

// argSlotCount is a placeholder for invokeinterface's redundant argument
// slot count, which a full descriptor parser would derive from the
// NameAndType's descriptor string. Left as 0 pending descriptor parsing in
// the attr package; the JVM accepts any value here so long as it agrees
// with the method descriptor, which verification (a Non-goal) would check.
func argSlotCount(cpool.NameAndType, *cpool.Writer) uint8 {
	return 0
}

func encodeTableSwitch(w io.Writer, v TableSwitch, pos int, resolve Resolver) error {
	if err := stream.WriteU1(w, uint8(TableSwitchOp)); err != nil {
		return err
	}
	for i := 0; i < padLen(pos); i++ {
		if err := stream.WriteU1(w, 0); err != nil {
			return err
		}
	}
	def, err := resolve(v.Default)
	if err != nil {
		return err
	}
	if err := stream.WriteI4(w, int32(def)-int32(pos)); err != nil {
		return err
	}
	if err := stream.WriteI4(w, v.Low); err != nil {
		return err
	}
	if err := stream.WriteI4(w, v.High); err != nil {
		return err
	}
	for _, t := range v.Targets {
		p, err := resolve(t)
		if err != nil {
			return err
		}
		if err := stream.WriteI4(w, int32(p)-int32(pos)); err != nil {
			return err
		}
	}
	return nil
}

func encodeLookupSwitch(w io.Writer, v LookupSwitch, pos int, resolve Resolver) error {
	if err := stream.WriteU1(w, uint8(LookupSwitchOp)); err != nil {
		return err
	}
	for i := 0; i < padLen(pos); i++ {
		if err := stream.WriteU1(w, 0); err != nil {
			return err
		}
	}
	def, err := resolve(v.Default)
	if err != nil {
		return err
	}
	if err := stream.WriteI4(w, int32(def)-int32(pos)); err != nil {
		return err
	}
	if err := stream.WriteI4(w, int32(len(v.Cases))); err != nil {
		return err
	}
	for _, c := range v.Cases {
		p, err := resolve(c.Target)
		if err != nil {
			return err
		}
		if err := stream.WriteI4(w, c.Key); err != nil {
			return err
		}
		if err := stream.WriteI4(w, int32(p)-int32(pos)); err != nil {
			return err
		}
	}
	return nil
}
