package instr

import "github.com/go-classfile/coffer/label"

// Instruction is implemented by every element of a decoded instruction
// stream, including the pseudo-instructions (Label, LineNumber) that the
// root package splices in at label-referenced and line-table positions.
// It carries no behavior beyond identifying the concrete type to a type
// switch in the read/write path — same non-role the teacher's disasm.Instr
// plays for its consumers.
type Instruction interface {
	isInstruction()
}

// Op is a plain instruction: one with no jump target, covering the large
// majority of opcodes (arithmetic, stack manipulation, loads/stores,
// field/method access, object creation, returns). Operand is nil for
// zero-operand opcodes, and otherwise one of the types in operand.go,
// chosen by Code's kind; LdcOperand for ldc/ldc_w/ldc2_w, MemberRef for
// field/method access, ClassRef for new/checkcast/instanceof/anewarray,
// LocalVarOperand for the indexed load/store forms (ret decodes to Ret
// instead), IincOperand for
// iinc, MultiANewArrayOperand for multianewarray, and int32 for
// bipush/sipush.
//
// Folding ~170 distinct opcodes into one struct plus an opcode field,
// rather than one Go type per opcode, mirrors disasm.Instr's single-struct
// shape in the teacher.
type Op struct {
	Code    Opcode
	Operand interface{}
}

func (Op) isInstruction() {}

// Jump is a conditional or unconditional branch: if/if_icmp*/if_acmp*/
// ifnull/ifnonnull/goto/goto_w. Target is a label ID rather than a byte
// offset or pointer, so cyclic control flow needs no forward-declaration
// trick.
type Jump struct {
	Cond   Condition
	Target label.ID
}

func (Jump) isInstruction() {}

// Jsr is jsr/jsr_w, the deprecated subroutine-call instruction. Kept as its
// own type rather than folded into Jump because it pushes a return address
// rather than testing a condition.
type Jsr struct{ Target label.ID }

func (Jsr) isInstruction() {}

// Ret is the ret instruction: return from a subroutine via the address
// stored in a local variable slot.
type Ret struct{ Index uint16 }

func (Ret) isInstruction() {}

// TableSwitch is the tableswitch instruction: a dense jump table indexed by
// Low..High inclusive, falling through to Default outside that range.
type TableSwitch struct {
	Default   label.ID
	Low, High int32
	Targets   []label.ID // len(Targets) == High-Low+1
}

func (TableSwitch) isInstruction() {}

// LookupSwitchCase is one (key, target) pair of a LookupSwitch. The write
// path must emit Cases in ascending Key order; the read path preserves the
// order found in the class file, which the JVM spec already requires to be
// ascending.
type LookupSwitchCase struct {
	Key    int32
	Target label.ID
}

// LookupSwitch is the lookupswitch instruction: a sparse jump table.
type LookupSwitch struct {
	Default label.ID
	Cases   []LookupSwitchCase
}

func (LookupSwitch) isInstruction() {}

// Label is a pseudo-instruction marking a position referenced by some Jump,
// Jsr, TableSwitch, LookupSwitch target, or a Catch region boundary. It
// occupies no bytes; the root package inserts one at every offset
// label.Reader.Offsets names, building the spliced stream front to back so
// no insertion shifts an index still waiting to be used.
type Label struct{ ID label.ID }

func (Label) isInstruction() {}

// LineNumber is a pseudo-instruction carrying one row of a LineNumberTable
// attribute: source line Line begins at this position in the instruction
// stream.
type LineNumber struct{ Line uint16 }

func (LineNumber) isInstruction() {}
