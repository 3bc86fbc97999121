package coffer

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-classfile/coffer/attr"
	"github.com/go-classfile/coffer/cpool"
	"github.com/go-classfile/coffer/instr"
	"github.com/go-classfile/coffer/internal/stream"
	"github.com/go-classfile/coffer/label"
)

// ReadFrom decodes one Code attribute body (everything after the
// attribute_name_index/attribute_length header: max_stack, max_locals,
// code, exception table, and attributes) from r, resolving constant-pool
// references against pool.
//
// The disassembly is a single linear scan over the buffered code array
// (spec.md §4.4), grounded on disasm.Disassemble in the teacher: walk
// forward one opcode at a time, delegate per-opcode decoding to
// instr.Decode, and record each opcode's position so jump targets and
// side-table offsets can be resolved to instruction indices afterward.
func ReadFrom(pool *cpool.Reader, r io.Reader) (*Code, error) {
	maxStack, err := stream.ReadU2(r)
	if err != nil {
		return nil, TruncatedError{"max_stack", err}
	}
	maxLocals, err := stream.ReadU2(r)
	if err != nil {
		return nil, TruncatedError{"max_locals", err}
	}
	codeLength, err := stream.ReadU4(r)
	if err != nil {
		return nil, TruncatedError{"code_length", err}
	}
	codeBytes, err := stream.ReadBytes(r, int(codeLength))
	if err != nil {
		return nil, TruncatedError{"code", err}
	}

	labels := label.NewReader()
	logger.Printf("disassembling %d bytes of code", len(codeBytes))

	instrs, posToIndex, err := disassemble(codeBytes, pool, labels)
	if err != nil {
		return nil, err
	}

	catches, err := readExceptionTable(r, pool, labels)
	if err != nil {
		return nil, err
	}

	attrsCount, err := stream.ReadU2(r)
	if err != nil {
		return nil, TruncatedError{"attributes_count", err}
	}

	var lineNumbers []pendingLine
	var descRows, sigRows []attr.LocalVarRow
	var attrs []Attr

	for i := uint16(0); i < attrsCount; i++ {
		nameIdx, err := stream.ReadU2(r)
		if err != nil {
			return nil, TruncatedError{"attribute name_index", err}
		}
		name, err := utf8Name(pool, nameIdx)
		if err != nil {
			return nil, err
		}
		length, err := stream.ReadU4(r)
		if err != nil {
			return nil, TruncatedError{"attribute_length", err}
		}
		body, err := stream.ReadBytes(r, int(length))
		if err != nil {
			return nil, TruncatedError{fmt.Sprintf("attribute %q body", name), err}
		}
		br := bytes.NewReader(body)

		switch name {
		case attrLineNumberTable:
			rows, err := readLineNumberTable(br)
			if err != nil {
				return nil, err
			}
			lineNumbers = append(lineNumbers, rows...)
		case attrLocalVariableTable:
			rows, err := attr.ReadLocalVarRows(br, pool, labels)
			if err != nil {
				return nil, err
			}
			descRows = append(descRows, rows...)
		case attrLocalVariableTypeTable:
			rows, err := attr.ReadLocalVarRows(br, pool, labels)
			if err != nil {
				return nil, err
			}
			sigRows = append(sigRows, rows...)
		case attrStackMapTable:
			// Retained raw, per spec.md §9's Open Question: this codec does
			// not need frame contents for anything it implements (verifying
			// stack maps is an explicit Non-goal), so round-trip fidelity is
			// cheaper and safer than parse-then-re-emit.
			attrs = append(attrs, StackMapTable{Raw: body})
		case attrRuntimeVisibleTypeAnnotation:
			attrs = append(attrs, TypeAnnotations{attr.TypeAnnotations{Visible: true, Raw: body}})
		case attrRuntimeInvisTypeAnnotation:
			attrs = append(attrs, TypeAnnotations{attr.TypeAnnotations{Visible: false, Raw: body}})
		default:
			attrs = append(attrs, RawAttr{attr.Raw{Name: name, Data: body}})
		}
	}

	if len(descRows) > 0 || len(sigRows) > 0 {
		merged := attr.MergeLocalVars(descRows, sigRows)
		attrs = append([]Attr{LocalVariables{Vars: merged}}, attrs...)
	}

	code, err := spliceInstructions(instrs, posToIndex, len(codeBytes), labels, lineNumbers)
	if err != nil {
		return nil, err
	}

	return &Code{
		MaxStack:  maxStack,
		MaxLocals: maxLocals,
		Code:      code,
		Catches:   catches,
		Attrs:     attrs,
	}, nil
}

// disassemble walks codeBytes opcode by opcode, recording each opcode's
// byte offset against its index in the returned instruction slice.
func disassemble(codeBytes []byte, pool *cpool.Reader, labels *label.Reader) ([]instr.Instruction, map[int]int, error) {
	var instrs []instr.Instruction
	posToIndex := make(map[int]int)
	pos := 0
	for pos < len(codeBytes) {
		posToIndex[pos] = len(instrs)
		inst, n, err := instr.Decode(codeBytes, pos, pool, labels)
		if err != nil {
			return nil, nil, fmt.Errorf("coffer: decoding instruction at offset %d: %w", pos, err)
		}
		instrs = append(instrs, inst)
		pos += n
	}
	return instrs, posToIndex, nil
}

func readExceptionTable(r io.Reader, pool *cpool.Reader, labels *label.Reader) ([]Catch, error) {
	count, err := stream.ReadU2(r)
	if err != nil {
		return nil, TruncatedError{"exception_table_length", err}
	}
	catches := make([]Catch, count)
	for i := range catches {
		startPC, err := stream.ReadU2(r)
		if err != nil {
			return nil, TruncatedError{"exception_table.start_pc", err}
		}
		endPC, err := stream.ReadU2(r)
		if err != nil {
			return nil, TruncatedError{"exception_table.end_pc", err}
		}
		handlerPC, err := stream.ReadU2(r)
		if err != nil {
			return nil, TruncatedError{"exception_table.handler_pc", err}
		}
		catchIdx, err := stream.ReadU2(r)
		if err != nil {
			return nil, TruncatedError{"exception_table.catch_type", err}
		}
		var className string
		if catchIdx != 0 {
			className, err = resolveClassName(pool, catchIdx)
			if err != nil {
				return nil, err
			}
		}
		catches[i] = Catch{
			Start:   labels.Label(int(startPC)),
			End:     labels.Label(int(endPC)),
			Handler: labels.Label(int(handlerPC)),
			Class:   className,
		}
	}
	return catches, nil
}

func resolveClassName(pool *cpool.Reader, idx uint16) (string, error) {
	e, ok := pool.ReadRaw(idx)
	if !ok {
		return "", cpool.InvalidIndexError(idx)
	}
	class, ok := e.(cpool.Class)
	if !ok {
		return "", cpool.InvalidTagError(e.Tag())
	}
	return utf8Name(pool, class.NameIndex)
}

func utf8Name(pool *cpool.Reader, idx uint16) (string, error) {
	e, ok := pool.ReadRaw(idx)
	if !ok {
		return "", cpool.InvalidIndexError(idx)
	}
	u, ok := e.(cpool.UTF8)
	if !ok {
		return "", cpool.InvalidTagError(e.Tag())
	}
	return u.Value, nil
}

// pendingLine is one decoded LineNumberTable row, not yet spliced into the
// instruction stream (its target instruction index depends on posToIndex,
// built during disassembly).
type pendingLine struct {
	StartPC int
	Line    uint16
}

func readLineNumberTable(r io.Reader) ([]pendingLine, error) {
	count, err := stream.ReadU2(r)
	if err != nil {
		return nil, TruncatedError{"LineNumberTable count", err}
	}
	rows := make([]pendingLine, count)
	for i := range rows {
		startPC, err := stream.ReadU2(r)
		if err != nil {
			return nil, TruncatedError{"LineNumberTable.start_pc", err}
		}
		line, err := stream.ReadU2(r)
		if err != nil {
			return nil, TruncatedError{"LineNumberTable.line_number", err}
		}
		rows[i] = pendingLine{StartPC: int(startPC), Line: line}
	}
	return rows, nil
}

// spliceInstructions inserts a Label pseudo-instruction at every offset
// labels minted (from jump targets, catch boundaries, and local-variable
// ranges alike, since all three mint through the same *label.Reader) and a
// LineNumber pseudo-instruction at every LineNumberTable row's start_pc,
// in instruction order, per spec.md §4.4 step 5.
//
// Building a fresh slice front-to-back achieves the same result as the
// spec's "insert in descending index order" in-place splice, without the
// bookkeeping an in-place insert needs to keep earlier indices valid.
func spliceInstructions(instrs []instr.Instruction, posToIndex map[int]int, codeLen int, labels *label.Reader, lineNumbers []pendingLine) ([]instr.Instruction, error) {
	labelAt := make(map[int]label.ID)
	for id, offset := range labels.Offsets() {
		idx, err := boundaryIndex(offset, posToIndex, len(instrs), codeLen)
		if err != nil {
			return nil, err
		}
		labelAt[idx] = id
	}

	linesAt := make(map[int][]pendingLine)
	for _, ln := range lineNumbers {
		idx, err := boundaryIndex(ln.StartPC, posToIndex, len(instrs), codeLen)
		if err != nil {
			return nil, err
		}
		linesAt[idx] = append(linesAt[idx], ln)
	}

	out := make([]instr.Instruction, 0, len(instrs)+len(labelAt)+len(lineNumbers))
	emit := func(idx int) {
		if id, ok := labelAt[idx]; ok {
			out = append(out, instr.Label{ID: id})
		}
		for _, ln := range linesAt[idx] {
			out = append(out, instr.LineNumber{Line: ln.Line})
		}
	}
	for i, inst := range instrs {
		emit(i)
		out = append(out, inst)
	}
	emit(len(instrs))
	return out, nil
}

// boundaryIndex maps a byte offset to the instruction index starting there,
// or to len(instrs) if the offset is the one-past-the-end position a
// trailing label/local-variable-end commonly targets.
func boundaryIndex(offset int, posToIndex map[int]int, n, codeLen int) (int, error) {
	if idx, ok := posToIndex[offset]; ok {
		return idx, nil
	}
	if offset == codeLen {
		return n, nil
	}
	return 0, InvalidError{Context: fmt.Sprintf("offset %d is not an instruction boundary", offset)}
}
