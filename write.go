package coffer

import (
	"bytes"
	"io"
	"sort"

	"github.com/go-classfile/coffer/attr"
	"github.com/go-classfile/coffer/cpool"
	"github.com/go-classfile/coffer/instr"
	"github.com/go-classfile/coffer/internal/stream"
	"github.com/go-classfile/coffer/label"
)

// linePos is one LineNumberTable row recorded during Pass A, not yet
// resolved to an absolute byte offset (its segment hasn't been placed yet).
type linePos struct {
	Seg    int
	Offset int64
	Line   uint16
}

// WriteTo assembles c into a Code attribute body (max_stack, max_locals,
// code, exception table, attributes) and writes it to w, inserting entries
// into pool as instruction operands and attribute names require.
//
// This is the two-pass algorithm of spec.md §4.5, grounded on
// exec/internal/compile's "emit now, patch later" buffer rewrite in the
// teacher: Pass A emits non-jump instructions into segment buffers
// separated by deferred jumps; Pass B projects a conservative upper-bound
// position for every label using worst-case jump sizes; Pass C uses those
// projections (or, for a target already placed before the jump, its exact
// position) to decide, once, whether each jump needs its wide encoding,
// fixing every segment's exact start offset; Pass D emits the final bytes
// with every label resolved to its now-fixed absolute offset.
func (c *Code) WriteTo(pool *cpool.Writer, w io.Writer) error {
	segments, jumps, lw, lineNumbers, err := writePassA(c.Code, pool)
	if err != nil {
		return err
	}

	segStartHint := writePassB(segments, jumps)
	segStartExact, jumpPositions, wideFlags, totalLen, err := writePassC(segments, jumps, lw, segStartHint)
	if err != nil {
		return err
	}

	res := resolver{lw: lw, segStarts: segStartExact}

	if err := stream.WriteU2(w, c.MaxStack); err != nil {
		return err
	}
	if err := stream.WriteU2(w, c.MaxLocals); err != nil {
		return err
	}
	if err := stream.WriteU4(w, uint32(totalLen)); err != nil {
		return err
	}
	if err := writePassD(w, segments, jumps, jumpPositions, wideFlags, pool, res); err != nil {
		return err
	}

	if err := writeExceptionTable(w, pool, res, c.Catches); err != nil {
		return err
	}
	return writeCodeAttributes(w, pool, res, c.Attrs, lineNumbers, segStartExact)
}

// writePassA emits every non-jump instruction (Op, Ret) into a running
// segment buffer, flushing a new segment each time a jump-category
// instruction (Jump, Jsr, TableSwitch, LookupSwitch) is encountered, and
// recording each Label pseudo-instruction's (segment, inner offset) and
// each LineNumber pseudo-instruction's position as it's reached.
func writePassA(code []instr.Instruction, pool *cpool.Writer) (segments [][]byte, jumps []instr.Instruction, lw *label.Writer, lineNumbers []linePos, err error) {
	lw = label.NewWriter()
	cur := &bytes.Buffer{}
	segIdx := 0

	for _, inst := range code {
		switch v := inst.(type) {
		case instr.Label:
			lw.Mark(v.ID, segIdx, int64(cur.Len()))
		case instr.LineNumber:
			lineNumbers = append(lineNumbers, linePos{Seg: segIdx, Offset: int64(cur.Len()), Line: v.Line})
		case instr.Jump, instr.Jsr, instr.TableSwitch, instr.LookupSwitch:
			segments = append(segments, cur.Bytes())
			cur = &bytes.Buffer{}
			segIdx++
			jumps = append(jumps, sortedIfLookupSwitch(v))
		default:
			if err := instr.Encode(cur, inst, 0, pool, nil, false); err != nil {
				return nil, nil, nil, nil, err
			}
		}
	}
	segments = append(segments, cur.Bytes())
	return segments, jumps, lw, lineNumbers, nil
}

// sortedIfLookupSwitch returns a copy of a LookupSwitch with its cases
// sorted ascending by key, per spec.md §4.5's "lookupswitch must write its
// table sorted by key" — the write path never trusts the input order, so
// a LookupSwitch built from decoded-then-reordered cases still round-trips
// correctly. Every other instruction passes through unchanged.
func sortedIfLookupSwitch(inst instr.Instruction) instr.Instruction {
	ls, ok := inst.(instr.LookupSwitch)
	if !ok {
		return inst
	}
	cases := make([]instr.LookupSwitchCase, len(ls.Cases))
	copy(cases, ls.Cases)
	sort.Slice(cases, func(i, j int) bool { return cases[i].Key < cases[j].Key })
	return instr.LookupSwitch{Default: ls.Default, Cases: cases}
}

// writePassB projects a conservative upper-bound start offset for each
// segment, using the worst-case encoded size of every jump up to that
// point. It is deliberately never exact: a jump may end up smaller once
// Pass C fixes real sizes, but never larger, so using these hints to
// decide a later jump's width can only ever over-widen, never under-widen
// — the safety property spec.md §4.5 and §9 both call for.
func writePassB(segments [][]byte, jumps []instr.Instruction) []int64 {
	hints := make([]int64, len(jumps)+1)
	for k, j := range jumps {
		hints[k+1] = hints[k] + int64(len(segments[k])) + int64(upperBoundSize(j))
	}
	return hints
}

// upperBoundSize is the worst-case encoded size of a jump-category
// instruction, per spec.md §4.5 Pass B. tableswitch/lookupswitch use their
// encoded size with the maximum 3 bytes of alignment padding (opcode + 3 pad
// + fixed operands + table); Jump/Jsr use their own true wide-encoding size,
// which is larger than the spec's prose figures (4/7 bytes), since those
// undercount — see DESIGN.md.
func upperBoundSize(j instr.Instruction) int {
	switch v := j.(type) {
	case instr.Jump:
		return instr.Size(v, 0, true)
	case instr.Jsr:
		return instr.Size(v, 0, true)
	case instr.TableSwitch:
		return 16 + 4*len(v.Targets)
	case instr.LookupSwitch:
		return 12 + 8*len(v.Cases)
	}
	return 0
}

// writePassC walks the jumps in order with an exact running cursor,
// deciding each Jump/Jsr's wide encoding from its target's exact position
// when the target lies in a segment already placed, and from the Pass B
// projection otherwise, and computing tableswitch/lookupswitch's exact
// alignment padding from its real position, fixing every segment's exact
// starting offset.
func writePassC(segments [][]byte, jumps []instr.Instruction, lw *label.Writer, hints []int64) (segStarts []int64, jumpPositions []int64, wideFlags []bool, totalLen int64, err error) {
	segStarts = make([]int64, len(jumps)+1)
	jumpPositions = make([]int64, len(jumps))
	wideFlags = make([]bool, len(jumps))

	placed := -1 // highest segment whose exact start is already fixed
	hintPos := func(id label.ID) (int64, error) {
		pos, ok := lw.Resolve(id)
		if !ok {
			return 0, label.UnresolvedLabelError(id)
		}
		if pos.Segment <= placed {
			return segStarts[pos.Segment] + pos.Offset, nil
		}
		return hints[pos.Segment] + pos.Offset, nil
	}

	cursor := int64(0)
	for k, j := range jumps {
		segStarts[k] = cursor
		placed = k
		cursor += int64(len(segments[k]))
		jumpPos := cursor
		jumpPositions[k] = jumpPos

		wide, werr := decideWide(j, jumpPos, hintPos)
		if werr != nil {
			return nil, nil, nil, 0, werr
		}
		wideFlags[k] = wide
		cursor += int64(instr.Size(j, int(jumpPos), wide))
	}
	segStarts[len(jumps)] = cursor
	cursor += int64(len(segments[len(jumps)]))
	return segStarts, jumpPositions, wideFlags, cursor, nil
}

// decideWide reports whether a Jump or Jsr needs its wide (32-bit offset)
// encoding: the projected displacement to its target, from its own
// opcode's position, falls outside the signed 16-bit range a narrow branch
// can carry. tableswitch/lookupswitch never widen — their offsets are
// always 32-bit — so they always report false.
func decideWide(j instr.Instruction, jumpPos int64, hintPos func(label.ID) (int64, error)) (bool, error) {
	var target label.ID
	switch v := j.(type) {
	case instr.Jump:
		target = v.Target
	case instr.Jsr:
		target = v.Target
	default:
		return false, nil
	}
	pos, err := hintPos(target)
	if err != nil {
		return false, err
	}
	disp := pos - jumpPos
	return disp < -32768 || disp > 32767, nil
}

// writePassD emits the final bytes: each segment verbatim, each jump
// encoded at its now-fixed position with every label resolved to its final
// absolute offset.
func writePassD(w io.Writer, segments [][]byte, jumps []instr.Instruction, jumpPositions []int64, wideFlags []bool, pool *cpool.Writer, res resolver) error {
	for k := range jumps {
		if _, err := w.Write(segments[k]); err != nil {
			return err
		}
		if err := instr.Encode(w, jumps[k], int(jumpPositions[k]), pool, res.resolve, wideFlags[k]); err != nil {
			return err
		}
	}
	_, err := w.Write(segments[len(jumps)])
	return err
}

func writeExceptionTable(w io.Writer, pool *cpool.Writer, res resolver, catches []Catch) error {
	if err := stream.WriteU2(w, uint16(len(catches))); err != nil {
		return err
	}
	for _, c := range catches {
		start, err := res.resolveU16(c.Start)
		if err != nil {
			return err
		}
		end, err := res.resolveU16(c.End)
		if err != nil {
			return err
		}
		handler, err := res.resolveU16(c.Handler)
		if err != nil {
			return err
		}
		if err := stream.WriteU2(w, start); err != nil {
			return err
		}
		if err := stream.WriteU2(w, end); err != nil {
			return err
		}
		if err := stream.WriteU2(w, handler); err != nil {
			return err
		}
		var catchIdx uint16
		if c.Class != "" {
			nameIdx := pool.InsertRaw(cpool.UTF8{Value: c.Class})
			catchIdx = pool.InsertRaw(cpool.Class{NameIndex: nameIdx})
		}
		if err := stream.WriteU2(w, catchIdx); err != nil {
			return err
		}
	}
	return nil
}

// rawAttribute is a fully-encoded attribute body paired with its name,
// ready to be written once attributes_count is known.
type rawAttribute struct {
	Name string
	Body []byte
}

func writeCodeAttributes(w io.Writer, pool *cpool.Writer, res resolver, attrs []Attr, lineNumbers []linePos, segStarts []int64) error {
	var out []rawAttribute

	if len(lineNumbers) > 0 {
		body, err := encodeLineNumberTable(lineNumbers, segStarts)
		if err != nil {
			return err
		}
		out = append(out, rawAttribute{attrLineNumberTable, body})
	}

	var vars []attr.LocalVar
	for _, a := range attrs {
		if lv, ok := a.(LocalVariables); ok {
			vars = append(vars, lv.Vars...)
		}
	}
	if len(vars) > 0 {
		descRows, sigRows, err := attr.SplitLocalVars(vars)
		if err != nil {
			return err
		}
		if len(descRows) > 0 {
			var buf bytes.Buffer
			if err := attr.WriteLocalVarRows(&buf, pool, res.resolveU16, descRows); err != nil {
				return err
			}
			out = append(out, rawAttribute{attrLocalVariableTable, buf.Bytes()})
		}
		if len(sigRows) > 0 {
			var buf bytes.Buffer
			if err := attr.WriteLocalVarRows(&buf, pool, res.resolveU16, sigRows); err != nil {
				return err
			}
			out = append(out, rawAttribute{attrLocalVariableTypeTable, buf.Bytes()})
		}
	}

	for _, a := range attrs {
		switch v := a.(type) {
		case LocalVariables:
			// handled above
		case TypeAnnotations:
			name := attrRuntimeInvisTypeAnnotation
			if v.Visible {
				name = attrRuntimeVisibleTypeAnnotation
			}
			out = append(out, rawAttribute{name, v.Raw})
		case StackMapTable:
			out = append(out, rawAttribute{attrStackMapTable, v.Raw})
		case RawAttr:
			out = append(out, rawAttribute{v.Name, v.Data})
		}
	}

	if err := stream.WriteU2(w, uint16(len(out))); err != nil {
		return err
	}
	for _, a := range out {
		nameIdx := pool.InsertRaw(cpool.UTF8{Value: a.Name})
		if err := stream.WriteU2(w, nameIdx); err != nil {
			return err
		}
		if err := stream.WriteU4(w, uint32(len(a.Body))); err != nil {
			return err
		}
		if _, err := w.Write(a.Body); err != nil {
			return err
		}
	}
	return nil
}

func encodeLineNumberTable(lineNumbers []linePos, segStarts []int64) ([]byte, error) {
	var buf bytes.Buffer
	if err := stream.WriteU2(&buf, uint16(len(lineNumbers))); err != nil {
		return nil, err
	}
	for _, ln := range lineNumbers {
		startPC := segStarts[ln.Seg] + ln.Offset
		if err := stream.WriteU2(&buf, uint16(startPC)); err != nil {
			return nil, err
		}
		if err := stream.WriteU2(&buf, ln.Line); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
