package coffer

import (
	"bytes"
	"testing"

	"github.com/go-classfile/coffer/attr"
	"github.com/go-classfile/coffer/cpool"
	"github.com/go-classfile/coffer/instr"
	"github.com/go-classfile/coffer/label"
	"github.com/stretchr/testify/require"
)

// roundTrip writes c against a fresh pool, then reads it back against a
// pool built from the writer's own entries, as a real class file reader
// would see them.
func roundTrip(t *testing.T, c *Code) (*Code, []byte) {
	t.Helper()
	cpw := cpool.NewWriter()
	var codeBuf bytes.Buffer
	require.NoError(t, c.WriteTo(cpw, &codeBuf))

	var poolBuf bytes.Buffer
	require.NoError(t, cpw.WriteTo(&poolBuf))
	cpr, err := cpool.ReadFrom(&poolBuf)
	require.NoError(t, err)

	got, err := ReadFrom(cpr, bytes.NewReader(codeBuf.Bytes()))
	require.NoError(t, err)
	return got, codeBuf.Bytes()
}

func TestTinyMethodRoundTrip(t *testing.T) {
	c := &Code{
		MaxStack:  1,
		MaxLocals: 1,
		Code:      []instr.Instruction{instr.Op{Code: instr.Return}},
	}
	got, raw := roundTrip(t, c)

	// u2 max_stack, u2 max_locals, u4 code_length, then the code bytes, then
	// u2 exception_table_length and u2 attributes_count, both zero.
	require.Equal(t, []byte{0x00, 0x01, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01, 0xB1, 0x00, 0x00, 0x00, 0x00}, raw)
	require.Equal(t, c.MaxStack, got.MaxStack)
	require.Equal(t, c.MaxLocals, got.MaxLocals)
	require.Len(t, got.Code, 1)
	require.Equal(t, instr.Op{Code: instr.Return}, got.Code[0])
}

func TestForwardShortBranch(t *testing.T) {
	L := label.ID(0)
	c := &Code{
		MaxStack:  1,
		MaxLocals: 1,
		Code: []instr.Instruction{
			instr.Jump{Cond: instr.Eq, Target: L},
			instr.Op{Code: instr.Nop},
			instr.Label{ID: L},
			instr.Op{Code: instr.Return},
		},
	}
	cpw := cpool.NewWriter()
	var buf bytes.Buffer
	require.NoError(t, c.WriteTo(cpw, &buf))

	raw := buf.Bytes()
	codeLen := raw[4:8]
	require.Equal(t, []byte{0x00, 0x00, 0x00, 0x05}, codeLen)
	code := raw[8:13]
	require.Equal(t, byte(0x99), code[0]) // ifeq
	require.Equal(t, []byte{0x00, 0x04}, code[1:3])
	require.Equal(t, byte(0x00), code[3]) // nop
	require.Equal(t, byte(0xB1), code[4]) // return
}

func TestBackwardWideBranchWidensGotoW(t *testing.T) {
	L := label.ID(0)
	const gap = 70000
	code := make([]instr.Instruction, 0, gap+2)
	code = append(code, instr.Label{ID: L})
	for i := 0; i < gap; i++ {
		code = append(code, instr.Op{Code: instr.Nop})
	}
	code = append(code, instr.Jump{Cond: instr.Always, Target: L})

	c := &Code{MaxStack: 0, MaxLocals: 0, Code: code}
	cpw := cpool.NewWriter()
	var buf bytes.Buffer
	require.NoError(t, c.WriteTo(cpw, &buf))

	raw := buf.Bytes()
	// code starts at byte 8 (after max_stack/max_locals/code_length); the
	// goto_w follows the gap nops.
	gotoW := raw[8+gap : 8+gap+5]
	require.Equal(t, byte(0xC8), gotoW[0]) // goto_w
	off := int32(gotoW[1])<<24 | int32(gotoW[2])<<16 | int32(gotoW[3])<<8 | int32(gotoW[4])
	require.Equal(t, int32(-gap), off)
}

func TestTableSwitchAlignment(t *testing.T) {
	code := []instr.Instruction{}
	for i := 0; i < 5; i++ {
		code = append(code, instr.Op{Code: instr.Nop})
	}
	L := label.ID(0)
	code = append(code,
		instr.TableSwitch{Default: L, Low: 0, High: 0, Targets: []label.ID{L}},
		instr.Label{ID: L},
	)
	c := &Code{Code: code}
	cpw := cpool.NewWriter()
	var buf bytes.Buffer
	require.NoError(t, c.WriteTo(cpw, &buf))

	raw := buf.Bytes()
	body := raw[8:] // past max_stack/max_locals/code_length
	require.Equal(t, byte(0xAA), body[5])
	// opcode at index 5 (offset 5); operand bytes start at 6 and must be
	// padded until a 4-byte-aligned address (8), i.e. 2 zero pad bytes.
	require.Equal(t, []byte{0x00, 0x00}, body[6:8])
}

func TestLookupSwitchSortsCasesByKey(t *testing.T) {
	l1, l2, l3 := label.ID(1), label.ID(2), label.ID(3)
	code := []instr.Instruction{
		instr.LookupSwitch{
			Default: label.ID(0),
			Cases: []instr.LookupSwitchCase{
				{Key: 5, Target: l1},
				{Key: 1, Target: l2},
				{Key: 3, Target: l3},
			},
		},
		instr.Label{ID: label.ID(0)},
		instr.Label{ID: l1},
		instr.Label{ID: l2},
		instr.Label{ID: l3},
	}
	c := &Code{Code: code}
	cpw := cpool.NewWriter()
	var buf bytes.Buffer
	require.NoError(t, c.WriteTo(cpw, &buf))

	got, _ := roundTrip(t, c)
	var ls instr.LookupSwitch
	for _, inst := range got.Code {
		if v, ok := inst.(instr.LookupSwitch); ok {
			ls = v
		}
	}
	require.Len(t, ls.Cases, 3)
	require.Equal(t, int32(1), ls.Cases[0].Key)
	require.Equal(t, int32(3), ls.Cases[1].Key)
	require.Equal(t, int32(5), ls.Cases[2].Key)
}

func TestLocalVarMergeSplitRoundTrip(t *testing.T) {
	start, end := label.ID(0), label.ID(1)
	c := &Code{
		MaxStack:  1,
		MaxLocals: 3,
		Code: []instr.Instruction{
			instr.Label{ID: start},
			instr.Op{Code: instr.Nop},
			instr.Label{ID: end},
			instr.Op{Code: instr.Return},
		},
		Attrs: []Attr{LocalVariables{Vars: []attr.LocalVar{
			{Start: start, End: end, Index: 2, Name: "x", Descriptor: "I", Signature: "TT;"},
		}}},
	}
	got, _ := roundTrip(t, c)
	require.Len(t, got.Attrs, 1)
	lv, ok := got.Attrs[0].(LocalVariables)
	require.True(t, ok)
	require.Len(t, lv.Vars, 1)
	require.Equal(t, "x", lv.Vars[0].Name)
	require.Equal(t, "I", lv.Vars[0].Descriptor)
	require.Equal(t, "TT;", lv.Vars[0].Signature)
}

func TestCatchRoundTrip(t *testing.T) {
	start, end, handler := label.ID(0), label.ID(1), label.ID(2)
	c := &Code{
		MaxStack:  1,
		MaxLocals: 1,
		Code: []instr.Instruction{
			instr.Label{ID: start},
			instr.Op{Code: instr.Nop},
			instr.Label{ID: end},
			instr.Label{ID: handler},
			instr.Op{Code: instr.Return},
		},
		Catches: []Catch{{Start: start, End: end, Handler: handler, Class: "java/lang/Exception"}},
	}
	got, _ := roundTrip(t, c)
	require.Len(t, got.Catches, 1)
	require.Equal(t, "java/lang/Exception", got.Catches[0].Class)
}

func TestCatchAllHasEmptyClass(t *testing.T) {
	start, end, handler := label.ID(0), label.ID(1), label.ID(2)
	c := &Code{
		Code: []instr.Instruction{
			instr.Label{ID: start},
			instr.Label{ID: end},
			instr.Label{ID: handler},
			instr.Op{Code: instr.Return},
		},
		Catches: []Catch{{Start: start, End: end, Handler: handler}},
	}
	got, _ := roundTrip(t, c)
	require.Equal(t, "", got.Catches[0].Class)
}

func TestUnknownAttributePreservedRaw(t *testing.T) {
	c := &Code{
		Code:  []instr.Instruction{instr.Op{Code: instr.Return}},
		Attrs: []Attr{RawAttr{attr.Raw{Name: "Vendor", Data: []byte{1, 2, 3}}}},
	}
	got, _ := roundTrip(t, c)
	require.Len(t, got.Attrs, 1)
	raw, ok := got.Attrs[0].(RawAttr)
	require.True(t, ok)
	require.Equal(t, "Vendor", raw.Name)
	require.Equal(t, []byte{1, 2, 3}, raw.Data)
}

func TestLineNumberTableRoundTrip(t *testing.T) {
	c := &Code{
		Code: []instr.Instruction{
			instr.LineNumber{Line: 10},
			instr.Op{Code: instr.Nop},
			instr.LineNumber{Line: 11},
			instr.Op{Code: instr.Return},
		},
	}
	got, _ := roundTrip(t, c)
	var lines []uint16
	for _, inst := range got.Code {
		if ln, ok := inst.(instr.LineNumber); ok {
			lines = append(lines, ln.Line)
		}
	}
	require.Equal(t, []uint16{10, 11}, lines)
}

func TestDoubleRoundTripStabilizes(t *testing.T) {
	L := label.ID(0)
	c := &Code{
		MaxStack:  1,
		MaxLocals: 1,
		Code: []instr.Instruction{
			instr.Jump{Cond: instr.Always, Target: L},
			instr.Label{ID: L},
			instr.Op{Code: instr.Return},
		},
	}
	firstGot, firstRaw := roundTrip(t, c)
	secondGot, secondRaw := roundTrip(t, firstGot)
	require.Equal(t, firstRaw, secondRaw)
	require.Equal(t, len(firstGot.Code), len(secondGot.Code))
}
