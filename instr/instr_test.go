package instr

import (
	"bytes"
	"testing"

	"github.com/go-classfile/coffer/cpool"
	"github.com/go-classfile/coffer/label"
)

// resolverFor adapts a label.Writer whose labels all sit in segment 0 into a
// Resolver, using each label's in-segment offset as its absolute offset.
func resolverFor(w *label.Writer) Resolver {
	return func(id label.ID) (int64, error) {
		pos, ok := w.Resolve(id)
		if !ok {
			return 0, label.UnresolvedLabelError(id)
		}
		return pos.Offset, nil
	}
}

func TestDecodeSimpleOp(t *testing.T) {
	code := []byte{byte(IAdd)}
	inst, n, err := Decode(code, 0, nil, label.NewReader())
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("got n = %d; want 1", n)
	}
	op, ok := inst.(Op)
	if !ok || op.Code != IAdd {
		t.Fatalf("got %#v", inst)
	}
}

func TestDecodeBiPushNegative(t *testing.T) {
	code := []byte{byte(BiPush), 0xff} // -1
	inst, n, err := Decode(code, 0, nil, label.NewReader())
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("got n = %d; want 2", n)
	}
	op := inst.(Op)
	if op.Operand.(int32) != -1 {
		t.Fatalf("got operand = %v; want -1", op.Operand)
	}
}

func TestDecodeEncodeJumpRoundTrip(t *testing.T) {
	// ifeq at offset 0 targeting offset 10, forward reference.
	code := []byte{byte(IfEq), 0x00, 0x0a}
	r := label.NewReader()
	inst, n, err := Decode(code, 0, nil, r)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("got n = %d; want 3", n)
	}
	jmp := inst.(Jump)
	if jmp.Cond != Eq {
		t.Fatalf("got cond = %v; want Eq", jmp.Cond)
	}

	w := label.NewWriter()
	w.Mark(jmp.Target, 0, 10)
	var buf bytes.Buffer
	if err := Encode(&buf, jmp, 0, nil, resolverFor(w), false); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(buf.Bytes(), code) {
		t.Fatalf("got % x; want % x", buf.Bytes(), code)
	}
}

func TestDecodeEncodeWideGotoWidening(t *testing.T) {
	target := label.ID(0)
	jmp := Jump{Cond: Eq, Target: target}
	w := label.NewWriter()
	w.Mark(target, 0, 100000)
	var buf bytes.Buffer
	if err := Encode(&buf, jmp, 0, nil, resolverFor(w), true); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 8 {
		t.Fatalf("got len = %d; want 8", buf.Len())
	}
	if Opcode(buf.Bytes()[0]) != IfNe {
		t.Fatalf("expected negated condition ifne, got opcode 0x%02x", buf.Bytes()[0])
	}
	if Opcode(buf.Bytes()[3]) != GotoW {
		t.Fatalf("expected goto_w after skip, got opcode 0x%02x", buf.Bytes()[3])
	}
}

func TestTableSwitchAlignmentPadding(t *testing.T) {
	// tableswitch at offset 1 needs 2 padding bytes so the default operand
	// starts at offset 4.
	var buf bytes.Buffer
	ts := TableSwitch{Default: 0, Low: 0, High: 1, Targets: []label.ID{1, 2}}
	w := label.NewWriter()
	w.Mark(0, 0, 50)
	w.Mark(1, 0, 60)
	w.Mark(2, 0, 70)
	if err := Encode(&buf, ts, 1, nil, resolverFor(w), false); err != nil {
		t.Fatal(err)
	}
	// 1 opcode byte + 2 pad + 4 default + 4 low + 4 high + 2*4 targets = 23
	if buf.Len() != 23 {
		t.Fatalf("got len = %d; want 23", buf.Len())
	}
}

func TestLdcInsertsIntoWriterPool(t *testing.T) {
	cp := cpool.NewWriter()
	op := Op{Code: Ldc, Operand: LdcOperand{Entry: cpool.Integer{Value: 7}}}
	var buf bytes.Buffer
	if err := Encode(&buf, op, 0, cp, resolverFor(label.NewWriter()), false); err != nil {
		t.Fatal(err)
	}
	if cp.Len() != 2 { // index 1 assigned, next would be 2
		t.Fatalf("got cp.Len() = %d; want 2", cp.Len())
	}
	idx := buf.Bytes()[1]
	if idx != 1 {
		t.Fatalf("got ldc index = %d; want 1", idx)
	}
}

func TestEncodeUnresolvedLabel(t *testing.T) {
	jmp := Jump{Cond: Always, Target: 99}
	w := label.NewWriter()
	var buf bytes.Buffer
	err := Encode(&buf, jmp, 0, nil, resolverFor(w), false)
	if _, ok := err.(label.UnresolvedLabelError); !ok {
		t.Fatalf("got err = %v; want UnresolvedLabelError", err)
	}
}
