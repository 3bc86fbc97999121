package frame

import (
	"fmt"
	"io"

	"github.com/go-classfile/coffer/cpool"
	"github.com/go-classfile/coffer/internal/stream"
	"github.com/go-classfile/coffer/label"
)

// InvalidFrameError is returned for a reserved tag byte (128..246) on read,
// or an out-of-range Chop/Append on write, per spec.md §4.6's "fails with
// an 'invalid frame' error."
type InvalidFrameError struct{ Context string }

func (e InvalidFrameError) Error() string {
	return fmt.Sprintf("frame: invalid stack map frame: %s", e.Context)
}

// ReadStackMapTable reads a StackMapTable attribute body (u2
// number_of_entries, then that many stack_map_frame entries). Each frame's
// offset_delta is relative to the previous frame (or, for the first frame,
// an absolute bytecode offset); this function accumulates that running
// offset and mints a label at each frame's absolute position, so a
// RawFrame.At is directly comparable with instruction/catch/local-var
// labels.
func ReadStackMapTable(r io.Reader, cp *cpool.Reader, labels *label.Reader) ([]RawFrame, error) {
	count, err := stream.ReadU2(r)
	if err != nil {
		return nil, err
	}
	frames := make([]RawFrame, count)
	offset := -1 // so the first frame's delta is used as-is (offset = 0 + delta)
	for i := range frames {
		tag, err := stream.ReadU1(r)
		if err != nil {
			return nil, err
		}
		f, delta, err := readOneFrame(r, tag, cp)
		if err != nil {
			return nil, err
		}
		offset += int(delta) + 1
		f.At = labels.Label(offset)
		frames[i] = f
	}
	return frames, nil
}

func readOneFrame(r io.Reader, tag uint8, cp *cpool.Reader) (RawFrame, uint16, error) {
	switch {
	case tag <= 63:
		return RawFrame{Kind: Same}, uint16(tag), nil
	case tag <= 127:
		stk, err := readVerificationType(r, cp)
		if err != nil {
			return RawFrame{}, 0, err
		}
		return RawFrame{Kind: SameLocalsOneStack, Stack: []VerificationType{stk}}, uint16(tag - 64), nil
	case tag <= 246:
		return RawFrame{}, 0, InvalidFrameError{Context: fmt.Sprintf("reserved tag %d", tag)}
	case tag == 247:
		delta, err := stream.ReadU2(r)
		if err != nil {
			return RawFrame{}, 0, err
		}
		stk, err := readVerificationType(r, cp)
		if err != nil {
			return RawFrame{}, 0, err
		}
		return RawFrame{Kind: SameLocalsOneStack, Stack: []VerificationType{stk}}, delta, nil
	case tag <= 250:
		delta, err := stream.ReadU2(r)
		if err != nil {
			return RawFrame{}, 0, err
		}
		return RawFrame{Kind: Chop, ChopCount: int(251 - tag)}, delta, nil
	case tag == 251:
		delta, err := stream.ReadU2(r)
		if err != nil {
			return RawFrame{}, 0, err
		}
		return RawFrame{Kind: Same}, delta, nil
	case tag <= 254:
		delta, err := stream.ReadU2(r)
		if err != nil {
			return RawFrame{}, 0, err
		}
		n := int(tag - 251)
		locals := make([]VerificationType, n)
		for i := range locals {
			v, err := readVerificationType(r, cp)
			if err != nil {
				return RawFrame{}, 0, err
			}
			locals[i] = v
		}
		return RawFrame{Kind: Append, Locals: locals}, delta, nil
	default: // 255
		delta, err := stream.ReadU2(r)
		if err != nil {
			return RawFrame{}, 0, err
		}
		nLocals, err := stream.ReadU2(r)
		if err != nil {
			return RawFrame{}, 0, err
		}
		locals := make([]VerificationType, nLocals)
		for i := range locals {
			v, err := readVerificationType(r, cp)
			if err != nil {
				return RawFrame{}, 0, err
			}
			locals[i] = v
		}
		nStack, err := stream.ReadU2(r)
		if err != nil {
			return RawFrame{}, 0, err
		}
		stack := make([]VerificationType, nStack)
		for i := range stack {
			v, err := readVerificationType(r, cp)
			if err != nil {
				return RawFrame{}, 0, err
			}
			stack[i] = v
		}
		return RawFrame{Kind: Full, Locals: locals, Stack: stack}, delta, nil
	}
}

func readVerificationType(r io.Reader, cp *cpool.Reader) (VerificationType, error) {
	tag, err := stream.ReadU1(r)
	if err != nil {
		return VerificationType{}, err
	}
	switch VerificationTypeTag(tag) {
	case Object:
		idx, err := stream.ReadU2(r)
		if err != nil {
			return VerificationType{}, err
		}
		e, ok := cp.ReadRaw(idx)
		if !ok {
			return VerificationType{}, cpool.InvalidIndexError(idx)
		}
		class, ok := e.(cpool.Class)
		if !ok {
			return VerificationType{}, cpool.InvalidTagError(e.Tag())
		}
		nameEntry, ok := cp.ReadRaw(class.NameIndex)
		if !ok {
			return VerificationType{}, cpool.InvalidIndexError(class.NameIndex)
		}
		name, ok := nameEntry.(cpool.UTF8)
		if !ok {
			return VerificationType{}, cpool.InvalidTagError(nameEntry.Tag())
		}
		return VerificationType{Tag: Object, Class: name.Value}, nil
	case UninitializedVariable:
		off, err := stream.ReadU2(r)
		if err != nil {
			return VerificationType{}, err
		}
		return VerificationType{Tag: UninitializedVariable, New: label.ID(off)}, nil
	default:
		return VerificationType{Tag: VerificationTypeTag(tag)}, nil
	}
}

// WriteStackMapTable writes a StackMapTable attribute body. frames must be
// in ascending absolute-offset order; resolve converts a label id to its
// final absolute byte offset, same as attr.WriteLocalVarRows.
func WriteStackMapTable(w io.Writer, cp *cpool.Writer, resolve func(label.ID) (uint16, error), frames []RawFrame) error {
	if err := stream.WriteU2(w, uint16(len(frames))); err != nil {
		return err
	}
	prev := -1
	for _, f := range frames {
		abs, err := resolve(f.At)
		if err != nil {
			return err
		}
		delta := int(abs) - prev - 1
		prev = int(abs)
		if delta < 0 {
			return InvalidFrameError{Context: "frames must be in ascending offset order"}
		}
		if err := writeOneFrame(w, cp, f, uint16(delta)); err != nil {
			return err
		}
	}
	return nil
}

func writeOneFrame(w io.Writer, cp *cpool.Writer, f RawFrame, delta uint16) error {
	switch f.Kind {
	case Same:
		if delta <= 63 {
			return stream.WriteU1(w, uint8(delta))
		}
		if err := stream.WriteU1(w, 251); err != nil {
			return err
		}
		return stream.WriteU2(w, delta)
	case SameLocalsOneStack:
		if len(f.Stack) != 1 {
			return InvalidFrameError{Context: "SameLocalsOneStack requires exactly one stack entry"}
		}
		if delta <= 63 {
			if err := stream.WriteU1(w, uint8(64+delta)); err != nil {
				return err
			}
			return writeVerificationType(w, cp, f.Stack[0])
		}
		if err := stream.WriteU1(w, 247); err != nil {
			return err
		}
		if err := stream.WriteU2(w, delta); err != nil {
			return err
		}
		return writeVerificationType(w, cp, f.Stack[0])
	case Chop:
		if f.ChopCount < 1 || f.ChopCount > 3 {
			return InvalidFrameError{Context: "chop count must be 1..3"}
		}
		if err := stream.WriteU1(w, uint8(251-f.ChopCount)); err != nil {
			return err
		}
		return stream.WriteU2(w, delta)
	case Append:
		if len(f.Locals) < 1 || len(f.Locals) > 3 {
			return InvalidFrameError{Context: "append locals must be 1..3"}
		}
		if err := stream.WriteU1(w, uint8(251+len(f.Locals))); err != nil {
			return err
		}
		if err := stream.WriteU2(w, delta); err != nil {
			return err
		}
		for _, v := range f.Locals {
			if err := writeVerificationType(w, cp, v); err != nil {
				return err
			}
		}
		return nil
	case Full:
		if err := stream.WriteU1(w, 255); err != nil {
			return err
		}
		if err := stream.WriteU2(w, delta); err != nil {
			return err
		}
		if err := stream.WriteU2(w, uint16(len(f.Locals))); err != nil {
			return err
		}
		for _, v := range f.Locals {
			if err := writeVerificationType(w, cp, v); err != nil {
				return err
			}
		}
		if err := stream.WriteU2(w, uint16(len(f.Stack))); err != nil {
			return err
		}
		for _, v := range f.Stack {
			if err := writeVerificationType(w, cp, v); err != nil {
				return err
			}
		}
		return nil
	}
	return InvalidFrameError{Context: "unknown frame kind"}
}

func writeVerificationType(w io.Writer, cp *cpool.Writer, v VerificationType) error {
	if err := stream.WriteU1(w, uint8(v.Tag)); err != nil {
		return err
	}
	switch v.Tag {
	case Object:
		nameIdx := cp.InsertRaw(cpool.UTF8{Value: v.Class})
		classIdx := cp.InsertRaw(cpool.Class{NameIndex: nameIdx})
		return stream.WriteU2(w, classIdx)
	case UninitializedVariable:
		return stream.WriteU2(w, uint16(v.New))
	}
	return nil
}
