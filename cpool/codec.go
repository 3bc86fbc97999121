package cpool

import (
	"io"

	"github.com/go-classfile/coffer/internal/stream"
)

// readEntry reads one tagged entry from r.
func readEntry(r io.Reader) (Entry, error) {
	tagByte, err := stream.ReadU1(r)
	if err != nil {
		return nil, err
	}
	switch Tag(tagByte) {
	case TagUTF8:
		n, err := stream.ReadU2(r)
		if err != nil {
			return nil, err
		}
		raw, err := stream.ReadBytes(r, int(n))
		if err != nil {
			return nil, err
		}
		s, err := stream.DecodeModifiedUTF8(raw)
		if err != nil {
			return nil, err
		}
		return UTF8{Value: s}, nil
	case TagInteger:
		v, err := stream.ReadI4(r)
		return Integer{Value: v}, err
	case TagFloat:
		v, err := stream.ReadU4(r)
		return Float{Bits: v}, err
	case TagLong:
		hi, err := stream.ReadU4(r)
		if err != nil {
			return nil, err
		}
		lo, err := stream.ReadU4(r)
		if err != nil {
			return nil, err
		}
		return Long{Value: int64(uint64(hi)<<32 | uint64(lo))}, nil
	case TagDouble:
		hi, err := stream.ReadU4(r)
		if err != nil {
			return nil, err
		}
		lo, err := stream.ReadU4(r)
		if err != nil {
			return nil, err
		}
		return Double{Bits: uint64(hi)<<32 | uint64(lo)}, nil
	case TagClass:
		v, err := stream.ReadU2(r)
		return Class{NameIndex: v}, err
	case TagString:
		v, err := stream.ReadU2(r)
		return String{StringIndex: v}, err
	case TagFieldref:
		c, n, err := readU2Pair(r)
		return Fieldref{ClassIndex: c, NameAndTypeIndex: n}, err
	case TagMethodref:
		c, n, err := readU2Pair(r)
		return Methodref{ClassIndex: c, NameAndTypeIndex: n}, err
	case TagInterfaceMethodref:
		c, n, err := readU2Pair(r)
		return InterfaceMethodref{ClassIndex: c, NameAndTypeIndex: n}, err
	case TagNameAndType:
		n, d, err := readU2Pair(r)
		return NameAndType{NameIndex: n, DescriptorIndex: d}, err
	case TagMethodHandle:
		kind, err := stream.ReadU1(r)
		if err != nil {
			return nil, err
		}
		idx, err := stream.ReadU2(r)
		return MethodHandle{ReferenceKind: kind, ReferenceIndex: idx}, err
	case TagMethodType:
		v, err := stream.ReadU2(r)
		return MethodType{DescriptorIndex: v}, err
	case TagDynamic:
		bsm, nt, err := readU2Pair(r)
		return Dynamic{BootstrapMethodAttrIndex: bsm, NameAndTypeIndex: nt}, err
	case TagInvokeDynamic:
		bsm, nt, err := readU2Pair(r)
		return InvokeDynamic{BootstrapMethodAttrIndex: bsm, NameAndTypeIndex: nt}, err
	case TagModule:
		v, err := stream.ReadU2(r)
		return Module{NameIndex: v}, err
	case TagPackage:
		v, err := stream.ReadU2(r)
		return Package{NameIndex: v}, err
	default:
		return nil, InvalidTagError(tagByte)
	}
}

func readU2Pair(r io.Reader) (uint16, uint16, error) {
	a, err := stream.ReadU2(r)
	if err != nil {
		return 0, 0, err
	}
	b, err := stream.ReadU2(r)
	return a, b, err
}

// writeEntry writes one tagged entry to w.
func writeEntry(w io.Writer, e Entry) error {
	if err := stream.WriteU1(w, uint8(e.Tag())); err != nil {
		return err
	}
	switch v := e.(type) {
	case UTF8:
		enc := stream.EncodeModifiedUTF8(v.Value)
		if err := stream.WriteU2(w, uint16(len(enc))); err != nil {
			return err
		}
		_, err := w.Write(enc)
		return err
	case Integer:
		return stream.WriteI4(w, v.Value)
	case Float:
		return stream.WriteU4(w, v.Bits)
	case Long:
		if err := stream.WriteU4(w, uint32(uint64(v.Value)>>32)); err != nil {
			return err
		}
		return stream.WriteU4(w, uint32(uint64(v.Value)))
	case Double:
		if err := stream.WriteU4(w, uint32(v.Bits>>32)); err != nil {
			return err
		}
		return stream.WriteU4(w, uint32(v.Bits))
	case Class:
		return stream.WriteU2(w, v.NameIndex)
	case String:
		return stream.WriteU2(w, v.StringIndex)
	case Fieldref:
		return writeU2Pair(w, v.ClassIndex, v.NameAndTypeIndex)
	case Methodref:
		return writeU2Pair(w, v.ClassIndex, v.NameAndTypeIndex)
	case InterfaceMethodref:
		return writeU2Pair(w, v.ClassIndex, v.NameAndTypeIndex)
	case NameAndType:
		return writeU2Pair(w, v.NameIndex, v.DescriptorIndex)
	case MethodHandle:
		if err := stream.WriteU1(w, v.ReferenceKind); err != nil {
			return err
		}
		return stream.WriteU2(w, v.ReferenceIndex)
	case MethodType:
		return stream.WriteU2(w, v.DescriptorIndex)
	case Dynamic:
		return writeU2Pair(w, v.BootstrapMethodAttrIndex, v.NameAndTypeIndex)
	case InvokeDynamic:
		return writeU2Pair(w, v.BootstrapMethodAttrIndex, v.NameAndTypeIndex)
	case Module:
		return stream.WriteU2(w, v.NameIndex)
	case Package:
		return stream.WriteU2(w, v.NameIndex)
	default:
		return InvalidTagError(uint8(e.Tag()))
	}
}

func writeU2Pair(w io.Writer, a, b uint16) error {
	if err := stream.WriteU2(w, a); err != nil {
		return err
	}
	return stream.WriteU2(w, b)
}
