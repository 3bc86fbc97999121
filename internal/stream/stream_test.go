package stream

import (
	"bytes"
	"fmt"
	"testing"
)

var u2Cases = []struct {
	v uint16
	b []byte
}{
	{0x0000, []byte{0x00, 0x00}},
	{0x0001, []byte{0x00, 0x01}},
	{0xBEEF, []byte{0xBE, 0xEF}},
	{0xFFFF, []byte{0xFF, 0xFF}},
}

func TestReadU2(t *testing.T) {
	for _, c := range u2Cases {
		t.Run(fmt.Sprint(c.v), func(t *testing.T) {
			v, err := ReadU2(bytes.NewReader(c.b))
			if err != nil {
				t.Fatal(err)
			}
			if v != c.v {
				t.Fatalf("got = %#x; want = %#x", v, c.v)
			}
		})
	}
}

func TestWriteU2(t *testing.T) {
	for _, c := range u2Cases {
		t.Run(fmt.Sprint(c.v), func(t *testing.T) {
			buf := new(bytes.Buffer)
			if err := WriteU2(buf, c.v); err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(buf.Bytes(), c.b) {
				t.Fatalf("got = %x; want = %x", buf.Bytes(), c.b)
			}
		})
	}
}

func TestReadU2Truncated(t *testing.T) {
	if _, err := ReadU2(bytes.NewReader([]byte{0x01})); err == nil {
		t.Fatal("expected error on truncated read")
	}
}

func TestReadI4Negative(t *testing.T) {
	v, err := ReadI4(bytes.NewReader([]byte{0xFF, 0xFF, 0xFF, 0xFF}))
	if err != nil {
		t.Fatal(err)
	}
	if v != -1 {
		t.Fatalf("got = %d; want = -1", v)
	}
}

func TestModifiedUTF8RoundTrip(t *testing.T) {
	nul := string([]byte{0})
	cases := []string{
		"",
		"hello world",
		nul,          // NUL -> two-byte form
		"café",       // two-byte char
		"中文",         // three-byte chars
		"\U0001F600", // supplementary plane -> surrogate pair (six bytes)
		"a b\U0001F601c",
	}
	for i, s := range cases {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			enc := EncodeModifiedUTF8(s)
			got, err := DecodeModifiedUTF8(enc)
			if err != nil {
				t.Fatal(err)
			}
			if got != s {
				t.Fatalf("got = %q; want = %q", got, s)
			}
		})
	}
}

func TestModifiedUTF8NulEncoding(t *testing.T) {
	enc := EncodeModifiedUTF8(string([]byte{0}))
	if !bytes.Equal(enc, []byte{0xC0, 0x80}) {
		t.Fatalf("got = %x; want = c0 80", enc)
	}
}

func TestModifiedUTF8SupplementaryIsSixBytes(t *testing.T) {
	enc := EncodeModifiedUTF8("\U0001F600")
	if len(enc) != 6 {
		t.Fatalf("got %d bytes; want 6", len(enc))
	}
}

func TestDecodeModifiedUTF8Truncated(t *testing.T) {
	if _, err := DecodeModifiedUTF8([]byte{0xE0, 0x80}); err != ErrTruncatedUTF8 {
		t.Fatalf("got = %v; want ErrTruncatedUTF8", err)
	}
}
