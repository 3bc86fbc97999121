package frame

import (
	"bytes"
	"testing"

	"github.com/go-classfile/coffer/cpool"
	"github.com/go-classfile/coffer/label"
	"github.com/stretchr/testify/require"
)

func resolverFor(lw *label.Writer) func(label.ID) (uint16, error) {
	return func(id label.ID) (uint16, error) {
		pos, ok := lw.Resolve(id)
		if !ok {
			return 0, label.UnresolvedLabelError(id)
		}
		return uint16(pos.Offset), nil
	}
}

func TestSameFrameRoundTrip(t *testing.T) {
	cpw := cpool.NewWriter()
	lw := label.NewWriter()
	lw.Mark(0, 0, 20)
	frames := []RawFrame{{Kind: Same, At: 0}}

	var buf bytes.Buffer
	require.NoError(t, WriteStackMapTable(&buf, cpw, resolverFor(lw), frames))

	var poolBuf bytes.Buffer
	require.NoError(t, cpw.WriteTo(&poolBuf))
	cpr, err := cpool.ReadFrom(&poolBuf)
	require.NoError(t, err)

	lr := label.NewReader()
	got, err := ReadStackMapTable(&buf, cpr, lr)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, Same, got[0].Kind)
	require.Equal(t, 20, lr.Offsets()[got[0].At])
}

func TestChopRejectsOutOfRange(t *testing.T) {
	cpw := cpool.NewWriter()
	lw := label.NewWriter()
	lw.Mark(0, 0, 5)
	var buf bytes.Buffer
	err := WriteStackMapTable(&buf, cpw, resolverFor(lw), []RawFrame{{Kind: Chop, At: 0, ChopCount: 4}})
	require.Error(t, err)
	var invalid InvalidFrameError
	require.ErrorAs(t, err, &invalid)
}

func TestReadReservedTagFails(t *testing.T) {
	// one frame, tag=200 (reserved range 128..246)
	body := []byte{0x00, 0x01, 200}
	cpr, err := cpool.ReadFrom(bytes.NewReader([]byte{0x00, 0x01}))
	require.NoError(t, err)
	_, err = ReadStackMapTable(bytes.NewReader(body), cpr, label.NewReader())
	require.Error(t, err)
}

func TestFullFrameWithObjectVerificationType(t *testing.T) {
	cpw := cpool.NewWriter()
	lw := label.NewWriter()
	lw.Mark(0, 0, 30)
	frames := []RawFrame{{
		Kind:   Full,
		At:     0,
		Locals: []VerificationType{{Tag: Object, Class: "java/lang/String"}},
		Stack:  []VerificationType{{Tag: Integer}},
	}}
	var buf bytes.Buffer
	require.NoError(t, WriteStackMapTable(&buf, cpw, resolverFor(lw), frames))

	var poolBuf bytes.Buffer
	require.NoError(t, cpw.WriteTo(&poolBuf))
	cpr, err := cpool.ReadFrom(&poolBuf)
	require.NoError(t, err)

	got, err := ReadStackMapTable(&buf, cpr, label.NewReader())
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "java/lang/String", got[0].Locals[0].Class)
	require.Equal(t, Integer, got[0].Stack[0].Tag)
}
