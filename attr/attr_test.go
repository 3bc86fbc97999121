package attr

import (
	"bytes"
	"testing"

	"github.com/go-classfile/coffer/cpool"
	"github.com/go-classfile/coffer/label"
	"github.com/stretchr/testify/require"
)

func TestMergeSplitRoundTrip(t *testing.T) {
	desc := []LocalVarRow{{Start: 0, End: 10, Index: 2, Name: "x", Value: "I"}}
	sig := []LocalVarRow{{Start: 0, End: 10, Index: 2, Name: "x", Value: "TT;"}}

	merged := MergeLocalVars(desc, sig)
	require.Len(t, merged, 1)
	require.Equal(t, "I", merged[0].Descriptor)
	require.Equal(t, "TT;", merged[0].Signature)

	gotDesc, gotSig, err := SplitLocalVars(merged)
	require.NoError(t, err)
	require.Equal(t, desc, gotDesc)
	require.Equal(t, sig, gotSig)
}

func TestMergeDescriptorOnly(t *testing.T) {
	desc := []LocalVarRow{{Start: 0, End: 5, Index: 1, Name: "y", Value: "J"}}
	merged := MergeLocalVars(desc, nil)
	require.Len(t, merged, 1)
	require.Equal(t, "J", merged[0].Descriptor)
	require.Empty(t, merged[0].Signature)
}

func TestSplitRejectsEmptyLocalVar(t *testing.T) {
	_, _, err := SplitLocalVars([]LocalVar{{Name: "z"}})
	require.Error(t, err)
	var invalid InvalidLocalVarError
	require.ErrorAs(t, err, &invalid)
}

func TestReadWriteLocalVarRows(t *testing.T) {
	cpr := cpool.NewWriter()
	lw := label.NewWriter()
	lw.Mark(0, 0, 0)
	lw.Mark(1, 0, 10)
	resolve := func(id label.ID) (uint16, error) {
		pos, ok := lw.Resolve(id)
		if !ok {
			return 0, label.UnresolvedLabelError(id)
		}
		return uint16(pos.Offset), nil
	}
	rows := []LocalVarRow{{Start: 0, End: 1, Index: 2, Name: "x", Value: "I"}}

	var buf bytes.Buffer
	require.NoError(t, WriteLocalVarRows(&buf, cpr, resolve, rows))

	// Build a matching reader-side pool from the writer's entries.
	var poolBuf bytes.Buffer
	require.NoError(t, cpr.WriteTo(&poolBuf))
	cpReader, err := cpool.ReadFrom(&poolBuf)
	require.NoError(t, err)

	lr := label.NewReader()
	got, err := ReadLocalVarRows(&buf, cpReader, lr)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "x", got[0].Name)
	require.Equal(t, "I", got[0].Value)
	require.Equal(t, uint16(2), got[0].Index)
}
