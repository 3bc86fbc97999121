package attr

import (
	"fmt"
	"io"

	"github.com/go-classfile/coffer/cpool"
	"github.com/go-classfile/coffer/internal/stream"
	"github.com/go-classfile/coffer/label"
)

// LocalVarRow is one row of a raw LocalVariableTable or
// LocalVariableTypeTable attribute, before the two tables are merged into
// LocalVar. Value holds the row's descriptor (for a LocalVariableTable row)
// or signature (for a LocalVariableTypeTable row) — the two attributes
// share an identical wire layout, differing only in which string the last
// field names.
type LocalVarRow struct {
	Start, End label.ID
	Index      uint16
	Name       string
	Value      string
}

// LocalVar is the merged high-level model of a local variable slot's
// lifetime: a single slot may be described by a LocalVariableTable entry
// (Descriptor), a LocalVariableTypeTable entry (Signature), or both: per
// spec.md §3, "the high-level model merges both."
type LocalVar struct {
	Start, End label.ID
	Index      uint16
	Name       string
	Descriptor string // "" if this slot has no descriptor entry
	Signature  string // "" if this slot has no signature entry
}

type localVarKey struct {
	start, end label.ID
	index      uint16
	name       string
}

// MergeLocalVars unifies descriptor rows (from LocalVariableTable) and
// signature rows (from LocalVariableTypeTable) keyed by
// (start, end, index, name), per spec.md §4.4 step 4's merge rule. Rows
// present in only one table produce a LocalVar with the other field empty.
func MergeLocalVars(descRows, sigRows []LocalVarRow) []LocalVar {
	order := make([]localVarKey, 0, len(descRows)+len(sigRows))
	byKey := make(map[localVarKey]*LocalVar)

	addRow := func(row LocalVarRow, descriptor bool) {
		k := localVarKey{row.Start, row.End, row.Index, row.Name}
		v, ok := byKey[k]
		if !ok {
			v = &LocalVar{Start: row.Start, End: row.End, Index: row.Index, Name: row.Name}
			byKey[k] = v
			order = append(order, k)
		}
		if descriptor {
			v.Descriptor = row.Value
		} else {
			v.Signature = row.Value
		}
	}
	for _, r := range descRows {
		addRow(r, true)
	}
	for _, r := range sigRows {
		addRow(r, false)
	}

	out := make([]LocalVar, len(order))
	for i, k := range order {
		out[i] = *byKey[k]
	}
	return out
}

// InvalidLocalVarError is returned by SplitLocalVars when a LocalVar has
// neither a descriptor nor a signature, which spec.md §4.5 calls out as
// failing with "an 'invalid local variable' error."
type InvalidLocalVarError struct{ Name string }

func (e InvalidLocalVarError) Error() string {
	return fmt.Sprintf("attr: local variable %q has neither a descriptor nor a signature", e.Name)
}

// SplitLocalVars is the write-side inverse of MergeLocalVars: every LocalVar
// with a Descriptor contributes a row to descRows, every one with a
// Signature contributes a row to sigRows. A LocalVar with both contributes
// to both tables, per spec.md §8's testable property.
func SplitLocalVars(vars []LocalVar) (descRows, sigRows []LocalVarRow, err error) {
	for _, v := range vars {
		if v.Descriptor == "" && v.Signature == "" {
			return nil, nil, InvalidLocalVarError{Name: v.Name}
		}
		if v.Descriptor != "" {
			descRows = append(descRows, LocalVarRow{v.Start, v.End, v.Index, v.Name, v.Descriptor})
		}
		if v.Signature != "" {
			sigRows = append(sigRows, LocalVarRow{v.Start, v.End, v.Index, v.Name, v.Signature})
		}
	}
	return descRows, sigRows, nil
}

// ReadLocalVarRows reads the body of a LocalVariableTable or
// LocalVariableTypeTable attribute (u2 count, then that many
// {start_pc, length, name_index, descriptor_or_signature_index, index}
// rows). labels mints label ids for start_pc and start_pc+length, the same
// byte-offset coordinate space instruction jump targets use.
func ReadLocalVarRows(r io.Reader, cp *cpool.Reader, labels *label.Reader) ([]LocalVarRow, error) {
	count, err := stream.ReadU2(r)
	if err != nil {
		return nil, err
	}
	rows := make([]LocalVarRow, count)
	for i := range rows {
		startPC, err := stream.ReadU2(r)
		if err != nil {
			return nil, err
		}
		length, err := stream.ReadU2(r)
		if err != nil {
			return nil, err
		}
		nameIdx, err := stream.ReadU2(r)
		if err != nil {
			return nil, err
		}
		valueIdx, err := stream.ReadU2(r)
		if err != nil {
			return nil, err
		}
		index, err := stream.ReadU2(r)
		if err != nil {
			return nil, err
		}
		name, err := utf8At(cp, nameIdx)
		if err != nil {
			return nil, err
		}
		value, err := utf8At(cp, valueIdx)
		if err != nil {
			return nil, err
		}
		rows[i] = LocalVarRow{
			Start: labels.Label(int(startPC)),
			End:   labels.Label(int(startPC) + int(length)),
			Index: index,
			Name:  name,
			Value: value,
		}
	}
	return rows, nil
}

func utf8At(cp *cpool.Reader, idx uint16) (string, error) {
	e, ok := cp.ReadRaw(idx)
	if !ok {
		return "", cpool.InvalidIndexError(idx)
	}
	u, ok := e.(cpool.UTF8)
	if !ok {
		return "", cpool.InvalidTagError(e.Tag())
	}
	return u.Value, nil
}

// WriteLocalVarRows writes a LocalVariableTable/LocalVariableTypeTable
// attribute body. resolve converts a label id to its final absolute byte
// offset in the assembled code array (known only after the Code codec's
// write-path Pass C has fixed every segment's start).
func WriteLocalVarRows(w io.Writer, cp *cpool.Writer, resolve func(label.ID) (uint16, error), rows []LocalVarRow) error {
	if err := stream.WriteU2(w, uint16(len(rows))); err != nil {
		return err
	}
	for _, row := range rows {
		start, err := resolve(row.Start)
		if err != nil {
			return err
		}
		end, err := resolve(row.End)
		if err != nil {
			return err
		}
		if err := stream.WriteU2(w, start); err != nil {
			return err
		}
		if err := stream.WriteU2(w, end-start); err != nil {
			return err
		}
		if err := stream.WriteU2(w, cp.InsertRaw(cpool.UTF8{Value: row.Name})); err != nil {
			return err
		}
		if err := stream.WriteU2(w, cp.InsertRaw(cpool.UTF8{Value: row.Value})); err != nil {
			return err
		}
		if err := stream.WriteU2(w, row.Index); err != nil {
			return err
		}
	}
	return nil
}
