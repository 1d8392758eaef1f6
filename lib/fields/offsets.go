package fields

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"snapfields/lib/recio"
)

// FieldKey identifies one field within one field namespace. Handler
// variants sharing a file never collide because FType differs.
type FieldKey struct {
	FType string
	Name  string
}

// FieldLoc records where a field's payload begins and how to decode
// it: the absolute byte offset of its first element, the element
// type, and the element count.
type FieldLoc struct {
	Offset int64
	Type   recio.ElemType
	Count  int
}

// OffsetTable maps FieldKeys to their locations within one domain
// file, preserving the order in which the fields were located. It is
// built once per domain file and immutable afterwards, so it may be
// shared read-only across threads.
type OffsetTable struct {
	keys []FieldKey
	locs map[FieldKey]FieldLoc
}

func newOffsetTable(n int) *OffsetTable {
	return &OffsetTable{
		keys: make([]FieldKey, 0, n),
		locs: make(map[FieldKey]FieldLoc, n),
	}
}

// Len returns the number of fields in the table.
func (t *OffsetTable) Len() int { return len(t.keys) }

// Keys returns the field keys in the order their offsets were
// resolved. The returned slice is a copy.
func (t *OffsetTable) Keys() []FieldKey {
	out := make([]FieldKey, len(t.keys))
	copy(out, t.keys)
	return out
}

// Lookup returns the location of the field k, and whether the table
// contains it.
func (t *OffsetTable) Lookup(k FieldKey) (FieldLoc, bool) {
	loc, ok := t.locs[k]
	return loc, ok
}

// add appends one field's location. Offsets must strictly increase in
// insertion order and keys must be unique.
func (t *OffsetTable) add(k FieldKey, loc FieldLoc) error {
	if _, ok := t.locs[k]; ok {
		return recio.Formatf("field (%s, %s) was located twice", k.FType, k.Name)
	}
	if n := len(t.keys); n > 0 {
		if prev := t.locs[t.keys[n-1]]; loc.Offset <= prev.Offset {
			return recio.Formatf("field (%s, %s) begins at byte %d, before "+
				"or at the previous field's offset %d",
				k.FType, k.Name, loc.Offset, prev.Offset)
		}
	}
	t.keys = append(t.keys, k)
	t.locs[k] = loc
	return nil
}

// ResolveOffsets walks the logical records following a domain file's
// header, one record per field, and returns the byte offset table for
// fieldNames. Every field record of one file stores the same uniform
// per-cell block, so all payloads must share one length; the first
// record fixes it and any later disagreement is a FormatError, as is
// the stream ending before every field is located.
func ResolveOffsets(
	f io.ReadSeeker, order binary.ByteOrder,
	ftype string, fieldNames []string, typ recio.ElemType,
) (*OffsetTable, error) {
	tab := newOffsetTable(len(fieldNames))
	blockLen := int64(-1)

	for i, name := range fieldNames {
		off, n, err := recio.NextRecord(f, order)
		if err != nil {
			return nil, errors.Wrapf(err, "locating field '%s' (%d of %d)",
				name, i+1, len(fieldNames))
		}

		if n%int64(typ.Size()) != 0 {
			return nil, recio.Formatf("the record of field '%s' has %d "+
				"bytes, which is not a whole number of %s elements",
				name, n, typ)
		}
		if blockLen == -1 { blockLen = n }
		if n != blockLen {
			return nil, recio.Formatf("the record of field '%s' has %d "+
				"bytes where the preceding fields had %d", name, n, blockLen)
		}

		loc := FieldLoc{ Offset: off, Type: typ, Count: int(n) / typ.Size() }
		if err := tab.add(FieldKey{ ftype, name }, loc); err != nil {
			return nil, err
		}
	}

	return tab, nil
}
