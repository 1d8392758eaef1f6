/*package recio navigates "unformatted sequential" binary streams: a
sequence of logical records, each wrapped by a leading and a trailing
int32 giving the record's payload length in bytes. RAMSES-family
simulation codes write all their outputs this way. The package knows
nothing about physics; it only frames records, decodes fixed-layout
header specs, and reports where record payloads live so callers can
seek to them later.
*/
package recio

import (
	"encoding/binary"
	stderrors "errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// markerSize is the width of the leading/trailing record length
// markers. It is fixed for every supported format.
const markerSize = 4

// ElemType identifies the element type of a header attribute or of a
// field block.
type ElemType byte

const (
	Int32 ElemType = iota
	Int64
	Float32
	Float64
	Char
)

// Size returns the number of bytes one element of type t occupies on
// disk.
func (t ElemType) Size() int {
	switch t {
	case Int32, Float32:
		return 4
	case Int64, Float64:
		return 8
	case Char:
		return 1
	}
	panic(fmt.Sprintf("Internal error: unrecognized ElemType, %d", t))
}

func (t ElemType) String() string {
	switch t {
	case Int32: return "int32"
	case Int64: return "int64"
	case Float32: return "float32"
	case Float64: return "float64"
	case Char: return "char"
	}
	return fmt.Sprintf("ElemType(%d)", t)
}

// FormatError reports a structural violation in a snapshot file:
// mismatched record length markers, a truncated stream, or a header
// whose declared size disagrees with its spec. It is always a hard
// failure for the file it came from.
type FormatError struct {
	msg string
}

func (e *FormatError) Error() string { return e.msg }

// Formatf creates a FormatError. It has the same signature as the
// standard fmt.*printf() functions.
func Formatf(format string, a ...interface{}) error {
	return &FormatError{ fmt.Sprintf(format, a...) }
}

// IsFormat reports whether any error in err's chain is a FormatError.
func IsFormat(err error) bool {
	var fe *FormatError
	return stderrors.As(err, &fe)
}

// Attr declares one attribute of a fixed-layout header record: its
// name, how many elements it repeats for, and the element type.
// A header spec is an ordered []Attr.
type Attr struct {
	Name  string
	Count int
	Type  ElemType
}

// size returns the number of payload bytes the attribute occupies.
func (a Attr) size() int { return a.Count * a.Type.Size() }

// Header maps the names of a header spec to their decoded values.
// Integer attributes decode to int64 (or []int64 when Count > 1),
// floating-point attributes to float64 (or []float64), and char runs
// to NUL-trimmed strings. A Header is immutable once returned.
type Header map[string]interface{}

// Int returns the named attribute as an integer. Specs are fixed at
// compile time, so a missing or mistyped name is a programming error
// and returns 0 rather than failing.
func (h Header) Int(name string) int64 {
	v, _ := h[name].(int64)
	return v
}

// Float returns the named attribute as a float.
func (h Header) Float(name string) float64 {
	v, _ := h[name].(float64)
	return v
}

// Ints returns the named repeated integer attribute.
func (h Header) Ints(name string) []int64 {
	v, _ := h[name].([]int64)
	return v
}

// Floats returns the named repeated float attribute.
func (h Header) Floats(name string) []float64 {
	v, _ := h[name].([]float64)
	return v
}

// Str returns the named char attribute.
func (h Header) Str(name string) string {
	v, _ := h[name].(string)
	return v
}

// CheckAttrs returns nil if attrs is a valid header spec: at least
// one attribute, unique names, and positive repeat counts.
func CheckAttrs(attrs []Attr) error {
	if len(attrs) == 0 {
		return errors.New("header spec declares no attributes")
	}
	names := make([]string, len(attrs))
	for i := range attrs {
		if attrs[i].Count < 1 {
			return errors.Errorf("attribute '%s' declares repeat count %d, "+
				"but counts must be at least 1", attrs[i].Name, attrs[i].Count)
		}
		names[i] = attrs[i].Name
	}
	if s, ok := containsDuplicates(names); ok {
		return errors.Errorf("'%s' occurs multiple times in the header "+
			"spec %s", s, names)
	}
	return nil
}

// containsDuplicates tests whether any strings show up multiple
// times. If so, it returns one of those strings and true, otherwise
// an empty string and false.
func containsDuplicates(s []string) (string, bool) {
	sSort := make([]string, len(s))
	copy(sSort, s)
	sort.Strings(sSort)
	for i := 1; i < len(sSort); i++ {
		if sSort[i] == sSort[i-1] { return sSort[i], true }
	}
	return "", false
}

// ReadAttrs reads one full logical record from f and decodes it as
// the fixed-layout header described by attrs, in order. The record's
// declared length must equal the summed size of the spec and its
// leading and trailing markers must agree; anything else is a
// FormatError and no Header is returned.
func ReadAttrs(
	f io.Reader, order binary.ByteOrder, attrs []Attr,
) (Header, error) {
	if err := CheckAttrs(attrs); err != nil { return nil, err }

	want := 0
	for i := range attrs { want += attrs[i].size() }

	n, err := readMarker(f, order)
	if err != nil { return nil, err }
	if int(n) != want {
		return nil, Formatf("header record declares %d bytes, but its "+
			"spec describes %d bytes", n, want)
	}

	hd := Header{ }
	for _, a := range attrs {
		v, err := readValue(f, order, a)
		if err != nil {
			return nil, errors.Wrapf(err, "attribute '%s'", a.Name)
		}
		hd[a.Name] = v
	}

	m, err := readMarker(f, order)
	if err != nil { return nil, err }
	if m != n {
		return nil, Formatf("header record markers disagree: leading %d, "+
			"trailing %d", n, m)
	}

	return hd, nil
}

// NextRecord reads the framing of the next logical record, returning
// the byte offset and length of its payload. The cursor is left just
// past the record's trailing marker, so the payload itself is never
// materialized. Declared lengths running past the end of the stream
// and mismatched markers are FormatErrors.
func NextRecord(
	f io.ReadSeeker, order binary.ByteOrder,
) (offset, length int64, err error) {
	n, err := readMarker(f, order)
	if err != nil { return 0, 0, err }

	offset, err = f.Seek(0, io.SeekCurrent)
	if err != nil { return 0, 0, err }

	if _, err = f.Seek(int64(n), io.SeekCurrent); err != nil {
		return 0, 0, Formatf("cannot seek past a %d-byte record "+
			"payload: %v", n, err)
	}

	m, err := readMarker(f, order)
	if err != nil { return 0, 0, err }
	if m != n {
		return 0, 0, Formatf("record markers disagree: leading %d, "+
			"trailing %d", n, m)
	}

	return offset, int64(n), nil
}

// SkipRecords advances past n logical records using only their length
// markers. A truncated or malformed record anywhere in the run is a
// FormatError.
func SkipRecords(f io.ReadSeeker, order binary.ByteOrder, n int) error {
	for i := 0; i < n; i++ {
		if _, _, err := NextRecord(f, order); err != nil {
			return errors.Wrapf(err, "skipping record %d of %d", i+1, n)
		}
	}
	return nil
}

// WriteRecord frames payload as one logical record on w: leading
// marker, payload, trailing marker. It is the write-side mirror of
// NextRecord; converters and tests use it to build streams that
// ReadAttrs and SkipRecords accept.
func WriteRecord(w io.Writer, order binary.ByteOrder, payload []byte) error {
	n := int32(len(payload))
	if err := binary.Write(w, order, n); err != nil { return err }
	if _, err := w.Write(payload); err != nil { return err }
	return binary.Write(w, order, n)
}

// readMarker reads one record length marker. Failure to read a full
// marker means the stream ended inside a record's framing.
func readMarker(f io.Reader, order binary.ByteOrder) (int32, error) {
	var n int32
	if err := binary.Read(f, order, &n); err != nil {
		return 0, Formatf("truncated stream: expected a record length "+
			"marker: %v", err)
	}
	if n < 0 {
		return 0, Formatf("negative record length marker %d", n)
	}
	return n, nil
}

// readValue decodes one attribute's payload bytes.
func readValue(
	f io.Reader, order binary.ByteOrder, a Attr,
) (interface{}, error) {
	fail := func(err error) error {
		return Formatf("truncated stream inside a %d-element %s "+
			"attribute: %v", a.Count, a.Type, err)
	}

	switch a.Type {
	case Int32:
		buf := make([]int32, a.Count)
		if err := binary.Read(f, order, buf); err != nil { return nil, fail(err) }
		if a.Count == 1 { return int64(buf[0]), nil }
		out := make([]int64, len(buf))
		for i := range buf { out[i] = int64(buf[i]) }
		return out, nil
	case Int64:
		buf := make([]int64, a.Count)
		if err := binary.Read(f, order, buf); err != nil { return nil, fail(err) }
		if a.Count == 1 { return buf[0], nil }
		return buf, nil
	case Float32:
		buf := make([]float32, a.Count)
		if err := binary.Read(f, order, buf); err != nil { return nil, fail(err) }
		if a.Count == 1 { return float64(buf[0]), nil }
		out := make([]float64, len(buf))
		for i := range buf { out[i] = float64(buf[i]) }
		return out, nil
	case Float64:
		buf := make([]float64, a.Count)
		if err := binary.Read(f, order, buf); err != nil { return nil, fail(err) }
		if a.Count == 1 { return buf[0], nil }
		return buf, nil
	case Char:
		buf := make([]byte, a.Count)
		if _, err := io.ReadFull(f, buf); err != nil { return nil, fail(err) }
		return strings.TrimRight(string(buf), "\x00 "), nil
	}

	return nil, errors.Errorf("attribute '%s' has unrecognized element "+
		"type %d", a.Name, a.Type)
}
