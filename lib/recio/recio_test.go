package recio

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var order = binary.LittleEndian

// payload encodes vals back to back with no framing.
func payload(t *testing.T, vals ...interface{}) []byte {
	buf := &bytes.Buffer{ }
	for _, v := range vals {
		require.NoError(t, binary.Write(buf, order, v))
	}
	return buf.Bytes()
}

// stream frames each payload as one logical record and returns a
// seekable reader over the result.
func stream(t *testing.T, payloads ...[]byte) *bytes.Reader {
	buf := &bytes.Buffer{ }
	for _, p := range payloads {
		require.NoError(t, WriteRecord(buf, order, p))
	}
	return bytes.NewReader(buf.Bytes())
}

var testAttrs = []Attr{
	{ "ncpu", 1, Int32 },
	{ "levels", 3, Int32 },
	{ "gamma", 1, Float64 },
	{ "ordering", 8, Char },
}

func TestReadAttrsRoundTrip(t *testing.T) {
	p := payload(t,
		int32(64), []int32{ 4, 8, 15 }, float64(1.4),
		[]byte("hilbert\x00"),
	)
	rd := stream(t, p)

	hd, err := ReadAttrs(rd, order, testAttrs)
	require.NoError(t, err)

	assert.Equal(t, int64(64), hd.Int("ncpu"))
	assert.Equal(t, []int64{ 4, 8, 15 }, hd.Ints("levels"))
	assert.Equal(t, 1.4, hd.Float("gamma"))
	assert.Equal(t, "hilbert", hd.Str("ordering"))

	// Exactly the declared record was consumed, nothing more.
	assert.Equal(t, 0, rd.Len())
}

func TestReadAttrsBigEndian(t *testing.T) {
	be := binary.BigEndian
	buf := &bytes.Buffer{ }
	p := &bytes.Buffer{ }
	require.NoError(t, binary.Write(p, be, int32(7)))
	require.NoError(t, WriteRecord(buf, be, p.Bytes()))

	hd, err := ReadAttrs(
		bytes.NewReader(buf.Bytes()), be,
		[]Attr{ { "nvar", 1, Int32 } },
	)
	require.NoError(t, err)
	assert.Equal(t, int64(7), hd.Int("nvar"))
}

func TestReadAttrsFormatErrors(t *testing.T) {
	good := payload(t,
		int32(64), []int32{ 4, 8, 15 }, float64(1.4),
		[]byte("hilbert\x00"),
	)

	tests := []struct {
		name   string
		mutate func(b []byte) []byte
	}{
		{ "trailing marker mismatch", func(b []byte) []byte {
			order.PutUint32(b[len(b)-4:], 999)
			return b
		} },
		{ "leading marker mismatch", func(b []byte) []byte {
			order.PutUint32(b[:4], uint32(len(good))+4)
			return b
		} },
		{ "truncated payload", func(b []byte) []byte {
			return b[:len(b)/2]
		} },
		{ "truncated trailing marker", func(b []byte) []byte {
			return b[:len(b)-2]
		} },
		{ "empty stream", func(b []byte) []byte {
			return nil
		} },
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			buf := &bytes.Buffer{ }
			require.NoError(t, WriteRecord(buf, order, good))
			b := test.mutate(buf.Bytes())

			_, err := ReadAttrs(bytes.NewReader(b), order, testAttrs)
			require.Error(t, err)
			assert.True(t, IsFormat(err), "expected a FormatError, got %v", err)
		})
	}
}

func TestReadAttrsSpecSizeMismatch(t *testing.T) {
	// The record holds a valid 5-byte payload, but the spec describes
	// 4 bytes.
	rd := stream(t, []byte{ 1, 2, 3, 4, 5 })
	_, err := ReadAttrs(rd, order, []Attr{ { "n", 1, Int32 } })
	require.Error(t, err)
	assert.True(t, IsFormat(err))
}

func TestCheckAttrs(t *testing.T) {
	tests := []struct {
		name  string
		attrs []Attr
	}{
		{ "empty spec", []Attr{ } },
		{ "duplicate names", []Attr{
			{ "ncpu", 1, Int32 }, { "ncpu", 1, Int32 },
		} },
		{ "zero count", []Attr{ { "ncpu", 0, Int32 } } },
		{ "negative count", []Attr{ { "ncpu", -3, Int32 } } },
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Error(t, CheckAttrs(test.attrs))
		})
	}

	assert.NoError(t, CheckAttrs(testAttrs))
}

func TestSkipRecordsComposes(t *testing.T) {
	payloads := [][]byte{
		payload(t, int32(1)),
		payload(t, []float64{ 1, 2, 3 }),
		payload(t, []byte("abcdefg")),
		payload(t, int64(-4)),
		payload(t, []int32{ 9, 9, 9, 9 }),
	}

	split := stream(t, payloads...)
	require.NoError(t, SkipRecords(split, order, 2))
	require.NoError(t, SkipRecords(split, order, 3))
	splitPos, err := split.Seek(0, io.SeekCurrent)
	require.NoError(t, err)

	whole := stream(t, payloads...)
	require.NoError(t, SkipRecords(whole, order, 5))
	wholePos, err := whole.Seek(0, io.SeekCurrent)
	require.NoError(t, err)

	assert.Equal(t, wholePos, splitPos)
	assert.Equal(t, 0, whole.Len())
}

func TestSkipRecordsTruncated(t *testing.T) {
	// The second record declares 100 bytes the stream doesn't have.
	buf := &bytes.Buffer{ }
	require.NoError(t, WriteRecord(buf, order, payload(t, int32(3))))
	require.NoError(t, binary.Write(buf, order, int32(100)))
	buf.Write([]byte{ 1, 2, 3 })

	err := SkipRecords(bytes.NewReader(buf.Bytes()), order, 2)
	require.Error(t, err)
	assert.True(t, IsFormat(err))
}

func TestSkipRecordsDetectsMidSequenceCorruption(t *testing.T) {
	buf := &bytes.Buffer{ }
	require.NoError(t, WriteRecord(buf, order, payload(t, int32(1))))
	require.NoError(t, WriteRecord(buf, order, payload(t, int32(2))))
	require.NoError(t, WriteRecord(buf, order, payload(t, int32(3))))

	// Corrupt the trailing marker of the third record only.
	b := buf.Bytes()
	order.PutUint32(b[len(b)-4:], 77)

	err := SkipRecords(bytes.NewReader(b), order, 3)
	require.Error(t, err)
	assert.True(t, IsFormat(err))
}

func TestNextRecordSpans(t *testing.T) {
	payloads := [][]byte{
		make([]byte, 16),
		make([]byte, 8),
		make([]byte, 24),
	}
	rd := stream(t, payloads...)

	wantOffset := int64(4)
	for i := range payloads {
		off, n, err := NextRecord(rd, order)
		require.NoError(t, err)
		assert.Equal(t, wantOffset, off, "record %d offset", i)
		assert.Equal(t, int64(len(payloads[i])), n, "record %d length", i)
		wantOffset += n + 8
	}

	_, _, err := NextRecord(rd, order)
	require.Error(t, err)
	assert.True(t, IsFormat(err))
}
