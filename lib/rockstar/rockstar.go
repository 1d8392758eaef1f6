/*package rockstar reads Rockstar halo-catalog binaries. Unlike the
record-framed snapshot formats, a catalog chunk is one packed 256-byte
header followed directly by a flat array of fixed-size halo records,
so halo k begins at HeaderSize + k*recordSize and no offset resolution
is needed. Validity is decided by the header's magic number alone.
*/
package rockstar

import (
	"encoding/binary"
	"os"
	"strings"

	"github.com/pkg/errors"

	"snapfields/lib/recio"
)

const (
	// Magic is the value of the first eight bytes of every Rockstar
	// binary catalog header.
	Magic = 0xfadedacebadc0ffe

	// HeaderSize is the fixed on-disk size of Header.
	HeaderSize = 256

	// Suffix is the catalog file suffix.
	Suffix = ".bin"
)

// Header mirrors Rockstar's packed binary_output_header struct. The
// Unused tail pads the struct to exactly HeaderSize bytes. Catalogs
// are always little-endian.
type Header struct {
	Magic                      uint64
	Snap, Chunk                int64
	Scale, OmegaM, OmegaL, H0  float32
	Bounds                     [6]float32
	NumHalos, NumParticles     int64
	BoxSize, ParticleMass      float32
	ParticleType               int64
	FormatRevision             int32
	Version                    [12]byte
	Unused                     [144]byte
}

// Redshift returns the catalog's redshift, 1/a - 1.
func (hd *Header) Redshift() float64 {
	return 1/float64(hd.Scale) - 1
}

// File is one opened catalog chunk: its header, total size, and the
// size of one halo record, derived from the halo region and the
// header's halo count.
type File struct {
	Path       string
	Header     *Header
	Size       int64
	RecordSize int64
}

// IsValid reports whether path looks like a Rockstar binary catalog.
// It never returns an error and has no side effects: a wrong suffix,
// an unreadable or truncated file, and a mismatched magic number all
// just mean "not this format". Auto-detection across candidate
// formats depends on that.
func IsValid(path string) bool {
	if !strings.HasSuffix(path, Suffix) { return false }
	hd, err := ReadHeader(path)
	return err == nil && hd.Magic == Magic
}

// ReadHeader decodes the catalog header at path. A file shorter than
// the header region is a FormatError; the magic number is decoded but
// not checked, since checking is the caller's applicability decision.
func ReadHeader(path string) (*Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "the file %s does not exist or "+
			"cannot be accessed", path)
	}
	defer f.Close()

	hd := &Header{ }
	if err := binary.Read(f, binary.LittleEndian, hd); err != nil {
		return nil, recio.Formatf("%s is shorter than the %d-byte "+
			"Rockstar header: %v", path, HeaderSize, err)
	}
	return hd, nil
}

// Open reads the catalog chunk at path. Once a caller commits to the
// Rockstar format, every structural inconsistency is a hard
// FormatError: a mismatched magic number, an unreadable header, or a
// halo region that is not a whole number of equal-size records.
func Open(path string) (*File, error) {
	hd, err := ReadHeader(path)
	if err != nil { return nil, err }
	if hd.Magic != Magic {
		return nil, recio.Formatf("%s is not a Rockstar catalog: magic "+
			"%#x instead of %#x", path, hd.Magic, uint64(Magic))
	}

	info, err := os.Stat(path)
	if err != nil { return nil, errors.Wrapf(err, "cannot stat %s", path) }

	f := &File{ Path: path, Header: hd, Size: info.Size() }

	if hd.NumHalos > 0 {
		region := f.Size - HeaderSize
		if region < 0 || region%hd.NumHalos != 0 {
			return nil, recio.Formatf("%s stores %d halos in a %d-byte "+
				"region, which does not divide into equal records",
				path, hd.NumHalos, region)
		}
		f.RecordSize = region / hd.NumHalos
	}

	return f, nil
}

// HaloOffset returns the byte offset of halo k's record.
func (f *File) HaloOffset(k int64) int64 {
	return HeaderSize + k*f.RecordSize
}
