/*package fields maps the self-describing contents of simulation
snapshot domain files. A snapshot's schema is not fixed: which
physical quantities a file stores, and in what order, depends on
configuration flags recorded in the file's own header. Each supported
field kind (fluid grids, particles, sink particles) is a handler
variant registered in a process-wide registry; a handler turns one
domain file into a decoded header plus a table of byte offsets, so
that any individual field can later be read by direct seek.

Adding support for a new field kind requires writing a struct that
implements the Descriptor interface and registering it before any
dataset is opened.
*/
package fields

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"snapfields/lib/recio"
)

// Dataset is the minimal view of one simulation output the handlers
// need: where its files live, the output index embedded in their
// names, how many spatial domains it was decomposed into, and the
// byte order its files were written with. The byte order is fixed for
// the whole dataset.
type Dataset interface {
	Dir() string
	OutputIndex() int
	NumDomains() int
	ByteOrder() binary.ByteOrder
}

// Descriptor describes one handler variant: its static metadata (the
// field namespace it owns, its file-naming template, its header spec)
// and the operations every variant must support. Descriptors are
// stateless; per-domain state lives in File.
type Descriptor interface {
	// FType names the field namespace this handler owns. Field keys
	// of different handlers sharing one file are disambiguated by it.
	FType() string

	// FileName returns the basename of this kind's domain file for
	// output iout and domain icpu.
	FileName(iout, icpu int) string

	// Attrs returns the ordered header spec of this kind's files.
	Attrs() []recio.Attr

	// AnyExist reports whether at least one domain of ds has a file
	// of this kind. It is called once, at dataset initialization, to
	// decide whether the kind participates at all.
	AnyExist(ds Dataset) bool

	// FieldList derives the ordered names of the fields stored in
	// this kind's files from a decoded header and, for some variants,
	// from auxiliary files next to the dataset. It runs once per
	// dataset, against a representative domain, and the result is
	// shared by all domains.
	FieldList(ds Dataset, hd recio.Header) ([]string, error)
}

// ExistsChecker is an optional Descriptor refinement for variants
// whose files need more than a plain presence check (e.g. a kind
// whose files may exist but be empty on domains without data).
type ExistsChecker interface {
	Exists(path string) bool
}

var (
	handlersMu sync.Mutex
	handlers   = map[string]Descriptor{ }
)

// Register adds d to the process-wide handler set. Registering the
// same field type twice collapses to a single entry. Registration
// must finish before any dataset starts querying the registry.
func Register(d Descriptor) {
	handlersMu.Lock()
	defer handlersMu.Unlock()
	handlers[d.FType()] = d
}

// Handlers returns the registered descriptors, sorted by field type.
// The sort keeps the result deterministic without making registration
// order significant; callers must not number handlers by it.
func Handlers() []Descriptor {
	handlersMu.Lock()
	out := lo.Values(handlers)
	handlersMu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].FType() < out[j].FType()
	})
	return out
}

// RegisterDefaults registers the built-in handler variants. Host
// programs call it once before opening any dataset.
func RegisterDefaults() {
	Register(&HydroHandler{ })
	Register(&ParticleHandler{ })
	Register(&SinkHandler{ })
}

// File is one handler variant applied to one domain of one dataset.
// It owns the resolved file path and, once Open has run, the decoded
// header and the field offset table for that domain. Files are not
// shared across domains.
type File struct {
	Desc  Descriptor
	Path  string
	Order binary.ByteOrder

	Header  recio.Header
	Offsets *OffsetTable
}

// NewFile resolves the domain file path of descriptor d for the given
// domain of ds. It does not touch the disk.
func NewFile(d Descriptor, ds Dataset, domain int) *File {
	name := d.FileName(ds.OutputIndex(), domain)
	return &File{
		Desc:  d,
		Path:  filepath.Join(ds.Dir(), name),
		Order: ds.ByteOrder(),
	}
}

// Exists reports whether the file backing this domain is present.
// Descriptors implementing ExistsChecker get to impose stricter
// tests. Exists never fails: an unreadable path is simply absent.
func (f *File) Exists() bool {
	if ec, ok := f.Desc.(ExistsChecker); ok { return ec.Exists(f.Path) }
	info, err := os.Stat(f.Path)
	return err == nil && !info.IsDir()
}

// Open reads the domain file's header and resolves the byte offset of
// every field in fieldList, in order. fieldList comes from the
// dataset's once-computed schema inference; per-cell quantities are
// double precision in every supported format.
func (f *File) Open(fieldList []string) error {
	file, err := os.Open(f.Path)
	if err != nil {
		return errors.Wrapf(err, "the file %s does not exist or cannot "+
			"be accessed", f.Path)
	}
	defer file.Close()

	hd, err := recio.ReadAttrs(file, f.Order, f.Desc.Attrs())
	if err != nil { return errors.Wrapf(err, "header of %s", f.Path) }

	tab, err := ResolveOffsets(
		file, f.Order, f.Desc.FType(), fieldList, recio.Float64,
	)
	if err != nil { return errors.Wrapf(err, "field offsets of %s", f.Path) }

	f.Header, f.Offsets = hd, tab
	return nil
}

// anyExist is the default AnyExist implementation: it checks every
// domain index of ds for a file of d's kind.
func anyExist(ds Dataset, d Descriptor) bool {
	for icpu := 1; icpu <= ds.NumDomains(); icpu++ {
		path := filepath.Join(ds.Dir(), d.FileName(ds.OutputIndex(), icpu))
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return true
		}
	}
	return false
}
