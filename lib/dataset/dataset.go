/*package dataset ties the handler registry to one simulation output.
Opening a snapshot discovers the domain decomposition from the
parameter file, decides which registered field kinds are present, runs
each kind's schema inference once against a representative domain, and
builds one field offset table per (domain, kind). The offset tables
are what the geometry/indexing layer consumes.
*/
package dataset

import (
	"bufio"
	"encoding/binary"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"snapfields/lib/fields"
	"snapfields/lib/recio"
	"snapfields/lib/warn"
)

// Snapshot is one simulation output: the parsed parameter file, the
// dataset-scoped schema caches, and the opened handler files of every
// domain. It implements fields.Dataset.
type Snapshot struct {
	InfoPath string

	// FieldLists caches the inferred field names per field type. Each
	// list is computed once, from the first domain that has that kind
	// of file, and shared by every domain: the schema is
	// dataset-global.
	FieldLists map[string][]string

	Domains []*Domain

	dir   string
	iout  int
	ncpu  int
	order binary.ByteOrder
}

// Domain holds the opened handler files of one spatial domain, keyed
// by field type. Domains whose files all failed to open do not
// appear in Snapshot.Domains.
type Domain struct {
	ID    int
	Files map[string]*fields.File
}

func (s *Snapshot) Dir() string                 { return s.dir }
func (s *Snapshot) OutputIndex() int            { return s.iout }
func (s *Snapshot) NumDomains() int             { return s.ncpu }
func (s *Snapshot) ByteOrder() binary.ByteOrder { return s.order }

// Open reads the parameter file at infoPath (info_XXXXX.txt), filters
// the registered handlers down to the kinds whose files are present,
// and builds the offset tables of every domain. A FormatError in one
// domain file drops that file only; Open fails when a present kind
// could not be opened on any domain. Handlers must be registered
// before Open is called.
func Open(infoPath string) (*Snapshot, error) {
	iout, err := outputIndex(infoPath)
	if err != nil { return nil, err }

	params, err := parseInfoFile(infoPath)
	if err != nil { return nil, err }

	ncpuStr, ok := params["ncpu"]
	if !ok {
		return nil, recio.Formatf("the parameter file %s does not "+
			"declare ncpu, so the domain count is unknown", infoPath)
	}
	ncpu, err := strconv.Atoi(ncpuStr)
	if err != nil || ncpu < 1 {
		return nil, recio.Formatf("the parameter file %s declares "+
			"ncpu = %q, which is not a positive integer", infoPath, ncpuStr)
	}

	abs, err := filepath.Abs(filepath.Dir(infoPath))
	if err != nil { return nil, err }

	s := &Snapshot{
		InfoPath:   infoPath,
		FieldLists: map[string][]string{ },
		dir:        abs,
		iout:       iout,
		ncpu:       ncpu,
		order:      binary.LittleEndian,
	}

	// Keep only the kinds with at least one backing file, and infer
	// each kind's schema once.
	var active []fields.Descriptor
	for _, d := range fields.Handlers() {
		if !d.AnyExist(s) { continue }
		list, err := s.inferFields(d)
		if err != nil {
			return nil, errors.Wrapf(err, "schema inference for field "+
				"type '%s'", d.FType())
		}
		s.FieldLists[d.FType()] = list
		active = append(active, d)
	}

	opened := map[string]int{ }
	for icpu := 1; icpu <= ncpu; icpu++ {
		dom := &Domain{ ID: icpu, Files: map[string]*fields.File{ } }
		for _, d := range active {
			f := fields.NewFile(d, s, icpu)
			if !f.Exists() { continue }
			if err := f.Open(s.FieldLists[d.FType()]); err != nil {
				warn.Warnf("domain %d: %v", icpu, err)
				continue
			}
			dom.Files[d.FType()] = f
			opened[d.FType()]++
		}
		if len(dom.Files) > 0 { s.Domains = append(s.Domains, dom) }
	}

	for _, d := range active {
		if opened[d.FType()] == 0 {
			return nil, recio.Formatf("field type '%s' is present in "+
				"the output, but none of its %d domain files could be "+
				"opened", d.FType(), ncpu)
		}
	}

	return s, nil
}

// inferFields runs d's schema inference against the first domain that
// has a file of d's kind.
func (s *Snapshot) inferFields(d fields.Descriptor) ([]string, error) {
	for icpu := 1; icpu <= s.ncpu; icpu++ {
		f := fields.NewFile(d, s, icpu)
		if !f.Exists() { continue }

		file, err := os.Open(f.Path)
		if err != nil { return nil, err }
		hd, err := recio.ReadAttrs(file, s.order, d.Attrs())
		file.Close()
		if err != nil {
			return nil, errors.Wrapf(err, "header of %s", f.Path)
		}

		return d.FieldList(s, hd)
	}
	return nil, recio.Formatf("no domain file of field type '%s' could "+
		"be found, although one existed moments ago", d.FType())
}

// outputIndex extracts the output index embedded in the parameter
// file's basename: info_00080.txt belongs to output 80.
func outputIndex(infoPath string) (int, error) {
	base := filepath.Base(infoPath)
	stem := strings.SplitN(base, ".", 2)[0]
	parts := strings.Split(stem, "_")
	iout, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		return 0, recio.Formatf("the parameter file name %s does not "+
			"embed an output index (expected info_XXXXX.txt)", base)
	}
	return iout, nil
}

// parseInfoFile scans the "key = value" lines of a parameter file.
// Lines without an '=' (the ordering section at the bottom of RAMSES
// info files) are skipped.
func parseInfoFile(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "the parameter file %s does not "+
			"exist or cannot be accessed", path)
	}
	defer f.Close()

	params := map[string]string{ }
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		i := strings.IndexByte(line, '=')
		if i < 0 { continue }
		key := strings.TrimSpace(line[:i])
		val := strings.TrimSpace(line[i+1:])
		if key != "" { params[key] = val }
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	return params, nil
}
