package dataset

import (
	"path/filepath"
	"strings"

	"snapfields/lib/cosmo"
	"snapfields/lib/recio"
	"snapfields/lib/rockstar"
)

// HaloCatalog is one opened Rockstar catalog: every chunk file of the
// output plus the times derived from the representative header's
// cosmology.
type HaloCatalog struct {
	Files  []*rockstar.File
	Header *rockstar.Header

	// CurrentRedshift is 1/scale - 1 from the header.
	CurrentRedshift float64
	// CurrentTime is the universe age at the header's scale factor,
	// in seconds.
	CurrentTime float64
}

// OpenHalos opens the catalog that path is a chunk of
// (e.g. halos_15.0.bin); sibling chunks are discovered from the same
// prefix, and the chunk set need not be contiguous. Callers deciding
// between formats should test rockstar.IsValid first, since OpenHalos
// treats every inconsistency as a hard FormatError.
func OpenHalos(path string) (*HaloCatalog, error) {
	first, err := rockstar.Open(path)
	if err != nil { return nil, err }

	dir, base := filepath.Split(path)
	prefix := filepath.Join(dir, strings.SplitN(base, ".", 2)[0])
	matches, err := filepath.Glob(prefix + ".*" + rockstar.Suffix)
	if err != nil { return nil, err }
	if len(matches) == 0 {
		return nil, recio.Formatf("no catalog chunks match %s.*%s",
			prefix, rockstar.Suffix)
	}

	cat := &HaloCatalog{ Header: first.Header }
	for _, chunk := range matches {
		f, err := rockstar.Open(chunk)
		if err != nil { return nil, err }
		cat.Files = append(cat.Files, f)
	}

	hd := first.Header
	cat.CurrentRedshift = hd.Redshift()
	cat.CurrentTime = cosmo.UniverseAge(
		float64(hd.H0), float64(hd.OmegaM), float64(hd.OmegaL),
		float64(hd.Scale),
	)

	return cat, nil
}
