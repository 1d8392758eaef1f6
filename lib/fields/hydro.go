package fields

import (
	"fmt"
	"path/filepath"
	"strconv"

	"snapfields/lib/recio"
	"snapfields/lib/warn"
)

// HydroHandler reads the fluid-grid files of a RAMSES-family output
// (hydro_XXXXX.outYYYYY). The stored variables are not named in the
// file; their identities follow from the header's nvar count and from
// whether the run wrote a radiative-transfer info file next to the
// dataset.
type HydroHandler struct{ }

var _ Descriptor = &HydroHandler{ }

func (h *HydroHandler) FType() string { return "ramses" }

func (h *HydroHandler) FileName(iout, icpu int) string {
	return fmt.Sprintf("hydro_%05d.out%05d", iout, icpu)
}

func (h *HydroHandler) Attrs() []recio.Attr {
	return []recio.Attr{
		{ Name: "ncpu", Count: 1, Type: recio.Int32 },
		{ Name: "nvar", Count: 1, Type: recio.Int32 },
		{ Name: "ndim", Count: 1, Type: recio.Int32 },
		{ Name: "nlevelmax", Count: 1, Type: recio.Int32 },
		{ Name: "nboundary", Count: 1, Type: recio.Int32 },
		{ Name: "gamma", Count: 1, Type: recio.Float64 },
	}
}

func (h *HydroHandler) AnyExist(ds Dataset) bool { return anyExist(ds, h) }

func (h *HydroHandler) FieldList(
	ds Dataset, hd recio.Header,
) ([]string, error) {
	rt := rtInfoPresent(ds.Dir())
	return inferHydroFields(int(hd.Int("nvar")), rt)
}

// rtInfoPresent reports whether the run wrote a radiative-transfer
// info file (info_rt_*.txt) into the output directory. Its presence
// is the only on-disk evidence that the hydro files carry RT species.
func rtInfoPresent(dir string) bool {
	matches, err := filepath.Glob(filepath.Join(dir, "info_rt_*.txt"))
	return err == nil && len(matches) > 0
}

// hydroRule is one row of the hydro schema decision table: the fields
// stored by runs whose nvar falls in [min, max] (max < 0 meaning
// unbounded) with the given RT-info presence.
type hydroRule struct {
	rt       bool
	min, max int
	fields   []string
	note     string
}

var hydroRules = []hydroRule{
	{ true, 0, 9, []string{
		"Density", "x-velocity", "y-velocity", "z-velocity",
		"Pressure", "Metallicity", "HII", "HeII", "HeIII",
	}, "detected RAMSES-RT file WITHOUT IR trapping" },
	{ true, 10, -1, []string{
		"Density", "x-velocity", "y-velocity", "z-velocity",
		"Pres_IR", "Pressure", "Metallicity", "HII", "HeII", "HeIII",
	}, "detected RAMSES-RT file WITH IR trapping" },
	{ false, 5, 5, []string{
		"Density", "x-velocity", "y-velocity", "z-velocity", "Pressure",
	}, "" },
	{ false, 6, 10, []string{
		"Density", "x-velocity", "y-velocity", "z-velocity",
		"Pressure", "Metallicity",
	}, "" },
	// The MHD module silently adds its six field components to nvar,
	// so nvar == 11 can only be an MHD run.
	{ false, 11, 11, []string{
		"Density", "x-velocity", "y-velocity", "z-velocity",
		"x-Bfield-left", "y-Bfield-left", "z-Bfield-left",
		"x-Bfield-right", "y-Bfield-right", "z-Bfield-right",
		"Pressure",
	}, "" },
	{ false, 12, -1, []string{
		"Density", "x-velocity", "y-velocity", "z-velocity",
		"x-Bfield-left", "y-Bfield-left", "z-Bfield-left",
		"x-Bfield-right", "y-Bfield-right", "z-Bfield-right",
		"Pressure", "Metallicity",
	}, "" },
}

// inferHydroFields derives the ordered field-name list of a hydro
// file storing nvar variables. rt tells whether an RT info file is
// present. The result is a pure function of (nvar, rt): the matching
// decision-table row, padded with synthetic var<i> names when the run
// stores more variables than the row names. A list longer than nvar
// is a tolerated configuration inconsistency, never truncated.
func inferHydroFields(nvar int, rt bool) ([]string, error) {
	if !rt && nvar < 5 {
		return nil, recio.Formatf("nvar=%d is too small: 1D/2D runs "+
			"store fewer than the 5 variables of any supported physics",
			nvar)
	}

	var fields []string
	for _, r := range hydroRules {
		if r.rt != rt || nvar < r.min || (r.max >= 0 && nvar > r.max) {
			continue
		}
		fields = append([]string{ }, r.fields...)
		if r.note != "" { warn.Infof("%s", r.note) }
		break
	}

	for len(fields) < nvar {
		fields = append(fields, "var"+strconv.Itoa(len(fields)))
	}
	if len(fields) > nvar {
		warn.Warnf("inferred %d hydro fields %v for files that store "+
			"only nvar=%d variables", len(fields), fields, nvar)
	}

	return fields, nil
}
