package fields

import (
	"fmt"

	"github.com/samber/lo"

	"snapfields/lib/recio"
)

// ParticleHandler reads the regular-particle files of an output
// (part_XXXXX.outYYYYY). Unlike hydro files, the particle schema is
// positional: per-dimension coordinates and velocities, then the
// scalar particle properties, with the star-formation columns present
// only when the header says the run formed stars.
type ParticleHandler struct{ }

var _ Descriptor = &ParticleHandler{ }

func (p *ParticleHandler) FType() string { return "io" }

func (p *ParticleHandler) FileName(iout, icpu int) string {
	return fmt.Sprintf("part_%05d.out%05d", iout, icpu)
}

func (p *ParticleHandler) Attrs() []recio.Attr {
	return []recio.Attr{
		{ Name: "ncpu", Count: 1, Type: recio.Int32 },
		{ Name: "ndim", Count: 1, Type: recio.Int32 },
		{ Name: "npart", Count: 1, Type: recio.Int32 },
		{ Name: "localseed", Count: 4, Type: recio.Int32 },
		{ Name: "nstar_tot", Count: 1, Type: recio.Int32 },
		{ Name: "mstar_tot", Count: 1, Type: recio.Float64 },
		{ Name: "mstar_lost", Count: 1, Type: recio.Float64 },
		{ Name: "nsink", Count: 1, Type: recio.Int32 },
	}
}

func (p *ParticleHandler) AnyExist(ds Dataset) bool { return anyExist(ds, p) }

func (p *ParticleHandler) FieldList(
	ds Dataset, hd recio.Header,
) ([]string, error) {
	ndim := int(hd.Int("ndim"))
	if ndim < 1 || ndim > 3 {
		return nil, recio.Formatf("particle files declare ndim=%d, but "+
			"only 1 to 3 dimensions are supported", ndim)
	}

	axes := []string{ "x", "y", "z" }[:ndim]
	fields := lo.Map(axes, func(a string, _ int) string {
		return "particle_position_" + a
	})
	fields = append(fields, lo.Map(axes, func(a string, _ int) string {
		return "particle_velocity_" + a
	})...)
	fields = append(fields,
		"particle_mass", "particle_identity", "particle_refinement_level",
	)

	// Star-forming runs append the stellar columns to every domain
	// file, even ones whose particles are all dark matter.
	if hd.Int("nstar_tot") > 0 {
		fields = append(fields, "particle_birth_time", "particle_metallicity")
	}

	return fields, nil
}
