/*package cosmo supplies the one cosmological conversion the snapshot
readers need: the age of an FLRW universe at a given scale factor,
used to turn a catalog header's scale factor into a current time.
*/
package cosmo

import (
	"math"

	"gonum.org/v1/gonum/integrate/quad"
)

// kmPerMpc converts a Hubble constant in km/s/Mpc to 1/s.
const kmPerMpc = 3.0856775814913673e19

// quadNodes is the Gauss-Legendre order used for the age integral.
// The integrand behaves like sqrt(a) near zero, which slows the
// quadrature's convergence; 256 nodes holds the result well past the
// float32 precision of the header parameters feeding it.
const quadNodes = 256

// UniverseAge returns the age, in seconds, of a universe with Hubble
// constant 100*h100 km/s/Mpc, matter density omegaM and dark-energy
// density omegaL, at scale factor a. The curvature term
// 1 - omegaM - omegaL is carried along.
//
// The age is the Friedmann integral
//
//	t(a) = ∫₀ᵃ da' / (a' H(a'))
//	H(a) = H0 sqrt(omegaM/a³ + omegaK/a² + omegaL)
//
// evaluated by fixed-order Gauss-Legendre quadrature.
func UniverseAge(h100, omegaM, omegaL, a float64) float64 {
	if a <= 0 { return 0 }

	h0 := h100 * 100 / kmPerMpc
	omegaK := 1 - omegaM - omegaL

	f := func(ap float64) float64 {
		h := h0 * math.Sqrt(omegaM/(ap*ap*ap)+omegaK/(ap*ap)+omegaL)
		return 1 / (ap * h)
	}

	return quad.Fixed(f, 0, a, quadNodes, quad.Legendre{ }, 0)
}
