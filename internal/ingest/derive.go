package ingest

import "math"

// DewpointFunc derives dew point (°C) from air temperature (°C) and relative
// humidity (%). The seam exists so a full scientific computation library can
// be substituted; the default is the Magnus approximation.
type DewpointFunc func(tempC, rh float64) float64

// Magnus coefficients (Alduchov & Eskridge 1996).
const (
	magnusB = 17.625
	magnusC = 243.04
)

// MagnusDewpoint computes dew point via the Magnus approximation. Returns
// NaN when either input is missing or humidity is non-positive.
func MagnusDewpoint(tempC, rh float64) float64 {
	if math.IsNaN(tempC) || math.IsNaN(rh) || rh <= 0 {
		return math.NaN()
	}
	gamma := math.Log(rh/100) + magnusB*tempC/(magnusC+tempC)
	return magnusC * gamma / (magnusB - gamma)
}
