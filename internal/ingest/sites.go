package ingest

// Site holds the per-deployment constants stamped onto every ingested
// dataset: identity, node wiring, and coordinates. Sites are passed in
// explicitly; nothing here is process-global.
type Site struct {
	ID         string
	Node       string // Waggle node VSN, e.g. "W08D"
	CAMSTag    string
	Datastream string
	DataLevel  string
	Plugin     string // Beehive plugin filter for the instrument
	Latitude   float64
	Longitude  float64
}

// builtinSites lists the known deployments.
var builtinSites = map[string]Site{
	"NEIU": {
		ID:         "NEIU",
		Node:       "W08D",
		CAMSTag:    "CMS-AQT-001",
		Datastream: "CMS_aqt580_NEIU_a1",
		DataLevel:  "a1",
		Plugin:     "registry.sagecontinuum.org/jrobrien/waggle-aqt:0.23.5.04.*",
		Latitude:   41.9804526,
		Longitude:  -87.7196038,
	},
}

// LookupSite returns the registered site for an id.
func LookupSite(id string) (Site, bool) {
	s, ok := builtinSites[id]
	return s, ok
}

// GlobalAttrs renders the site as dataset global attributes following the
// CF conventions used across the project.
func (s Site) GlobalAttrs() map[string]any {
	return map[string]any{
		"conventions": "CF 1.10",
		"site_ID":     s.ID,
		"CAMS_tag":    s.CAMSTag,
		"datastream":  s.Datastream,
		"datalevel":   s.DataLevel,
		"node":        s.Node,
		"latitude":    s.Latitude,
		"longitude":   s.Longitude,
	}
}

// varAttrs maps output variables to their CF attributes.
var varAttrs = map[string]map[string]any{
	"pm2.5": {
		"standard_name": "mole_concentration_of_pm2p5_ambient_aerosol_particles_in_air",
		"units":         "ug/m^3",
	},
	"pm10.0": {
		"standard_name": "mole_concentration_of_pm10p0_ambient_aerosol_particles_in_air",
		"units":         "ug/m^3",
	},
	"pm1.0": {
		"standard_name": "mole_concentration_of_pm1p0_ambient_aerosol_particles_in_air",
		"units":         "ug/m^3",
	},
	"no": {
		"standard_name": "mole_fraction_of_nitrogen_monoxide_in_air",
		"units":         "Parts Per Million",
	},
	"o3": {
		"standard_name": "mole_fraction_of_ozone_in_air",
		"units":         "Parts Per Million",
	},
	"co": {
		"standard_name": "mole_fraction_of_carbon_monoxide_in_air",
		"units":         "Parts Per Million",
	},
	"no2": {
		"standard_name": "mole_fraction_of_nitrogen_dioxide_in_air",
		"units":         "Parts Per Million",
	},
	"temperature": {
		"standard_name": "air_temperature",
		"units":         "celsius",
	},
	"humidity": {
		"standard_name": "relative_humidity",
		"units":         "percent",
	},
	"dewpoint": {
		"standard_name": "dew_point_temperature",
		"units":         "celsius",
	},
	"pressure": {
		"standard_name": "air_pressure",
		"units":         "hPa",
	},
}
