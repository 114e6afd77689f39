// Package granule reads satellite observation granules: NetCDF "lite" files
// carrying parallel latitude, longitude, and xco2 arrays, one sounding per
// index.
package granule

import (
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ctessum/cdf"
	"github.com/rotisserie/eris"

	"github.com/skyfield-labs/co2scan/internal/grid"
)

// Variable names in OCO-2/OCO-3 lite files.
const (
	varLatitude  = "latitude"
	varLongitude = "longitude"
	varXCO2      = "xco2"
)

// granuleExt is the file extension for observation granules.
const granuleExt = ".nc4"

// IsGranule reports whether path names an observation granule.
func IsGranule(path string) bool {
	return strings.HasSuffix(path, granuleExt)
}

// List returns the granule files directly under dir, sorted by name so that
// processing order is deterministic.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "granule: read dir %s", dir)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !IsGranule(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// Read loads one granule's observation arrays. Fill values are mapped to
// NaN; the aggregation step filters them. A length mismatch between the
// three variables is an input-format error.
func Read(path string) (grid.Observations, error) {
	f, err := os.Open(path)
	if err != nil {
		return grid.Observations{}, eris.Wrapf(err, "granule: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	nc, err := cdf.Open(f)
	if err != nil {
		return grid.Observations{}, eris.Wrapf(err, "granule: parse %s", path)
	}

	lat, err := readFloatVar(nc, varLatitude)
	if err != nil {
		return grid.Observations{}, eris.Wrapf(err, "granule: %s", path)
	}
	lon, err := readFloatVar(nc, varLongitude)
	if err != nil {
		return grid.Observations{}, eris.Wrapf(err, "granule: %s", path)
	}
	xco2, err := readFloatVar(nc, varXCO2)
	if err != nil {
		return grid.Observations{}, eris.Wrapf(err, "granule: %s", path)
	}

	if len(lat) != len(lon) || len(lat) != len(xco2) {
		return grid.Observations{}, eris.Errorf(
			"granule: %s: mismatched variable lengths: latitude=%d longitude=%d xco2=%d",
			path, len(lat), len(lon), len(xco2))
	}

	return grid.Observations{Lat: lat, Lon: lon, XCO2: xco2}, nil
}

// readFloatVar reads a floating point variable as float64, mapping the
// variable's _FillValue (when declared) to NaN.
func readFloatVar(nc *cdf.File, name string) ([]float64, error) {
	found := false
	for _, v := range nc.Header.Variables() {
		if v == name {
			found = true
			break
		}
	}
	if !found {
		return nil, eris.Errorf("missing variable %q", name)
	}

	r := nc.Reader(name, nil, nil)
	buf := r.Zero(-1)
	switch buf.(type) {
	case []float32, []float64:
	default:
		return nil, eris.Errorf("variable %q is not floating point (%T)", name, buf)
	}
	if _, err := r.Read(buf); err != nil {
		return nil, eris.Wrapf(err, "read variable %q", name)
	}

	var data []float64
	switch vals := buf.(type) {
	case []float64:
		data = vals
	case []float32:
		data = make([]float64, len(vals))
		for i, v := range vals {
			data[i] = float64(v)
		}
	}

	if fill, ok := fillValue(nc, name); ok {
		for i, v := range data {
			if v == fill {
				data[i] = math.NaN()
			}
		}
	}
	return data, nil
}

// fillValue returns the variable's declared _FillValue, if any.
func fillValue(nc *cdf.File, name string) (float64, bool) {
	attr := nc.Header.GetAttribute(name, "_FillValue")
	if attr == nil {
		return 0, false
	}
	switch vals := attr.(type) {
	case []float32:
		if len(vals) > 0 {
			return float64(vals[0]), true
		}
	case []float64:
		if len(vals) > 0 {
			return vals[0], true
		}
	}
	return 0, false
}
