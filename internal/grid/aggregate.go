package grid

import (
	"math"
	"sort"

	"github.com/ctessum/sparse"
	"github.com/rotisserie/eris"
)

// DefaultCellSize is the grid cell side length in degrees.
const DefaultCellSize = 1.0

// DefaultTopN is the number of candidates kept per file and globally.
const DefaultTopN = 10

// Observations holds one granule's point samples as parallel arrays.
// XCO2 may contain NaN for invalid soundings.
type Observations struct {
	Lat  []float64
	Lon  []float64
	XCO2 []float64
}

// Candidate is a non-empty grid cell realized as its bounding box and the
// arithmetic mean of the valid concentrations assigned to it. Candidates are
// immutable once created.
type Candidate struct {
	LatMin float64
	LatMax float64
	LonMin float64
	LonMax float64
	AvgCO2 float64
}

// Center returns the centroid of the candidate's bounding box.
func (c Candidate) Center() (lon, lat float64) {
	return (c.LonMin + c.LonMax) / 2, (c.LatMin + c.LatMax) / 2
}

// axis is one dimension of a file-local grid. Boundaries run from min in
// steps of size, covering the file's maximum coordinate inclusive; cells is
// one less than the number of boundaries.
type axis struct {
	min   float64
	size  float64
	cells int
}

func newAxis(min, max, size float64) axis {
	bounds := int(math.Ceil((max + size - min) / size))
	return axis{min: min, size: size, cells: bounds - 1}
}

// index returns the cell index for a coordinate. The result may fall outside
// [0, cells) at the exact upper boundary; callers must range-check it.
func (a axis) index(v float64) int {
	return int(math.Floor((v - a.min) / a.size))
}

// lower returns the lower edge of cell i.
func (a axis) lower(i int) float64 {
	return a.min + float64(i)*a.size
}

// Aggregate bins one granule's observations onto a grid derived from the
// file's own coordinate extent and returns its top-N cells by average
// concentration, in descending order with ties kept in row-major cell order.
//
// Grid boundaries are recomputed per file from that file's surviving
// observations, so cells are not aligned across files. NaN concentrations
// are dropped before the extent is computed; if nothing survives, the
// result is empty and no error is returned.
func Aggregate(obs Observations, cellSize float64, topN int) ([]Candidate, error) {
	if len(obs.Lat) != len(obs.Lon) || len(obs.Lat) != len(obs.XCO2) {
		return nil, eris.Errorf("grid: mismatched array lengths: lat=%d lon=%d xco2=%d",
			len(obs.Lat), len(obs.Lon), len(obs.XCO2))
	}
	if cellSize <= 0 {
		return nil, eris.Errorf("grid: cell size must be positive, got %g", cellSize)
	}

	lat := make([]float64, 0, len(obs.Lat))
	lon := make([]float64, 0, len(obs.Lon))
	xco2 := make([]float64, 0, len(obs.XCO2))
	for i, v := range obs.XCO2 {
		if math.IsNaN(v) {
			continue
		}
		lat = append(lat, obs.Lat[i])
		lon = append(lon, obs.Lon[i])
		xco2 = append(xco2, v)
	}
	if len(xco2) == 0 {
		return nil, nil
	}

	latMin, latMax := minMax(lat)
	lonMin, lonMax := minMax(lon)
	latAxis := newAxis(latMin, latMax, cellSize)
	lonAxis := newAxis(lonMin, lonMax, cellSize)
	if latAxis.cells <= 0 || lonAxis.cells <= 0 {
		return nil, nil
	}

	sum := sparse.ZerosSparse(latAxis.cells, lonAxis.cells)
	count := sparse.ZerosSparse(latAxis.cells, lonAxis.cells)
	for k, v := range xco2 {
		i := latAxis.index(lat[k])
		j := lonAxis.index(lon[k])
		if i < 0 || i >= latAxis.cells || j < 0 || j >= lonAxis.cells {
			continue
		}
		sum.AddVal(v, i, j)
		count.AddVal(1, i, j)
	}

	// Realize non-empty cells in row-major order so that the stable sort
	// below breaks ties deterministically.
	occupied := make([]int, 0, len(count.Elements))
	for idx := range count.Elements {
		occupied = append(occupied, idx)
	}
	sort.Ints(occupied)

	candidates := make([]Candidate, 0, len(occupied))
	for _, idx := range occupied {
		n := count.Elements[idx]
		if n <= 0 {
			continue
		}
		ij := count.IndexNd(idx)
		latLo := latAxis.lower(ij[0])
		lonLo := lonAxis.lower(ij[1])
		candidates = append(candidates, Candidate{
			LatMin: latLo,
			LatMax: latLo + cellSize,
			LonMin: lonLo,
			LonMax: lonLo + cellSize,
			AvgCO2: sum.Get1d(idx) / n,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].AvgCO2 > candidates[j].AvgCO2
	})
	if topN > 0 && len(candidates) > topN {
		candidates = candidates[:topN]
	}
	return candidates, nil
}

// minMax returns the minimum and maximum of a non-empty slice.
func minMax(vs []float64) (min, max float64) {
	min, max = vs[0], vs[0]
	for _, v := range vs[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}
