package grid

import (
	"sort"

	geom "github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// Merge combines per-file candidate lists into the global top-N. Lists are
// concatenated in input order and stable-sorted descending by average, so
// ties keep the order files were supplied in. No deduplication by geographic
// overlap is performed: grids are file-local, so coinciding or overlapping
// boxes from different files are all eligible.
//
// The result is never nil; an empty input yields an empty slice.
func Merge(lists [][]Candidate, topN int) []Candidate {
	total := 0
	for _, l := range lists {
		total += len(l)
	}
	merged := make([]Candidate, 0, total)
	for _, l := range lists {
		merged = append(merged, l...)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].AvgCO2 > merged[j].AvgCO2
	})
	if topN > 0 && len(merged) > topN {
		merged = merged[:topN]
	}
	return merged
}

// FeatureCollection promotes candidates into anomaly output features: a
// point at each candidate's bounding-box centroid with the average
// concentration and the box edges as properties. An empty candidate list
// produces a valid empty collection.
func FeatureCollection(candidates []Candidate) *geojson.FeatureCollection {
	features := make([]*geojson.Feature, 0, len(candidates))
	for _, c := range candidates {
		lonC, latC := c.Center()
		features = append(features, &geojson.Feature{
			Geometry: geom.NewPointFlat(geom.XY, []float64{lonC, latC}),
			Properties: map[string]interface{}{
				"avg_co2": c.AvgCO2,
				"lat_min": c.LatMin,
				"lat_max": c.LatMax,
				"lon_min": c.LonMin,
				"lon_max": c.LonMax,
			},
		})
	}
	return &geojson.FeatureCollection{Features: features}
}
