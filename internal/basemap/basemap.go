// Package basemap converts a Natural Earth countries shapefile into a
// compact GeoJSON overlay for the anomaly viewer.
package basemap

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/skyfield-labs/co2scan/internal/fetcher"
)

// Options configures one conversion.
type Options struct {
	// URL of the Natural Earth countries zip; ignored when LocalZip is set.
	URL string
	// LocalZip points at an already-downloaded archive.
	LocalZip string
	// Properties lists the attribute names carried into the output
	// (matched case-insensitively against the shapefile's DBF fields).
	Properties []string
}

// Convert downloads (or opens) the countries archive, extracts it, and
// writes the converted feature collection to outPath. Returns the number of
// country features written.
func Convert(ctx context.Context, f fetcher.Fetcher, opts Options, outPath string) (int, error) {
	workDir, err := os.MkdirTemp("", "co2scan-basemap-")
	if err != nil {
		return 0, eris.Wrap(err, "basemap: create work dir")
	}
	defer os.RemoveAll(workDir) //nolint:errcheck

	zipPath := opts.LocalZip
	if zipPath == "" {
		zipPath = filepath.Join(workDir, "countries.zip")
		n, err := f.DownloadToFile(ctx, opts.URL, zipPath)
		if err != nil {
			return 0, eris.Wrapf(err, "basemap: download %s", opts.URL)
		}
		zap.L().Info("basemap: downloaded archive",
			zap.String("url", opts.URL),
			zap.Int64("bytes", n),
		)
	}

	extracted, err := fetcher.ExtractZIP(zipPath, workDir)
	if err != nil {
		return 0, eris.Wrap(err, "basemap: extract archive")
	}

	shpPath := ""
	for _, p := range extracted {
		if strings.HasSuffix(strings.ToLower(p), ".shp") {
			shpPath = p
			break
		}
	}
	if shpPath == "" {
		return 0, eris.New("basemap: archive contains no .shp file")
	}

	fc, err := ReadShapefile(shpPath, opts.Properties)
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return 0, eris.Wrapf(err, "basemap: create output dir for %s", outPath)
	}
	data, err := json.Marshal(fc)
	if err != nil {
		return 0, eris.Wrap(err, "basemap: marshal feature collection")
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return 0, eris.Wrapf(err, "basemap: write %s", outPath)
	}

	return len(fc.Features), nil
}

// ReadShapefile reads a countries shapefile and returns its polygon features
// with the requested attributes. Records with missing or malformed geometry
// are skipped, not fatal.
func ReadShapefile(shpPath string, properties []string) (*geojson.FeatureCollection, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "basemap: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	// Build field name → index map.
	fields := reader.Fields()
	fieldIdx := make(map[string]int, len(fields))
	for i, f := range fields {
		name := strings.TrimRight(f.String(), "\x00")
		fieldIdx[strings.ToLower(name)] = i
	}

	fc := &geojson.FeatureCollection{Features: []*geojson.Feature{}}
	var skipped int

	for reader.Next() {
		_, shape := reader.Shape()

		poly, ok := shape.(*shp.Polygon)
		if !ok {
			skipped++
			continue
		}
		g := polygonToMultiPolygon(poly)
		if g == nil {
			skipped++
			continue
		}

		props := make(map[string]interface{}, len(properties))
		for _, name := range properties {
			idx, ok := fieldIdx[strings.ToLower(name)]
			if !ok {
				continue
			}
			val := strings.TrimRight(reader.Attribute(idx), "\x00")
			val = strings.TrimSpace(val)
			if val != "" {
				props[name] = val
			}
		}

		fc.Features = append(fc.Features, &geojson.Feature{
			Geometry:   g,
			Properties: props,
		})
	}

	if skipped > 0 {
		zap.L().Debug("basemap: skipped shapefile records",
			zap.Int("skipped", skipped),
		)
	}

	return fc, nil
}

// polygonToMultiPolygon converts a shapefile Polygon to a geom.MultiPolygon.
func polygonToMultiPolygon(p *shp.Polygon) geom.T {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY).SetSRID(4326)

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		var end int32
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		} else {
			end = int32(len(p.Points))
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}

		ring := geom.NewLinearRingFlat(geom.XY, flat)
		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(ring); err != nil {
			zap.L().Debug("basemap: skipping malformed polygon ring", zap.Int32("part", i), zap.Error(err))
			continue
		}

		if err := mp.Push(poly); err != nil {
			zap.L().Debug("basemap: skipping malformed polygon part", zap.Int32("part", i), zap.Error(err))
			continue
		}
	}

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}
