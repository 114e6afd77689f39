package basemap

import (
	"archive/zip"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	geom "github.com/twpayne/go-geom"
)

// squarePolygon returns a closed 1x1 degree ring at the given origin.
func squarePolygon(x, y float64) *shp.Polygon {
	points := []shp.Point{
		{X: x, Y: y},
		{X: x, Y: y + 1},
		{X: x + 1, Y: y + 1},
		{X: x + 1, Y: y},
		{X: x, Y: y},
	}
	return &shp.Polygon{
		NumParts:  1,
		NumPoints: int32(len(points)),
		Parts:     []int32{0},
		Points:    points,
	}
}

// writeCountriesShapefile writes a two-country polygon shapefile and returns
// the .shp path.
func writeCountriesShapefile(t *testing.T, dir string) string {
	t.Helper()

	shpPath := filepath.Join(dir, "countries.shp")
	w, err := shp.Create(shpPath, shp.POLYGON)
	require.NoError(t, err)

	w.SetFields([]shp.Field{
		shp.StringField("NAME_EN", 40),
		shp.StringField("ISO_A3", 3),
	})

	countries := []struct {
		name string
		iso  string
		poly *shp.Polygon
	}{
		{"Testland", "TST", squarePolygon(10, 20)},
		{"Examplia", "EXA", squarePolygon(-5, -5)},
	}
	for n, c := range countries {
		w.Write(c.poly)
		w.WriteAttribute(n, 0, c.name)
		w.WriteAttribute(n, 1, c.iso)
	}
	w.Close()

	return shpPath
}

func TestReadShapefile(t *testing.T) {
	shpPath := writeCountriesShapefile(t, t.TempDir())

	fc, err := ReadShapefile(shpPath, []string{"NAME_EN", "ISO_A3"})
	require.NoError(t, err)
	require.Len(t, fc.Features, 2)

	f := fc.Features[0]
	assert.Equal(t, "Testland", f.Properties["NAME_EN"])
	assert.Equal(t, "TST", f.Properties["ISO_A3"])

	mp, ok := f.Geometry.(*geom.MultiPolygon)
	require.True(t, ok)
	assert.Equal(t, 1, mp.NumPolygons())
}

func TestReadShapefile_UnknownProperty(t *testing.T) {
	shpPath := writeCountriesShapefile(t, t.TempDir())

	fc, err := ReadShapefile(shpPath, []string{"NAME_EN", "POP_EST"})
	require.NoError(t, err)
	require.Len(t, fc.Features, 2)
	assert.Contains(t, fc.Features[0].Properties, "NAME_EN")
	assert.NotContains(t, fc.Features[0].Properties, "POP_EST")
}

func TestReadShapefile_MissingFile(t *testing.T) {
	_, err := ReadShapefile(filepath.Join(t.TempDir(), "absent.shp"), nil)
	require.Error(t, err)
}

func TestPolygonToMultiPolygon_Nil(t *testing.T) {
	assert.Nil(t, polygonToMultiPolygon(nil))
	assert.Nil(t, polygonToMultiPolygon(&shp.Polygon{}))
}

func TestPolygonToMultiPolygon_MultiPart(t *testing.T) {
	p := &shp.Polygon{
		NumParts: 2,
		Parts:    []int32{0, 5},
		Points: append(squarePolygon(0, 0).Points,
			squarePolygon(10, 10).Points...),
	}

	g := polygonToMultiPolygon(p)
	require.NotNil(t, g)
	mp := g.(*geom.MultiPolygon)
	assert.Equal(t, 2, mp.NumPolygons())
	assert.Equal(t, 4326, mp.SRID())
}

func TestConvert_LocalZip(t *testing.T) {
	srcDir := t.TempDir()
	writeCountriesShapefile(t, srcDir)

	// Zip the shapefile sidecars the way Natural Earth distributes them.
	zipPath := filepath.Join(t.TempDir(), "ne_countries.zip")
	zf, err := os.Create(zipPath)
	require.NoError(t, err)
	zw := zip.NewWriter(zf)
	entries, err := os.ReadDir(srcDir)
	require.NoError(t, err)
	for _, e := range entries {
		w, err := zw.Create(e.Name())
		require.NoError(t, err)
		src, err := os.Open(filepath.Join(srcDir, e.Name()))
		require.NoError(t, err)
		_, err = io.Copy(w, src)
		require.NoError(t, err)
		require.NoError(t, src.Close())
	}
	require.NoError(t, zw.Close())
	require.NoError(t, zf.Close())

	outPath := filepath.Join(t.TempDir(), "out", "countries.geojson")
	n, err := Convert(context.Background(), nil, Options{
		LocalZip:   zipPath,
		Properties: []string{"NAME_EN", "ISO_A3"},
	}, outPath)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)

	var doc struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Type string `json:"type"`
			} `json:"geometry"`
			Properties map[string]string `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "FeatureCollection", doc.Type)
	require.Len(t, doc.Features, 2)
	assert.Equal(t, "MultiPolygon", doc.Features[0].Geometry.Type)
	assert.Equal(t, "Testland", doc.Features[0].Properties["NAME_EN"])
}

func TestConvert_NoShapefileInZip(t *testing.T) {
	zipPath := filepath.Join(t.TempDir(), "empty.zip")
	zf, err := os.Create(zipPath)
	require.NoError(t, err)
	zw := zip.NewWriter(zf)
	w, err := zw.Create("readme.txt")
	require.NoError(t, err)
	_, _ = w.Write([]byte("nothing here"))
	require.NoError(t, zw.Close())
	require.NoError(t, zf.Close())

	_, err = Convert(context.Background(), nil, Options{LocalZip: zipPath},
		filepath.Join(t.TempDir(), "out.geojson"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no .shp file")
}
