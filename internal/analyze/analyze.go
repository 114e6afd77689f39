// Package analyze runs the anomaly extraction pipeline: it reads every
// granule in a directory, bins each one onto its file-local grid, and merges
// the per-file top cells into one global ranked feature collection.
package analyze

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/skyfield-labs/co2scan/internal/granule"
	"github.com/skyfield-labs/co2scan/internal/grid"
)

// Options configures one pipeline run.
type Options struct {
	CellSize    float64
	TopN        int
	Concurrency int

	// Strict aborts the whole run on the first unreadable granule. The
	// default skips bad files: a granule that errors contributes nothing,
	// exactly like one whose soundings are all invalid.
	Strict bool
}

// Result is the outcome of one pipeline run.
type Result struct {
	Collection *geojson.FeatureCollection
	Candidates []grid.Candidate
	Files      int
	Skipped    int
}

// Run aggregates every granule under dataDir and merges the per-file
// candidate lists into the global top-N. Files are processed in parallel but
// merged in directory-listing order, so ties always break the same way
// regardless of which worker finishes first.
func Run(ctx context.Context, dataDir string, opts Options) (*Result, error) {
	if opts.CellSize == 0 {
		opts.CellSize = grid.DefaultCellSize
	}
	if opts.TopN == 0 {
		opts.TopN = grid.DefaultTopN
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}

	files, err := granule.List(dataDir)
	if err != nil {
		return nil, err
	}

	// Indexed by file position: the merge below must see lists in listing
	// order, not completion order.
	lists := make([][]grid.Candidate, len(files))
	skipped := make([]bool, len(files))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)

	for i, path := range files {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}

			obs, err := granule.Read(path)
			if err != nil {
				if opts.Strict {
					return err
				}
				skipped[i] = true
				zap.L().Warn("analyze: skipping unreadable granule",
					zap.String("file", filepath.Base(path)),
					zap.Error(err),
				)
				return nil
			}

			candidates, err := grid.Aggregate(obs, opts.CellSize, opts.TopN)
			if err != nil {
				if opts.Strict {
					return err
				}
				skipped[i] = true
				zap.L().Warn("analyze: skipping malformed granule",
					zap.String("file", filepath.Base(path)),
					zap.Error(err),
				)
				return nil
			}

			lists[i] = candidates
			zap.L().Debug("analyze: aggregated granule",
				zap.String("file", filepath.Base(path)),
				zap.Int("candidates", len(candidates)),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "analyze: aggregate granules")
	}

	merged := grid.Merge(lists, opts.TopN)

	res := &Result{
		Collection: grid.FeatureCollection(merged),
		Candidates: merged,
		Files:      len(files),
	}
	for _, s := range skipped {
		if s {
			res.Skipped++
		}
	}

	zap.L().Info("analyze: run complete",
		zap.Int("files", res.Files),
		zap.Int("skipped", res.Skipped),
		zap.Int("anomalies", len(merged)),
	)
	return res, nil
}

// WriteGeoJSON serializes the result's feature collection to path, creating
// parent directories as needed.
func WriteGeoJSON(res *Result, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "analyze: create output dir for %s", path)
	}

	data, err := json.MarshalIndent(res.Collection, "", "  ")
	if err != nil {
		return eris.Wrap(err, "analyze: marshal feature collection")
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "analyze: write %s", path)
	}
	return nil
}
