// Package archive acquires raw observation granules from a remote data
// archive into local storage. Acquisition runs strictly before analysis;
// the aggregation core never performs I/O itself.
package archive

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// Source lists and downloads granules from one archive backend.
type Source interface {
	// List returns the remote granule names available for download.
	List(ctx context.Context) ([]string, error)

	// Fetch downloads one remote granule to the local path.
	Fetch(ctx context.Context, name, localPath string) error
}

// SyncResult summarizes one synchronization run.
type SyncResult struct {
	Downloaded int
	Skipped    int
	Failed     int
}

// Sync downloads every granule the source lists into dataDir, skipping files
// that already exist locally. Failures are per-file: a granule that cannot
// be downloaded is counted and logged by the caller's policy but does not
// stop the remaining downloads.
func Sync(ctx context.Context, src Source, dataDir string, onError func(name string, err error)) (SyncResult, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return SyncResult{}, eris.Wrapf(err, "archive: create data dir %s", dataDir)
	}

	names, err := src.List(ctx)
	if err != nil {
		return SyncResult{}, eris.Wrap(err, "archive: list granules")
	}

	var res SyncResult
	for _, name := range names {
		localPath := filepath.Join(dataDir, filepath.Base(name))
		if _, statErr := os.Stat(localPath); statErr == nil {
			res.Skipped++
			continue
		}

		if err := src.Fetch(ctx, name, localPath); err != nil {
			res.Failed++
			// Remove any partial download so a retry starts clean.
			_ = os.Remove(localPath)
			if onError != nil {
				onError(name, err)
			}
			if ctx.Err() != nil {
				return res, eris.Wrap(ctx.Err(), "archive: sync canceled")
			}
			continue
		}
		res.Downloaded++
	}

	return res, nil
}
