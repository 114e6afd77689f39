package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/skyfield-labs/co2scan/internal/archive"
	"github.com/skyfield-labs/co2scan/internal/config"
	"github.com/skyfield-labs/co2scan/internal/granule"
)

var fetchDataDir string

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download observation granules from the data archive",
	Long:  "Lists the configured archive (S3 bucket prefix or FTP mirror), downloads every granule not already present in the local data directory, and skips the rest.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("fetch"); err != nil {
			return err
		}

		dataDir := cfg.Archive.DataDir
		if fetchDataDir != "" {
			dataDir = fetchDataDir
		}

		src, err := buildArchiveSource(cfg.Archive)
		if err != nil {
			return err
		}

		res, err := archive.Sync(cmd.Context(), src, dataDir, func(name string, err error) {
			zap.L().Warn("fetch: granule download failed",
				zap.String("granule", name),
				zap.Error(err),
			)
		})
		if err != nil {
			return err
		}

		zap.L().Info("fetch complete",
			zap.String("data_dir", dataDir),
			zap.Int("downloaded", res.Downloaded),
			zap.Int("skipped", res.Skipped),
			zap.Int("failed", res.Failed),
		)
		return nil
	},
}

// buildArchiveSource constructs the configured archive backend.
func buildArchiveSource(c config.ArchiveConfig) (archive.Source, error) {
	switch c.Source {
	case "s3":
		return archive.NewS3Source(archive.S3Options{
			Bucket:    c.Bucket,
			Prefix:    c.Prefix,
			Region:    c.Region,
			AccessKey: c.AccessKey,
			SecretKey: c.SecretKey,
			Token:     c.Token,
		}, granule.IsGranule)
	case "ftp":
		return archive.NewFTPSource(c.FTPURLs, nil), nil
	default:
		return nil, eris.Errorf("fetch: unknown archive source %q", c.Source)
	}
}

func init() {
	fetchCmd.Flags().StringVar(&fetchDataDir, "data-dir", "", "local granule directory (default from config)")
	rootCmd.AddCommand(fetchCmd)
}
