package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/skyfield-labs/co2scan/internal/basemap"
	"github.com/skyfield-labs/co2scan/internal/fetcher"
)

var (
	basemapLocalZip string
	basemapOutput   string
)

var basemapCmd = &cobra.Command{
	Use:   "basemap",
	Short: "Convert the Natural Earth countries shapefile to GeoJSON",
	Long:  "Downloads the Natural Earth admin-0 countries archive (or uses a local copy), reads the shapefile, and writes a compact GeoJSON overlay with country name and ISO code attributes for the anomaly viewer.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("basemap"); err != nil {
			return err
		}

		output := basemapOutput
		if output == "" {
			output = "data/countries.geojson"
		}

		f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
			RateLimiters: fetcher.DefaultRateLimiters(),
		})

		n, err := basemap.Convert(cmd.Context(), f, basemap.Options{
			URL:        cfg.Basemap.URL,
			LocalZip:   basemapLocalZip,
			Properties: cfg.Basemap.Properties,
		}, output)
		if err != nil {
			return err
		}

		zap.L().Info("basemap complete",
			zap.String("output", output),
			zap.Int("countries", n),
		)
		return nil
	},
}

func init() {
	basemapCmd.Flags().StringVar(&basemapLocalZip, "local-zip", "", "use an already-downloaded archive instead of fetching")
	basemapCmd.Flags().StringVarP(&basemapOutput, "output", "o", "", "output GeoJSON path")
	rootCmd.AddCommand(basemapCmd)
}
