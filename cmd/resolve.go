package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/saferoute/internal/geo"
)

var (
	resolveLat     float64
	resolveLon     float64
	resolveDataset string
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve safety metrics for a single point",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if !geo.ValidCoordinate(resolveLat, resolveLon) {
			return eris.New("valid --lat and --lon are required")
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if resolveDataset != "" {
			if err := loadDataset(ctx, env, resolveDataset); err != nil {
				return err
			}
		}

		metrics := env.Engine.ResolveSafety(resolveLat, resolveLon)
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(metrics)
	},
}

func init() {
	resolveCmd.Flags().Float64Var(&resolveLat, "lat", 0, "latitude (required)")
	resolveCmd.Flags().Float64Var(&resolveLon, "lon", 0, "longitude (required)")
	resolveCmd.Flags().StringVar(&resolveDataset, "dataset", "", "CSV or XLSX crime dataset to load first")
	rootCmd.AddCommand(resolveCmd)
}
