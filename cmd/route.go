package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/saferoute/internal/geo"
	"github.com/sells-group/saferoute/internal/model"
	"github.com/sells-group/saferoute/internal/routing"
)

var (
	routeFromLat float64
	routeFromLon float64
	routeToLat   float64
	routeToLon   float64
	routeMode    string
	routeDataset string
)

var routeCmd = &cobra.Command{
	Use:   "route",
	Short: "Fetch route candidates and report the safest one",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if !geo.ValidCoordinate(routeFromLat, routeFromLon) || !geo.ValidCoordinate(routeToLat, routeToLon) {
			return eris.New("valid --from-lat/--from-lon/--to-lat/--to-lon are required")
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if routeDataset != "" {
			if err := loadDataset(ctx, env, routeDataset); err != nil {
				return err
			}
		}

		client := routing.NewOSRMClient(cfg.Routing.BaseURL, cfg.Routing.RequestTimeout)
		routes, err := client.GetRoutes(ctx, routeFromLat, routeFromLon, routeToLat, routeToLon, routeMode)
		if err != nil {
			return err
		}

		candidates := make([][]model.Coordinate, 0, len(routes)-1)
		for _, alt := range routes[1:] {
			candidates = append(candidates, alt.Coordinates())
		}
		comparison := env.Engine.CompareRoutes(routes[0].Coordinates(), candidates)

		zap.L().Info("route comparison complete",
			zap.Int("candidates", len(routes)),
			zap.Bool("safer_alternative", comparison.SaferAlternativeFound),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(comparison)
	},
}

func init() {
	routeCmd.Flags().Float64Var(&routeFromLat, "from-lat", 0, "origin latitude (required)")
	routeCmd.Flags().Float64Var(&routeFromLon, "from-lon", 0, "origin longitude (required)")
	routeCmd.Flags().Float64Var(&routeToLat, "to-lat", 0, "destination latitude (required)")
	routeCmd.Flags().Float64Var(&routeToLon, "to-lon", 0, "destination longitude (required)")
	routeCmd.Flags().StringVar(&routeMode, "mode", "walking", "travel mode: walking or cycling")
	routeCmd.Flags().StringVar(&routeDataset, "dataset", "", "CSV or XLSX crime dataset to load first")
	rootCmd.AddCommand(routeCmd)
}
