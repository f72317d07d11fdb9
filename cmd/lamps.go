package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/saferoute/internal/lighting"
)

var lampsShapefile string

var lampsCmd = &cobra.Command{
	Use:   "lamps",
	Short: "Import a municipal street-lamp shapefile into the lighting cache",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		imported, err := lighting.ImportShapefile(ctx, env.Grid, env.LightingStore, lampsShapefile)
		if err != nil {
			return err
		}

		zap.L().Info("lamp import complete",
			zap.String("shapefile", lampsShapefile),
			zap.Int("imported", imported),
		)
		return nil
	},
}

func init() {
	lampsCmd.Flags().StringVar(&lampsShapefile, "shapefile", "", "path to street-lamp point shapefile (required)")
	_ = lampsCmd.MarkFlagRequired("shapefile")
	rootCmd.AddCommand(lampsCmd)
}
