package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/saferoute/internal/crimegrid"
	"github.com/sells-group/saferoute/internal/ingest"
	"github.com/sells-group/saferoute/internal/model"
)

var (
	ingestPath        string
	ingestWeightsPath string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Build the crime grid from a CSV or XLSX dataset",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		return loadDatasetWithWeights(ctx, env, ingestPath, ingestWeightsPath)
	},
}

// loadDataset builds the grid from a CSV or XLSX file using the configured
// factor weights.
func loadDataset(ctx context.Context, env *runtimeEnv, path string) error {
	return loadDatasetWithWeights(ctx, env, path, "")
}

func loadDatasetWithWeights(ctx context.Context, env *runtimeEnv, path, weightsPath string) error {
	opts := crimegrid.BuildOptions{Weights: factorWeights()}
	if weightsPath != "" {
		override, err := loadSeverityOverride(weightsPath)
		if err != nil {
			return err
		}
		opts.SeverityOverride = override
	}

	var (
		src     crimegrid.Source
		skipped func() int
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		x, err := ingest.NewXLSXSource(path, ingest.Options{})
		if err != nil {
			return err
		}
		src, skipped = x, x.Skipped
	default:
		f, err := os.Open(path)
		if err != nil {
			return eris.Wrap(err, "open dataset")
		}
		defer f.Close() //nolint:errcheck
		c, err := ingest.NewCSVSource(f, ingest.Options{})
		if err != nil {
			return err
		}
		src, skipped = c, c.Skipped
	}

	if err := env.Engine.RebuildGrid(ctx, src, opts); err != nil {
		return eris.Wrap(err, "rebuild grid")
	}

	zap.L().Info("ingest complete",
		zap.String("dataset", path),
		zap.Int("cells", env.Engine.Snapshot().Len()),
		zap.Int("skipped", skipped()),
	)
	return nil
}

// loadSeverityOverride reads a crime type -> severity weight map from YAML.
func loadSeverityOverride(path string) (map[string]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "read severity weights")
	}
	var override map[string]float64
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, eris.Wrap(err, "parse severity weights")
	}
	return override, nil
}

// factorWeights maps the configured blend onto the engine's weight struct.
func factorWeights() *model.FactorWeights {
	return &model.FactorWeights{
		Crime:     cfg.Weights.Crime,
		Collision: cfg.Weights.Collision,
		Lighting:  cfg.Weights.Lighting,
		Hazard:    cfg.Weights.Hazard,
	}
}

func init() {
	ingestCmd.Flags().StringVar(&ingestPath, "dataset", "", "path to CSV or XLSX crime dataset (required)")
	ingestCmd.Flags().StringVar(&ingestWeightsPath, "weights", "", "YAML file of crime type severity overrides")
	_ = ingestCmd.MarkFlagRequired("dataset")
	rootCmd.AddCommand(ingestCmd)
}
