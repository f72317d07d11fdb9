package lighting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/saferoute/internal/geo"
	"github.com/sells-group/saferoute/internal/model"
)

// ImportShapefile loads a municipal street-lamp point shapefile into the
// store, seeding cells so night queries do not depend on the live dataset
// provider. Returns the number of features imported.
func ImportShapefile(ctx context.Context, grid *geo.Grid, store Store, path string) (int, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return 0, eris.Wrap(err, "lighting: open shapefile")
	}
	defer func() { _ = reader.Close() }()

	log := zap.L().With(zap.String("component", "lighting.import"), zap.String("path", path))

	fields := reader.Fields()
	fieldIdx := make(map[string]int, len(fields))
	for i, f := range fields {
		fieldIdx[strings.ToLower(strings.TrimRight(f.String(), "\x00"))] = i
	}

	now := time.Now()
	byCell := map[string][]model.LightingFeature{}
	total := 0
	skipped := 0

	for reader.Next() {
		if err := ctx.Err(); err != nil {
			return total, eris.Wrap(err, "lighting: import canceled")
		}

		n, shape := reader.Shape()
		point, ok := shape.(*shp.Point)
		if !ok {
			skipped++
			continue
		}
		lat, lon := point.Y, point.X
		if !geo.ValidCoordinate(lat, lon) {
			skipped++
			continue
		}

		tags := map[string]string{"lit": "yes"} // a mapped lamp is assumed lit unless tagged otherwise
		for _, name := range []string{"lit", "lamp_type", "light_source"} {
			if idx, ok := fieldIdx[name]; ok {
				v := strings.TrimSpace(strings.TrimRight(reader.Attribute(idx), "\x00"))
				if v != "" {
					tags[name] = v
				}
			}
		}

		raw := RawFeature{
			ID:        fmt.Sprintf("lamp/%d", n),
			Latitude:  lat,
			Longitude: lon,
			Tags:      tags,
		}
		feature := DeriveFeature(raw, "shapefile", now)
		key := grid.CellKey(lat, lon)
		byCell[key] = append(byCell[key], feature)
		total++
	}
	if err := reader.Err(); err != nil {
		return total, eris.Wrap(err, "lighting: read shapefile")
	}

	for key, features := range byCell {
		if err := store.ReplaceCell(ctx, key, now, features); err != nil {
			return total, eris.Wrapf(err, "lighting: store cell %s", key)
		}
	}

	log.Info("shapefile import complete",
		zap.Int("features", total),
		zap.Int("cells", len(byCell)),
		zap.Int("skipped", skipped),
	)
	return total, nil
}
