package csvimport

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cvector/cvec-go/pkg/logger"
)

// Run parses cfg.Path and uploads its data points. A file without any
// value is not an error; nothing is uploaded.
func Run(ctx context.Context, cfg *Config, up Uploader) error {
	start := time.Now()
	log := logger.GetOrNop()

	if err := ValidatePath(cfg.Path); err != nil {
		return err
	}

	log.Info(ctx, "reading CSV file", logger.String("path", cfg.Path))
	f, err := os.Open(cfg.Path)
	if err != nil {
		return fmt.Errorf("open %s: %w", cfg.Path, err)
	}
	defer f.Close()

	res, err := Parse(ctx, f, cfg.Prefix)
	if err != nil {
		return err
	}

	log.Info(ctx, "found metrics",
		logger.String("metrics", strings.Join(res.Metrics, ", ")),
		logger.String("prefix", cfg.Prefix))

	if len(res.Points) == 0 {
		log.Warn(ctx, "no valid data points found in CSV", logger.Int("rows", res.Rows))
		return nil
	}

	log.Info(ctx, "uploading data points",
		logger.Int("rows", res.Rows),
		logger.Int("skipped", res.Skipped),
		logger.Int("points", len(res.Points)),
		logger.Any("arrow", cfg.UseArrow))

	if err := up.AddMetricData(ctx, res.Points, cfg.UseArrow); err != nil {
		return fmt.Errorf("upload: %w", err)
	}

	log.Info(ctx, "data successfully uploaded", logger.Duration("took", time.Since(start)))
	return nil
}
