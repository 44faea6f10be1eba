package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/okian/nexus-ssn/internal/adapters/repository"
	"github.com/okian/nexus-ssn/internal/seed"
	"github.com/okian/nexus-ssn/pkg/logger"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultRunTimeout = 5 * time.Minute
	outputPermission  = 0o600
)

func main() {
	def := seed.DefaultConfig()
	var (
		driver   = flag.String("driver", string(repository.DriverSQLite), "Store driver: sqlite or postgres")
		dsn      = flag.String("dsn", "nexus.db", "Store DSN")
		typ      = flag.String("type", def.Type, "Assessment type of the synthetic cohort")
		version  = flag.String("version", def.Version, "Assessment version")
		count    = flag.Int("count", def.Count, "Number of assessments to generate")
		mean     = flag.Float64("mean", def.Mean, "Mean of the global score distribution")
		std      = flag.Float64("std", def.Std, "Standard deviation of the global score distribution")
		students = flag.Int("students", def.Students, "Distinct students the linked assessments are spread over")
		ungraded = flag.Float64("ungraded", def.UngradedRatio, "Share of assessments left without a global score")
		seedVal  = flag.Uint64("seed", def.Seed, "Random seed")
		baseURL  = flag.String("url", "", "Base URL of a running service; when set the cohort is recomputed after loading")
		timeout  = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		output   = flag.String("output", "", "Also write the generated assessments to this JSON file")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	cfg := def
	cfg.Type = *typ
	cfg.Version = *version
	cfg.Count = *count
	cfg.Mean = *mean
	cfg.Std = *std
	cfg.Students = *students
	cfg.UngradedRatio = *ungraded
	cfg.Seed = *seedVal

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	if err := run(ctx, repository.Driver(*driver), *dsn, cfg, *baseURL, *timeout, *output); err != nil {
		logger.Get().Error(ctx, "seed failed", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, driver repository.Driver, dsn string, cfg seed.Config, baseURL string, timeout time.Duration, output string) error {
	log := logger.Get().Named("seed")
	if cfg.Count <= 0 {
		return errors.New("count must be positive")
	}

	items := seed.Generate(cfg)
	if output != "" {
		if err := writeJSON(output, items); err != nil {
			return err
		}
		log.Info(ctx, "wrote generated assessments", logger.String("file", output))
	}

	store, err := repository.Open(ctx, driver, dsn)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	n, err := seed.Load(ctx, store, items)
	if err != nil {
		return err
	}
	log.Info(ctx, "seeded cohort",
		logger.String("type", cfg.Type),
		logger.Int("stored", n),
		logger.Int("generated", len(items)),
	)

	if baseURL == "" {
		return nil
	}
	res, err := seed.NewClient(baseURL, timeout).Recompute(ctx, cfg.Type)
	if err != nil {
		return err
	}
	log.Info(ctx, "cohort recomputed",
		logger.Int("updated", res.Updated),
		logger.Float64("mean", res.Cohort.Mean),
		logger.Float64("std", res.Cohort.Std),
		logger.Int("sample_size", res.Cohort.SampleSize),
		logger.Bool("low_sample", res.Cohort.IsLowSample),
	)
	return nil
}

func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode assessments: %w", err)
	}
	if err := os.WriteFile(path, b, outputPermission); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
