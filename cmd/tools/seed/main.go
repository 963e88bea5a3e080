// Package main implements the seed CLI, which loads plots and field
// observations from a JSON file into the database for local development
// and demos.
//
// Usage:
//
//	go run ./cmd/tools/seed --file=cmd/tools/seed/testdata/plots.json
//	go run ./cmd/tools/seed --file=plots.json --apply-schema
//	go run ./cmd/tools/seed --file=plots.json --dry-run
//	go run ./cmd/tools/seed --print-schema
//
// DATABASE_URL is read through the normal config loader, so a .env file in
// the working directory is honoured.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"plotrisk/internal/app"
	"plotrisk/internal/config"
	"plotrisk/internal/db"
	"plotrisk/internal/observability"
	"plotrisk/internal/types"
)

// seedFile is the on-disk format.
type seedFile struct {
	Plots        []seedPlot        `json:"plots" validate:"dive"`
	Observations []seedObservation `json:"observations" validate:"dive"`
}

type seedPlot struct {
	ID         string          `json:"id" validate:"required"`
	FarmerID   string          `json:"farmer_id"`
	Name       string          `json:"name" validate:"required"`
	District   string          `json:"district"`
	Mandal     string          `json:"mandal"`
	Village    string          `json:"village"`
	Location   *types.GeoPoint `json:"location" validate:"omitempty"`
	Crop       types.Crop      `json:"crop" validate:"required"`
	Variety    string          `json:"variety"`
	SowingDate string          `json:"sowing_date" validate:"omitempty,datetime=2006-01-02"`
}

type seedObservation struct {
	ID         string              `json:"id"`
	PlotID     string              `json:"plot_id" validate:"required"`
	ObservedAt time.Time           `json:"observed_at" validate:"required"`
	CropStage  types.CropStage     `json:"crop_stage"`
	Nitrogen   types.NitrogenLevel `json:"nitrogen_level" validate:"omitempty,oneof=LOW MEDIUM HIGH"`
	Water      types.WaterStatus   `json:"water_status" validate:"omitempty,oneof=FLOODED NORMAL STRESSED"`
}

// seedStore is the subset of db.PlotRepository the seeder writes through.
type seedStore interface {
	UpsertPlot(ctx context.Context, p *types.Plot) error
	InsertObservation(ctx context.Context, obs *types.FieldObservation) error
}

func main() {
	fileFlag := flag.String("file", "", "Path to the seed JSON file")
	schemaFlag := flag.Bool("apply-schema", false, "Apply the embedded schema before seeding")
	printSchemaFlag := flag.Bool("print-schema", false, "Print the embedded schema and exit")
	dryRunFlag := flag.Bool("dry-run", false, "Validate the file without writing")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: seed [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Load plots and field observations into the database.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *printSchemaFlag {
		fmt.Fprint(os.Stdout, db.Schema())
		return
	}
	if *fileFlag == "" {
		fmt.Fprintf(os.Stderr, "error: --file is required\n\n")
		flag.Usage()
		os.Exit(1)
	}

	logger := observability.NewLogger("info", os.Stdout)

	f, err := os.Open(*fileFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	plots, obs, err := parseSeed(f, time.UTC)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: invalid seed file %s: %v\n", *fileFlag, err)
		os.Exit(1)
	}
	if *dryRunFlag {
		logger.Info("Seed file is valid", "plots", len(plots), "observations", len(obs))
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, plots, obs, *schemaFlag, logger); err != nil {
		logger.Error("Seeding failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, plots []types.Plot, obs []types.FieldObservation, applySchema bool, logger *slog.Logger) error {
	cfg, err := config.LoadConfig(config.NewEnvVarProvider())
	if err != nil {
		return err
	}
	pool, err := app.OpenPool(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	if applySchema {
		if err := db.ApplySchema(ctx, pool); err != nil {
			return err
		}
		logger.InfoContext(ctx, "Schema applied")
	}
	return seed(ctx, db.NewPlotRepository(pool), plots, obs, logger)
}

// parseSeed decodes and validates a seed file. Sowing dates are read as
// calendar dates in loc. Observations without an id get a fresh one.
func parseSeed(r io.Reader, loc *time.Location) ([]types.Plot, []types.FieldObservation, error) {
	var sf seedFile
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&sf); err != nil {
		return nil, nil, fmt.Errorf("decoding: %w", err)
	}
	if err := validator.New().Struct(sf); err != nil {
		return nil, nil, err
	}

	known := make(map[string]bool, len(sf.Plots))
	plots := make([]types.Plot, 0, len(sf.Plots))
	for _, sp := range sf.Plots {
		p := types.Plot{
			ID:       sp.ID,
			FarmerID: sp.FarmerID,
			Name:     sp.Name,
			District: sp.District,
			Mandal:   sp.Mandal,
			Village:  sp.Village,
			Location: sp.Location,
			Crop:     sp.Crop,
			Variety:  sp.Variety,
		}
		if sp.SowingDate != "" {
			d, err := time.ParseInLocation(time.DateOnly, sp.SowingDate, loc)
			if err != nil {
				return nil, nil, fmt.Errorf("plot %s: sowing_date: %w", sp.ID, err)
			}
			p.SowingDate = &d
		}
		known[p.ID] = true
		plots = append(plots, p)
	}

	obs := make([]types.FieldObservation, 0, len(sf.Observations))
	for _, so := range sf.Observations {
		if !known[so.PlotID] {
			return nil, nil, fmt.Errorf("observation for unknown plot %q", so.PlotID)
		}
		id := so.ID
		if id == "" {
			id = uuid.NewString()
		}
		obs = append(obs, types.FieldObservation{
			ID:         id,
			PlotID:     so.PlotID,
			ObservedAt: so.ObservedAt,
			CropStage:  so.CropStage,
			Nitrogen:   so.Nitrogen,
			Water:      so.Water,
		})
	}
	return plots, obs, nil
}

// seed writes plots first so observations never reference a missing plot.
func seed(ctx context.Context, store seedStore, plots []types.Plot, obs []types.FieldObservation, logger *slog.Logger) error {
	for i := range plots {
		if err := store.UpsertPlot(ctx, &plots[i]); err != nil {
			return fmt.Errorf("plot %s: %w", plots[i].ID, err)
		}
	}
	for i := range obs {
		if err := store.InsertObservation(ctx, &obs[i]); err != nil {
			return fmt.Errorf("observation %s: %w", obs[i].ID, err)
		}
	}
	logger.InfoContext(ctx, "Seed complete", "plots", len(plots), "observations", len(obs))
	return nil
}
