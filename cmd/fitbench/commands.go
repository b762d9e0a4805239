package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"takeoverbench/internal/catalog"
	"takeoverbench/internal/config"
	"takeoverbench/internal/curvefit"
	"takeoverbench/internal/notify"
	"takeoverbench/internal/prefit"
	"takeoverbench/internal/projection"
	"takeoverbench/internal/store"
)

// errStale is returned by verify when the table differs from a fresh fit.
var errStale = errors.New("fitted projections are stale")

func newRootCmd(cfg config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:           "fitbench",
		Short:         "Fit and check benchmark growth projections",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("data", cfg.DataDir, "catalog data directory")

	root.AddCommand(
		newFitCmd(cfg),
		newVerifyCmd(cfg),
		newProjectCmd(cfg),
		newCurveCmd(),
	)
	return root
}

func loadCatalog(cmd *cobra.Command) (*catalog.Catalog, string, error) {
	dir, _ := cmd.Flags().GetString("data")
	cat, err := catalog.Load(dir)
	return cat, dir, err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ─── fit ─────────────────────────────────────────────────────────────────────

func newFitCmd(cfg config.Config) *cobra.Command {
	var (
		out     string
		dbPath  string
		workers int
	)
	cmd := &cobra.Command{
		Use:   "fit",
		Short: "Fit every benchmark and write the fitted projection table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, dir, err := loadCatalog(cmd)
			if err != nil {
				return err
			}
			if out == "" {
				out = filepath.Join(dir, catalog.FittedFile)
			}

			table, err := prefit.FitAll(cmd.Context(), cat, workers)
			if err != nil {
				return err
			}
			digest, err := prefit.WriteFile(out, table)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Fitted %d series -> %s (%s)\n", len(table), out, digest[:12])

			if dbPath == "" {
				return nil
			}
			db, err := store.Open(dbPath)
			if err != nil {
				return err
			}
			defer db.Close()
			runID, err := store.SaveRun(db, table, digest)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored run %s in %s\n", runID, dbPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "output file (default <data>/"+catalog.FittedFile+")")
	cmd.Flags().StringVar(&dbPath, "db", cfg.DBPath, "also store the table in this SQLite database")
	cmd.Flags().IntVar(&workers, "workers", prefit.DefaultWorkers, "concurrent fits")
	return cmd
}

// ─── verify ──────────────────────────────────────────────────────────────────

func newVerifyCmd(cfg config.Config) *cobra.Command {
	var (
		file      string
		notifyURL string
	)
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check that the fitted projection table matches a fresh fit",
		Long:  "Refits the catalog and compares it with the stored table. Exits 1 when they differ.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, dir, err := loadCatalog(cmd)
			if err != nil {
				return err
			}
			if file == "" {
				file = filepath.Join(dir, catalog.FittedFile)
			}
			existing, err := os.ReadFile(file)
			switch {
			case errors.Is(err, os.ErrNotExist):
				existing = []byte("{}")
			case err != nil:
				return err
			}

			computed, err := prefit.FitAll(cmd.Context(), cat, prefit.DefaultWorkers)
			if err != nil {
				return err
			}
			report, err := prefit.Verify(existing, computed)
			if err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}
			if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
				return err
			}
			if report.UpToDate {
				return nil
			}

			if err := notify.New(notifyURL, nil).StaleFits(report); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
			}
			return errStale
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "fitted table to check (default <data>/"+catalog.FittedFile+")")
	cmd.Flags().StringVar(&notifyURL, "notify", cfg.NotifyURL, "shoutrrr URL to alert when stale")
	return cmd
}

// ─── project ─────────────────────────────────────────────────────────────────

func newProjectCmd(cfg config.Config) *cobra.Command {
	var (
		mode    string
		months  int
		ceiling float64
		dbPath  string
	)
	cmd := &cobra.Command{
		Use:   "project <benchmark-id>",
		Short: "Print the projection for one benchmark as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, _, err := loadCatalog(cmd)
			if err != nil {
				return err
			}
			b, ok := cat.Benchmark(args[0])
			if !ok {
				return fmt.Errorf("unknown benchmark %q", args[0])
			}
			m, err := projection.ParseMode(mode)
			if err != nil {
				return err
			}
			kind, err := projection.ParseKind(b.ProjectionType)
			if err != nil {
				return err
			}

			var src projection.ParamSource = cat.Fitted()
			if dbPath != "" {
				db, err := store.Open(dbPath)
				if err != nil {
					return err
				}
				defer db.Close()
				src = store.Source{DB: db}
			}
			p, err := projection.NewProjector(m, src)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("ceiling") {
				ceiling = catalog.Ceiling(b, cfg.ProjectionCeiling)
			}
			result := p.Project(projection.Request{
				SeriesID:    b.ID,
				Samples:     catalog.SOTA(cat.Series(b.ID)),
				Kind:        kind,
				MonthsAhead: months,
				Ceiling:     ceiling,
			})
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().StringVar(&mode, "mode", string(projection.ModeLive), "live or fitted")
	cmd.Flags().IntVar(&months, "months", cfg.ProjectionMonths, "months to project")
	cmd.Flags().Float64Var(&ceiling, "ceiling", cfg.ProjectionCeiling, "logistic ceiling for live projection (default follows the benchmark's scale)")
	cmd.Flags().StringVar(&dbPath, "db", cfg.DBPath, "read fitted parameters from this SQLite database")
	return cmd
}

// ─── curve ───────────────────────────────────────────────────────────────────

func newCurveCmd() *cobra.Command {
	var (
		fitType   string
		points    int
		freeUpper bool
	)
	cmd := &cobra.Command{
		Use:   "curve <benchmark-id>",
		Short: "Print a fitted display curve for one benchmark as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, _, err := loadCatalog(cmd)
			if err != nil {
				return err
			}
			b, ok := cat.Benchmark(args[0])
			if !ok {
				return fmt.Errorf("unknown benchmark %q", args[0])
			}
			if fitType == "" {
				fitType = string(curvefit.Sigmoid)
				if b.ProjectionType == string(projection.KindExponential) {
					fitType = string(curvefit.Exponential)
				}
			}
			t, err := curvefit.ParseFitType(fitType)
			if err != nil {
				return err
			}
			curve := curvefit.FitCurve(cat.Series(b.ID), t, points, !freeUpper)
			return writeJSON(cmd.OutOrStdout(), curve)
		},
	}
	cmd.Flags().StringVar(&fitType, "type", "", "linear, exponential or sigmoid (default follows the projection type)")
	cmd.Flags().IntVar(&points, "points", curvefit.DefaultPointCount, "samples in the curve")
	cmd.Flags().BoolVar(&freeUpper, "free-upper", false, "fit the sigmoid's upper asymptote instead of pinning it at 100")
	return cmd
}
