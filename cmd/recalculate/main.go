// cmd/recalculate/main.go
// Recalculates derived race, championship and club results.
//
// Usage:
//
//	go run ./cmd/recalculate                       # every championship
//	go run ./cmd/recalculate --championship 1
//	go run ./cmd/recalculate --race 5 --verbose
//	go run ./cmd/recalculate --completed-only --dry-run
package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/padraicbc/rallyapi/config"
	bundb "github.com/padraicbc/rallyapi/db"
	applog "github.com/padraicbc/rallyapi/logger"
	"github.com/padraicbc/rallyapi/recalc"
	"github.com/padraicbc/rallyapi/store"
)

func main() {
	app := &cli.App{
		Name:  "recalculate",
		Usage: "recalculate race, championship and club results",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "race", Usage: "recalculate one race and the championships containing it"},
			&cli.Int64Flag{Name: "championship", Usage: "recalculate one championship and all of its races"},
			&cli.BoolFlag{Name: "completed-only", Usage: "with no race or championship, only completed championships"},
			&cli.BoolFlag{Name: "dry-run", Usage: "roll back instead of committing"},
			&cli.BoolFlag{Name: "verbose", Usage: "print per race and per rider detail"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	if c.IsSet("race") && c.IsSet("championship") {
		return cli.Exit("--race and --championship are mutually exclusive", 2)
	}

	cfg := config.Load()
	logger, err := applog.ForCommand("recalculate", c.Bool("verbose"))
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	db := bundb.Setup(cfg)
	defer db.Close()

	orch := recalc.New(db, store.New(db), logger.Named("recalc"), nil, nil)

	var opts []recalc.Option
	dryRun := c.Bool("dry-run")
	if dryRun {
		opts = append(opts, recalc.WithDryRun())
	}
	out := c.App.Writer
	verbose := c.Bool("verbose")

	var reports []*recalc.Report
	switch {
	case c.IsSet("race"):
		rep, err := orch.OnRaceChanged(c.Context, c.Int64("race"), opts...)
		if err != nil {
			return fmt.Errorf("recalculate race %d: %w", c.Int64("race"), err)
		}
		reports = append(reports, rep)
	case c.IsSet("championship"):
		rep, err := orch.OnChampionshipChanged(c.Context, c.Int64("championship"), opts...)
		if err != nil {
			return fmt.Errorf("recalculate championship %d: %w", c.Int64("championship"), err)
		}
		reports = append(reports, rep)
	default:
		reports, err = orch.RecalculateAll(c.Context, c.Bool("completed-only"), opts...)
		for _, rep := range reports {
			printReport(out, rep, verbose)
		}
		if err != nil {
			return fmt.Errorf("recalculate all: %w", err)
		}
		printTotals(out, reports, dryRun)
		logger.Info("recalculation finished", zap.Int("championships", len(reports)), zap.Bool("dry_run", dryRun))
		return nil
	}

	for _, rep := range reports {
		printReport(out, rep, verbose)
	}
	printTotals(out, reports, dryRun)
	return nil
}

func printReport(w io.Writer, rep *recalc.Report, verbose bool) {
	prefix := ""
	if rep.DryRun {
		prefix = "[dry run] "
	}
	fmt.Fprintf(w, "%s%s %d (run %s)\n", prefix, rep.Scope, rep.ID, rep.RunID)

	if verbose {
		for _, r := range rep.Races {
			fmt.Fprintf(w, "  race %d: %d results\n", r.RaceID, r.Results)
		}
	}
	for _, ch := range rep.Championships {
		fmt.Fprintf(w, "  championship %d: %d races, %d riders, %d clubs\n", ch.ChampionshipID, ch.Races, ch.Standings, ch.Clubs)
		if len(ch.Dropped) == 0 {
			continue
		}
		fmt.Fprintf(w, "    %d rider(s) had lowest score dropped\n", len(ch.Dropped))
		if verbose {
			for _, d := range ch.Dropped {
				fmt.Fprintf(w, "      rider %d (%s): dropped %s pts\n", d.RiderID, d.Category, d.Points.StringFixed(2))
			}
		}
	}
	for _, warn := range rep.Warnings {
		fmt.Fprintf(w, "  warning: %s\n", warn)
	}
}

func printTotals(w io.Writer, reports []*recalc.Report, dryRun bool) {
	if len(reports) == 0 {
		fmt.Fprintln(w, "no championships to recalculate")
		return
	}
	riders, clubs, dropped := 0, 0, 0
	for _, rep := range reports {
		for _, ch := range rep.Championships {
			riders += ch.Standings
			clubs += ch.Clubs
			dropped += len(ch.Dropped)
		}
	}
	fmt.Fprintf(w, "total: %d rider results, %d club results, %d lowest scores dropped\n", riders, clubs, dropped)
	if dryRun {
		fmt.Fprintln(w, "dry run completed, no changes made")
	}
}
