// cmd/importtiming/main.go
// Imports stage results from a MySQL timing export into PostgreSQL and
// recomputes every affected race in one transaction.
//
// Usage:
//
//	TIMING_DSN="user:pass@tcp(host:3306)/timing?parseTime=true" \
//	go run ./cmd/importtiming --stage 12 --stage 13 --dry-run
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"regexp"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/padraicbc/rallyapi/config"
	bundb "github.com/padraicbc/rallyapi/db"
	"github.com/padraicbc/rallyapi/ingest"
	applog "github.com/padraicbc/rallyapi/logger"
	"github.com/padraicbc/rallyapi/recalc"
	"github.com/padraicbc/rallyapi/standings"
	"github.com/padraicbc/rallyapi/store"
)

func main() {
	app := &cli.App{
		Name:  "importtiming",
		Usage: "import stage results from the MySQL timing export",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "table", Value: "stage_times", Usage: "timing table to read"},
			&cli.Int64SliceFlag{Name: "stage", Usage: "only import these stage ids (repeatable)"},
			&cli.BoolFlag{Name: "dry-run", Usage: "roll back instead of committing"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	ctx := c.Context

	cfg := config.Load()
	logger, err := applog.ForCommand("importtiming", cfg.Debug)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	// --- MySQL ---
	if cfg.TimingDSN == "" {
		return cli.Exit("TIMING_DSN required, e.g.: user:pass@tcp(host:3306)/timing?parseTime=true", 2)
	}
	myDB, err := sql.Open("mysql", cfg.TimingDSN)
	if err != nil {
		return fmt.Errorf("open mysql: %w", err)
	}
	defer myDB.Close()
	myDB.SetMaxOpenConns(4)
	if err := myDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping mysql: %w", err)
	}
	logger.Info("connected to MySQL")

	batch, err := readTiming(ctx, myDB, c.String("table"), c.Int64Slice("stage"))
	if err != nil {
		return err
	}
	logger.Info("timing rows read", zap.Int("rows", len(batch)))
	if len(batch) == 0 {
		fmt.Fprintln(c.App.Writer, "nothing to import")
		return nil
	}

	// --- PostgreSQL ---
	pgDB := bundb.Setup(cfg)
	defer pgDB.Close()

	st := store.New(pgDB)
	orch := recalc.New(pgDB, st, logger.Named("recalc"), nil, nil)
	svc := ingest.NewService(st, orch, logger.Named("ingest"))

	var opts []recalc.Option
	if c.Bool("dry-run") {
		opts = append(opts, recalc.WithDryRun())
	}
	rep, err := svc.ApplyBatch(ctx, batch, opts...)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "%d stage results, %d races, %d championships recomputed (run %s)\n",
		len(batch), len(rep.Races), len(rep.Championships), rep.RunID)
	for _, w := range rep.Warnings {
		fmt.Fprintf(c.App.Writer, "  warning: %s\n", w)
	}
	if rep.DryRun {
		fmt.Fprintln(c.App.Writer, "dry run completed, no changes made")
	}
	return nil
}

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// timingRow is one row of the timing export. Times are milliseconds, points
// are absent when the timing system did not score the stage.
type timingRow struct {
	StageID   int64
	RiderID   int64
	Position  int
	TimeMS    sql.NullInt64
	Points    sql.NullString
	Penalties sql.NullString
	DNF       bool
	DSQ       bool
	Notes     sql.NullString
}

func readTiming(ctx context.Context, myDB *sql.DB, table string, stages []int64) ([]ingest.StageResultInput, error) {
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}

	query := "SELECT stage_id, rider_id, position, time_ms, points, penalty_seconds, dnf, dsq, notes FROM " + table
	var args []interface{}
	if len(stages) > 0 {
		query += " WHERE stage_id IN (?" + strings.Repeat(", ?", len(stages)-1) + ")"
		for _, id := range stages {
			args = append(args, id)
		}
	}
	query += " ORDER BY stage_id, position"

	rows, err := myDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query timing: %w", err)
	}
	defer rows.Close()

	var out []ingest.StageResultInput
	for rows.Next() {
		var r timingRow
		if err := rows.Scan(&r.StageID, &r.RiderID, &r.Position, &r.TimeMS, &r.Points, &r.Penalties, &r.DNF, &r.DSQ, &r.Notes); err != nil {
			return nil, fmt.Errorf("scan timing: %w", err)
		}
		in, err := r.input()
		if err != nil {
			return nil, fmt.Errorf("stage %d rider %d: %w", r.StageID, r.RiderID, err)
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

func (r timingRow) input() (ingest.StageResultInput, error) {
	in := ingest.StageResultInput{
		StageID:  r.StageID,
		RiderID:  r.RiderID,
		Position: r.Position,
		DNF:      r.DNF,
		DSQ:      r.DSQ,
		Notes:    r.Notes.String,
	}
	if r.TimeMS.Valid {
		d := time.Duration(r.TimeMS.Int64) * time.Millisecond
		in.TimeTaken = &d
	}

	if r.Points.Valid {
		p, err := decimal.NewFromString(r.Points.String)
		if err != nil {
			return in, fmt.Errorf("points: %w", err)
		}
		in.Points = p
	} else {
		in.Points = standings.DefaultPointSchema.Points(r.Position)
	}

	if r.Penalties.Valid {
		p, err := decimal.NewFromString(r.Penalties.String)
		if err != nil {
			return in, fmt.Errorf("penalties: %w", err)
		}
		in.Penalties = p
	}
	return in, nil
}
