// Package recalc keeps derived standings consistent with raw stage results.
//
// The Orchestrator is the only caller of the standings aggregators and the only
// writer of derived rows. Every cascade runs in one transaction holding
// advisory locks on the races and championships it touches, so either the
// whole cascade is visible or none of it is.
package recalc

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/padraicbc/rallyapi/models"
	"github.com/padraicbc/rallyapi/standings"
)

// ParticipationQuery reads registrations and club membership owned by other
// subsystems.
type ParticipationQuery interface {
	ConfirmedParticipants(ctx context.Context, db bun.IDB, raceID int64) ([]standings.Participant, error)
	RiderClubs(ctx context.Context, db bun.IDB, riderIDs []int64) (map[int64]int64, error)
}

// MembershipQuery reads which races make up which championships.
type MembershipQuery interface {
	ChampionshipRaces(ctx context.Context, db bun.IDB, championshipID int64) ([]standings.RaceRef, error)
	RaceChampionships(ctx context.Context, db bun.IDB, raceID int64) ([]int64, error)
	ChampionshipIDs(ctx context.Context, db bun.IDB, completedOnly bool) ([]int64, error)
	RaceExists(ctx context.Context, db bun.IDB, raceID int64) error
	ChampionshipExists(ctx context.Context, db bun.IDB, championshipID int64) error
}

// Repository is everything a cascade reads and writes.
type Repository interface {
	ParticipationQuery
	MembershipQuery

	RaceStageEntries(ctx context.Context, db bun.IDB, raceID int64) ([]standings.StageEntry, error)
	RaceResultsForRaces(ctx context.Context, db bun.IDB, raceIDs []int64) ([]models.RaceResult, error)
	ChampionshipResults(ctx context.Context, db bun.IDB, championshipID int64) ([]models.ChampionshipResult, error)

	ReplaceRaceResults(ctx context.Context, db bun.IDB, raceID int64, results []models.RaceResult) error
	ReplaceChampionshipResults(ctx context.Context, db bun.IDB, championshipID int64, results []models.ChampionshipResult) error
	ReplaceClubResults(ctx context.Context, db bun.IDB, championshipID int64, results []models.ClubResult) error
	LockScopes(ctx context.Context, db bun.IDB, championshipIDs, raceIDs []int64) error
}

// Orchestrator runs recalculation cascades.
type Orchestrator struct {
	db      *bun.DB
	repo    Repository
	logger  *zap.Logger
	metrics *Metrics
	tracer  trace.Tracer
}

// New creates an Orchestrator. A nil db runs cascades without a transaction,
// which is only useful with an in-memory Repository. Nil logger, metrics and
// tracer are replaced with no-ops.
func New(db *bun.DB, repo Repository, logger *zap.Logger, metrics *Metrics, tracer trace.Tracer) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("recalc")
	}
	return &Orchestrator{
		db:      db,
		repo:    repo,
		logger:  logger,
		metrics: metrics,
		tracer:  tracer,
	}
}

// Scope names what triggered a cascade.
type Scope string

const (
	ScopeRace         Scope = "race"
	ScopeChampionship Scope = "championship"
	ScopeBatch        Scope = "batch"
)

// ParseScope validates an operator supplied scope.
func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case ScopeRace, ScopeChampionship:
		return Scope(s), nil
	}
	return "", &standings.ValidationError{Field: "scope", Reason: fmt.Sprintf("unknown scope %q", s)}
}

type options struct {
	dryRun bool
}

// Option tunes a single cascade.
type Option func(*options)

// WithDryRun computes and writes the cascade inside a transaction that is
// always rolled back. The report still describes what would have changed.
func WithDryRun() Option {
	return func(o *options) { o.dryRun = true }
}

var errDryRun = errors.New("dry run")

// plan is the set of scopes one cascade recomputes.
type plan struct {
	scope         Scope
	id            int64
	raceIDs       []int64
	championships []int64
	mutate        func(ctx context.Context, db bun.IDB) error
}

// OnRaceChanged recomputes a race, every championship containing it and their
// club standings.
func (o *Orchestrator) OnRaceChanged(ctx context.Context, raceID int64, opts ...Option) (*Report, error) {
	if err := o.repo.RaceExists(ctx, nil, raceID); err != nil {
		return nil, err
	}
	champs, err := o.repo.RaceChampionships(ctx, nil, raceID)
	if err != nil {
		return nil, err
	}
	return o.execute(ctx, plan{
		scope:         ScopeRace,
		id:            raceID,
		raceIDs:       []int64{raceID},
		championships: champs,
	}, opts)
}

// OnChampionshipChanged recomputes every race of a championship, then the
// championship and its club standings. Use it after races are linked or
// unlinked.
func (o *Orchestrator) OnChampionshipChanged(ctx context.Context, championshipID int64, opts ...Option) (*Report, error) {
	if err := o.repo.ChampionshipExists(ctx, nil, championshipID); err != nil {
		return nil, err
	}
	races, err := o.repo.ChampionshipRaces(ctx, nil, championshipID)
	if err != nil {
		return nil, err
	}
	raceIDs := make([]int64, len(races))
	for i, r := range races {
		raceIDs[i] = r.RaceID
	}
	return o.execute(ctx, plan{
		scope:         ScopeChampionship,
		id:            championshipID,
		raceIDs:       raceIDs,
		championships: []int64{championshipID},
	}, opts)
}

// Recalculate is the operator entry point for a single scope.
func (o *Orchestrator) Recalculate(ctx context.Context, scope Scope, id int64, opts ...Option) (*Report, error) {
	switch scope {
	case ScopeRace:
		return o.OnRaceChanged(ctx, id, opts...)
	case ScopeChampionship:
		return o.OnChampionshipChanged(ctx, id, opts...)
	}
	return nil, &standings.ValidationError{Field: "scope", Reason: fmt.Sprintf("unknown scope %q", scope)}
}

// RecalculateAll runs a championship cascade for every championship, stopping
// at the first failure. Reports of cascades that already committed are returned
// alongside the error.
func (o *Orchestrator) RecalculateAll(ctx context.Context, completedOnly bool, opts ...Option) ([]*Report, error) {
	ids, err := o.repo.ChampionshipIDs(ctx, nil, completedOnly)
	if err != nil {
		return nil, err
	}
	reports := make([]*Report, 0, len(ids))
	for _, id := range ids {
		rep, err := o.OnChampionshipChanged(ctx, id, opts...)
		if err != nil {
			return reports, err
		}
		reports = append(reports, rep)
	}
	return reports, nil
}

// ApplyRaceChanges runs mutate and then one cascade per affected race in the
// same transaction. Championships shared by several races are recomputed once.
// If mutate or any step fails nothing is committed.
func (o *Orchestrator) ApplyRaceChanges(ctx context.Context, raceIDs []int64, mutate func(ctx context.Context, db bun.IDB) error, opts ...Option) (*Report, error) {
	races := sortedUnique(raceIDs)
	var champs []int64
	for _, id := range races {
		ids, err := o.repo.RaceChampionships(ctx, nil, id)
		if err != nil {
			return nil, err
		}
		champs = append(champs, ids...)
	}

	p := plan{
		scope:         ScopeBatch,
		raceIDs:       races,
		championships: champs,
		mutate:        mutate,
	}
	if len(races) == 1 {
		p.scope, p.id = ScopeRace, races[0]
	}
	return o.execute(ctx, p, opts)
}

func (o *Orchestrator) execute(ctx context.Context, p plan, opts []Option) (*Report, error) {
	var cfg options
	for _, opt := range opts {
		opt(&cfg)
	}

	// a started cascade always runs to commit or rollback
	ctx = context.WithoutCancel(ctx)

	p.raceIDs = sortedUnique(p.raceIDs)
	p.championships = sortedUnique(p.championships)

	rep := &Report{RunID: uuid.New(), Scope: p.scope, ID: p.id, DryRun: cfg.dryRun}
	log := o.logger.With(
		zap.String("run_id", rep.RunID.String()),
		zap.String("scope", string(p.scope)),
		zap.Int64("id", p.id),
	)

	ctx, span := o.tracer.Start(ctx, "recalc.cascade", trace.WithAttributes(
		attribute.String("run_id", rep.RunID.String()),
		attribute.String("scope", string(p.scope)),
		attribute.Int64("id", p.id),
		attribute.Bool("dry_run", cfg.dryRun),
	))
	defer span.End()

	start := time.Now()
	err := o.runInTx(ctx, func(ctx context.Context, db bun.IDB) error {
		if err := o.repo.LockScopes(ctx, db, p.championships, p.raceIDs); err != nil {
			return err
		}
		if p.mutate != nil {
			if err := p.mutate(ctx, db); err != nil {
				return err
			}
		}
		for _, id := range p.raceIDs {
			if err := o.recomputeRace(ctx, db, id, rep); err != nil {
				return err
			}
		}
		for _, id := range p.championships {
			if err := o.recomputeChampionship(ctx, db, id, rep); err != nil {
				return err
			}
			if err := o.recomputeClubStandings(ctx, db, id, rep); err != nil {
				return err
			}
		}
		if cfg.dryRun {
			return errDryRun
		}
		return nil
	})
	if errors.Is(err, errDryRun) {
		err = nil
	}
	elapsed := time.Since(start)

	if err != nil {
		o.metrics.observe(p.scope, outcomeFailure, elapsed)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error("cascade rolled back", zap.Error(err), zap.Duration("elapsed", elapsed))
		return nil, err
	}

	o.metrics.observe(p.scope, outcomeSuccess, elapsed)
	o.metrics.addWarnings(len(rep.Warnings))
	for _, w := range rep.Warnings {
		log.Warn("stage result skipped",
			zap.Int64("race_id", w.RaceID),
			zap.Int64("stage_id", w.StageID),
			zap.Int64("rider_id", w.RiderID),
			zap.String("reason", w.Reason),
		)
	}
	log.Info("cascade committed",
		zap.Bool("dry_run", cfg.dryRun),
		zap.Int("races", len(rep.Races)),
		zap.Int("championships", len(rep.Championships)),
		zap.Int("warnings", len(rep.Warnings)),
		zap.Duration("elapsed", elapsed),
	)
	return rep, nil
}

// runInTx runs fn inside a transaction, or directly when there is no database.
func (o *Orchestrator) runInTx(ctx context.Context, fn func(ctx context.Context, db bun.IDB) error) error {
	if o.db == nil {
		return fn(ctx, nil)
	}
	return o.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, tx)
	})
}

func (o *Orchestrator) recomputeRace(ctx context.Context, db bun.IDB, raceID int64, rep *Report) error {
	ctx, span := o.tracer.Start(ctx, "recalc.race", trace.WithAttributes(attribute.Int64("race_id", raceID)))
	defer span.End()

	participants, err := o.repo.ConfirmedParticipants(ctx, db, raceID)
	if err != nil {
		return err
	}
	entries, err := o.repo.RaceStageEntries(ctx, db, raceID)
	if err != nil {
		return err
	}

	results, warnings, err := standings.ComputeRace(standings.RaceInput{
		RaceID:       raceID,
		Participants: participants,
		Entries:      entries,
	})
	if err != nil {
		return err
	}
	if err := o.repo.ReplaceRaceResults(ctx, db, raceID, results); err != nil {
		return err
	}

	rep.Races = append(rep.Races, RaceSummary{RaceID: raceID, Results: len(results)})
	rep.Warnings = append(rep.Warnings, warnings...)
	return nil
}

func (o *Orchestrator) recomputeChampionship(ctx context.Context, db bun.IDB, championshipID int64, rep *Report) error {
	ctx, span := o.tracer.Start(ctx, "recalc.championship", trace.WithAttributes(attribute.Int64("championship_id", championshipID)))
	defer span.End()

	races, err := o.repo.ChampionshipRaces(ctx, db, championshipID)
	if err != nil {
		return err
	}
	raceIDs := make([]int64, len(races))
	for i, r := range races {
		raceIDs[i] = r.RaceID
	}
	raceResults, err := o.repo.RaceResultsForRaces(ctx, db, raceIDs)
	if err != nil {
		return err
	}

	results, err := standings.ComputeChampionship(standings.ChampionshipInput{
		ChampionshipID: championshipID,
		Races:          races,
		Results:        raceResults,
	})
	if err != nil {
		return err
	}
	if err := o.repo.ReplaceChampionshipResults(ctx, db, championshipID, results); err != nil {
		return err
	}

	sum := ChampionshipSummary{ChampionshipID: championshipID, Races: len(races), Standings: len(results)}
	for _, r := range results {
		if len(races) > 0 && r.RacesParticipated == len(races) {
			sum.Dropped = append(sum.Dropped, DroppedScore{
				RiderID:  r.RiderID,
				Category: r.Category,
				Points:   r.LowestScoreDropped,
			})
		}
	}
	rep.Championships = append(rep.Championships, sum)
	return nil
}

func (o *Orchestrator) recomputeClubStandings(ctx context.Context, db bun.IDB, championshipID int64, rep *Report) error {
	ctx, span := o.tracer.Start(ctx, "recalc.clubs", trace.WithAttributes(attribute.Int64("championship_id", championshipID)))
	defer span.End()

	results, err := o.repo.ChampionshipResults(ctx, db, championshipID)
	if err != nil {
		return err
	}
	riders := make([]int64, 0, len(results))
	for _, r := range results {
		riders = append(riders, r.RiderID)
	}
	clubs, err := o.repo.RiderClubs(ctx, db, sortedUnique(riders))
	if err != nil {
		return err
	}

	clubResults, err := standings.ComputeClubs(championshipID, results, clubs)
	if err != nil {
		return err
	}
	if err := o.repo.ReplaceClubResults(ctx, db, championshipID, clubResults); err != nil {
		return err
	}

	if n := len(rep.Championships); n > 0 && rep.Championships[n-1].ChampionshipID == championshipID {
		rep.Championships[n-1].Clubs = len(clubResults)
	}
	return nil
}

func sortedUnique(ids []int64) []int64 {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}
