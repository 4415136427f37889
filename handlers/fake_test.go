package handlers

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/padraicbc/rallyapi/ingest"
	"github.com/padraicbc/rallyapi/models"
	"github.com/padraicbc/rallyapi/recalc"
	"github.com/padraicbc/rallyapi/store"
)

type fakeStore struct {
	users     map[string]*models.User
	results   []store.RaceResultRow
	standings []store.StandingRow
	clubs     []store.ClubStandingRow
	filters   []store.Filter
	err       error
}

func (f *fakeStore) UserByUsername(_ context.Context, username string) (*models.User, error) {
	u, ok := f.users[username]
	if !ok {
		return nil, fmt.Errorf("user %q: %w", username, store.ErrNotFound)
	}
	return u, nil
}

func (f *fakeStore) RaceResults(_ context.Context, _ int64, flt store.Filter) ([]store.RaceResultRow, error) {
	f.filters = append(f.filters, flt)
	return f.results, f.err
}

func (f *fakeStore) ChampionshipStandings(_ context.Context, _ int64, flt store.Filter) ([]store.StandingRow, error) {
	f.filters = append(f.filters, flt)
	return f.standings, f.err
}

func (f *fakeStore) ClubStandings(_ context.Context, _ int64) ([]store.ClubStandingRow, error) {
	return f.clubs, f.err
}

type fakeStageResults struct {
	upserts []ingest.StageResultInput
	deletes [][2]int64
	batches [][]ingest.StageResultInput
	dryRun  bool
	err     error
}

func (f *fakeStageResults) UpsertStageResult(_ context.Context, in ingest.StageResultInput) (*recalc.Report, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.upserts = append(f.upserts, in)
	return &recalc.Report{RunID: uuid.New(), Scope: recalc.ScopeRace}, nil
}

func (f *fakeStageResults) DeleteStageResult(_ context.Context, stageID, riderID int64) (*recalc.Report, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.deletes = append(f.deletes, [2]int64{stageID, riderID})
	return &recalc.Report{RunID: uuid.New(), Scope: recalc.ScopeRace}, nil
}

func (f *fakeStageResults) ApplyBatch(_ context.Context, batch []ingest.StageResultInput, opts ...recalc.Option) (*recalc.Report, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.batches = append(f.batches, batch)
	f.dryRun = len(opts) > 0
	return &recalc.Report{RunID: uuid.New(), Scope: recalc.ScopeBatch, DryRun: f.dryRun}, nil
}

type fakeRecalculator struct {
	scope recalc.Scope
	id    int64
	all   bool
	err   error
}

func (f *fakeRecalculator) Recalculate(_ context.Context, scope recalc.Scope, id int64, _ ...recalc.Option) (*recalc.Report, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.scope, f.id = scope, id
	return &recalc.Report{RunID: uuid.New(), Scope: scope, ID: id}, nil
}

func (f *fakeRecalculator) RecalculateAll(_ context.Context, _ bool, _ ...recalc.Option) ([]*recalc.Report, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.all = true
	return []*recalc.Report{{RunID: uuid.New(), Scope: recalc.ScopeChampionship, ID: 1}}, nil
}
