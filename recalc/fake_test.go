package recalc

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/uptrace/bun"

	"github.com/padraicbc/rallyapi/models"
	"github.com/padraicbc/rallyapi/standings"
)

var errFakeNotFound = errors.New("not found")

// fakeRepo is an in-memory Repository. It records every call in order and can
// be told to fail a named method.
type fakeRepo struct {
	races         map[int64]bool
	participants  map[int64][]standings.Participant
	entries       map[int64][]standings.StageEntry
	championships map[int64][]standings.RaceRef
	completed     map[int64]bool
	clubs         map[int64]int64

	raceResults  map[int64][]models.RaceResult
	champResults map[int64][]models.ChampionshipResult
	clubResults  map[int64][]models.ClubResult

	calls  []string
	locks  [][2][]int64
	failOn string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		races:         map[int64]bool{},
		participants:  map[int64][]standings.Participant{},
		entries:       map[int64][]standings.StageEntry{},
		championships: map[int64][]standings.RaceRef{},
		completed:     map[int64]bool{},
		clubs:         map[int64]int64{},
		raceResults:   map[int64][]models.RaceResult{},
		champResults:  map[int64][]models.ChampionshipResult{},
		clubResults:   map[int64][]models.ClubResult{},
	}
}

func (f *fakeRepo) record(call string) error {
	f.calls = append(f.calls, call)
	if f.failOn != "" && f.failOn == call {
		return fmt.Errorf("fake failure in %s", call)
	}
	return nil
}

func (f *fakeRepo) ConfirmedParticipants(_ context.Context, _ bun.IDB, raceID int64) ([]standings.Participant, error) {
	if err := f.record(fmt.Sprintf("ConfirmedParticipants(%d)", raceID)); err != nil {
		return nil, err
	}
	return f.participants[raceID], nil
}

func (f *fakeRepo) RiderClubs(_ context.Context, _ bun.IDB, riderIDs []int64) (map[int64]int64, error) {
	if err := f.record("RiderClubs"); err != nil {
		return nil, err
	}
	out := map[int64]int64{}
	for _, id := range riderIDs {
		if c, ok := f.clubs[id]; ok {
			out[id] = c
		}
	}
	return out, nil
}

func (f *fakeRepo) ChampionshipRaces(_ context.Context, _ bun.IDB, championshipID int64) ([]standings.RaceRef, error) {
	if err := f.record(fmt.Sprintf("ChampionshipRaces(%d)", championshipID)); err != nil {
		return nil, err
	}
	return f.championships[championshipID], nil
}

func (f *fakeRepo) RaceChampionships(_ context.Context, _ bun.IDB, raceID int64) ([]int64, error) {
	if err := f.record(fmt.Sprintf("RaceChampionships(%d)", raceID)); err != nil {
		return nil, err
	}
	var ids []int64
	for champ, races := range f.championships {
		for _, r := range races {
			if r.RaceID == raceID {
				ids = append(ids, champ)
			}
		}
	}
	return ids, nil
}

func (f *fakeRepo) ChampionshipIDs(_ context.Context, _ bun.IDB, completedOnly bool) ([]int64, error) {
	if err := f.record("ChampionshipIDs"); err != nil {
		return nil, err
	}
	var ids []int64
	for id := range f.championships {
		if completedOnly && !f.completed[id] {
			continue
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

func (f *fakeRepo) RaceExists(_ context.Context, _ bun.IDB, raceID int64) error {
	if !f.races[raceID] {
		return fmt.Errorf("race %d: %w", raceID, errFakeNotFound)
	}
	return nil
}

func (f *fakeRepo) ChampionshipExists(_ context.Context, _ bun.IDB, championshipID int64) error {
	if _, ok := f.championships[championshipID]; !ok {
		return fmt.Errorf("championship %d: %w", championshipID, errFakeNotFound)
	}
	return nil
}

func (f *fakeRepo) RaceStageEntries(_ context.Context, _ bun.IDB, raceID int64) ([]standings.StageEntry, error) {
	if err := f.record(fmt.Sprintf("RaceStageEntries(%d)", raceID)); err != nil {
		return nil, err
	}
	return f.entries[raceID], nil
}

func (f *fakeRepo) RaceResultsForRaces(_ context.Context, _ bun.IDB, raceIDs []int64) ([]models.RaceResult, error) {
	if err := f.record("RaceResultsForRaces"); err != nil {
		return nil, err
	}
	var out []models.RaceResult
	for _, id := range raceIDs {
		out = append(out, f.raceResults[id]...)
	}
	return out, nil
}

func (f *fakeRepo) ChampionshipResults(_ context.Context, _ bun.IDB, championshipID int64) ([]models.ChampionshipResult, error) {
	if err := f.record(fmt.Sprintf("ChampionshipResults(%d)", championshipID)); err != nil {
		return nil, err
	}
	return slices.Clone(f.champResults[championshipID]), nil
}

func (f *fakeRepo) ReplaceRaceResults(_ context.Context, _ bun.IDB, raceID int64, results []models.RaceResult) error {
	if err := f.record(fmt.Sprintf("ReplaceRaceResults(%d)", raceID)); err != nil {
		return err
	}
	f.raceResults[raceID] = slices.Clone(results)
	return nil
}

func (f *fakeRepo) ReplaceChampionshipResults(_ context.Context, _ bun.IDB, championshipID int64, results []models.ChampionshipResult) error {
	if err := f.record(fmt.Sprintf("ReplaceChampionshipResults(%d)", championshipID)); err != nil {
		return err
	}
	f.champResults[championshipID] = slices.Clone(results)
	return nil
}

func (f *fakeRepo) ReplaceClubResults(_ context.Context, _ bun.IDB, championshipID int64, results []models.ClubResult) error {
	if err := f.record(fmt.Sprintf("ReplaceClubResults(%d)", championshipID)); err != nil {
		return err
	}
	f.clubResults[championshipID] = slices.Clone(results)
	return nil
}

func (f *fakeRepo) LockScopes(ctx context.Context, _ bun.IDB, championshipIDs, raceIDs []int64) error {
	if err := f.record("LockScopes"); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	f.locks = append(f.locks, [2][]int64{slices.Clone(championshipIDs), slices.Clone(raceIDs)})
	return nil
}
