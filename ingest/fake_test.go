package ingest

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/padraicbc/rallyapi/models"
	"github.com/padraicbc/rallyapi/recalc"
)

type fakeRepo struct {
	stages   map[int64]int64
	stored   map[[2]int64]*models.StageResult
	calls    []string
	failOn   string
	notFound error
}

func newFakeRepo(notFound error) *fakeRepo {
	return &fakeRepo{
		stages:   map[int64]int64{},
		stored:   map[[2]int64]*models.StageResult{},
		notFound: notFound,
	}
}

func (f *fakeRepo) StageRace(_ context.Context, _ bun.IDB, stageID int64) (int64, error) {
	f.calls = append(f.calls, fmt.Sprintf("StageRace(%d)", stageID))
	raceID, ok := f.stages[stageID]
	if !ok {
		return 0, f.notFound
	}
	return raceID, nil
}

func (f *fakeRepo) UpsertStageResult(_ context.Context, _ bun.IDB, r *models.StageResult) error {
	call := fmt.Sprintf("UpsertStageResult(%d,%d)", r.StageID, r.RiderID)
	f.calls = append(f.calls, call)
	if call == f.failOn {
		return fmt.Errorf("fake failure in %s", call)
	}
	f.stored[[2]int64{r.StageID, r.RiderID}] = r
	return nil
}

func (f *fakeRepo) DeleteStageResult(_ context.Context, _ bun.IDB, stageID, riderID int64) error {
	f.calls = append(f.calls, fmt.Sprintf("DeleteStageResult(%d,%d)", stageID, riderID))
	k := [2]int64{stageID, riderID}
	if _, ok := f.stored[k]; !ok {
		return f.notFound
	}
	delete(f.stored, k)
	return nil
}

// fakeCascader runs mutate directly and records the races it was asked to
// recompute.
type fakeCascader struct {
	raceIDs [][]int64
}

func (c *fakeCascader) ApplyRaceChanges(ctx context.Context, raceIDs []int64, mutate func(ctx context.Context, db bun.IDB) error, opts ...recalc.Option) (*recalc.Report, error) {
	c.raceIDs = append(c.raceIDs, raceIDs)
	if err := mutate(ctx, nil); err != nil {
		return nil, err
	}
	rep := &recalc.Report{Scope: recalc.ScopeBatch}
	for _, id := range raceIDs {
		rep.Races = append(rep.Races, recalc.RaceSummary{RaceID: id})
	}
	return rep, nil
}
