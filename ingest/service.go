package ingest

import (
	"context"
	"fmt"
	"slices"

	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/padraicbc/rallyapi/models"
	"github.com/padraicbc/rallyapi/recalc"
	"github.com/padraicbc/rallyapi/standings"
)

// Repository writes raw stage results.
type Repository interface {
	StageRace(ctx context.Context, db bun.IDB, stageID int64) (int64, error)
	UpsertStageResult(ctx context.Context, db bun.IDB, r *models.StageResult) error
	DeleteStageResult(ctx context.Context, db bun.IDB, stageID, riderID int64) error
}

// Cascader runs raw writes and the cascades they trigger in one transaction.
type Cascader interface {
	ApplyRaceChanges(ctx context.Context, raceIDs []int64, mutate func(ctx context.Context, db bun.IDB) error, opts ...recalc.Option) (*recalc.Report, error)
}

type Service struct {
	repo     Repository
	cascader Cascader
	logger   *zap.Logger
}

func NewService(repo Repository, cascader Cascader, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, cascader: cascader, logger: logger}
}

// UpsertStageResult stores one stage result and recomputes its race.
func (s *Service) UpsertStageResult(ctx context.Context, in StageResultInput) (*recalc.Report, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	raceID, err := s.repo.StageRace(ctx, nil, in.StageID)
	if err != nil {
		return nil, err
	}

	rep, err := s.cascader.ApplyRaceChanges(ctx, []int64{raceID}, func(ctx context.Context, db bun.IDB) error {
		return s.repo.UpsertStageResult(ctx, db, in.model())
	})
	if err != nil {
		return nil, fmt.Errorf("ingest.UpsertStageResult: %w", err)
	}
	s.logger.Debug("stage result stored",
		zap.Int64("stage_id", in.StageID),
		zap.Int64("rider_id", in.RiderID),
		zap.Int64("race_id", raceID),
	)
	return rep, nil
}

// DeleteStageResult removes one stage result and recomputes its race.
func (s *Service) DeleteStageResult(ctx context.Context, stageID, riderID int64) (*recalc.Report, error) {
	if stageID <= 0 {
		return nil, &standings.ValidationError{Field: "stageID", Reason: "must be positive"}
	}
	if riderID <= 0 {
		return nil, &standings.ValidationError{Field: "riderID", Reason: "must be positive"}
	}
	raceID, err := s.repo.StageRace(ctx, nil, stageID)
	if err != nil {
		return nil, err
	}

	rep, err := s.cascader.ApplyRaceChanges(ctx, []int64{raceID}, func(ctx context.Context, db bun.IDB) error {
		return s.repo.DeleteStageResult(ctx, db, stageID, riderID)
	})
	if err != nil {
		return nil, fmt.Errorf("ingest.DeleteStageResult: %w", err)
	}
	s.logger.Debug("stage result deleted",
		zap.Int64("stage_id", stageID),
		zap.Int64("rider_id", riderID),
		zap.Int64("race_id", raceID),
	)
	return rep, nil
}

type stageRider struct {
	stageID, riderID int64
}

// ApplyBatch stores many stage results at once. The whole batch is validated
// first; then every row is written and each affected race is recomputed once,
// all in one transaction.
func (s *Service) ApplyBatch(ctx context.Context, batch []StageResultInput, opts ...recalc.Option) (*recalc.Report, error) {
	if len(batch) == 0 {
		return nil, &standings.ValidationError{Field: "entries", Reason: "empty batch"}
	}

	seen := make(map[stageRider]bool, len(batch))
	for i, in := range batch {
		if err := in.Validate(); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		k := stageRider{in.StageID, in.RiderID}
		if seen[k] {
			return nil, fmt.Errorf("entry %d: %w", i, &standings.ValidationError{
				Field:  "riderID",
				Reason: fmt.Sprintf("duplicate result for stage %d rider %d", in.StageID, in.RiderID),
			})
		}
		seen[k] = true
	}

	stageRaces := make(map[int64]int64)
	var raceIDs []int64
	for _, in := range batch {
		if _, ok := stageRaces[in.StageID]; ok {
			continue
		}
		raceID, err := s.repo.StageRace(ctx, nil, in.StageID)
		if err != nil {
			return nil, err
		}
		stageRaces[in.StageID] = raceID
		if !slices.Contains(raceIDs, raceID) {
			raceIDs = append(raceIDs, raceID)
		}
	}

	rep, err := s.cascader.ApplyRaceChanges(ctx, raceIDs, func(ctx context.Context, db bun.IDB) error {
		for _, in := range batch {
			if err := s.repo.UpsertStageResult(ctx, db, in.model()); err != nil {
				return err
			}
		}
		return nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("ingest.ApplyBatch: %w", err)
	}
	s.logger.Info("batch ingested",
		zap.Int("entries", len(batch)),
		zap.Int("races", len(rep.Races)),
		zap.Bool("dry_run", rep.DryRun),
	)
	return rep, nil
}
