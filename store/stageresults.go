package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/padraicbc/rallyapi/models"
)

// StageRace returns the race a stage belongs to.
func (s *Store) StageRace(ctx context.Context, db bun.IDB, stageID int64) (int64, error) {
	var raceID int64
	err := s.idb(db).NewSelect().
		Model((*models.Stage)(nil)).
		Column("race_id").
		Where("id = ?", stageID).
		Scan(ctx, &raceID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("stage %d: %w", stageID, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("store.StageRace: %w", err)
	}
	return raceID, nil
}

// UpsertStageResult inserts or replaces the result of one rider on one stage.
func (s *Store) UpsertStageResult(ctx context.Context, db bun.IDB, r *models.StageResult) error {
	_, err := s.idb(db).NewInsert().
		Model(r).
		On("CONFLICT (stage_id, rider_id) DO UPDATE").
		Set("position = EXCLUDED.position").
		Set("time_taken = EXCLUDED.time_taken").
		Set("points_earned = EXCLUDED.points_earned").
		Set("penalties = EXCLUDED.penalties").
		Set("dnf = EXCLUDED.dnf").
		Set("dsq = EXCLUDED.dsq").
		Set("notes = EXCLUDED.notes").
		Set("updated_at = now()").
		Returning("NULL").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("store.UpsertStageResult: %w", err)
	}
	return nil
}

// DeleteStageResult removes a stage result, returning ErrNotFound if there was none.
func (s *Store) DeleteStageResult(ctx context.Context, db bun.IDB, stageID, riderID int64) error {
	res, err := s.idb(db).NewDelete().
		Model((*models.StageResult)(nil)).
		Where("stage_id = ?", stageID).
		Where("rider_id = ?", riderID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("store.DeleteStageResult: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store.DeleteStageResult: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("stage %d rider %d: %w", stageID, riderID, ErrNotFound)
	}
	return nil
}
