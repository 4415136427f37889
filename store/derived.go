package store

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/padraicbc/rallyapi/models"
)

// ReplaceRaceResults makes the stored RaceResults of a race equal to results.
// Rows are upserted on (race_id, rider_id) and only rewritten when a value
// changed; riders missing from results are deleted.
func (s *Store) ReplaceRaceResults(ctx context.Context, db bun.IDB, raceID int64, results []models.RaceResult) error {
	db = s.idb(db)
	keep := make([]int64, 0, len(results))
	for _, r := range results {
		if r.RaceID != raceID {
			return fmt.Errorf("store.ReplaceRaceResults: result for race %d in race %d", r.RaceID, raceID)
		}
		keep = append(keep, r.RiderID)
	}

	if len(results) > 0 {
		_, err := db.NewInsert().
			Model(&results).
			On("CONFLICT (race_id, rider_id) DO UPDATE").
			Set("category = EXCLUDED.category").
			Set("overall_position = EXCLUDED.overall_position").
			Set("total_time = EXCLUDED.total_time").
			Set("total_points = EXCLUDED.total_points").
			Set("updated_at = now()").
			Where("(rr.category, rr.overall_position, rr.total_time, rr.total_points) IS DISTINCT FROM " +
				"(EXCLUDED.category, EXCLUDED.overall_position, EXCLUDED.total_time, EXCLUDED.total_points)").
			Returning("NULL").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("store.ReplaceRaceResults: upsert: %w", err)
		}
	}

	q := db.NewDelete().
		Model((*models.RaceResult)(nil)).
		Where("race_id = ?", raceID)
	if len(keep) > 0 {
		q = q.Where("rider_id NOT IN (?)", bun.In(keep))
	}
	if _, err := q.Exec(ctx); err != nil {
		return fmt.Errorf("store.ReplaceRaceResults: delete stale: %w", err)
	}
	return nil
}

type standingKey struct {
	RiderID  int64           `bun:"rider_id"`
	Category models.Category `bun:"category"`
}

// ReplaceChampionshipResults makes the stored standings of a championship
// equal to results, keyed on (championship_id, rider_id, category).
func (s *Store) ReplaceChampionshipResults(ctx context.Context, db bun.IDB, championshipID int64, results []models.ChampionshipResult) error {
	db = s.idb(db)
	keep := make(map[standingKey]bool, len(results))
	for _, r := range results {
		if r.ChampionshipID != championshipID {
			return fmt.Errorf("store.ReplaceChampionshipResults: result for championship %d in championship %d",
				r.ChampionshipID, championshipID)
		}
		keep[standingKey{RiderID: r.RiderID, Category: r.Category}] = true
	}

	if len(results) > 0 {
		_, err := db.NewInsert().
			Model(&results).
			On("CONFLICT (championship_id, rider_id, category) DO UPDATE").
			Set("total_points = EXCLUDED.total_points").
			Set("races_participated = EXCLUDED.races_participated").
			Set("lowest_score_dropped = EXCLUDED.lowest_score_dropped").
			Set("updated_at = now()").
			Where("(chr.total_points, chr.races_participated, chr.lowest_score_dropped) IS DISTINCT FROM " +
				"(EXCLUDED.total_points, EXCLUDED.races_participated, EXCLUDED.lowest_score_dropped)").
			Returning("NULL").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("store.ReplaceChampionshipResults: upsert: %w", err)
		}
	}

	var existing []standingKey
	err := db.NewSelect().
		Model((*models.ChampionshipResult)(nil)).
		Column("rider_id", "category").
		Where("championship_id = ?", championshipID).
		Scan(ctx, &existing)
	if err != nil {
		return fmt.Errorf("store.ReplaceChampionshipResults: existing keys: %w", err)
	}
	for _, k := range existing {
		if keep[k] {
			continue
		}
		_, err := db.NewDelete().
			Model((*models.ChampionshipResult)(nil)).
			Where("championship_id = ?", championshipID).
			Where("rider_id = ?", k.RiderID).
			Where("category = ?", k.Category).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("store.ReplaceChampionshipResults: delete stale: %w", err)
		}
	}
	return nil
}

// ReplaceClubResults makes the stored club standings of a championship equal
// to results.
func (s *Store) ReplaceClubResults(ctx context.Context, db bun.IDB, championshipID int64, results []models.ClubResult) error {
	db = s.idb(db)
	keep := make([]int64, 0, len(results))
	for _, r := range results {
		if r.ChampionshipID != championshipID {
			return fmt.Errorf("store.ReplaceClubResults: result for championship %d in championship %d",
				r.ChampionshipID, championshipID)
		}
		keep = append(keep, r.ClubID)
	}

	if len(results) > 0 {
		_, err := db.NewInsert().
			Model(&results).
			On("CONFLICT (championship_id, club_id) DO UPDATE").
			Set("total_points = EXCLUDED.total_points").
			Set("updated_at = now()").
			Where("clr.total_points IS DISTINCT FROM EXCLUDED.total_points").
			Returning("NULL").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("store.ReplaceClubResults: upsert: %w", err)
		}
	}

	q := db.NewDelete().
		Model((*models.ClubResult)(nil)).
		Where("championship_id = ?", championshipID)
	if len(keep) > 0 {
		q = q.Where("club_id NOT IN (?)", bun.In(keep))
	}
	if _, err := q.Exec(ctx); err != nil {
		return fmt.Errorf("store.ReplaceClubResults: delete stale: %w", err)
	}
	return nil
}

// Advisory lock namespaces, stored in the top byte of the lock key.
const (
	lockChampionship int64 = 1
	lockRace         int64 = 2
)

const lockIDMask = 1<<56 - 1

// lockKey packs a namespace and a row id into one bigint advisory lock key.
// Ids keep their low 56 bits, so distinct rows below 2^56 never share a key.
func lockKey(kind, id int64) int64 {
	return kind<<56 | id&lockIDMask
}

// LockScopes takes transaction-scoped advisory locks on the championships and
// races a cascade touches. Callers pass ids sorted ascending so every cascade
// acquires locks in the same order.
func (s *Store) LockScopes(ctx context.Context, db bun.IDB, championshipIDs, raceIDs []int64) error {
	db = s.idb(db)
	for _, id := range championshipIDs {
		if _, err := db.ExecContext(ctx, "SELECT pg_advisory_xact_lock(?)", lockKey(lockChampionship, id)); err != nil {
			return fmt.Errorf("store.LockScopes: championship %d: %w", id, err)
		}
	}
	for _, id := range raceIDs {
		if _, err := db.ExecContext(ctx, "SELECT pg_advisory_xact_lock(?)", lockKey(lockRace, id)); err != nil {
			return fmt.Errorf("store.LockScopes: race %d: %w", id, err)
		}
	}
	return nil
}
