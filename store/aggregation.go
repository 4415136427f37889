package store

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	"github.com/padraicbc/rallyapi/models"
	"github.com/padraicbc/rallyapi/standings"
)

type participantRow struct {
	RiderID  int64           `bun:"rider_id"`
	LastName string          `bun:"last_name"`
	Category models.Category `bun:"category"`
}

// ConfirmedParticipants returns the confirmed registrations of a race.
func (s *Store) ConfirmedParticipants(ctx context.Context, db bun.IDB, raceID int64) ([]standings.Participant, error) {
	var rows []participantRow
	err := s.idb(db).NewSelect().
		TableExpr("race_participations AS rp").
		ColumnExpr("rp.rider_id, rd.last_name, rp.category").
		Join("JOIN riders AS rd ON rd.id = rp.rider_id").
		Where("rp.race_id = ?", raceID).
		Where("rp.status = ?", models.ParticipationConfirmed).
		OrderExpr("rp.rider_id").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("store.ConfirmedParticipants: %w", err)
	}

	out := make([]standings.Participant, len(rows))
	for i, r := range rows {
		out[i] = standings.Participant{RiderID: r.RiderID, LastName: r.LastName, Category: r.Category}
	}
	return out, nil
}

type stageEntryRow struct {
	StageID   int64           `bun:"stage_id"`
	RaceID    int64           `bun:"race_id"`
	RiderID   int64           `bun:"rider_id"`
	Position  int             `bun:"position"`
	TimeTaken *time.Duration  `bun:"time_taken"`
	Points    decimal.Decimal `bun:"points_earned"`
	Penalties decimal.Decimal `bun:"penalties"`
	DNF       bool            `bun:"dnf"`
	DSQ       bool            `bun:"dsq"`
}

// RaceStageEntries returns every stage result recorded on the race's stages,
// tagged with the race the stage belongs to.
func (s *Store) RaceStageEntries(ctx context.Context, db bun.IDB, raceID int64) ([]standings.StageEntry, error) {
	var rows []stageEntryRow
	err := s.idb(db).NewSelect().
		TableExpr("stage_results AS sr").
		ColumnExpr("sr.stage_id, st.race_id, sr.rider_id, sr.position, sr.time_taken").
		ColumnExpr("sr.points_earned, sr.penalties, sr.dnf, sr.dsq").
		Join("JOIN stages AS st ON st.id = sr.stage_id").
		Where("st.race_id = ?", raceID).
		OrderExpr("sr.rider_id, st.day_number").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("store.RaceStageEntries: %w", err)
	}

	out := make([]standings.StageEntry, len(rows))
	for i, r := range rows {
		out[i] = standings.StageEntry{
			StageID:   r.StageID,
			RaceID:    r.RaceID,
			RiderID:   r.RiderID,
			Position:  r.Position,
			TimeTaken: r.TimeTaken,
			Points:    r.Points,
			Penalties: r.Penalties,
			DNF:       r.DNF,
			DSQ:       r.DSQ,
		}
	}
	return out, nil
}

type raceRefRow struct {
	ID        int64     `bun:"id"`
	StartDate time.Time `bun:"start_date"`
}

// ChampionshipRaces returns the races currently linked to a championship,
// earliest first.
func (s *Store) ChampionshipRaces(ctx context.Context, db bun.IDB, championshipID int64) ([]standings.RaceRef, error) {
	var rows []raceRefRow
	err := s.idb(db).NewSelect().
		TableExpr("races AS rc").
		ColumnExpr("rc.id, rc.start_date").
		Join("JOIN championship_races AS cr ON cr.race_id = rc.id").
		Where("cr.championship_id = ?", championshipID).
		OrderExpr("rc.start_date, rc.id").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("store.ChampionshipRaces: %w", err)
	}

	out := make([]standings.RaceRef, len(rows))
	for i, r := range rows {
		out[i] = standings.RaceRef{RaceID: r.ID, StartDate: r.StartDate}
	}
	return out, nil
}

// RaceChampionships returns the ids of every championship containing the race.
func (s *Store) RaceChampionships(ctx context.Context, db bun.IDB, raceID int64) ([]int64, error) {
	var ids []int64
	err := s.idb(db).NewSelect().
		Model((*models.ChampionshipRace)(nil)).
		Column("championship_id").
		Where("race_id = ?", raceID).
		Order("championship_id").
		Scan(ctx, &ids)
	if err != nil {
		return nil, fmt.Errorf("store.RaceChampionships: %w", err)
	}
	return ids, nil
}

// RaceResultsForRaces returns the stored RaceResults of the given races.
func (s *Store) RaceResultsForRaces(ctx context.Context, db bun.IDB, raceIDs []int64) ([]models.RaceResult, error) {
	if len(raceIDs) == 0 {
		return nil, nil
	}
	var results []models.RaceResult
	err := s.idb(db).NewSelect().
		Model(&results).
		Where("rr.race_id IN (?)", bun.In(raceIDs)).
		OrderExpr("rr.race_id, rr.rider_id").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("store.RaceResultsForRaces: %w", err)
	}
	return results, nil
}

// ChampionshipResults returns the stored standings of a championship.
func (s *Store) ChampionshipResults(ctx context.Context, db bun.IDB, championshipID int64) ([]models.ChampionshipResult, error) {
	var results []models.ChampionshipResult
	err := s.idb(db).NewSelect().
		Model(&results).
		Where("chr.championship_id = ?", championshipID).
		OrderExpr("chr.rider_id, chr.category").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("store.ChampionshipResults: %w", err)
	}
	return results, nil
}

type riderClubRow struct {
	ID     int64 `bun:"id"`
	ClubID int64 `bun:"club_id"`
}

// RiderClubs returns the current club of each rider that has one.
func (s *Store) RiderClubs(ctx context.Context, db bun.IDB, riderIDs []int64) (map[int64]int64, error) {
	clubs := make(map[int64]int64, len(riderIDs))
	if len(riderIDs) == 0 {
		return clubs, nil
	}
	var rows []riderClubRow
	err := s.idb(db).NewSelect().
		TableExpr("riders AS rd").
		ColumnExpr("rd.id, rd.club_id").
		Where("rd.id IN (?)", bun.In(riderIDs)).
		Where("rd.club_id IS NOT NULL").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("store.RiderClubs: %w", err)
	}
	for _, r := range rows {
		clubs[r.ID] = r.ClubID
	}
	return clubs, nil
}

// RaceExists returns ErrNotFound when no race has the id.
func (s *Store) RaceExists(ctx context.Context, db bun.IDB, raceID int64) error {
	ok, err := s.idb(db).NewSelect().Model((*models.Race)(nil)).Where("id = ?", raceID).Exists(ctx)
	if err != nil {
		return fmt.Errorf("store.RaceExists: %w", err)
	}
	if !ok {
		return fmt.Errorf("race %d: %w", raceID, ErrNotFound)
	}
	return nil
}

// ChampionshipExists returns ErrNotFound when no championship has the id.
func (s *Store) ChampionshipExists(ctx context.Context, db bun.IDB, championshipID int64) error {
	ok, err := s.idb(db).NewSelect().Model((*models.Championship)(nil)).Where("id = ?", championshipID).Exists(ctx)
	if err != nil {
		return fmt.Errorf("store.ChampionshipExists: %w", err)
	}
	if !ok {
		return fmt.Errorf("championship %d: %w", championshipID, ErrNotFound)
	}
	return nil
}

// ChampionshipIDs lists every championship, optionally only completed ones.
func (s *Store) ChampionshipIDs(ctx context.Context, db bun.IDB, completedOnly bool) ([]int64, error) {
	var ids []int64
	q := s.idb(db).NewSelect().
		Model((*models.Championship)(nil)).
		Column("id").
		Order("id")
	if completedOnly {
		q = q.Where("status = ?", models.ChampionshipCompleted)
	}
	if err := q.Scan(ctx, &ids); err != nil {
		return nil, fmt.Errorf("store.ChampionshipIDs: %w", err)
	}
	return ids, nil
}
