package store

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun/dialect/pgdialect"

	"github.com/padraicbc/rallyapi/models"
)

// Filter narrows a results query. Zero values mean no restriction.
type Filter struct {
	Category models.Category
	RiderID  int64
}

// RaceResultRow is a RaceResult joined with the rider's name.
type RaceResultRow struct {
	RaceID          int64           `bun:"race_id" json:"raceID"`
	RiderID         int64           `bun:"rider_id" json:"riderID"`
	FirstName       string          `bun:"first_name" json:"firstName"`
	LastName        string          `bun:"last_name" json:"lastName"`
	Category        models.Category `bun:"category" json:"category"`
	OverallPosition int             `bun:"overall_position" json:"overallPosition"`
	TotalTime       *time.Duration  `bun:"total_time" json:"-"`
	TotalPoints     decimal.Decimal `bun:"total_points" json:"totalPoints"`
}

// RaceResults lists a race's results ordered by category then rank.
func (s *Store) RaceResults(ctx context.Context, raceID int64, f Filter) ([]RaceResultRow, error) {
	if err := s.RaceExists(ctx, nil, raceID); err != nil {
		return nil, err
	}

	rows := []RaceResultRow{}
	q := s.db.NewSelect().
		TableExpr("race_results AS rr").
		ColumnExpr("rr.race_id, rr.rider_id, rd.first_name, rd.last_name").
		ColumnExpr("rr.category, rr.overall_position, rr.total_time, rr.total_points").
		Join("JOIN riders AS rd ON rd.id = rr.rider_id").
		Where("rr.race_id = ?", raceID)
	if f.Category != "" {
		q = q.Where("rr.category = ?", f.Category)
	}
	if f.RiderID != 0 {
		q = q.Where("rr.rider_id = ?", f.RiderID)
	}
	q = q.OrderExpr("array_position(?::text[], rr.category::text), rr.overall_position", pgdialect.Array(categoryOrder()))
	if err := q.Scan(ctx, &rows); err != nil {
		return nil, fmt.Errorf("store.RaceResults: %w", err)
	}
	return rows, nil
}

// categoryOrder lists category values in display order for array_position.
func categoryOrder() []string {
	out := make([]string, len(models.Categories))
	for i, c := range models.Categories {
		out[i] = string(c)
	}
	return out
}

// StandingRow is a ChampionshipResult joined with the rider's name and the best
// race rank the rider achieved in the category.
type StandingRow struct {
	ChampionshipID     int64           `bun:"championship_id" json:"championshipID"`
	RiderID            int64           `bun:"rider_id" json:"riderID"`
	FirstName          string          `bun:"first_name" json:"firstName"`
	LastName           string          `bun:"last_name" json:"lastName"`
	Category           models.Category `bun:"category" json:"category"`
	TotalPoints        decimal.Decimal `bun:"total_points" json:"totalPoints"`
	RacesParticipated  int             `bun:"races_participated" json:"racesParticipated"`
	LowestScoreDropped decimal.Decimal `bun:"lowest_score_dropped" json:"lowestScoreDropped"`
	BestPosition       int             `bun:"best_position" json:"bestPosition"`
}

// ChampionshipStandings lists a championship's standings by points, highest first.
func (s *Store) ChampionshipStandings(ctx context.Context, championshipID int64, f Filter) ([]StandingRow, error) {
	if err := s.ChampionshipExists(ctx, nil, championshipID); err != nil {
		return nil, err
	}

	best := s.db.NewSelect().
		TableExpr("race_results AS rr").
		ColumnExpr("MIN(rr.overall_position)").
		Join("JOIN championship_races AS cr ON cr.race_id = rr.race_id").
		Where("cr.championship_id = chr.championship_id").
		Where("rr.rider_id = chr.rider_id").
		Where("rr.category = chr.category")

	rows := []StandingRow{}
	q := s.db.NewSelect().
		TableExpr("championship_results AS chr").
		ColumnExpr("chr.championship_id, chr.rider_id, rd.first_name, rd.last_name, chr.category").
		ColumnExpr("chr.total_points, chr.races_participated, chr.lowest_score_dropped").
		ColumnExpr("COALESCE((?), 0) AS best_position", best).
		Join("JOIN riders AS rd ON rd.id = chr.rider_id").
		Where("chr.championship_id = ?", championshipID)
	if f.Category != "" {
		q = q.Where("chr.category = ?", f.Category)
	}
	if f.RiderID != 0 {
		q = q.Where("chr.rider_id = ?", f.RiderID)
	}
	if err := q.OrderExpr("chr.total_points DESC, chr.rider_id").Scan(ctx, &rows); err != nil {
		return nil, fmt.Errorf("store.ChampionshipStandings: %w", err)
	}
	return rows, nil
}

// ClubStandingRow is a ClubResult joined with the club's name.
type ClubStandingRow struct {
	ChampionshipID int64           `bun:"championship_id" json:"championshipID"`
	ClubID         int64           `bun:"club_id" json:"clubID"`
	Name           string          `bun:"name" json:"name"`
	TotalPoints    decimal.Decimal `bun:"total_points" json:"totalPoints"`
}

// ClubStandings lists a championship's club standings by points, highest first.
func (s *Store) ClubStandings(ctx context.Context, championshipID int64) ([]ClubStandingRow, error) {
	if err := s.ChampionshipExists(ctx, nil, championshipID); err != nil {
		return nil, err
	}

	rows := []ClubStandingRow{}
	err := s.db.NewSelect().
		TableExpr("club_results AS clr").
		ColumnExpr("clr.championship_id, clr.club_id, cl.name, clr.total_points").
		Join("JOIN clubs AS cl ON cl.id = clr.club_id").
		Where("clr.championship_id = ?", championshipID).
		OrderExpr("clr.total_points DESC, clr.club_id").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("store.ClubStandings: %w", err)
	}
	return rows, nil
}
