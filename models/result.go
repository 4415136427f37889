package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// StageResult is the raw outcome of one rider on one stage. It is written only
// by the ingest path; everything below is derived from it.
type StageResult struct {
	bun.BaseModel `bun:"table:stage_results,alias:sr"`

	StageID      int64           `bun:"stage_id,pk" json:"stageID"`
	RiderID      int64           `bun:"rider_id,pk" json:"riderID"`
	Position     int             `bun:"position,notnull" json:"position"`
	TimeTaken    *time.Duration  `bun:"time_taken,type:bigint" json:"-"`
	PointsEarned decimal.Decimal `bun:"points_earned,notnull,type:numeric(10,2),default:0" json:"pointsEarned"`
	Penalties    decimal.Decimal `bun:"penalties,notnull,type:numeric(10,2),default:0" json:"penalties"`
	DNF          bool            `bun:"dnf,notnull,default:false" json:"dnf"`
	DSQ          bool            `bun:"dsq,notnull,default:false" json:"dsq"`
	Notes        string          `bun:"notes,notnull,default:''" json:"notes,omitempty"`
	UpdatedAt    time.Time       `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updatedAt"`
}

// RaceResult is a rider's overall result for a race, ranked within its category.
type RaceResult struct {
	bun.BaseModel `bun:"table:race_results,alias:rr"`

	RaceID          int64           `bun:"race_id,pk" json:"raceID"`
	RiderID         int64           `bun:"rider_id,pk" json:"riderID"`
	Category        Category        `bun:"category,notnull" json:"category"`
	OverallPosition int             `bun:"overall_position,notnull" json:"overallPosition"`
	TotalTime       *time.Duration  `bun:"total_time,type:bigint" json:"-"`
	TotalPoints     decimal.Decimal `bun:"total_points,notnull,type:numeric(10,2),default:0" json:"totalPoints"`
	UpdatedAt       time.Time       `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"-"`
}

// ChampionshipResult is a rider's standing in one category of a championship.
type ChampionshipResult struct {
	bun.BaseModel `bun:"table:championship_results,alias:chr"`

	ChampionshipID     int64           `bun:"championship_id,pk" json:"championshipID"`
	RiderID            int64           `bun:"rider_id,pk" json:"riderID"`
	Category           Category        `bun:"category,pk" json:"category"`
	TotalPoints        decimal.Decimal `bun:"total_points,notnull,type:numeric(10,2),default:0" json:"totalPoints"`
	RacesParticipated  int             `bun:"races_participated,notnull,default:0" json:"racesParticipated"`
	LowestScoreDropped decimal.Decimal `bun:"lowest_score_dropped,notnull,type:numeric(10,2),default:0" json:"lowestScoreDropped"`
	UpdatedAt          time.Time       `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"-"`
}

// ClubResult is a club's standing in a championship.
type ClubResult struct {
	bun.BaseModel `bun:"table:club_results,alias:clr"`

	ChampionshipID int64           `bun:"championship_id,pk" json:"championshipID"`
	ClubID         int64           `bun:"club_id,pk" json:"clubID"`
	TotalPoints    decimal.Decimal `bun:"total_points,notnull,type:numeric(10,2),default:0" json:"totalPoints"`
	UpdatedAt      time.Time       `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"-"`
}
