package recalc

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/padraicbc/rallyapi/models"
	"github.com/padraicbc/rallyapi/standings"
)

// Report describes one committed (or dry run) cascade.
type Report struct {
	RunID         uuid.UUID                     `json:"runID"`
	Scope         Scope                         `json:"scope"`
	ID            int64                         `json:"id,omitempty"`
	DryRun        bool                          `json:"dryRun"`
	Races         []RaceSummary                 `json:"races"`
	Championships []ChampionshipSummary         `json:"championships"`
	Warnings      []*standings.ReferentialError `json:"warnings,omitempty"`
}

// RaceSummary counts the RaceResults a race ended up with.
type RaceSummary struct {
	RaceID  int64 `json:"raceID"`
	Results int   `json:"results"`
}

// ChampionshipSummary counts the standings and club rows of a championship.
type ChampionshipSummary struct {
	ChampionshipID int64          `json:"championshipID"`
	Races          int            `json:"races"`
	Standings      int            `json:"standings"`
	Clubs          int            `json:"clubs"`
	Dropped        []DroppedScore `json:"dropped,omitempty"`
}

// DroppedScore is a lowest race score removed from a full-participation standing.
type DroppedScore struct {
	RiderID  int64           `json:"riderID"`
	Category models.Category `json:"category"`
	Points   decimal.Decimal `json:"points"`
}
