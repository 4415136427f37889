package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Championship status values.
const (
	ChampionshipUpcoming  = "upcoming"
	ChampionshipActive    = "active"
	ChampionshipCompleted = "completed"
)

// Championship is a season-long series of races.
type Championship struct {
	bun.BaseModel `bun:"table:championships,alias:ch"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	Name      string    `bun:"name,notnull,unique:championships_name_year" json:"name"`
	Year      int       `bun:"year,notnull,unique:championships_name_year" json:"year"`
	StartDate time.Time `bun:"start_date,notnull,type:date" json:"startDate"`
	EndDate   time.Time `bun:"end_date,notnull,type:date" json:"endDate"`
	Status    string    `bun:"status,notnull,default:'upcoming'" json:"status"`
}

// ChampionshipRace links a race to a championship.
type ChampionshipRace struct {
	bun.BaseModel `bun:"table:championship_races,alias:cr"`

	ChampionshipID int64 `bun:"championship_id,pk" json:"championshipID"`
	RaceID         int64 `bun:"race_id,pk" json:"raceID"`
}
