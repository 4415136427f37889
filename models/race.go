package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Race status values.
const (
	RaceUpcoming  = "upcoming"
	RaceOngoing   = "ongoing"
	RaceCompleted = "completed"
	RaceCancelled = "cancelled"
)

// Race is a multi-day event made of one or more stages.
type Race struct {
	bun.BaseModel `bun:"table:races,alias:rc"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	Name      string    `bun:"name,notnull" json:"name"`
	Location  string    `bun:"location,notnull,default:''" json:"location,omitempty"`
	StartDate time.Time `bun:"start_date,notnull,type:date" json:"startDate"`
	EndDate   time.Time `bun:"end_date,notnull,type:date" json:"endDate"`
	Status    string    `bun:"status,notnull,default:'upcoming'" json:"status"`

	Stages []*Stage `bun:"rel:has-many,join:id=race_id" json:"-"`
}

// Stage is one timed day of a race.
type Stage struct {
	bun.BaseModel `bun:"table:stages,alias:st"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	RaceID    int64     `bun:"race_id,notnull,unique:stages_race_day" json:"raceID"`
	DayNumber int       `bun:"day_number,notnull,unique:stages_race_day" json:"dayNumber"`
	Date      time.Time `bun:"date,notnull,type:date" json:"date"`
	Type      string    `bun:"type,notnull" json:"type"`
}

// Participation status values.
const (
	ParticipationPending   = "pending"
	ParticipationConfirmed = "confirmed"
	ParticipationCancelled = "cancelled"
)

// RaceParticipation registers a rider for a race in one category.
type RaceParticipation struct {
	bun.BaseModel `bun:"table:race_participations,alias:rp"`

	ID        int64    `bun:"id,pk,autoincrement" json:"id"`
	RaceID    int64    `bun:"race_id,notnull,unique:race_participations_race_rider" json:"raceID"`
	RiderID   int64    `bun:"rider_id,notnull,unique:race_participations_race_rider" json:"riderID"`
	Category  Category `bun:"category,notnull" json:"category"`
	Status    string   `bun:"status,notnull,default:'pending'" json:"status"`
	BibNumber string   `bun:"bib_number,notnull,default:''" json:"bibNumber,omitempty"`
}
