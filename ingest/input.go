// Package ingest is the only writer of raw stage results. Every write is
// validated before a transaction opens and runs the owning race's cascade
// before returning.
package ingest

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/padraicbc/rallyapi/models"
	"github.com/padraicbc/rallyapi/standings"
)

// StageResultInput is one rider's raw result on one stage.
type StageResultInput struct {
	StageID   int64
	RiderID   int64
	Position  int
	TimeTaken *time.Duration
	Points    decimal.Decimal
	Penalties decimal.Decimal
	DNF       bool
	DSQ       bool
	Notes     string
}

// Validate rejects values the aggregators cannot accept.
func (in StageResultInput) Validate() error {
	switch {
	case in.StageID <= 0:
		return &standings.ValidationError{Field: "stageID", Reason: "must be positive"}
	case in.RiderID <= 0:
		return &standings.ValidationError{Field: "riderID", Reason: "must be positive"}
	case in.Position < 0:
		return &standings.ValidationError{Field: "position", Reason: "must not be negative"}
	case in.TimeTaken != nil && *in.TimeTaken < 0:
		return &standings.ValidationError{Field: "timeTaken", Reason: "must not be negative"}
	case in.Points.IsNegative():
		return &standings.ValidationError{Field: "pointsEarned", Reason: "must not be negative"}
	case in.Penalties.IsNegative():
		return &standings.ValidationError{Field: "penalties", Reason: "must not be negative"}
	}
	return nil
}

func (in StageResultInput) model() *models.StageResult {
	return &models.StageResult{
		StageID:      in.StageID,
		RiderID:      in.RiderID,
		Position:     in.Position,
		TimeTaken:    in.TimeTaken,
		PointsEarned: in.Points.Round(2),
		Penalties:    in.Penalties.Round(2),
		DNF:          in.DNF,
		DSQ:          in.DSQ,
		Notes:        in.Notes,
	}
}
