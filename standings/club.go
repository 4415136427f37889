package standings

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/padraicbc/rallyapi/models"
)

// ComputeClubs sums championship points per club. riderClubs maps a rider to
// their current club; riders missing from it have no club and are left out.
func ComputeClubs(championshipID int64, results []models.ChampionshipResult, riderClubs map[int64]int64) ([]models.ClubResult, error) {
	totals := map[int64]decimal.Decimal{}
	for _, r := range results {
		if r.ChampionshipID != championshipID {
			return nil, &ComputationError{
				Scope: "club standings", ID: championshipID,
				Reason: fmt.Sprintf("result belongs to championship %d", r.ChampionshipID),
			}
		}
		clubID, ok := riderClubs[r.RiderID]
		if !ok {
			continue
		}
		totals[clubID] = totals[clubID].Add(r.TotalPoints)
	}

	out := make([]models.ClubResult, 0, len(totals))
	for clubID, total := range totals {
		out = append(out, models.ClubResult{
			ChampionshipID: championshipID,
			ClubID:         clubID,
			TotalPoints:    total,
		})
	}
	slices.SortFunc(out, func(a, b models.ClubResult) int {
		return cmp.Compare(a.ClubID, b.ClubID)
	})
	return out, nil
}
