package standings

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/padraicbc/rallyapi/models"
)

// RankKey carries the fields race ranking is decided on.
type RankKey struct {
	RiderID   int64
	LastName  string
	Points    decimal.Decimal
	TotalTime *time.Duration
}

// CompareRank orders two riders of the same category: points descending, total
// time ascending with untimed riders after timed ones, surname, then rider id.
func CompareRank(a, b RankKey) int {
	if c := b.Points.Cmp(a.Points); c != 0 {
		return c
	}
	switch {
	case a.TotalTime != nil && b.TotalTime == nil:
		return -1
	case a.TotalTime == nil && b.TotalTime != nil:
		return 1
	case a.TotalTime != nil && b.TotalTime != nil:
		if c := cmp.Compare(*a.TotalTime, *b.TotalTime); c != 0 {
			return c
		}
	}
	if c := strings.Compare(strings.ToLower(a.LastName), strings.ToLower(b.LastName)); c != 0 {
		return c
	}
	if c := strings.Compare(a.LastName, b.LastName); c != 0 {
		return c
	}
	return cmp.Compare(a.RiderID, b.RiderID)
}

// ReportKey carries the fields of the printed standings order.
type ReportKey struct {
	RiderID      int64
	LastName     string
	TotalPoints  decimal.Decimal
	BestPosition int // 0 when the rider has no ranked race
}

// ReportingOrder is the order used by exported standings sheets: points
// descending, best single-race position, surname. It never assigns ranks.
func ReportingOrder(a, b ReportKey) int {
	if c := b.TotalPoints.Cmp(a.TotalPoints); c != 0 {
		return c
	}
	ap, bp := a.BestPosition, b.BestPosition
	if ap == 0 {
		ap = int(^uint(0) >> 1)
	}
	if bp == 0 {
		bp = int(^uint(0) >> 1)
	}
	if c := cmp.Compare(ap, bp); c != 0 {
		return c
	}
	if c := strings.Compare(a.LastName, b.LastName); c != 0 {
		return c
	}
	return cmp.Compare(a.RiderID, b.RiderID)
}

// categoryIndex gives the display position of c, unknown categories last.
func categoryIndex(c models.Category) int {
	if i := slices.Index(models.Categories, c); i >= 0 {
		return i
	}
	return len(models.Categories)
}

// verifyRanks checks that every category of a race is ranked 1..N exactly once.
func verifyRanks(raceID int64, results []models.RaceResult) error {
	seen := map[models.Category]map[int]bool{}
	for _, r := range results {
		if r.OverallPosition < 1 {
			return &ComputationError{Scope: "race", ID: raceID, Category: r.Category, Reason: "rank below 1"}
		}
		ranks, ok := seen[r.Category]
		if !ok {
			ranks = map[int]bool{}
			seen[r.Category] = ranks
		}
		if ranks[r.OverallPosition] {
			return &ComputationError{Scope: "race", ID: raceID, Category: r.Category, Reason: "duplicate rank"}
		}
		ranks[r.OverallPosition] = true
	}
	for category, ranks := range seen {
		for i := 1; i <= len(ranks); i++ {
			if !ranks[i] {
				return &ComputationError{Scope: "race", ID: raceID, Category: category, Reason: "ranks are not contiguous"}
			}
		}
	}
	return nil
}
