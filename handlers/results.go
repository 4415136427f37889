package handlers

import (
	"net/http"
	"slices"

	"github.com/labstack/echo/v4"

	"github.com/padraicbc/rallyapi/models"
	"github.com/padraicbc/rallyapi/standings"
	"github.com/padraicbc/rallyapi/store"
)

type raceResultResponse struct {
	store.RaceResultRow
	TotalTime string `json:"totalTime,omitempty"`
}

// RaceResults returns a race's results by category and rank.
// Optional query parameters: category, rider.
func (h *Handler) RaceResults(c echo.Context) error {
	raceID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	f, err := filterFromQuery(c)
	if err != nil {
		return err
	}

	rows, err := h.store.RaceResults(c.Request().Context(), raceID, f)
	if err != nil {
		return httpError(err)
	}

	out := make([]raceResultResponse, len(rows))
	for i, r := range rows {
		out[i] = raceResultResponse{RaceResultRow: r}
		if r.TotalTime != nil {
			out[i].TotalTime = models.FormatClock(*r.TotalTime)
		}
	}
	return c.JSON(http.StatusOK, out)
}

// ChampionshipStandings returns a championship's standings by points.
// Optional query parameters: category, rider.
func (h *Handler) ChampionshipStandings(c echo.Context) error {
	championshipID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	f, err := filterFromQuery(c)
	if err != nil {
		return err
	}

	rows, err := h.store.ChampionshipStandings(c.Request().Context(), championshipID, f)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, rows)
}

type exportCategory struct {
	Category models.Category     `json:"category"`
	Riders   []store.StandingRow `json:"riders"`
}

// StandingsExport returns standings grouped by category in the printed sheet
// order: points, best race position, surname.
func (h *Handler) StandingsExport(c echo.Context) error {
	championshipID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	rows, err := h.store.ChampionshipStandings(c.Request().Context(), championshipID, store.Filter{})
	if err != nil {
		return httpError(err)
	}

	byCategory := make(map[models.Category][]store.StandingRow)
	for _, r := range rows {
		byCategory[r.Category] = append(byCategory[r.Category], r)
	}

	out := []exportCategory{}
	for _, cat := range models.Categories {
		riders, ok := byCategory[cat]
		if !ok {
			continue
		}
		slices.SortFunc(riders, func(a, b store.StandingRow) int {
			return standings.ReportingOrder(reportKey(a), reportKey(b))
		})
		out = append(out, exportCategory{Category: cat, Riders: riders})
	}
	return c.JSON(http.StatusOK, out)
}

func reportKey(r store.StandingRow) standings.ReportKey {
	return standings.ReportKey{
		RiderID:      r.RiderID,
		LastName:     r.LastName,
		TotalPoints:  r.TotalPoints,
		BestPosition: r.BestPosition,
	}
}

// ClubStandings returns a championship's club standings by points.
func (h *Handler) ClubStandings(c echo.Context) error {
	championshipID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	rows, err := h.store.ClubStandings(c.Request().Context(), championshipID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, rows)
}
